package cart

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the cart endpoints. POST /cart/items is owned by
// the vendor guard, which decides whether an add goes through directly.
func RegisterRoutes(r *gin.RouterGroup, handler *Handler, auth gin.HandlerFunc) {
	carts := r.Group("/cart")
	carts.Use(auth)
	{
		carts.GET("", handler.Detail)
		carts.POST("/refresh", handler.Refresh)
		carts.DELETE("", handler.Clear)

		items := carts.Group("/items/:itemId")
		{
			items.PATCH("", handler.UpdateQty)
			items.POST("/increment", handler.Increment)
			items.POST("/decrement", handler.Decrement)
			items.DELETE("", handler.RemoveItem)
		}
	}
}
