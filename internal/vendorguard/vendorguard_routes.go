package vendorguard

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup, handler *Handler, auth gin.HandlerFunc) {
	items := r.Group("/cart/items")
	items.Use(auth)
	{
		items.POST("", handler.AddItem)
		items.POST("/confirm", handler.Confirm)
		items.GET("/pending", handler.Status)
		items.DELETE("/pending", handler.Cancel)
	}
}
