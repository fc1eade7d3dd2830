package coupon

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup, handler *Handler, auth gin.HandlerFunc) {
	coupons := r.Group("/coupons")
	coupons.Use(auth)
	{
		coupons.GET("", handler.Available)
		coupons.GET("/apply", handler.Selection)
		coupons.POST("/apply", handler.Apply)
		coupons.DELETE("/apply", handler.Clear)
	}
}
