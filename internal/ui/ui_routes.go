package ui

import "github.com/gin-gonic/gin"

func RegisterRoutes(r *gin.RouterGroup, handler *Handler, auth gin.HandlerFunc) {
	ui := r.Group("/ui")
	ui.Use(auth)
	{
		ui.GET("/state", handler.State)
		ui.PATCH("/cart-panel", handler.CartPanel)
		ui.GET("/events", handler.Events)
	}
}
