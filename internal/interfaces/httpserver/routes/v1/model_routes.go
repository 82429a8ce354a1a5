package v1

import (
	"github.com/gin-gonic/gin"

	"chat-backend/internal/interfaces/httpserver/handlers"
)

func registerModelRoutes(router gin.IRoutes, handler *handlers.ModelHandler) {
	router.GET("/models", handler.List)
}
