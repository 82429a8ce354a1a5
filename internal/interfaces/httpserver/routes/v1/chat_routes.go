package v1

import (
	"github.com/gin-gonic/gin"

	"chat-backend/internal/interfaces/httpserver/handlers"
)

func registerChatRoutes(router gin.IRoutes, handler *handlers.ChatHandler) {
	router.POST("/chat", handler.Stream)
	router.POST("/chat/:stream_id/cancel", handler.Cancel)
}
