package v1

import (
	"github.com/gin-gonic/gin"

	"chat-backend/internal/interfaces/httpserver/handlers"
)

func registerConversationRoutes(router gin.IRoutes, handler *handlers.ConversationHandler) {
	router.POST("/conversations", handler.Create)
	router.GET("/conversations/:conversation_id", handler.Get)
	router.GET("/conversations/:conversation_id/messages", handler.ListMessages)
}
