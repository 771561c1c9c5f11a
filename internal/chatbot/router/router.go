// Package router registers the chatbot HTTP routes.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/kb-chatbot/internal/chatbot/handler"
)

// Register registers the chatbot routes on engine.
func Register(engine *gin.Engine, h *handler.ChatHandler) {
	engine.GET("/", h.Root)
	engine.GET("/health", h.Health)
	engine.POST("/chat", h.Chat)

	logger.Info("HTTP routes registered")
}
