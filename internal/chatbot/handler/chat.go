// Package handler provides HTTP handlers for the chatbot service.
package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/kb-chatbot/internal/chatbot/biz"
	apierrors "github.com/kart-io/kb-chatbot/pkg/errors"
	"github.com/kart-io/kb-chatbot/pkg/infra/middleware"
	"github.com/kart-io/kb-chatbot/pkg/llm"
	"github.com/kart-io/kb-chatbot/pkg/utils/response"
)

// Responder answers a question with retrieval augmented generation.
type Responder interface {
	GenerateResponse(ctx context.Context, question string, history []llm.Message) (*biz.Reply, error)
	Persona() biz.Persona
}

// ChatHandler handles chatbot HTTP requests.
type ChatHandler struct {
	responder Responder
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(responder Responder) *ChatHandler {
	return &ChatHandler{responder: responder}
}

// HistoryMessage is one prior turn of the conversation.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message             string           `json:"message"`
	ConversationHistory []HistoryMessage `json:"conversation_history"`
}

// ChatResponse is the answer to POST /chat.
type ChatResponse struct {
	Response string   `json:"response"`
	Sources  []string `json:"sources"`
}

// Chat answers a user message.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, apierrors.ErrValidationFailed.WithMessagef("invalid request body: %v", err))
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		response.Fail(c, apierrors.ErrEmptyMessage)
		return
	}

	history, err := toMessages(req.ConversationHistory)
	if err != nil {
		response.Fail(c, apierrors.ErrValidationFailed.WithMessage(err.Error()))
		return
	}

	reply, err := h.responder.GenerateResponse(c.Request.Context(), req.Message, history)
	if err != nil {
		logger.Errorw("failed to generate response",
			"request_id", middleware.GetRequestID(c),
			"error", err.Error(),
		)
		response.Fail(c, apierrors.ErrChatFailed.WithMessagef("Error generating response: %v", err))
		return
	}

	logger.Debugw("chat answered",
		"request_id", middleware.GetRequestID(c),
		"outcome", reply.Outcome.String(),
		"sources", len(reply.Sources),
	)
	response.OK(c, ChatResponse{Response: reply.Text, Sources: reply.Sources})
}

// Root reports that the API is running.
func (h *ChatHandler) Root(c *gin.Context) {
	response.OK(c, gin.H{"message": fmt.Sprintf("%s chatbot API is running", h.responder.Persona().Name)})
}

// Health reports liveness for monitoring.
func (h *ChatHandler) Health(c *gin.Context) {
	response.OK(c, gin.H{"status": "healthy", "rag_system": "initialized"})
}

func toMessages(history []HistoryMessage) ([]llm.Message, error) {
	messages := make([]llm.Message, 0, len(history))
	for i, m := range history {
		role := llm.Role(strings.ToLower(m.Role))
		switch role {
		case llm.RoleUser, llm.RoleAssistant, llm.RoleSystem:
		default:
			return nil, fmt.Errorf("conversation_history[%d]: unknown role %q", i, m.Role)
		}
		messages = append(messages, llm.Message{Role: role, Content: m.Content})
	}
	return messages, nil
}
