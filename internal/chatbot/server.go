// Package chatbot wires the knowledge base chatbot service together.
package chatbot

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/kb-chatbot/internal/chatbot/biz"
	"github.com/kart-io/kb-chatbot/internal/chatbot/handler"
	"github.com/kart-io/kb-chatbot/internal/chatbot/metrics"
	"github.com/kart-io/kb-chatbot/internal/chatbot/router"
	"github.com/kart-io/kb-chatbot/pkg/infra/app"
	"github.com/kart-io/kb-chatbot/pkg/infra/server"
	httpserver "github.com/kart-io/kb-chatbot/pkg/infra/server/http"
	"github.com/kart-io/kb-chatbot/pkg/llm"
	chatbotopts "github.com/kart-io/kb-chatbot/pkg/options/chatbot"
	httpopts "github.com/kart-io/kb-chatbot/pkg/options/http"
	llmopts "github.com/kart-io/kb-chatbot/pkg/options/llm"
	logopts "github.com/kart-io/kb-chatbot/pkg/options/logger"
)

// Name is the name of the application.
const Name = "kb-chatbot"

// Config contains application-related configurations.
type Config struct {
	StoreConfig

	HTTPOptions     *httpopts.Options
	LogOptions      *logopts.Options
	ChatbotOptions  *chatbotopts.Options
	ChatOptions     *llmopts.ProviderOptions
	ShutdownTimeout time.Duration
}

// Server represents the chatbot server.
type Server struct {
	http            *httpserver.Server
	resources       *Resources
	metrics         *metrics.Metrics
	shutdownTimeout time.Duration
}

// NewServer initializes and returns a new Server instance.
// Every dependency is built exactly once here.
func (cfg *Config) NewServer(ctx context.Context) (*Server, error) {
	// 1. 初始化日志
	cfg.LogOptions.AddInitialField("service.name", Name)
	cfg.LogOptions.AddInitialField("service.version", app.GetVersion())
	if err := cfg.LogOptions.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Infow("Starting chatbot service...",
		"embedding", cfg.EmbeddingOptions.Model,
		"chat", cfg.ChatOptions.Model,
		"backend", cfg.IndexOptions.Backend,
	)

	// 2. 打开向量存储
	res, err := cfg.StoreConfig.Open(ctx)
	if err != nil {
		return nil, err
	}

	// 3. 初始化 Chat 供应商
	chat, err := llm.NewChatProvider(cfg.ChatOptions.Provider, cfg.ChatOptions.ToConfigMap())
	if err != nil {
		_ = res.Close(ctx)
		return nil, fmt.Errorf("failed to initialize chat provider: %w", err)
	}
	logger.Infow("Chat provider initialized", "provider", cfg.ChatOptions.Provider, "model", cfg.ChatOptions.Model)

	// 4. 初始化编排器
	m := metrics.New()
	persona := biz.Persona{Name: cfg.ChatbotOptions.Name, Company: cfg.ChatbotOptions.Company}
	orchestrator := biz.NewOrchestrator(res.Store, chat, persona, biz.Config{
		TopK:        cfg.ChatbotOptions.TopK,
		Temperature: cfg.ChatbotOptions.Temperature,
		MaxTokens:   cfg.ChatbotOptions.MaxTokens,
	}, m)
	logger.Infow("Orchestrator initialized", "name", persona.Name, "company", persona.Company)

	// 5. 注册路由
	httpSrv, err := httpserver.NewServer(cfg.HTTPOptions)
	if err != nil {
		_ = res.Close(ctx)
		return nil, err
	}
	router.Register(httpSrv.Engine(), handler.NewChatHandler(orchestrator))

	return &Server{
		http:            httpSrv,
		resources:       res,
		metrics:         m,
		shutdownTimeout: cfg.ShutdownTimeout,
	}, nil
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.resources.Close(closeCtx); err != nil {
			logger.Errorw("failed to release resources", "error", err.Error())
		}
		logger.Infow("Chatbot service stopped", "stats", s.metrics.Stats())
		_ = logger.Flush()
	}()

	return server.Run(ctx, s.shutdownTimeout, s.http)
}
