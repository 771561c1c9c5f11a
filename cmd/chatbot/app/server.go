// Package app provides the chatbot server application.
package app

import (
	"fmt"

	"github.com/kart-io/kb-chatbot/cmd/chatbot/app/options"
	"github.com/kart-io/kb-chatbot/pkg/infra/app"
	"github.com/kart-io/kb-chatbot/pkg/infra/server"
)

const (
	// Name is the name of the application.
	Name = "chatbot"

	commandDesc = `Knowledge base chatbot API

Answers questions from a knowledge base of plain text files.

This server provides:
  - POST /chat   retrieval augmented answers with source attribution
  - GET  /       liveness message
  - GET  /health health check for monitoring

Load the knowledge base with kb-loader before starting the server.`
)

// NewApp creates and returns a new App object with default parameters.
func NewApp() *app.App {
	opts := options.NewServerOptions()
	return app.NewApp(
		app.WithName(Name),
		app.WithShortDescription("Knowledge base chatbot API"),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithRunFunc(run(opts)),
	)
}

func run(opts *options.ServerOptions) app.RunFunc {
	return func() error {
		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		ctx := server.SetupSignalContext()

		srv, err := cfg.NewServer(ctx)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		return srv.Run(ctx)
	}
}
