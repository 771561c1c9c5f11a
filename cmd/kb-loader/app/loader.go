// Package app provides the knowledge base loader application.
package app

import (
	"fmt"

	"github.com/kart-io/kb-chatbot/cmd/kb-loader/app/options"
	"github.com/kart-io/kb-chatbot/pkg/infra/app"
	"github.com/kart-io/kb-chatbot/pkg/infra/server"
)

const (
	// Name is the name of the application.
	Name = "kb-loader"

	commandDesc = `Knowledge base loader

Splits every .txt file in the knowledge base directory into sections on
blank lines, embeds each section and upserts it into the vector index.
Section ids are content hashes, so loading the same files twice does not
create duplicates.

Use --dry-run to preview the sections without calling any external
service, and --watch to keep re-ingesting files as they change.`
)

// NewApp creates and returns a new App object with default parameters.
func NewApp() *app.App {
	opts := options.NewLoaderOptions()
	return app.NewApp(
		app.WithName(Name),
		app.WithShortDescription("Load the knowledge base into the vector index"),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithRunFunc(run(opts)),
	)
}

func run(opts *options.LoaderOptions) app.RunFunc {
	return func() error {
		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		if err := cfg.Run(server.SetupSignalContext()); err != nil {
			return fmt.Errorf("error loading knowledge base: %w", err)
		}
		return nil
	}
}
