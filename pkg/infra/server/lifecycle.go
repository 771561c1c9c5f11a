// Package server runs long-lived servers until their context ends and stops
// them within a shutdown deadline.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kart-io/logger"
	"golang.org/x/sync/errgroup"
)

// Lifecycle defines the lifecycle interface for servers.
type Lifecycle interface {
	// Start starts the server. It returns once the server is accepting.
	Start(ctx context.Context) error
	// Stop stops the server gracefully.
	Stop(ctx context.Context) error
}

// Runnable represents a component that can be started and stopped.
type Runnable interface {
	Lifecycle
	// Name returns the server name for identification.
	Name() string
}

// Run starts every server, blocks until ctx is done or a server fails, then
// stops all servers within shutdownTimeout.
func Run(ctx context.Context, shutdownTimeout time.Duration, servers ...Runnable) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, s := range servers {
		if err := s.Start(gctx); err != nil {
			stopAll(shutdownTimeout, servers)
			return fmt.Errorf("failed to start server %s: %w", s.Name(), err)
		}
		logger.Infow("Server started", "name", s.Name())

		if w, ok := s.(interface{ Wait() error }); ok {
			g.Go(w.Wait)
		}
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Infow("Shutting down servers", "timeout", shutdownTimeout.String())
		return stopAll(shutdownTimeout, servers)
	})

	return g.Wait()
}

func stopAll(timeout time.Duration, servers []Runnable) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var firstErr error
	for i := len(servers) - 1; i >= 0; i-- {
		if err := servers[i].Stop(ctx); err != nil {
			logger.Errorw("Failed to stop server", "name", servers[i].Name(), "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to stop server %s: %w", servers[i].Name(), err)
			}
			continue
		}
		logger.Infow("Server stopped", "name", servers[i].Name())
	}
	return firstErr
}

// SetupSignalContext returns a context cancelled on SIGINT or SIGTERM.
// A second signal exits the process immediately.
func SetupSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	ch := make(chan os.Signal, 2)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
		<-ch
		os.Exit(1)
	}()

	return ctx
}
