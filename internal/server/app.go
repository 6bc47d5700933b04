// Package server wires the C1–C10 components into a running collectiond
// server: load config, open the persistence gateway, load the in-memory
// collection, build the command registry and router, start the two I/O
// worker pools and the epoll connection manager, and shut down cleanly on
// SIGINT/SIGTERM/SIGQUIT.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/serezk4/collectiond/internal/logging"
	"github.com/serezk4/collectiond/internal/server/collection"
	"github.com/serezk4/collectiond/internal/server/commands"
	"github.com/serezk4/collectiond/internal/server/config"
	"github.com/serezk4/collectiond/internal/server/conn"
	"github.com/serezk4/collectiond/internal/server/router"
	"github.com/serezk4/collectiond/internal/server/store"
	"github.com/serezk4/collectiond/internal/server/workerpool"
)

const (
	readPoolQueue  = 256
	writePoolQueue = 256
)

// App owns every long-lived component of a running server.
type App struct {
	config    *config.Config
	logger    logging.Logger
	gateway   *store.Gateway
	readPool  *workerpool.Pool
	writePool *workerpool.Pool
	manager   *conn.Manager
}

// NewApp wires all components but does not start accepting connections —
// call Run for that.
func NewApp(cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	gateway := store.Open(cfg.DSN())

	ctx := context.Background()
	if err := gateway.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	coll := collection.New(gateway)
	if err := coll.Load(ctx); err != nil {
		return nil, fmt.Errorf("load collection: %w", err)
	}

	registry := commands.NewRegistry()
	deps := &commands.Deps{Collection: coll}
	rt := router.New(gateway, registry, deps, logger)

	workers := runtime.NumCPU()
	readPool := workerpool.New("read", workers, readPoolQueue, logger)
	writePool := workerpool.New("write", workers, writePoolQueue, logger)

	manager, err := conn.New(cfg.Port, rt, readPool, writePool, logger)
	if err != nil {
		readPool.Close()
		writePool.Close()
		return nil, fmt.Errorf("connection manager: %w", err)
	}

	return &App{
		config:    cfg,
		logger:    logger,
		gateway:   gateway,
		readPool:  readPool,
		writePool: writePool,
		manager:   manager,
	}, nil
}

func (app *App) initSignalHandler(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancel()
	}()
}

// Run starts the connection manager and blocks until ctx is canceled or a
// termination signal arrives, then shuts every component down in reverse
// wiring order.
func (app *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	app.logger.Info(ctx, "starting collectiond server", "port", app.config.Port)
	app.initSignalHandler(cancel)
	go app.runConsole(ctx, cancel, os.Stdin)

	go app.manager.Run()

	<-ctx.Done()
	app.logger.Info(ctx, "shutting down")

	app.manager.Close()

	app.readPool.Close()
	app.writePool.Close()

	if err := app.gateway.Close(); err != nil {
		app.logger.Error(ctx, "closing gateway", "err", err)
	}
}
