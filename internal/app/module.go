// Package app composes the application with fx providers and lifecycle hooks.
package app

import (
	"context"
	"errors"
	"io/fs"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/chatflow-ai/chatflow/internal/attach"
	"github.com/chatflow-ai/chatflow/internal/bus"
	"github.com/chatflow-ai/chatflow/internal/config"
	"github.com/chatflow-ai/chatflow/internal/engine"
	"github.com/chatflow-ai/chatflow/internal/history"
	"github.com/chatflow-ai/chatflow/internal/history/kv"
	"github.com/chatflow-ai/chatflow/internal/logging"
	"github.com/chatflow-ai/chatflow/internal/paths"
	"github.com/chatflow-ai/chatflow/internal/responder"
	"github.com/chatflow-ai/chatflow/internal/tui"
)

// Module returns the fx module composing all providers and lifecycle hooks.
func Module() fx.Option {
	return fx.Module("chatflow",
		fx.Provide(
			provideLogger,
			provideConfig,
			provideBus,
			provideBackend,
			provideStore,
			provideAttachments,
			provideResponder,
			provideEngine,
			provideTUI,
		),
		fx.Invoke(registerLifecycle),
		fx.NopLogger,
	)
}

func provideLogger() (*zap.Logger, error) {
	if err := paths.EnsureDirs(); err != nil {
		return nil, err
	}
	return logging.New(paths.LogPath())
}

func provideConfig(logger *zap.Logger) *config.Config {
	cfg, err := config.Load(paths.ConfigPath())
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("config load failed, using defaults", zap.Error(err))
		}
		return config.Default()
	}
	return cfg
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideBackend(logger *zap.Logger) (kv.Backend, error) {
	backend, err := kv.OpenSQLite(paths.DBPath())
	if err != nil {
		return nil, err
	}
	logger.Info("history backend ready", zap.String("path", paths.DBPath()))
	return backend, nil
}

func provideStore(backend kv.Backend, b *bus.Bus, logger *zap.Logger) *history.Store {
	return history.NewStore(backend, b, logger)
}

func provideAttachments(logger *zap.Logger) *attach.Manager {
	return attach.NewManager(logger)
}

func provideResponder(cfg *config.Config) *responder.Responder {
	return responder.New(cfg.ReplyDelay())
}

func provideEngine(cfg *config.Config, am *attach.Manager, r *responder.Responder, st *history.Store, b *bus.Bus, logger *zap.Logger) *engine.Engine {
	return engine.New(engine.Options{
		Greeting:     cfg.Greeting,
		PersistDelay: cfg.PersistDelay(),
	}, am, r, st, b, logger)
}

func provideTUI(e *engine.Engine, b *bus.Bus, logger *zap.Logger) *tui.App {
	return tui.NewApp(e, b, logger)
}

func registerLifecycle(lc fx.Lifecycle, sd fx.Shutdowner, ui *tui.App, backend kv.Backend, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				if err := ui.Run(); err != nil {
					logger.Error("tui exited with error", zap.Error(err))
				}
				_ = sd.Shutdown()
			}()
			return nil
		},
		OnStop: func(_ context.Context) error {
			ui.Stop()
			if err := backend.Close(); err != nil {
				logger.Warn("error closing history backend", zap.Error(err))
			}
			logger.Info("chatflow stopped")
			return nil
		},
	})
}
