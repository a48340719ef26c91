package main

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/linkvault-app/linkvault-back/internal/bookmarks"
	"github.com/linkvault-app/linkvault-back/internal/config"
	"github.com/linkvault-app/linkvault-back/internal/db"
	"github.com/linkvault-app/linkvault-back/internal/logger"
	"github.com/linkvault-app/linkvault-back/internal/session"
	"github.com/linkvault-app/linkvault-back/internal/transport"
)

func main() {
	app := fx.New(
		fx.Provide(
			config.NewConfig,
			logger.NewLogger,
			bookmarks.NewBroker,
			session.NewIdentityCache,
			NewStore,
			NewResolver,
			transport.NewHTTPServer,
		),
		fx.Invoke(func(server *transport.HTTPServer) {}),
	)

	app.Run()
}

// NewStore picks the Store implementation once at startup: in-memory when
// the deployment has no backend configuration, postgres otherwise.
func NewStore(cfg *config.Config, broker *bookmarks.Broker, l *zap.SugaredLogger) (bookmarks.Store, error) {
	if cfg.DemoMode() {
		l.Info("Demo mode: bookmarks are kept in memory and lost on restart.")
		return bookmarks.NewMemoryStore(broker), nil
	}

	gdb, err := db.NewGormClient(cfg)
	if err != nil {
		return nil, err
	}
	return bookmarks.NewGormStore(gdb, broker), nil
}

func NewResolver(cfg *config.Config, cache session.IdentityCache, l *zap.SugaredLogger) (session.Resolver, error) {
	if cfg.DemoMode() {
		l.Info("Demo mode: sessions are synthesized locally.")
		return session.NewLocalResolver(cfg), nil
	}
	return session.NewRemoteResolver(cfg, cache), nil
}
