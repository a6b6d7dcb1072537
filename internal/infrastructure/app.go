package infrastructure

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

type App struct {
	servers []Server
}

func NewApp(servers []Server) *App {
	return &App{servers: servers}
}

// Run starts every server and blocks until ctx is cancelled or one of them
// fails, then stops them all.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, srv := range a.servers {
		s := srv
		g.Go(func() error {
			return s.Start(ctx)
		})
	}

	<-ctx.Done()

	for _, srv := range a.servers {
		if err := srv.Stop(context.Background()); err != nil {
			slog.Error("server stop failed", "error", err)
		}
	}

	return g.Wait()
}
