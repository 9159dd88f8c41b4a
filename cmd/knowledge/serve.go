package main

import (
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/poiesic/knowledge/api"
	"github.com/urfave/cli/v2"
)

func (cmds *commands) serve(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger := cfg.Logging.NewLogger(c.App.ErrWriter)
	slog.SetDefault(logger)

	db, err := cmds.openDatabase(c, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	handler, err := api.NewHandler(db.Store(), db.Pipeline(), db.Searcher(),
		api.WithLogger(logger),
		api.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
	)
	if err != nil {
		return err
	}

	srv := api.NewServer(&cfg.Server, handler.Handler(), cfg.ShutdownTimeoutDuration(), logger)
	return srv.Run(ctx)
}
