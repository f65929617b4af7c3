package command

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/nconklindev/sheetdiff/internal/log"
	"github.com/nconklindev/sheetdiff/internal/web"
)

func serveCommandBuilder() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the browser front end",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "listen address (default from config, :8501)",
			},
		},
		Action: serveCommandAction,
	}
}

func serveCommandAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.IsSet("addr") {
		cfg.Server.Addr = cmd.String("addr")
	}

	// The server logs requests at info level unless told otherwise.
	if !cmd.IsSet("log-level") && cfg.Log.Level == "error" {
		cfg.Log.Level = "info"
	}
	closer, err := initLogging(cfg, cmd.Root().ErrWriter)
	if err != nil {
		return err
	}
	defer closer.Close()

	assistant, err := newAssistant(cfg)
	if err != nil {
		return err
	}
	if assistant == nil {
		log.Warnf("OPENAI_API_KEY is not set; questions are disabled")
	}

	srv, err := web.NewServer(web.Options{
		Addr:          cfg.Server.Addr,
		MaxUploadSize: cfg.Server.MaxUploadSize,
		MaxSessions:   cfg.Server.MaxSessions,
		Loader:        loaderOptions(cfg),
		Diff:          diffOptions(cfg),
		Assistant:     assistant,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return srv.ListenAndServe(ctx)
}
