// Package cmd wires the threadline command line: the HTTP server and a few
// tools for poking at threads from a terminal.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
	"resty.dev/v3"

	"threadline/api/internal/config"
	"threadline/api/internal/contentapi"
)

const VERSION = "0.1.0"

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "threadline",
		Usage:   "Comment threads for the blog frontend",
		Version: VERSION,
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			if err := initLogger(c.String("log-level")); err != nil {
				return ctx, err
			}
			return ctx, nil
		},
		Flags: []cli.Flag{
			logLevelFlag(),
		},
		Commands: []*cli.Command{
			serveCmd(),
			threadCmd(),
			windowCmd(),
		},
	}
}

func Run() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the environment and applies the flags set on c.
func loadConfig(c *cli.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if c.IsSet(addrFlagName) {
		cfg.Addr = c.String(addrFlagName)
	}
	if c.IsSet(contentAPIFlagName) {
		cfg.ContentAPIURL = c.String(contentAPIFlagName)
	}
	return cfg, nil
}

func newContentAPI(cfg config.Config, logger *slog.Logger, middlewares ...resty.ResponseMiddleware) *contentapi.Client {
	return contentapi.NewClient(contentapi.Config{
		BaseURL:             cfg.ContentAPIURL,
		Timeout:             cfg.ContentAPITimeout,
		ResponseMiddlewares: middlewares,
	}, logger)
}
