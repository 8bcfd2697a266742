package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/urfave/cli/v3"

	"threadline/api/internal/comments"
	"threadline/api/internal/thread"
	"threadline/api/internal/util"
)

func threadCmd() *cli.Command {
	return &cli.Command{
		Name:      "thread",
		Usage:     "Load a post and print its normalized comment thread",
		ArgsUsage: "<slug>",
		Flags:     []cli.Flag{contentAPIFlag()},
		Action:    printThread,
	}
}

func printThread(ctx context.Context, c *cli.Command) error {
	slug := strings.TrimSpace(c.Args().First())
	if slug == "" {
		return fmt.Errorf("thread: slug is required")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger := slog.Default()

	api := newContentAPI(cfg, logger)
	defer api.Close()

	view := thread.NewView(util.NewID("cli"), api, thread.Options{
		Normalizer: comments.Normalizer{
			GuestName: cfg.GuestName,
			Policy:    comments.ParseTimePolicy(cfg.CreatedAtPolicy),
		},
		Logger: logger,
	})
	defer view.Close()

	if err := view.Open(ctx, slug); err != nil {
		return err
	}
	snapshot, err := view.Snapshot()
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(c.Root().Writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(map[string]any{
		"slug":     snapshot.Slug,
		"comments": snapshot.Comments,
		"count":    comments.CountNodes(snapshot.Comments),
	})
}
