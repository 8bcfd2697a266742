package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"threadline/api/internal/pagination"
)

func windowCmd() *cli.Command {
	return &cli.Command{
		Name:      "window",
		Usage:     "Print the pager window for a page",
		ArgsUsage: "<current> <total>",
		Action:    printWindow,
	}
}

func printWindow(_ context.Context, c *cli.Command) error {
	if c.Args().Len() != 2 {
		return fmt.Errorf("window: expected <current> <total>")
	}
	current, err := strconv.Atoi(c.Args().Get(0))
	if err != nil {
		return fmt.Errorf("window: current must be an integer")
	}
	total, err := strconv.Atoi(c.Args().Get(1))
	if err != nil {
		return fmt.Errorf("window: total must be an integer")
	}

	if !pagination.Visible(total) {
		_, err := fmt.Fprintln(c.Root().Writer, "(hidden)")
		return err
	}
	window := pagination.Compute(current, total)
	parts := make([]string, len(window))
	for i, entry := range window {
		parts[i] = entry.String()
	}
	_, err = fmt.Fprintln(c.Root().Writer, strings.Join(parts, " "))
	return err
}
