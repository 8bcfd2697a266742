package cmd

import (
	"fmt"
	"slices"

	"github.com/urfave/cli/v3"
)

const (
	addrFlagName       = "addr"
	contentAPIFlagName = "content-api-url"
)

var validLogLevels = []string{"debug", "info", "warn", "error"}

// Flags are built per command tree; cli keeps parse state on the flag value.

func logLevelFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "log-level",
		Aliases: []string{"l"},
		Usage:   "The level of the logs",
		Value:   "info",
		Validator: func(value string) error {
			if !slices.Contains(validLogLevels, value) {
				return fmt.Errorf("invalid log level: %s, allowed values are: %s", value, validLogLevels)
			}
			return nil
		},
		Sources: cli.EnvVars("LOG_LEVEL"),
	}
}

func addrFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    addrFlagName,
		Aliases: []string{"a"},
		Usage:   "Address the HTTP server listens on, overrides THREADLINE_ADDR",
	}
}

func contentAPIFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  contentAPIFlagName,
		Usage: "Base URL of the content API, overrides THREADLINE_CONTENT_API_URL",
	}
}
