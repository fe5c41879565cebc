package main

import (
	"context"
	"fmt"
	"os"

	"github.com/hookdeck/redishook/internal/version"
	"github.com/urfave/cli/v3"
)

func main() {
	if err := NewCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// NewCommand creates and configures the CLI command
func NewCommand() *cli.Command {
	return &cli.Command{
		Name:    "redishook",
		Usage:   "Redis client bootstrapper",
		Version: version.Version(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Sources: cli.EnvVars("CONFIG"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the host application with the redis hook",
				Action: serve,
			},
			{
				Name:  "check",
				Usage: "Bootstrap the redis client, ping it and disconnect",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for PING",
						Value: defaultCheckTimeout,
					},
				},
				Action: check,
			},
			{
				Name:   "config",
				Usage:  "Print the resolved configuration with secrets masked",
				Action: printConfig,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			// Default action: show help
			return cli.ShowAppHelp(c)
		},
	}
}
