package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

// Information to find out exactly which commit the bridge was built from.
// These are filled at build time with the -X linker flag.
var (
	Tag       = "unknown"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:    "livelink-bridge",
		Usage:   "OpenSearch bridge for Livelink full-text search",
		Version: fmt.Sprintf("%s (commit %s, built %s)", Tag, Commit, BuildTime),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML config file (optional)",
				Value:   "config.yaml",
			},
			&cli.StringFlag{
				Name:  "env",
				Usage: "environment file loaded before the config",
				Value: ".env",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the HTTP bridge",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Usage: "listen address, overrides the config",
					},
				},
				Action: serveAction,
			},
			{
				Name:   "search",
				Usage:  "run one search and print the response body",
				Flags:  searchFlags(),
				Action: searchAction,
			},
			{
				Name:  "descriptor",
				Usage: "print the OpenSearch descriptor document",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "public-url",
						Usage: "public base URL of the bridge, overrides the config",
					},
					&cli.StringFlag{
						Name:  "livelink-url",
						Usage: "Livelink CGI URL fixed in the templates",
					},
					&cli.BoolFlag{
						Name:  "sso",
						Usage: "advertise searches with useSSO=true",
					},
					&cli.StringFlag{
						Name:  "app-id",
						Usage: "targetAppID fixed in the templates",
					},
					&cli.StringFlag{
						Name:  "login-pattern",
						Usage: "loginPattern fixed in the templates",
					},
				},
				Action: descriptorAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
