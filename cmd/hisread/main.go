package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/hisread/internal/logger"
)

// appConfig is loaded once in the root Before hook.
var appConfig Config

func main() {
	app := &cli.Command{
		Name:   "hisread",
		Usage:  "Read Hamamatsu HIS image stacks",
		Flags:  loggingFlags(),
		Before: setup,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			inspectCmd(),
			verifyCmd(),
			frameCmd(),
			reduceCmd(),
			extractCmd(),
			listCmd(),
			benchCmd(),
			serveCmd(),
			versionCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := LoadConfig()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "warning: ignoring config file: %v\n", err)
	}
	appConfig = cfg
	applyLoggingConfig(cmd, cfg)

	level := logLevel
	if debug {
		level = "debug"
	}
	log, err := logger.ForFormat(os.Stderr, logFormat, level)
	if err != nil {
		return ctx, cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}
	return logger.WithContext(ctx, log), nil
}
