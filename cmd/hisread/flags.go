package main

import "github.com/urfave/cli/v3"

var (
	stackPath  string
	stacksPath string
	quickStep  int
	verifyMode string
	logLevel   string
	logFormat  string
	debug      bool
)

func commonStackFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "stack",
			Aliases:     []string{"s"},
			Usage:       "path to .HIS file (or pass it as the first argument)",
			Destination: &stackPath,
		},
		&cli.StringFlag{
			Name:        "stacks-path",
			Aliases:     []string{"path"},
			Usage:       "directory to pick a .HIS file from when no stack is given",
			Destination: &stacksPath,
		},
		&cli.IntFlag{
			Name:        "quick-step",
			Usage:       "initial forward jump of the quick header check",
			Value:       2000,
			Destination: &quickStep,
		},
		&cli.StringFlag{
			Name:        "verify",
			Usage:       "verify the frame index on open (none, quick, full)",
			Value:       "none",
			Destination: &verifyMode,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

func previewFlags(scale *float64, raw *bool) []cli.Flag {
	return []cli.Flag{
		&cli.FloatFlag{
			Name:        "scale",
			Usage:       "resize factor for the PNG",
			Value:       1,
			Destination: scale,
		},
		&cli.BoolFlag{
			Name:        "raw",
			Usage:       "write native sample values instead of a contrast-stretched image",
			Destination: raw,
		},
	}
}
