package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/hisread/internal/version"
)

// buildReport is the machine-readable form of `hisread version`.
type buildReport struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version,omitempty"`
	Platform  string `json:"platform"`
}

func newBuildReport(info version.Info) buildReport {
	return buildReport{
		Version:   info.Version,
		Commit:    info.Commit,
		BuildTime: info.BuildTime,
		GoVersion: info.GoVersion,
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func printBuildReport(w io.Writer, r buildReport) {
	_, _ = fmt.Fprintf(w, "hisread %s\n", r.Version)
	for _, row := range [][2]string{
		{"commit", r.Commit},
		{"built", r.BuildTime},
		{"go", r.GoVersion},
		{"platform", r.Platform},
	} {
		if row[1] != "" {
			_, _ = fmt.Fprintf(w, "  %-9s %s\n", row[0]+":", row[1])
		}
	}
}

func versionCmd() *cli.Command {
	var asJSON bool
	return &cli.Command{
		Name:  "version",
		Usage: "Print build information",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print as JSON",
				Destination: &asJSON,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			r := newBuildReport(version.Resolve())
			if asJSON {
				return writeJSON(os.Stdout, r)
			}
			printBuildReport(os.Stdout, r)
			return nil
		},
	}
}
