package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/hisread/internal/logger"
	"github.com/samcharles93/hisread/pkg/his"
)

func verifyCmd() *cli.Command {
	var (
		mode   string
		asJSON bool
		strict bool
	)

	return &cli.Command{
		Name:      "verify",
		Usage:     "Check the frame headers of a stack and report header size changes",
		ArgsUsage: "[stack.HIS]",
		Flags: append(commonStackFlags(),
			&cli.StringFlag{
				Name:        "mode",
				Usage:       "check mode (quick, full)",
				Value:       "quick",
				Destination: &mode,
			},
			&cli.BoolFlag{Name: "json", Usage: "print JSON", Destination: &asJSON},
			&cli.BoolFlag{Name: "strict", Usage: "exit with status 2 when header sizes change", Destination: &strict},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)

			m, err := his.ParseMode(mode)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			f, err := openStack(ctx, cmd)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer func() { _ = f.Close() }()

			if err := f.Verify(m); err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			rep, _ := f.IndexReport()
			log.Debug("verification finished", "mode", rep.Mode.String(), "probes", rep.Probes)

			if asJSON {
				if err := writeJSON(os.Stdout, struct {
					Path  string        `json:"path"`
					State string        `json:"state"`
					Index *indexSummary `json:"index"`
				}{f.Path, rep.State.String(), newIndexSummary(rep)}); err != nil {
					return err
				}
			} else {
				fmt.Printf("%s: %s (%s check, %d frames, %d probes)\n",
					f.Path, rep.State, rep.Mode, f.FrameCount(), rep.Probes)
				for _, c := range rep.Changes {
					fmt.Printf("  header size %d -> %d at frame %d\n", c.From, c.To, c.Frame)
				}
			}

			if strict && rep.State == his.Inconsistent {
				return cli.Exit("", 2)
			}
			return nil
		},
	}
}
