package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/hisread/internal/logger"
	"github.com/samcharles93/hisread/pkg/his"
)

func listCmd() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List the .HIS stacks in a directory",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "stacks-path",
				Aliases:     []string{"path"},
				Usage:       "directory containing .HIS stacks",
				Destination: &stacksPath,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyStackConfig(cmd, appConfig)

			dir := strings.TrimSpace(stacksPath)
			if dir == "" && cmd.NArg() > 0 {
				dir = cmd.Args().First()
			}
			if dir == "" {
				dir = strings.TrimSpace(os.Getenv(envHisreadStacksDir))
			}
			if dir == "" {
				return cli.Exit("error: --stacks-path is required unless HISREAD_STACKS_DIR is set", 1)
			}

			stacks, err := discoverStacks(dir)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if len(stacks) == 0 {
				log.Info("no stacks found", "path", dir)
				return nil
			}

			fmt.Printf("Stacks in %s:\n\n", dir)
			for _, s := range stacks {
				name := filepath.Base(s)
				f, err := his.Open(s)
				if err != nil {
					log.Debug("cannot open stack", "path", s, "error", err)
					fmt.Printf("  %-40s  (unreadable)\n", name)
					continue
				}
				fmt.Printf("  %-40s %8s  %6d frames  %dx%d %s\n",
					name, formatSize(f.Size()), f.FrameCount(), f.Width(), f.Height(), f.PixelType())
				_ = f.Close()
			}
			fmt.Printf("\n%d stack(s) found\n", len(stacks))
			return nil
		},
	}
}
