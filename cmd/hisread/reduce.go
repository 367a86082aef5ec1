package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/hisread/internal/logger"
	"github.com/samcharles93/hisread/internal/preview"
	"github.com/samcharles93/hisread/pkg/his"
)

func reduceCmd() *cli.Command {
	var (
		count    int
		frames   string
		funcName string
		outPath  string
		scale    float64
		raw      bool
	)

	flags := append(commonStackFlags(),
		&cli.IntFlag{
			Name:        "count",
			Aliases:     []string{"k"},
			Usage:       "sample about this many frames evenly across the stack",
			Value:       10,
			Destination: &count,
		},
		&cli.StringFlag{
			Name:        "frames",
			Usage:       "explicit frames, e.g. 0,5,10-14 (overrides --count)",
			Destination: &frames,
		},
		&cli.StringFlag{
			Name:        "func",
			Usage:       "reduction (max, min, mean, median)",
			Value:       "max",
			Destination: &funcName,
		},
		&cli.StringFlag{
			Name:        "out",
			Aliases:     []string{"o"},
			Usage:       "output PNG path (default <stack>_<func>.png)",
			Destination: &outPath,
		},
	)
	flags = append(flags, previewFlags(&scale, &raw)...)

	return &cli.Command{
		Name:      "reduce",
		Usage:     "Fold a set of frames into one image (maximum projection by default)",
		ArgsUsage: "[stack.HIS]",
		Flags:     flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyPreviewConfig(cmd, appConfig, &scale)
			applyReduceConfig(cmd, appConfig, &count)
			popts := preview.Options{Scale: scale, Raw: raw}
			if err := popts.Validate(); err != nil {
				return cli.Exit(fmt.Sprintf("error: --scale: %v", err), 1)
			}

			fn, err := his.ParseReduceFunc(funcName)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			sel := his.Sample(count)
			if frames != "" {
				ids, err := parseFrameSpec(frames)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: --frames: %v", err), 1)
				}
				sel = his.Frames(ids...)
			}

			f, err := openStack(ctx, cmd)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer func() { _ = f.Close() }()

			ids, err := sel.Resolve(f.FrameCount())
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if len(ids) > f.FrameCount() {
				return cli.Exit(fmt.Sprintf("error: --frames selects %d frames from a stack of %d", len(ids), f.FrameCount()), 1)
			}
			fr, err := f.ReadFrameReduction(his.Frames(ids...), fn)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			out, _, err := resolveOutPath(f.Path, outPath, "_"+funcName+".png")
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if err := writePNG(out, fr, popts); err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			log.Info("wrote reduction", "func", funcName, "path", out, "state", f.ConsistencyState().String())
			return nil
		},
	}
}
