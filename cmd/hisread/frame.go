package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/hisread/internal/logger"
	"github.com/samcharles93/hisread/internal/preview"
	"github.com/samcharles93/hisread/pkg/his"
)

func frameCmd() *cli.Command {
	var (
		index   int
		outPath string
		scale   float64
		raw     bool
	)

	flags := append(commonStackFlags(),
		&cli.IntFlag{
			Name:        "index",
			Aliases:     []string{"n"},
			Usage:       "frame number",
			Destination: &index,
		},
		&cli.StringFlag{
			Name:        "out",
			Aliases:     []string{"o"},
			Usage:       "output PNG path (default <stack>_frameNNNNN.png)",
			Destination: &outPath,
		},
	)
	flags = append(flags, previewFlags(&scale, &raw)...)

	return &cli.Command{
		Name:      "frame",
		Usage:     "Write one frame as PNG",
		ArgsUsage: "[stack.HIS]",
		Flags:     flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyPreviewConfig(cmd, appConfig, &scale)
			popts := preview.Options{Scale: scale, Raw: raw}
			if err := popts.Validate(); err != nil {
				return cli.Exit(fmt.Sprintf("error: --scale: %v", err), 1)
			}

			f, err := openStack(ctx, cmd)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer func() { _ = f.Close() }()

			st, err := f.ReadFrameStack([]int{index})
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			out, _, err := resolveOutPath(f.Path, outPath, fmt.Sprintf("_frame%05d.png", index))
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if err := writePNG(out, st.Frame(0), popts); err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			log.Info("wrote frame", "frame", index, "path", out, "state", f.ConsistencyState().String())
			return nil
		},
	}
}

func writePNG(path string, fr *his.Frame, opts preview.Options) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := preview.Encode(out, fr, opts); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
