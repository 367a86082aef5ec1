package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/hisread/internal/logger"
	"github.com/samcharles93/hisread/pkg/his"
)

// extractBatch bounds how many frames are held in memory at once.
const extractBatch = 64

func extractCmd() *cli.Command {
	var (
		frames  string
		outPath string
	)

	return &cli.Command{
		Name:      "extract",
		Usage:     "Write raw frame payloads back to back (zstd compressed for .zst outputs)",
		ArgsUsage: "[stack.HIS]",
		Flags: append(commonStackFlags(),
			&cli.StringFlag{
				Name:        "frames",
				Usage:       "frames to extract, e.g. 0,5,10-14 (default all)",
				Destination: &frames,
			},
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "output path; a .zst suffix enables compression (default <stack>.raw)",
				Destination: &outPath,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)

			f, err := openStack(ctx, cmd)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer func() { _ = f.Close() }()

			var ids []int
			if frames != "" {
				if ids, err = parseFrameSpec(frames); err != nil {
					return cli.Exit(fmt.Sprintf("error: --frames: %v", err), 1)
				}
			} else {
				ids = make([]int, f.FrameCount())
				for i := range ids {
					ids[i] = i
				}
			}

			out, _, err := resolveOutPath(f.Path, outPath, ".raw")
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			n, err := extractFrames(f, ids, out)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			log.Info("extracted frames", "frames", len(ids), "bytes", n, "path", out,
				"shape", fmt.Sprintf("%dx%d %s", f.Width(), f.Height(), f.PixelType()))
			return nil
		},
	}
}

// extractFrames writes the payloads of ids to path and returns the number
// of uncompressed bytes written.
func extractFrames(f *his.File, ids []int, path string) (int64, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := writeFrames(f, ids, file, strings.EqualFold(filepath.Ext(path), ".zst"))
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	return n, err
}

func writeFrames(f *his.File, ids []int, w io.Writer, compress bool) (int64, error) {
	var enc *zstd.Encoder
	if compress {
		var err error
		enc, err = zstd.NewWriter(w)
		if err != nil {
			return 0, err
		}
		w = enc
	}

	var total int64
	for start := 0; start < len(ids); start += extractBatch {
		st, err := f.ReadFrameStack(ids[start:min(start+extractBatch, len(ids))])
		if err != nil {
			if enc != nil {
				_ = enc.Close()
			}
			return total, err
		}
		n, err := w.Write(st.Pix)
		total += int64(n)
		if err != nil {
			if enc != nil {
				_ = enc.Close()
			}
			return total, err
		}
	}
	if enc != nil {
		if err := enc.Close(); err != nil {
			return total, err
		}
	}
	return total, nil
}
