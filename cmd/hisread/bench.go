package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/hisread/internal/logger"
)

func benchCmd() *cli.Command {
	var (
		reads int
		batch int
		seed  uint64
	)

	return &cli.Command{
		Name:      "bench",
		Usage:     "Measure random frame read throughput",
		ArgsUsage: "[stack.HIS]",
		Flags: append(commonStackFlags(),
			&cli.IntFlag{
				Name:        "reads",
				Usage:       "number of random frames to read",
				Value:       1000,
				Destination: &reads,
			},
			&cli.IntFlag{
				Name:        "batch",
				Usage:       "frames per ReadFrameStack call",
				Value:       16,
				Destination: &batch,
			},
			&cli.Uint64Flag{
				Name:        "seed",
				Usage:       "random seed",
				Value:       1,
				Destination: &seed,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)

			f, err := openStack(ctx, cmd)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer func() { _ = f.Close() }()
			if f.FrameCount() == 0 {
				return cli.Exit("error: stack has no frames", 1)
			}
			batch = max(batch, 1)

			rng := rand.New(rand.NewPCG(seed, seed))
			ids := make([]int, reads)
			for i := range ids {
				ids[i] = rng.IntN(f.FrameCount())
			}

			log.Info("benchmark", "frames", f.FrameCount(), "reads", reads, "batch", batch)
			start := time.Now()
			var bytes int64
			for i := 0; i < len(ids); i += batch {
				st, err := f.ReadFrameStack(ids[i:min(i+batch, len(ids))])
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				bytes += int64(len(st.Pix))
			}
			elapsed := time.Since(start)

			secs := max(elapsed.Seconds(), 1e-9)
			fmt.Printf("%d frames in %s: %.1f frames/s, %s/s (index %s)\n",
				reads, elapsed.Round(time.Microsecond), float64(reads)/secs,
				formatSize(int64(float64(bytes)/secs)), f.ConsistencyState())
			return nil
		},
	}
}
