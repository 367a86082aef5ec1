package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/hisread/internal/logger"
	"github.com/samcharles93/hisread/pkg/his"
)

// openStack resolves the stack named on the command line and opens it with
// the common stack flags.
func openStack(ctx context.Context, cmd *cli.Command) (*his.File, error) {
	applyStackConfig(cmd, appConfig)

	arg := stackPath
	if cmd.NArg() > 0 {
		arg = cmd.Args().First()
	}
	path, err := resolveStackPath(arg, stacksPath, os.Stdin, os.Stderr)
	if err != nil {
		return nil, err
	}

	opts := []his.Option{
		his.WithLogger(logger.FromContext(ctx).With("stack", path)),
		his.WithQuickStep(quickStep),
	}
	switch strings.ToLower(strings.TrimSpace(verifyMode)) {
	case "", "none":
	default:
		mode, err := his.ParseMode(verifyMode)
		if err != nil {
			return nil, err
		}
		opts = append(opts, his.WithVerify(mode))
	}
	return his.Open(path, opts...)
}

// maxFrameSpec bounds the number of ids a frame list may expand to.
const maxFrameSpec = 1 << 20

// parseFrameSpec parses frame lists such as "0,5,10-14". Ranges are
// inclusive.
func parseFrameSpec(spec string) ([]int, error) {
	var ids []int
	for part := range strings.SplitSeq(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		first, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("invalid frame %q", part)
		}
		if !isRange {
			if len(ids) == maxFrameSpec {
				return nil, fmt.Errorf("more than %d frames in %q", maxFrameSpec, spec)
			}
			ids = append(ids, first)
			continue
		}
		last, err := strconv.Atoi(strings.TrimSpace(hi))
		if err != nil || last < first {
			return nil, fmt.Errorf("invalid frame range %q", part)
		}
		// first is never negative here, so last-first cannot overflow.
		if last-first >= maxFrameSpec-len(ids) {
			return nil, fmt.Errorf("frame range %q: more than %d frames", part, maxFrameSpec)
		}
		for id := first; id <= last; id++ {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no frames in %q", spec)
	}
	return ids, nil
}

func formatSize(bytes int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
	)
	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(gb))
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
