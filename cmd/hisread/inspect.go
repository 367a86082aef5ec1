package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/hisread/pkg/his"
)

type stackSummary struct {
	Path          string            `json:"path"`
	Size          int64             `json:"size"`
	Width         int               `json:"width"`
	Height        int               `json:"height"`
	FrameCount    int               `json:"frame_count"`
	PixelType     string            `json:"pixel_type"`
	PayloadSize   int64             `json:"payload_size"`
	BaseOffset    int64             `json:"base_offset"`
	GapHeaderSize int16             `json:"gap_header_size"`
	State         string            `json:"state"`
	Metadata      map[string]string `json:"metadata"`
	MetadataError string            `json:"metadata_error,omitempty"`
	Index         *indexSummary     `json:"index,omitempty"`
	Offsets       []int64           `json:"offsets,omitempty"`
}

type indexSummary struct {
	Mode    string         `json:"mode"`
	Probes  int            `json:"probes"`
	Changes []changeRecord `json:"changes"`
}

type changeRecord struct {
	Frame int   `json:"frame"`
	From  int16 `json:"from"`
	To    int16 `json:"to"`
}

func summarize(f *his.File, offsets int) (stackSummary, error) {
	s := stackSummary{
		Path:          f.Path,
		Size:          f.Size(),
		Width:         f.Width(),
		Height:        f.Height(),
		FrameCount:    f.FrameCount(),
		PixelType:     f.PixelType().String(),
		PayloadSize:   f.FramePayloadSize(),
		BaseOffset:    f.BaseOffset(),
		GapHeaderSize: f.GapHeaderSize,
		State:         f.ConsistencyState().String(),
		Metadata:      f.Metadata(),
	}
	if err := f.MetadataErr(); err != nil {
		s.MetadataError = err.Error()
	}
	if rep, ok := f.IndexReport(); ok {
		s.Index = newIndexSummary(rep)
	}
	for id := range min(offsets, f.FrameCount()) {
		off, err := f.OffsetOf(id)
		if err != nil {
			return s, err
		}
		s.Offsets = append(s.Offsets, off)
	}
	return s, nil
}

func newIndexSummary(rep his.IndexReport) *indexSummary {
	out := &indexSummary{
		Mode:    rep.Mode.String(),
		Probes:  rep.Probes,
		Changes: make([]changeRecord, 0, len(rep.Changes)),
	}
	for _, c := range rep.Changes {
		out.Changes = append(out.Changes, changeRecord{Frame: c.Frame, From: c.From, To: c.To})
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", b)
	return err
}

func printSummary(w io.Writer, s stackSummary) {
	_, _ = fmt.Fprintf(w, "Stack: %s (%s)\n", s.Path, formatSize(s.Size))
	_, _ = fmt.Fprintf(w, "  frames:      %d\n", s.FrameCount)
	_, _ = fmt.Fprintf(w, "  shape:       %d x %d %s (%d bytes/frame)\n", s.Width, s.Height, s.PixelType, s.PayloadSize)
	_, _ = fmt.Fprintf(w, "  base offset: %d\n", s.BaseOffset)
	_, _ = fmt.Fprintf(w, "  gap header:  %d\n", s.GapHeaderSize)
	_, _ = fmt.Fprintf(w, "  state:       %s\n", s.State)
	if s.Index != nil {
		_, _ = fmt.Fprintf(w, "  index:       %s check, %d probes, %d header change(s)\n", s.Index.Mode, s.Index.Probes, len(s.Index.Changes))
		for _, c := range s.Index.Changes {
			_, _ = fmt.Fprintf(w, "    frame %-8d %d -> %d\n", c.Frame, c.From, c.To)
		}
	}

	if s.MetadataError != "" {
		_, _ = fmt.Fprintf(w, "\nMetadata: unreadable (%s)\n", s.MetadataError)
	} else {
		_, _ = fmt.Fprintf(w, "\nMetadata (%d keys):\n", len(s.Metadata))
		keys := make([]string, 0, len(s.Metadata))
		for k := range s.Metadata {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		width := 0
		for _, k := range keys {
			width = max(width, len(k))
		}
		for _, k := range keys {
			_, _ = fmt.Fprintf(w, "  %-*s  %s\n", width, k, s.Metadata[k])
		}
	}

	if len(s.Offsets) > 0 {
		_, _ = fmt.Fprintf(w, "\nOffsets:\n")
		for id, off := range s.Offsets {
			_, _ = fmt.Fprintf(w, "  %-8d %d\n", id, off)
		}
	}
}

func inspectCmd() *cli.Command {
	var (
		asJSON  bool
		offsets int
	)

	return &cli.Command{
		Name:      "inspect",
		Usage:     "Show geometry, metadata and index state of a stack",
		ArgsUsage: "[stack.HIS]",
		Flags: append(commonStackFlags(),
			&cli.BoolFlag{Name: "json", Usage: "print JSON", Destination: &asJSON},
			&cli.IntFlag{Name: "offsets", Usage: "print the byte offset of the first N frames", Destination: &offsets},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			f, err := openStack(ctx, cmd)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer func() { _ = f.Close() }()

			s, err := summarize(f, offsets)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if asJSON {
				return writeJSON(os.Stdout, s)
			}
			printSummary(os.Stdout, s)
			return nil
		},
	}
}
