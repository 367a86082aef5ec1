package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const (
	envHisreadOutDir    = "HISREAD_OUT_DIR"
	envHisreadStacksDir = "HISREAD_STACKS_DIR"
)

// stdinIsTTY is a small seam for tests.
var stdinIsTTY = isTTY

// resolveOutPath returns outFlag when set, otherwise a file named after the
// input stack plus suffix inside HISREAD_OUT_DIR (default ".").
func resolveOutPath(inPath, outFlag, suffix string) (string, bool, error) {
	outFlag = strings.TrimSpace(outFlag)
	if outFlag != "" {
		outPath := filepath.Clean(outFlag)
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return "", false, err
		}
		return outPath, false, nil
	}

	base := filepath.Base(filepath.Clean(inPath))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "", true, fmt.Errorf("invalid input path: %q", inPath)
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))

	outDir := strings.TrimSpace(os.Getenv(envHisreadOutDir))
	if outDir == "" {
		outDir = "."
	}

	outPath := filepath.Join(outDir, base+suffix)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", true, err
	}
	return outPath, true, nil
}

func resolveStackPath(stackArg string, stacksDir string, stdin io.Reader, stderr io.Writer) (string, error) {
	stackArg = strings.TrimSpace(stackArg)
	if stackArg != "" {
		return filepath.Clean(stackArg), nil
	}

	dir := strings.TrimSpace(stacksDir)
	if dir == "" {
		dir = strings.TrimSpace(os.Getenv(envHisreadStacksDir))
	}
	if dir == "" {
		return "", fmt.Errorf("a stack path or --stacks-path is required unless %s is set", envHisreadStacksDir)
	}

	stacks, err := discoverStacks(dir)
	if err != nil {
		return "", err
	}
	switch len(stacks) {
	case 0:
		return "", fmt.Errorf("no .HIS stacks found in %s", dir)
	case 1:
		_, _ = fmt.Fprintf(stderr, "hisread: using stack %s\n", stacks[0])
		return stacks[0], nil
	default:
		if !stdinIsTTY() {
			return "", fmt.Errorf(
				"multiple stacks found in %s but stdin is not interactive; pass a stack path",
				dir,
			)
		}
		return selectStackInteractively(dir, stacks, stdin, stderr)
	}
}

func discoverStacks(dir string) ([]string, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("stacks directory is empty")
	}
	st, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("stacks path is not a directory: %s", dir)
	}

	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	stacks := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.EqualFold(filepath.Ext(name), ".his") {
			continue
		}
		stacks = append(stacks, filepath.Join(dir, name))
	}
	sort.Strings(stacks)
	return stacks, nil
}

func selectStackInteractively(dir string, stacks []string, stdin io.Reader, stderr io.Writer) (string, error) {
	if len(stacks) == 0 {
		return "", fmt.Errorf("no stacks available in %s", dir)
	}

	_, _ = fmt.Fprintf(stderr, "hisread: select a stack from %s\n", dir)
	for i, s := range stacks {
		_, _ = fmt.Fprintf(stderr, "%d. %s\n", i+1, stackDisplayName(dir, s))
	}

	reader := bufio.NewReader(stdin)
	for {
		_, _ = fmt.Fprintf(stderr, "hisread: enter selection [1-%d]: ", len(stacks))
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			if errors.Is(err, io.EOF) {
				return "", errors.New("no selection provided on stdin; pass a stack path")
			}
			continue
		}

		idx, convErr := strconv.Atoi(line)
		if convErr != nil || idx < 1 || idx > len(stacks) {
			_, _ = fmt.Fprintf(stderr, "hisread: invalid selection %q\n", line)
			if errors.Is(err, io.EOF) {
				return "", errors.New("invalid selection provided on stdin; pass a stack path")
			}
			continue
		}
		return stacks[idx-1], nil
	}
}

func stackDisplayName(dir, path string) string {
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." {
		return filepath.Base(path)
	}
	return rel
}

func isTTY() bool {
	st, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (st.Mode() & os.ModeCharDevice) != 0
}
