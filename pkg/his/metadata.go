package his

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Sentinels written by the Hokawo acquisition software around the
// key/value section of the metadata text.
const (
	metaOpen  = "@Hokawo@"
	metaClose = "~Hokawo~"
)

// DecodeMetadata extracts the key/value pairs from a raw metadata blob.
//
// Entries are separated by ';' and split on the first '='. Entries without
// '=' are dropped and later duplicates win. A blob missing one sentinel is
// read up to the end (or from the start); a blob with neither fails.
func DecodeMetadata(blob []byte) (map[string]string, error) {
	blob = bytes.TrimRight(blob, "\x00")
	if !utf8.Valid(blob) {
		return nil, fmt.Errorf("%w: text is not valid UTF-8", ErrMetadataDecode)
	}
	text := string(blob)

	start := strings.Index(text, metaOpen)
	end := -1
	if start >= 0 {
		start += len(metaOpen)
		if i := strings.Index(text[start:], metaClose); i >= 0 {
			end = start + i
		}
	} else {
		end = strings.Index(text, metaClose)
	}
	switch {
	case start < 0 && end < 0:
		return nil, fmt.Errorf("%w: no %s section", ErrMetadataDecode, metaOpen)
	case start < 0:
		start = 0
	case end < 0:
		end = len(text)
	}

	meta := make(map[string]string)
	for entry := range strings.SplitSeq(text[start:end], ";") {
		key, value, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		meta[key] = value
	}
	return meta, nil
}

// MetaString returns the raw value stored under key.
func MetaString(meta map[string]string, key string) (string, bool) {
	v, ok := meta[key]
	return v, ok
}

// MetaInt parses the value stored under key as a base-10 integer.
func MetaInt(meta map[string]string, key string) (int64, bool) {
	v, ok := meta[key]
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// MetaFloat parses the value stored under key as a float.
func MetaFloat(meta map[string]string, key string) (float64, bool) {
	v, ok := meta[key]
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
