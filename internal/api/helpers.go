package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v5"
)

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg, "", "")
}

func writeNotFound(c *echo.Context, msg string) error {
	return writeError(c, http.StatusNotFound, "not_found_error", msg, "", "")
}

func writeError(c *echo.Context, status int, errType, msg, param, code string) error {
	return c.JSON(status, map[string]any{
		"error": ResponseError{
			Message: msg,
			Type:    errType,
			Code:    code,
			Param:   param,
		},
	})
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(r)
	if err := dec.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

// queryInt parses an optional integer query parameter.
func queryInt(c *echo.Context, name string, def int) (int, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, newInvalidRequest(fmt.Sprintf("%s: expected an integer, got %q", name, raw))
	}
	return v, nil
}

func queryFloat(c *echo.Context, name string, def float64) (float64, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return 0, newInvalidRequest(fmt.Sprintf("%s: expected a non-negative number, got %q", name, raw))
	}
	return v, nil
}

func queryBool(c *echo.Context, name string) (bool, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, newInvalidRequest(fmt.Sprintf("%s: expected a boolean, got %q", name, raw))
	}
	return v, nil
}

// maxFrameList bounds explicit frame lists before the stack is consulted.
const maxFrameList = 4096

// parseFrameList parses "3,7,12" into frame ids.
func parseFrameList(raw string) ([]int, error) {
	var ids []int
	for part := range strings.SplitSeq(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if len(ids) == maxFrameList {
			return nil, newInvalidRequest(fmt.Sprintf("frames: more than %d frame ids", maxFrameList))
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, newInvalidRequest(fmt.Sprintf("frames: invalid frame id %q", part))
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, newInvalidRequest("frames: no frame ids given")
	}
	return ids, nil
}
