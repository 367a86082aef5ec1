package api

import (
	"errors"
	"io/fs"
	"net/http"

	"github.com/labstack/echo/v5"
	"github.com/samcharles93/hisread/internal/preview"
	"github.com/samcharles93/hisread/pkg/his"
)

var ErrInvalidRequest = errors.New("invalid_request")

type invalidRequestError struct {
	msg string
}

func (e invalidRequestError) Error() string {
	return e.msg
}

func (e invalidRequestError) Unwrap() error {
	return ErrInvalidRequest
}

func newInvalidRequest(msg string) error {
	return invalidRequestError{msg: msg}
}

// writeStackError maps reader errors onto HTTP statuses.
func writeStackError(c *echo.Context, err error) error {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, his.ErrFrameOutOfRange),
		errors.Is(err, his.ErrEmptySelection),
		errors.Is(err, preview.ErrTooLarge),
		errors.Is(err, fs.ErrNotExist):
		return writeBadRequest(c, err.Error())
	case errors.Is(err, his.ErrCorruptFrame):
		return writeError(c, http.StatusUnprocessableEntity, "corrupt_frame_error", err.Error(), "", "corrupt_frame")
	case errors.Is(err, his.ErrMalformedHeader):
		return writeError(c, http.StatusUnprocessableEntity, "malformed_stack_error", err.Error(), "", "malformed_header")
	case errors.Is(err, his.ErrClosed):
		return writeError(c, http.StatusConflict, "closed_stack_error", err.Error(), "", "")
	default:
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "", "")
	}
}
