package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/samcharles93/hisread/internal/preview"
	"github.com/samcharles93/hisread/pkg/his"
)

// Config holds request defaults.
type Config struct {
	PreviewScale float64
	ReduceCount  int
}

type Server struct {
	store *StackStore
	cfg   Config
	clock func() time.Time
}

func NewServer(store *StackStore, cfg Config) *Server {
	if store == nil {
		store = NewStackStore()
	}
	if cfg.ReduceCount <= 0 {
		cfg.ReduceCount = 10
	}
	return &Server{
		store: store,
		cfg:   cfg,
		clock: time.Now,
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.POST("/v1/stacks", s.handleOpenStack)
	e.GET("/v1/stacks", s.handleListStacks)
	e.GET("/v1/stacks/:id", s.handleGetStack)
	e.DELETE("/v1/stacks/:id", s.handleDeleteStack)
	e.POST("/v1/stacks/:id/verify", s.handleVerifyStack)
	e.GET("/v1/stacks/:id/frames/:n", s.handleGetFrame)
	e.GET("/v1/stacks/:id/reduction", s.handleGetReduction)
}

func (s *Server) handleOpenStack(c *echo.Context) error {
	req, err := decodeJSON[OpenStackRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	if strings.TrimSpace(req.Path) == "" {
		return writeBadRequest(c, "path is required")
	}
	h, err := s.store.Open(req.Path, s.clock())
	if err != nil {
		return writeStackError(c, err)
	}
	return c.JSON(http.StatusCreated, h.Info(true))
}

func (s *Server) handleListStacks(c *echo.Context) error {
	handles := s.store.List()
	out := StackList{Object: "list", Data: make([]StackInfo, 0, len(handles))}
	for _, h := range handles {
		out.Data = append(out.Data, h.Info(false))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetStack(c *echo.Context) error {
	h, ok := s.store.Get(c.Param("id"))
	if !ok {
		return writeNotFound(c, "stack not found")
	}
	return c.JSON(http.StatusOK, h.Info(true))
}

func (s *Server) handleDeleteStack(c *echo.Context) error {
	id := c.Param("id")
	ok, err := s.store.Delete(id)
	if !ok {
		return writeNotFound(c, "stack not found")
	}
	if err != nil {
		return writeStackError(c, err)
	}
	return c.JSON(http.StatusOK, DeleteStackResponse{
		ID:      id,
		Object:  "stack",
		Deleted: true,
	})
}

func (s *Server) handleVerifyStack(c *echo.Context) error {
	h, ok := s.store.Get(c.Param("id"))
	if !ok {
		return writeNotFound(c, "stack not found")
	}
	mode, err := his.ParseMode(c.QueryParam("mode"))
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	var rep his.IndexReport
	err = h.Use(func(f *his.File) error {
		if err := f.Verify(mode); err != nil {
			return err
		}
		rep, _ = f.IndexReport()
		return nil
	})
	if err != nil {
		return writeStackError(c, err)
	}
	return c.JSON(http.StatusOK, newVerifyResponse(h.ID, rep))
}

func (s *Server) handleGetFrame(c *echo.Context) error {
	h, ok := s.store.Get(c.Param("id"))
	if !ok {
		return writeNotFound(c, "stack not found")
	}
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil {
		return writeBadRequest(c, fmt.Sprintf("invalid frame number %q", c.Param("n")))
	}
	opts, err := s.previewOptions(c)
	if err != nil {
		return writeStackError(c, err)
	}

	var fr *his.Frame
	err = h.Use(func(f *his.File) error {
		// A one-frame stack read gets the index rebuild on corrupt frames.
		st, err := f.ReadFrameStack([]int{n})
		if err != nil {
			return err
		}
		fr = st.Frame(0)
		return nil
	})
	if err != nil {
		return writeStackError(c, err)
	}
	return s.writePreview(c, fr, opts)
}

func (s *Server) handleGetReduction(c *echo.Context) error {
	h, ok := s.store.Get(c.Param("id"))
	if !ok {
		return writeNotFound(c, "stack not found")
	}
	fn, err := his.ParseReduceFunc(c.QueryParam("func"))
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	sel, err := s.selector(c)
	if err != nil {
		return writeStackError(c, err)
	}
	opts, err := s.previewOptions(c)
	if err != nil {
		return writeStackError(c, err)
	}

	var fr *his.Frame
	err = h.Use(func(f *his.File) error {
		// The frame buffer is sized by the selection, so it may not
		// exceed the stack.
		ids, rerr := sel.Resolve(f.FrameCount())
		if rerr != nil {
			return rerr
		}
		if len(ids) > f.FrameCount() {
			return newInvalidRequest(fmt.Sprintf("frames: %d ids selected from a stack of %d frames", len(ids), f.FrameCount()))
		}
		fr, rerr = f.ReadFrameReduction(his.Frames(ids...), fn)
		return rerr
	})
	if err != nil {
		return writeStackError(c, err)
	}
	return s.writePreview(c, fr, opts)
}

func (s *Server) selector(c *echo.Context) (his.Selector, error) {
	if raw := c.QueryParam("frames"); raw != "" {
		if c.QueryParam("count") != "" {
			return his.Selector{}, newInvalidRequest("count and frames are mutually exclusive")
		}
		ids, err := parseFrameList(raw)
		if err != nil {
			return his.Selector{}, err
		}
		return his.Frames(ids...), nil
	}
	count, err := queryInt(c, "count", s.cfg.ReduceCount)
	if err != nil {
		return his.Selector{}, err
	}
	if count <= 0 {
		return his.Selector{}, newInvalidRequest("count must be positive")
	}
	return his.Sample(count), nil
}

func (s *Server) previewOptions(c *echo.Context) (preview.Options, error) {
	scale, err := queryFloat(c, "scale", s.cfg.PreviewScale)
	if err != nil {
		return preview.Options{}, err
	}
	raw, err := queryBool(c, "raw")
	if err != nil {
		return preview.Options{}, err
	}
	opts := preview.Options{Scale: scale, Raw: raw}
	if err := opts.Validate(); err != nil {
		return preview.Options{}, newInvalidRequest("scale: " + err.Error())
	}
	return opts, nil
}

// writePreview sends fr as PNG. The ETag is derived from the frame
// checksum and the render options.
func (s *Server) writePreview(c *echo.Context, fr *his.Frame, opts preview.Options) error {
	etag := fmt.Sprintf(`"%016x-%g"`, fr.Checksum(), opts.Scale)
	if opts.Raw {
		etag = fmt.Sprintf(`"%016x-%g-raw"`, fr.Checksum(), opts.Scale)
	}
	c.Response().Header().Set("ETag", etag)
	if match := c.Request().Header.Get("If-None-Match"); match != "" && match == etag {
		return c.NoContent(http.StatusNotModified)
	}
	data, err := preview.PNG(fr, opts)
	if err != nil {
		return writeStackError(c, err)
	}
	return c.Blob(http.StatusOK, "image/png", data)
}
