// Package web serves the analyzer over HTTP: an upload form that renders an
// HTML report and a small JSON API.
package web

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"mime/multipart"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"peinspect/common"
	"peinspect/config"
	"peinspect/logger"
	"peinspect/perw"
)

//go:embed templates/*.html
var templateFS embed.FS

// multipartOverhead is allowed on top of MaxFileSize for the form envelope.
const multipartOverhead = 1 << 20

var (
	errMissingFile = errors.New("no file uploaded (expected form field \"file\")")
	errTooLarge    = errors.New("uploaded file is too large")
)

type Options struct {
	MaxFileSize int64
	HistorySize int
	Logger      logger.Logger
}

type Server struct {
	history *History
	maxSize int64
	log     logger.Logger
	page    *template.Template
}

func NewServer(opts Options) *Server {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = config.DefaultMaxFileSize
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = config.DefaultHistorySize
	}
	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}
	return &Server{
		history: NewHistory(opts.HistorySize),
		maxSize: opts.MaxFileSize,
		log:     opts.Logger.With("component", "web"),
		page:    template.Must(template.New("index.html").Funcs(templateFuncs).ParseFS(templateFS, "templates/index.html")),
	}
}

// New returns an echo instance with the middleware and routes installed.
func New(opts Options) *echo.Echo {
	e := echo.New()
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	NewServer(opts).Register(e)
	return e
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/", s.handleIndex)
	e.POST("/", s.handleUpload)
	e.GET("/healthz", s.handleHealth)
	e.POST("/api/analyze", s.handleAnalyze)
	e.GET("/api/analyses/:id", s.handleGetAnalysis)
}

func (s *Server) History() *History { return s.history }

type pageData struct {
	Result *common.Result
	Error  string
}

func (s *Server) handleIndex(c *echo.Context) error {
	return s.render(c, http.StatusOK, pageData{})
}

func (s *Server) handleUpload(c *echo.Context) error {
	res, status, err := s.analyzeUpload(c)
	if err != nil {
		return s.render(c, status, pageData{Error: err.Error()})
	}
	return s.render(c, status, pageData{Result: res})
}

func (s *Server) handleAnalyze(c *echo.Context) error {
	res, status, err := s.analyzeUpload(c)
	if err != nil {
		return writeJSON(c, status, map[string]string{"error": err.Error()})
	}
	return writeJSON(c, status, res)
}

func (s *Server) handleGetAnalysis(c *echo.Context) error {
	res, ok := s.history.Get(c.Param("id"))
	if !ok {
		return writeJSON(c, http.StatusNotFound, map[string]string{"error": "analysis not found"})
	}
	return writeJSON(c, http.StatusOK, res)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return writeJSON(c, http.StatusOK, map[string]string{"status": "ok"})
}

// analyzeUpload runs the analyzer over the "file" part of a multipart
// request. The part is handed to the analyzer as an io.ReaderAt; it is not
// copied into memory here. The returned status is the one the JSON API
// uses; err is set only when there was nothing to analyze.
func (s *Server) analyzeUpload(c *echo.Context) (*common.Result, int, error) {
	req := c.Request()
	req.Body = http.MaxBytesReader(c.Response(), req.Body, s.maxSize+multipartOverhead)

	file, header, err := req.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return nil, http.StatusRequestEntityTooLarge, errTooLarge
		case errors.Is(err, http.ErrMissingFile):
			return nil, http.StatusBadRequest, errMissingFile
		default:
			return nil, http.StatusBadRequest, fmt.Errorf("invalid upload: %w", err)
		}
	}
	defer func(f multipart.File) { _ = f.Close() }(file)

	if header.Size > s.maxSize {
		return nil, http.StatusRequestEntityTooLarge, errTooLarge
	}

	res := common.Inspect(header.Filename, file, header.Size)
	s.history.Add(res)

	status := http.StatusOK
	switch {
	case res.Rejected():
		status = http.StatusUnprocessableEntity
		s.log.Info("upload rejected", "file", res.Filename, "id", res.ID, "error", res.Err)
	case res.Failed():
		status = http.StatusInternalServerError
		s.log.Error("upload analysis failed", "file", res.Filename, "id", res.ID, "error", res.Err)
	default:
		s.log.Info("upload analyzed", "file", res.Filename, "id", res.ID,
			"status", res.Report.Status, "warnings", len(res.Report.Warnings))
	}
	return res, status, nil
}

func (s *Server) render(c *echo.Context, status int, data pageData) error {
	var buf bytes.Buffer
	if err := s.page.Execute(&buf, data); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return c.HTMLBlob(status, buf.Bytes())
}

func writeJSON(c *echo.Context, status int, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	return c.Blob(status, echo.MIMEApplicationJSON, body)
}

var templateFuncs = template.FuncMap{
	"hex":          func(v any) string { return fmt.Sprintf("0x%08X", v) },
	"machine":      perw.MachineName,
	"timestamp":    perw.FormatTimestamp,
	"fileFlags":    perw.DescribeFileCharacteristics,
	"sectionFlags": perw.DescribeSectionFlags,
	"size":         common.FormatFileSize,
	"statusClass": func(s perw.Status) string {
		switch s {
		case perw.StatusCorrupted:
			return "corrupted"
		case perw.StatusSuspicious:
			return "suspicious"
		default:
			return "clean"
		}
	},
}
