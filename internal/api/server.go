// Package api serves uploaded native files over HTTP: summaries, record
// listings, decoded records, observation exports and split parts.
package api

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/natread/internal/export"
	"github.com/samcharles93/natread/internal/logger"
	"github.com/samcharles93/natread/internal/metrics"
	"github.com/samcharles93/natread/internal/version"
	"github.com/samcharles93/natread/pkg/iasi"
	"github.com/samcharles93/natread/pkg/nat"
)

type Config struct {
	// Workers bounds body decoding per upload.
	Workers int
	// MaxUpload caps request bodies in bytes; 0 disables the cap.
	MaxUpload int64
	// SplitThreshold and SplitTemplate are the defaults for split requests.
	SplitThreshold int64
	SplitTemplate  string
}

type Server struct {
	store   *FileStore
	metrics *metrics.Metrics
	log     logger.Logger
	cfg     Config
	clock   func() time.Time
}

func NewServer(store *FileStore, m *metrics.Metrics, log logger.Logger, cfg Config) *Server {
	if store == nil {
		store = NewFileStore()
	}
	if m == nil {
		m = metrics.New()
	}
	if log == nil {
		log = logger.Discard()
	}
	if cfg.SplitTemplate == "" {
		cfg.SplitTemplate = nat.DefaultSplitTemplate
	}
	return &Server{store: store, metrics: m, log: log, cfg: cfg, clock: time.Now}
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)
	e.GET("/version", s.handleVersion)
	e.GET("/metrics", s.handleMetrics)

	e.POST("/v1/files", s.handleUpload)
	e.GET("/v1/files", s.handleList)
	e.GET("/v1/files/:id", s.handleGet)
	e.DELETE("/v1/files/:id", s.handleDelete)
	e.GET("/v1/files/:id/records", s.handleRecords)
	e.GET("/v1/files/:id/records/:index", s.handleRecord)
	e.GET("/v1/files/:id/records/:index/raw", s.handleRecordRaw)
	e.GET("/v1/files/:id/observations", s.handleObservations)
	e.GET("/v1/files/:id/split", s.handleSplitPlan)
	e.GET("/v1/files/:id/split/:part", s.handleSplitPart)
}

// FileView describes one upload.
type FileView struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Created     time.Time        `json:"created"`
	Diagnostics []nat.Diagnostic `json:"diagnostics,omitempty"`
	export.FileSummary
}

func view(u *Upload) FileView {
	return FileView{
		ID:          u.ID,
		Name:        u.Name,
		Created:     u.Created,
		Diagnostics: u.Diagnostics,
		FileSummary: export.Summarize(u.File),
	}
}

type PartView struct {
	Index int       `json:"index"`
	Name  string    `json:"name"`
	Start time.Time `json:"start"`
	Stop  time.Time `json:"stop"`
	Size  int64     `json:"size"`
	Body  int       `json:"body_records"`
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"status": "ok", "files": s.store.Len()})
}

func (s *Server) handleVersion(c *echo.Context) error {
	return c.JSON(http.StatusOK, version.Resolve())
}

func (s *Server) handleMetrics(c *echo.Context) error {
	s.metrics.Handler().ServeHTTP(c.Response(), c.Request())
	return nil
}

// handleUpload accepts a native file as the raw request body or as the
// "file" part of a multipart form.
func (s *Server) handleUpload(c *echo.Context) error {
	req := c.Request()
	product, err := iasi.ByName(c.QueryParam("product"))
	if err != nil {
		return writeError(c, err)
	}
	sel, err := selectionParam(c)
	if err != nil {
		return writeError(c, err)
	}

	body := req.Body
	if s.cfg.MaxUpload > 0 {
		body = http.MaxBytesReader(c.Response(), body, s.cfg.MaxUpload)
	}
	req.Body = body

	name := c.QueryParam("name")
	var src io.Reader = body
	if strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		part, hdr, err := req.FormFile("file")
		if err != nil {
			return writeError(c, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		}
		defer part.Close()
		src = part
		if name == "" {
			name = hdr.Filename
		}
	}
	if name == "" {
		name = "upload.nat"
	}

	var diags []nat.Diagnostic
	sink := logger.DiagnosticSink(s.log.With("upload", name))
	opts := iasi.Options(product)
	opts.Selection = sel
	opts.Workers = s.cfg.Workers
	opts.Source = name
	opts.Diagnostics = func(d nat.Diagnostic) {
		diags = append(diags, d)
		sink(d)
	}

	start := s.clock()
	f, err := nat.OpenReader(src, opts)
	if err != nil {
		s.metrics.FilesFailed.Inc()
		s.log.Warn("upload rejected", "name", name, "error", err)
		return writeError(c, err)
	}
	s.metrics.ObserveFile(f, s.clock().Sub(start))

	u := s.store.Put(&Upload{Name: name, Created: s.clock(), File: f, Diagnostics: diags})
	s.metrics.Uploads.Set(float64(s.store.Len()))
	v := view(u)
	s.log.Info("file assembled", "id", u.ID, "name", name, "product", v.Product,
		"records", v.Records, "malformed", v.Malformed)
	return c.JSON(http.StatusCreated, v)
}

func (s *Server) handleList(c *echo.Context) error {
	uploads := s.store.List()
	out := make([]FileView, 0, len(uploads))
	for _, u := range uploads {
		v := view(u)
		v.MPHR = nil
		v.Diagnostics = nil
		out = append(out, v)
	}
	return c.JSON(http.StatusOK, map[string]any{"files": out})
}

func (s *Server) handleGet(c *echo.Context) error {
	u, err := s.upload(c)
	if u == nil {
		return err
	}
	return c.JSON(http.StatusOK, view(u))
}

func (s *Server) handleDelete(c *echo.Context) error {
	id := c.Param("id")
	ok, err := s.store.Delete(id)
	if !ok {
		return writeNotFound(c, "file "+id+" not found")
	}
	s.metrics.Uploads.Set(float64(s.store.Len()))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"id": id, "deleted": true})
}

// handleRecords lists records, optionally only those of one class.
func (s *Server) handleRecords(c *echo.Context) error {
	u, err := s.upload(c)
	if u == nil {
		return err
	}
	rows := export.Rows(u.File)
	if name := c.QueryParam("class"); name != "" {
		class, ok := nat.ParseRecordClass(name)
		if !ok {
			return writeError(c, newInvalidRequest("unknown record class "+name))
		}
		kept := rows[:0]
		for _, r := range rows {
			if r.Class == class.String() {
				kept = append(kept, r)
			}
		}
		rows = kept
	}
	return c.JSON(http.StatusOK, map[string]any{"records": rows})
}

func (s *Server) record(c *echo.Context) (*Upload, *nat.Record, error) {
	u, err := s.upload(c)
	if u == nil {
		return nil, nil, err
	}
	i, err := indexParam(c, "index")
	if err != nil {
		return nil, nil, writeError(c, err)
	}
	r, err := u.File.Record(i)
	if err != nil {
		return nil, nil, writeError(c, err)
	}
	return u, r, nil
}

func (s *Server) handleRecord(c *echo.Context) error {
	u, r, err := s.record(c)
	if r == nil {
		return err
	}
	return c.JSON(http.StatusOK, export.Detail(u.File, r))
}

func (s *Server) handleRecordRaw(c *echo.Context) error {
	_, r, err := s.record(c)
	if r == nil {
		return err
	}
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, echo.MIMEOctetStream)
	res.WriteHeader(http.StatusOK)
	_, err = r.WriteTo(res)
	return err
}

// handleObservations streams per-pixel rows as JSON Lines (default) or
// Parquet.
func (s *Server) handleObservations(c *echo.Context) error {
	u, err := s.upload(c)
	if u == nil {
		return err
	}
	format, err := export.ParseFormat(c.QueryParam("format"), ".jsonl")
	if err != nil {
		return writeError(c, newInvalidRequest(err.Error()))
	}
	rows, err := iasi.Observations(u.File)
	if err != nil {
		return writeError(c, err)
	}

	res := c.Response()
	if format == export.Parquet {
		res.Header().Set(echo.HeaderContentType, "application/vnd.apache.parquet")
	} else {
		res.Header().Set(echo.HeaderContentType, "application/x-ndjson")
	}
	res.WriteHeader(http.StatusOK)
	w, err := export.NewRowWriter(res, format)
	if err != nil {
		return err
	}
	if err := w.Write(rows); err != nil {
		return err
	}
	return w.Close()
}

func (s *Server) plan(c *echo.Context, u *Upload) ([]*nat.Part, error) {
	threshold, err := sizeParam(c, "threshold", s.cfg.SplitThreshold)
	if err != nil {
		return nil, err
	}
	template := c.QueryParam("template")
	if template == "" {
		template = s.cfg.SplitTemplate
	}
	return nat.Plan(u.File, threshold, template)
}

func (s *Server) handleSplitPlan(c *echo.Context) error {
	u, err := s.upload(c)
	if u == nil {
		return err
	}
	parts, err := s.plan(c, u)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]PartView, len(parts))
	for i, p := range parts {
		out[i] = PartView{Index: p.Index, Name: p.Name, Start: p.Start, Stop: p.Stop, Size: p.Size, Body: len(p.Body())}
	}
	return c.JSON(http.StatusOK, map[string]any{"parts": out})
}

// handleSplitPart streams one planned part as a native file.
func (s *Server) handleSplitPart(c *echo.Context) error {
	u, err := s.upload(c)
	if u == nil {
		return err
	}
	parts, err := s.plan(c, u)
	if err != nil {
		return writeError(c, err)
	}
	i, err := indexParam(c, "part")
	if err != nil {
		return writeError(c, err)
	}
	if i < 0 || i >= len(parts) {
		return writeNotFound(c, fmt.Sprintf("part %d of %d not found", i, len(parts)))
	}
	p := parts[i]
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, echo.MIMEOctetStream)
	res.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", p.Name))
	res.Header().Set(echo.HeaderContentLength, fmt.Sprint(p.Size))
	res.WriteHeader(http.StatusOK)
	if _, err := p.WriteTo(res); err != nil {
		return err
	}
	s.metrics.SplitParts.Inc()
	return nil
}
