// Package server exposes a tiering session over HTTP.
package server

import (
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sells-group/rate-tiering/internal/export"
	"github.com/sells-group/rate-tiering/internal/fetcher"
	"github.com/sells-group/rate-tiering/internal/model"
	"github.com/sells-group/rate-tiering/internal/session"
	"github.com/sells-group/rate-tiering/internal/tiering"
)

// Config configures the HTTP surface.
type Config struct {
	AllowedOrigins []string
	MaxUploadBytes int64
	Export         export.Options
	// UploadDir receives uploaded archives; empty uses the OS default.
	UploadDir string
}

// Server routes HTTP requests to a session.
type Server struct {
	sess     *session.Session
	cfg      Config
	metrics  *Metrics
	validate *validator.Validate
	router   chi.Router
}

// New builds the router.
func New(sess *session.Session, cfg Config) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 64 << 20
	}
	s := &Server{sess: sess, cfg: cfg, metrics: NewMetrics(), validate: newValidator()}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	r.Post("/archive", s.handleLoadArchive)
	r.Get("/sheets", s.handleSheets)
	r.Route("/tiering", func(r chi.Router) {
		r.Post("/", s.handleGenerate)
		r.Get("/", s.handleExport)
		r.Get("/summary", s.handleSummary)
		r.Get("/filters", s.handleFilters)
	})

	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("server: request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// statusOf maps session and pipeline errors onto HTTP status codes.
func statusOf(err error) int {
	var (
		noTrucks *tiering.NoTruckTypeColumnsError
		missing  *tiering.MissingColumnsError
		unknown  *session.UnknownSheetError
	)
	switch {
	case errors.As(err, &noTrucks), errors.As(err, &missing):
		return http.StatusUnprocessableEntity
	case errors.As(err, &unknown):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNoArchive):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// handleLoadArchive accepts either a multipart upload in the "file" field
// or a JSON body naming a remote archive URL.
func (s *Server) handleLoadArchive(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	var source string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		path, err := s.saveUpload(r)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		defer os.Remove(path) //nolint:errcheck
		source = path
	} else {
		var req archiveRequest
		if err := s.decodeAndValidate(r.Body, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if !fetcher.IsRemote(req.Source) {
			writeError(w, r, http.StatusBadRequest, "source must be an http, https or ftp URL")
			return
		}
		source = req.Source
	}

	c, err := s.sess.Load(r.Context(), source)
	s.metrics.observeLoad(err)
	if err != nil {
		zap.L().Error("server: load archive", zap.Error(err))
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, r, http.StatusOK, c)
}

func (s *Server) saveUpload(r *http.Request) (string, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", err
	}
	defer file.Close() //nolint:errcheck

	out, err := os.CreateTemp(s.cfg.UploadDir, "upload-*.zip")
	if err != nil {
		return "", err
	}
	defer out.Close() //nolint:errcheck

	n, err := io.Copy(out, file)
	if err != nil {
		_ = os.Remove(out.Name())
		return "", err
	}
	zap.L().Info("server: archive uploaded", zap.String("filename", header.Filename), zap.Int64("bytes", n))
	return out.Name(), nil
}

func (s *Server) handleSheets(w http.ResponseWriter, r *http.Request) {
	c, ok := s.sess.Catalog()
	if !ok {
		writeError(w, r, http.StatusNotFound, "no archive loaded")
		return
	}
	writeJSON(w, r, http.StatusOK, c)
}

// runSummary is the response of a tiering run.
type runSummary struct {
	RunID       string          `json:"run_id"`
	Sheet       string          `json:"sheet"`
	CreatedAt   time.Time       `json:"created_at"`
	TruckTypes  []string        `json:"truck_types"`
	Assignments int             `json:"assignments"`
	Empty       bool            `json:"empty"`
	Stats       tiering.Stats   `json:"stats"`
	Warnings    []model.Warning `json:"warnings"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req session.Request
	if err := s.decodeAndValidate(r.Body, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	res, err := s.sess.Generate(r.Context(), req)
	if err != nil {
		s.metrics.observeRun(start, 0, err)
		status := statusOf(err)
		if status == http.StatusInternalServerError {
			zap.L().Error("server: tiering failed", zap.String("sheet", req.Sheet), zap.Error(err))
		}
		writeError(w, r, status, err.Error())
		return
	}
	s.metrics.observeRun(start, len(res.Assignments), nil)

	out := runSummary{
		RunID:       res.RunID,
		Sheet:       res.Sheet,
		CreatedAt:   res.CreatedAt,
		TruckTypes:  res.TruckTypes,
		Assignments: len(res.Assignments),
		Empty:       res.Empty(),
		Stats:       res.Stats,
		Warnings:    res.Warnings,
	}
	if out.Warnings == nil {
		out.Warnings = []model.Warning{}
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) result(w http.ResponseWriter, r *http.Request) (*tiering.Result, bool) {
	res, ok := s.sess.Result()
	if !ok {
		writeError(w, r, http.StatusNotFound, "no tiering result, generate one first")
	}
	return res, ok
}

func queryBool(r *http.Request, key string, def bool) bool {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	res, ok := s.result(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	format, err := export.ParseFormat(q.Get("format"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	filter := export.Filter{
		Vendor:      q.Get("vendor"),
		Origin:      q.Get("origin"),
		Destination: q.Get("destination"),
	}
	opts := export.Options{
		IncludeStatus: queryBool(r, "status", s.cfg.Export.IncludeStatus),
		IncludeSource: queryBool(r, "source", s.cfg.Export.IncludeSource),
	}

	rows := filter.Apply(res.Assignments)
	w.Header().Set("Content-Type", format.ContentType())
	if format == export.FormatCSV {
		w.Header().Set("Content-Disposition", `attachment; filename="tiering.csv"`)
	}
	if err := export.Write(w, format, rows, opts); err != nil {
		zap.L().Error("server: export", zap.Error(err))
	}
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	res, ok := s.result(w, r)
	if !ok {
		return
	}
	lanes, err := tiering.Summarize(res.Assignments)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"run_id": res.RunID, "lanes": lanes})
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	res, ok := s.result(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, export.FilterChoices(res.Assignments))
}
