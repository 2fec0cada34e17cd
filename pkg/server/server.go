// Package server exposes stored documents over HTTP.
//
// Routes (the chain segment is optional everywhere):
//
//	GET  /rest/document/{structureID}/{chain}   JSON view of the validated document
//	GET  /rest/xml/{structureID}/{chain}        persisted XML, unchanged
//	PUT  /rest/xml/{structureID}/{chain}        validate and store a document
//	GET  /rest/structure/{structureID}/{chain}  structure file as chemical/x-pdb
//	POST /rest/jobs/{structureID}/{chain}       recompute through the producer
//	GET  /rest/status/{jobID}                   job state
//	GET  /metrics                               Prometheus metrics, when configured
//
// Every document read goes through the full validation of pkg/io. A stored
// document that fails validation is reported with status 422 and a body of
// the form {"code": ..., "message": ..., "subject": ...}.
package server

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/vase/pkg/cache"
	"github.com/matzehuels/vase/pkg/errors"
	vaseio "github.com/matzehuels/vase/pkg/io"
	"github.com/matzehuels/vase/pkg/job"
	"github.com/matzehuels/vase/pkg/store"
)

// ProducerFactory returns the producer recomputing one document.
type ProducerFactory func(structureID, chain string) job.Producer

// Options configures a Server.
type Options struct {
	Keyer cache.Keyer // defaults to cache.DefaultKeyer

	// Producers builds producers for POST /rest/jobs. Without one, and in
	// XMLOnly mode, the route answers 403.
	Producers ProducerFactory

	// XMLOnly serves stored documents read-only: PUT and POST are refused.
	XMLOnly bool

	// MaxBodyBytes bounds PUT bodies; zero means vaseio.DefaultMaxBytes and
	// a negative value disables the bound.
	MaxBodyBytes int64

	// Metrics is mounted at /metrics when set, usually promhttp.Handler().
	Metrics http.Handler

	Logger *log.Logger
}

// Server is the HTTP handler for stored documents.
type Server struct {
	store  *store.Store
	queue  *job.Queue
	opts   Options
	logger *log.Logger
	router chi.Router
}

// New creates a Server. queue may be nil, in which case no jobs can be
// submitted or queried.
func New(st *store.Store, queue *job.Queue, opts Options) *Server {
	if opts.Keyer == nil {
		opts.Keyer = cache.NewDefaultKeyer()
	}
	if opts.MaxBodyBytes == 0 {
		opts.MaxBodyBytes = vaseio.DefaultMaxBytes
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	s := &Server{store: st, queue: queue, opts: opts, logger: logger}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	document := func(pattern string, method string, h http.HandlerFunc) {
		r.Method(method, pattern+"/{structureID}", h)
		r.Method(method, pattern+"/{structureID}/{chain}", h)
	}
	document("/rest/document", http.MethodGet, s.handleDocument)
	document("/rest/xml", http.MethodGet, s.handleGetXML)
	document("/rest/xml", http.MethodPut, s.handlePutXML)
	document("/rest/structure", http.MethodGet, s.handleStructure)
	document("/rest/jobs", http.MethodPost, s.handleSubmit)
	r.Get("/rest/status/{jobID}", s.handleStatus)

	if s.opts.Metrics != nil {
		r.Handle("/metrics", s.opts.Metrics)
	}
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr, "xml_only", s.opts.XMLOnly)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// documentKey validates the route parameters and maps them to a store key.
func (s *Server) documentKey(r *http.Request) (string, error) {
	id := chi.URLParam(r, "structureID")
	chain := chi.URLParam(r, "chain")
	if err := errors.ValidateStructureID(id); err != nil {
		return "", err
	}
	if err := errors.ValidateChainID(chain); err != nil {
		return "", err
	}
	return s.opts.Keyer.DocumentKey(id, chain), nil
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	key, err := s.documentKey(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	doc, err := s.store.Load(r.Context(), key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NewDocumentView(doc))
}

func (s *Server) handleGetXML(w http.ResponseWriter, r *http.Request) {
	key, err := s.documentKey(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := s.store.Raw(r.Context(), key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handlePutXML(w http.ResponseWriter, r *http.Request) {
	if s.opts.XMLOnly {
		s.writeError(w, r, errReadOnly)
		return
	}
	key, err := s.documentKey(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	body := r.Body
	if s.opts.MaxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	doc, err := s.store.PutRaw(r.Context(), key, data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("document stored", "key", key, "bytes", len(data))
	writeJSON(w, http.StatusOK, NewDocumentView(doc))
}

func (s *Server) handleStructure(w http.ResponseWriter, r *http.Request) {
	key, err := s.documentKey(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	doc, err := s.store.Load(r.Context(), key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "chemical/x-pdb")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, doc.Structure())
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if s.opts.XMLOnly || s.opts.Producers == nil || s.queue == nil {
		s.writeError(w, r, errReadOnly)
		return
	}
	key, err := s.documentKey(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p := s.opts.Producers(chi.URLParam(r, "structureID"), chi.URLParam(r, "chain"))
	id, err := s.queue.Submit(r.Context(), key, p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, id)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.queue == nil {
		s.writeError(w, r, job.ErrUnknownJob)
		return
	}
	state, err := s.queue.Status(chi.URLParam(r, "jobID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}
