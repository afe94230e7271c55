package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/automateda/internal/dataset"
	"github.com/KaramelBytes/automateda/internal/mi"
	"github.com/KaramelBytes/automateda/internal/score"
	"github.com/KaramelBytes/automateda/internal/table"
)

//go:embed templates/*.html
var templateFS embed.FS

// Config holds the server configuration
type Config struct {
	Host           string
	Port           int
	ExamplesDir    string
	MaxUploadBytes int64
	PreviewRows    int
	TableOptions   table.Options
	// Estimator settings
	Seed      uint64
	Neighbors int

	EnableMetrics   bool
	EnableCORS      bool
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a default server configuration
func DefaultConfig() *Config {
	return &Config{
		Host:            "127.0.0.1",
		Port:            8501,
		ExamplesDir:     dataset.DefaultDir,
		MaxUploadBytes:  200 << 20,
		PreviewRows:     10,
		Neighbors:       mi.DefaultNeighbors,
		EnableMetrics:   true,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Server serves the AutomatEDA pages and JSON API.
type Server struct {
	config   *Config
	store    *dataset.Store
	scorer   *score.Scorer
	metrics  *metrics
	registry *prometheus.Registry
	pages    *template.Template
	router   *mux.Router
}

// New wires a server around store. A nil registry gets a fresh one with the
// Go and process collectors attached.
func New(config *Config, store *dataset.Store, registry *prometheus.Registry) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if store == nil {
		return nil, errors.New("server: nil dataset store")
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	pages, err := template.New("pages").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	s := &Server{
		config:   config,
		store:    store,
		scorer:   score.New(mi.KNN{Neighbors: config.Neighbors, Seed: config.Seed}),
		metrics:  newMetrics(registry, store),
		registry: registry,
		pages:    pages,
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	if s.config.EnableCORS {
		router.Use(s.corsMiddleware)
	}
	router.Use(s.loggingMiddleware)

	// Pages
	router.HandleFunc("/", s.indexPage).Methods("GET")
	router.HandleFunc("/datasets", s.uploadPage).Methods("POST")
	router.HandleFunc("/examples/{key}", s.examplePage).Methods("POST")
	router.HandleFunc("/datasets/{id}", s.datasetPage).Methods("GET")
	router.HandleFunc("/datasets/{id}/report", s.reportPage).Methods("GET")

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/examples", s.listExamples).Methods("GET")
	api.HandleFunc("/datasets", s.uploadDataset).Methods("POST")
	api.HandleFunc("/datasets/{id}", s.getDataset).Methods("GET")
	api.HandleFunc("/datasets/{id}/profile", s.getProfile).Methods("GET")
	api.HandleFunc("/datasets/{id}/scores", s.postScores).Methods("POST")
	if s.config.EnableCORS {
		api.Methods("OPTIONS").HandlerFunc(s.handleOptions)
	}

	if s.config.EnableMetrics {
		router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))
	}
	router.HandleFunc("/health", s.healthCheck).Methods("GET")
	return router
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
	log.Info().
		Str("addr", ln.Addr().String()).
		Str("examples_dir", s.config.ExamplesDir).
		Bool("metrics", s.config.EnableMetrics).
		Msg("Starting AutomatEDA server")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// handleOptions handles CORS preflight requests
func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
