package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/klauspost/compress/gzhttp"

	"github.com/pavel-fokin/rdf-cubes/internal/artifacts"
	"github.com/pavel-fokin/rdf-cubes/internal/converter"
	"github.com/pavel-fokin/rdf-cubes/internal/fs"
	"github.com/pavel-fokin/rdf-cubes/internal/sqlite"
	"github.com/pavel-fokin/rdf-cubes/internal/uploads"
)

// ConversionLog keeps the history of conversion requests
type ConversionLog interface {
	Record(rec *uploads.Record) error
	Conversions(limit int) ([]*uploads.Record, error)
}

// Option customizes the server
type Option func(*options)

type options struct {
	converter uploads.Converter
}

// WithConverter replaces the external conversion command
func WithConverter(c uploads.Converter) Option {
	return func(o *options) {
		o.converter = c
	}
}

// Server serves the conversion form, the conversion API and artifact downloads
type Server struct {
	*http.Server

	artifacts *artifacts.Service
	repo      *sqlite.Repository
}

func New(cfg *Config, opts ...Option) (*Server, error) {
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	workDir := cfg.WorkDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve working directory: %w", err)
		}
		workDir = wd
	}

	if o.converter == nil {
		cmd, err := converter.New(cfg.Converter, converter.WithDir(workDir))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize converter: %w", err)
		}
		o.converter = cmd
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	repo, err := sqlite.NewRepository(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize repository: %w", err)
	}

	stager := fs.NewStager(cfg.UploadsDir)
	if err := os.MkdirAll(stager.Dir(), 0755); err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}

	uploadService := uploads.NewService(stager, o.converter, workDir)
	artifactService := artifacts.NewService(fs.NewStorage(cfg.DataDir), repo, cfg.HmacKey, cfg.TTL)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthz)
	mux.HandleFunc("GET /{$}", index)
	mux.HandleFunc("POST /v1/conversions", convert(uploadService, artifactService, repo))
	mux.HandleFunc("GET /v1/conversions", auth(cfg.AdminToken, listConversions(repo)))
	mux.HandleFunc("GET /v1/artifacts", auth(cfg.AdminToken, listArtifacts(artifactService)))
	mux.HandleFunc("DELETE /v1/artifacts/{id}", auth(cfg.AdminToken, deleteArtifact(artifactService)))
	mux.Handle("GET /v1/artifacts/{id}", gzhttp.GzipHandler(signedDownload(artifactService)))

	handler := loggingMiddleware(limitBody(mux, cfg.MaxSize))

	return &Server{
		Server: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		artifacts: artifactService,
		repo:      repo,
	}, nil
}

// RunJanitor removes expired artifacts every interval until ctx is done
func (s *Server) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.artifacts.CleanupExpired()
			if err != nil {
				slog.Error("Artifact cleanup failed", "error", err)
				continue
			}
			if removed > 0 {
				slog.Info("Removed expired artifacts", "count", removed)
			}
		}
	}
}

// Shutdown stops the HTTP server and closes the database
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.Server.Shutdown(ctx)
	if cerr := s.repo.Close(); err == nil {
		err = cerr
	}
	return err
}
