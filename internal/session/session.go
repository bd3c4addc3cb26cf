// Package session ties one user's registry, selection, ingestion, batch
// runs and exports together. Sessions share nothing with each other.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/jackzampolin/snaptranslate/internal/export"
	"github.com/jackzampolin/snaptranslate/internal/ingest"
	"github.com/jackzampolin/snaptranslate/internal/page"
	"github.com/jackzampolin/snaptranslate/internal/pipeline"
	"github.com/jackzampolin/snaptranslate/internal/providers"
)

// Config configures a Session.
type Config struct {
	Providers   pipeline.Providers
	Detector    providers.LanguageDetector // Optional
	Observer    pipeline.Observer          // Optional
	Rasterizer  ingest.Rasterizer          // Optional; PDFs are rejected without one
	MaxFileSize int64
	MaxWorkers  int
	ExportDir   string
	TextFile    string
	PDFFile     string
	Logger      *slog.Logger
}

// Session is a single-user working set of pages.
type Session struct {
	ID string

	registry     *page.Registry
	ingester     *ingest.Ingester
	orchestrator *pipeline.Orchestrator
	exporter     *export.Service
	logger       *slog.Logger

	mu       sync.Mutex
	selected int // 0 = none
}

// New creates an empty session.
func New(cfg Config) *Session {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	id := uuid.New().String()
	logger := cfg.Logger.With("session_id", id)
	reg := page.NewRegistry()

	return &Session{
		ID:       id,
		registry: reg,
		ingester: ingest.New(ingest.Config{
			Registry:    reg,
			Rasterizer:  cfg.Rasterizer,
			MaxFileSize: cfg.MaxFileSize,
			MaxWorkers:  cfg.MaxWorkers,
			Logger:      logger,
		}),
		orchestrator: pipeline.New(pipeline.Config{
			Registry:  reg,
			Providers: cfg.Providers,
			Detector:  cfg.Detector,
			Observer:  cfg.Observer,
			Logger:    logger,
		}),
		exporter: export.NewService(export.Config{
			Registry: reg,
			Dir:      cfg.ExportDir,
			TextFile: cfg.TextFile,
			PDFFile:  cfg.PDFFile,
			Logger:   logger,
		}),
		logger: logger,
	}
}

// Registry exposes the page registry for per-page edits.
func (s *Session) Registry() *page.Registry { return s.registry }

// Orchestrator exposes run state (Running, Progress).
func (s *Session) Orchestrator() *pipeline.Orchestrator { return s.orchestrator }

// Exporter exposes the export service.
func (s *Session) Exporter() *export.Service { return s.exporter }

// AddFiles ingests files and selects the first page if nothing is selected.
func (s *Session) AddFiles(ctx context.Context, files []ingest.File) (*ingest.Result, error) {
	res, err := s.ingester.Ingest(ctx, files)
	s.autoSelect()
	return res, err
}

// AddPaths ingests files from disk.
func (s *Session) AddPaths(ctx context.Context, paths []string) (*ingest.Result, error) {
	res, err := s.ingester.IngestPaths(ctx, paths)
	s.autoSelect()
	return res, err
}

func (s *Session) autoSelect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected != 0 {
		return
	}
	if first, ok := s.registry.First(); ok {
		s.selected = first.ID
	}
}

// Select makes id the active page.
func (s *Session) Select(id int) error {
	if _, ok := s.registry.Get(id); !ok {
		return page.ErrNotFound
	}
	s.mu.Lock()
	s.selected = id
	s.mu.Unlock()
	return nil
}

// Selected returns the active page, if any.
func (s *Session) Selected() (page.Page, bool) {
	s.mu.Lock()
	id := s.selected
	s.mu.Unlock()
	if id == 0 {
		return page.Page{}, false
	}
	return s.registry.Get(id)
}

// Remove deletes a page. Removing the active page selects the first
// remaining page, or nothing when the registry is empty.
func (s *Session) Remove(id int) bool {
	removed := s.registry.Remove(id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if removed && s.selected == id {
		s.selected = 0
		if first, ok := s.registry.First(); ok {
			s.selected = first.ID
		}
	}
	return removed
}

// Clear removes every page and the selection. Page ids keep increasing.
func (s *Session) Clear() int {
	n := s.registry.Clear()
	s.mu.Lock()
	s.selected = 0
	s.mu.Unlock()
	s.logger.Info("all pages cleared", "count", n)
	return n
}

// Run starts a batch run over the eligible pages.
func (s *Session) Run(ctx context.Context, opts pipeline.Options) (*pipeline.Summary, error) {
	return s.orchestrator.Run(ctx, opts)
}

// ExportText writes the text bundle; empty path uses the configured default.
func (s *Session) ExportText(path string) (string, error) {
	return s.exporter.ExportText(path)
}

// ExportPDF writes the reconstructed PDF; empty path uses the configured default.
func (s *Session) ExportPDF(ctx context.Context, path string) (string, error) {
	return s.exporter.ExportPDF(ctx, path)
}
