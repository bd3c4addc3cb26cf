package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jackzampolin/snaptranslate/internal/page"
)

// Default artifact names.
const (
	DefaultTextFile = "ocr-translation-result.txt"
	DefaultPDFFile  = "scanned-doc.pdf"
)

// Config configures a Service.
type Config struct {
	Registry *page.Registry
	Dir      string // Output directory for default paths
	TextFile string // default: DefaultTextFile
	PDFFile  string // default: DefaultPDFFile
	Logger   *slog.Logger
}

// Service writes exports of a registry's current state to disk.
type Service struct {
	registry *page.Registry
	dir      string
	textFile string
	pdfFile  string
	logger   *slog.Logger
}

// NewService creates an export service.
func NewService(cfg Config) *Service {
	if cfg.TextFile == "" {
		cfg.TextFile = DefaultTextFile
	}
	if cfg.PDFFile == "" {
		cfg.PDFFile = DefaultPDFFile
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		registry: cfg.Registry,
		dir:      cfg.Dir,
		textFile: cfg.TextFile,
		pdfFile:  cfg.PDFFile,
		logger:   cfg.Logger,
	}
}

// TextPath is where ExportText writes when path is empty.
func (s *Service) TextPath() string { return filepath.Join(s.dir, s.textFile) }

// PDFPath is where ExportPDF writes when path is empty.
func (s *Service) PDFPath() string { return filepath.Join(s.dir, s.pdfFile) }

// ExportText writes the text bundle to path (or TextPath) and returns the
// path written.
func (s *Service) ExportText(path string) (string, error) {
	data, err := Text(s.registry.All())
	if err != nil {
		return "", err
	}
	if path == "" {
		path = s.TextPath()
	}
	if err := writeFileAtomic(path, data); err != nil {
		return "", err
	}
	s.logger.Info("text exported", "path", path, "bytes", len(data))
	return path, nil
}

// ExportPDF writes the reconstructed PDF to path (or PDFPath).
func (s *Service) ExportPDF(ctx context.Context, path string) (string, error) {
	data, err := PDF(ctx, s.registry.All())
	if err != nil {
		return "", err
	}
	if path == "" {
		path = s.PDFPath()
	}
	if err := writeFileAtomic(path, data); err != nil {
		return "", err
	}
	s.logger.Info("pdf exported", "path", path, "bytes", len(data))
	return path, nil
}

// writeFileAtomic writes via a temp file and rename so a failed export never
// leaves a partial artifact at path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create export dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move export into place: %w", err)
	}
	return nil
}
