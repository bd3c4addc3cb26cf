// Package ingest turns source files into pages in a registry.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/jackzampolin/snaptranslate/internal/imaging"
	"github.com/jackzampolin/snaptranslate/internal/page"
)

// DefaultMaxFileSize is the per-file upload limit (20 MB).
const DefaultMaxFileSize = 20 << 20

// DecodeError reports a source file that produced no pages. Other files in
// the same call are unaffected.
type DecodeError struct {
	File   string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.File, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// File is one raw input.
type File struct {
	Name string
	Data []byte
}

// Config configures an Ingester.
type Config struct {
	Registry    *page.Registry
	Rasterizer  Rasterizer   // Required for PDFs
	MaxFileSize int64        // Bytes (default: DefaultMaxFileSize)
	MaxWorkers  int          // Concurrent page renders per PDF (default: NumCPU)
	Logger      *slog.Logger // Optional
}

// Result lists what one Ingest call added and what it rejected.
type Result struct {
	Pages    []page.Page    `json:"pages" yaml:"pages"`
	Failures []*DecodeError `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// Ingester appends pages to a registry from raw files.
type Ingester struct {
	registry    *page.Registry
	rasterizer  Rasterizer
	maxFileSize int64
	maxWorkers  int
	logger      *slog.Logger
}

// New creates an Ingester.
func New(cfg Config) *Ingester {
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = runtime.NumCPU()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Ingester{
		registry:    cfg.Registry,
		rasterizer:  cfg.Rasterizer,
		maxFileSize: cfg.MaxFileSize,
		maxWorkers:  cfg.MaxWorkers,
		logger:      cfg.Logger,
	}
}

// Ingest processes files in order. A file that fails becomes a DecodeError
// in the result and contributes no pages. The returned error is non-nil only
// when ctx is cancelled; pages created before that remain in the registry.
func (g *Ingester) Ingest(ctx context.Context, files []File) (*Result, error) {
	res := &Result{}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		pages, err := g.ingestFile(ctx, f)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			var de *DecodeError
			if !errors.As(err, &de) {
				de = &DecodeError{File: f.Name, Reason: "failed to read", Err: err}
			}
			g.logger.Warn("skipping file", "file", f.Name, "error", de)
			res.Failures = append(res.Failures, de)
			continue
		}
		res.Pages = append(res.Pages, pages...)
		g.logger.Debug("ingested file", "file", f.Name, "pages", len(pages))
	}
	return res, nil
}

// IngestPaths reads files from disk and ingests them in the given order.
// Unreadable paths are reported as DecodeErrors.
func (g *Ingester) IngestPaths(ctx context.Context, paths []string) (*Result, error) {
	files := make([]File, 0, len(paths))
	var failures []*DecodeError
	for _, p := range paths {
		name := filepath.Base(p)
		info, err := os.Stat(p)
		if err != nil {
			failures = append(failures, &DecodeError{File: name, Reason: "cannot open", Err: err})
			continue
		}
		if info.Size() > g.maxFileSize {
			failures = append(failures, g.tooLarge(name))
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			failures = append(failures, &DecodeError{File: name, Reason: "cannot read", Err: err})
			continue
		}
		files = append(files, File{Name: name, Data: data})
	}

	res, err := g.Ingest(ctx, files)
	if res != nil {
		res.Failures = append(failures, res.Failures...)
	}
	return res, err
}

func (g *Ingester) tooLarge(name string) *DecodeError {
	return &DecodeError{
		File:   name,
		Reason: fmt.Sprintf("file is too large (max %dMB)", g.maxFileSize>>20),
	}
}

func (g *Ingester) ingestFile(ctx context.Context, f File) ([]page.Page, error) {
	if int64(len(f.Data)) > g.maxFileSize {
		return nil, g.tooLarge(f.Name)
	}

	switch kind := DetectKind(f.Name, f.Data); kind {
	case KindImage:
		bitmap, _, err := DecodeImage(f.Data)
		if err != nil {
			return nil, &DecodeError{File: f.Name, Reason: "invalid image", Err: err}
		}
		return []page.Page{g.registry.Create(f.Name, page.SourceImage, bitmap)}, nil
	case KindPDF:
		return g.ingestPDF(ctx, f)
	default:
		return nil, &DecodeError{File: f.Name, Reason: "unsupported file type"}
	}
}

// ingestPDF renders every page concurrently, then creates them in page
// order. Any page failure rejects the whole file.
func (g *Ingester) ingestPDF(ctx context.Context, f File) ([]page.Page, error) {
	if g.rasterizer == nil {
		return nil, &DecodeError{File: f.Name, Reason: "no pdf rasterizer configured"}
	}

	doc, err := g.rasterizer.Open(ctx, f.Data)
	if err != nil {
		return nil, &DecodeError{File: f.Name, Reason: "invalid pdf", Err: err}
	}
	defer doc.Close()

	n := doc.PageCount()
	bitmaps := make([]*image.NRGBA, n)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.maxWorkers)
	for i := 0; i < n; i++ {
		eg.Go(func() error {
			img, err := doc.Render(egCtx, i+1)
			if err != nil {
				return fmt.Errorf("page %d: %w", i+1, err)
			}
			bitmaps[i] = imaging.ToNRGBA(img)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, &DecodeError{File: f.Name, Reason: "failed to render", Err: err}
	}

	pages := make([]page.Page, n)
	for i, bm := range bitmaps {
		pages[i] = g.registry.Create(PageName(f.Name, i+1), page.SourceDocumentPage, bm)
	}
	return pages, nil
}

// PageName labels one page of a multi-page source.
func PageName(file string, n int) string {
	return fmt.Sprintf("%s (Page %d)", file, n)
}
