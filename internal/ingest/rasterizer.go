package ingest

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// DefaultDPI renders PDF pages at 1.5x the 72 dpi user-space scale.
const DefaultDPI = 108

// Rasterizer opens multi-page documents for per-page rendering.
type Rasterizer interface {
	Open(ctx context.Context, data []byte) (Document, error)
}

// Document is an opened multi-page source.
type Document interface {
	PageCount() int
	// Render returns the bitmap for a 1-based page number.
	Render(ctx context.Context, page int) (image.Image, error)
	Close() error
}

// PDFRasterizer counts pages with pdfcpu and renders them with pdftoppm
// (poppler-utils). pdfcpu extracts embedded image objects, not rendered
// pages, so rendering goes through poppler.
type PDFRasterizer struct {
	Binary string // pdftoppm path (default: "pdftoppm" from PATH)
	DPI    int
}

// NewPDFRasterizer returns a rasterizer using pdftoppm at dpi.
func NewPDFRasterizer(binary string, dpi int) *PDFRasterizer {
	if binary == "" {
		binary = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &PDFRasterizer{Binary: binary, DPI: dpi}
}

// Open validates the PDF, counts its pages and stages it in a temp dir for
// pdftoppm. Callers must Close the document.
func (r *PDFRasterizer) Open(ctx context.Context, data []byte) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pageCount, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}
	if pageCount == 0 {
		return nil, fmt.Errorf("document has no pages")
	}

	tmpDir, err := os.MkdirTemp("", "snaptranslate-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	src := filepath.Join(tmpDir, "source.pdf")
	if err := os.WriteFile(src, data, 0o600); err != nil {
		os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("failed to stage pdf: %w", err)
	}

	return &pdfDocument{
		binary:    r.Binary,
		dpi:       r.DPI,
		dir:       tmpDir,
		src:       src,
		pageCount: pageCount,
	}, nil
}

type pdfDocument struct {
	binary    string
	dpi       int
	dir       string
	src       string
	pageCount int
}

func (d *pdfDocument) PageCount() int { return d.pageCount }

// Render runs pdftoppm for a single page and decodes the PNG it writes.
func (d *pdfDocument) Render(ctx context.Context, page int) (image.Image, error) {
	if page < 1 || page > d.pageCount {
		return nil, fmt.Errorf("page %d out of range (1-%d)", page, d.pageCount)
	}

	// -singlefile: no page number suffix, output is <prefix>.png
	prefix := filepath.Join(d.dir, "page-"+strconv.Itoa(page))
	pageStr := strconv.Itoa(page)
	cmd := exec.CommandContext(ctx, d.binary,
		"-png",
		"-f", pageStr,
		"-l", pageStr,
		"-r", strconv.Itoa(d.dpi),
		"-singlefile",
		d.src,
		prefix,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w (output: %s)", err, string(output))
	}

	out := prefix + ".png"
	defer os.Remove(out)
	f, err := os.Open(out)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm did not create expected output: %w", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode rendered page: %w", err)
	}
	return img, nil
}

func (d *pdfDocument) Close() error {
	return os.RemoveAll(d.dir)
}

var _ Rasterizer = (*PDFRasterizer)(nil)
