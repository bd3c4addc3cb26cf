package export

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/jackzampolin/snaptranslate/internal/imaging"
	"github.com/jackzampolin/snaptranslate/internal/page"
)

// PDF builds a document with one full-bleed image page per included page.
// Each page is the source bitmap with its rotation applied (no enhancement),
// sized to the bitmap at one point per pixel. There is no text layer.
// Any page failure aborts the whole export.
func PDF(ctx context.Context, pages []page.Page) ([]byte, error) {
	included := Included(pages)
	if len(included) == 0 {
		return nil, ErrNoIncludedPages
	}

	images := make([]io.Reader, 0, len(included))
	for _, p := range included {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		canonical, err := imaging.Prepare(p.Bitmap, p.Rotation, false)
		if err != nil {
			return nil, fmt.Errorf("page %d (%s): %w", p.ID, p.Name, err)
		}
		data, err := imaging.EncodePNG(canonical)
		if err != nil {
			return nil, fmt.Errorf("page %d (%s): %w", p.ID, p.Name, err)
		}
		images = append(images, bytes.NewReader(data))
	}

	// pos:full sizes each page to its image; 72 dpi keeps 1px = 1pt.
	imp := pdfcpu.DefaultImportConfig()
	imp.Pos = types.Full
	imp.DPI = 72

	var buf bytes.Buffer
	if err := api.ImportImages(nil, &buf, images, imp, nil); err != nil {
		return nil, fmt.Errorf("failed to assemble pdf: %w", err)
	}
	return buf.Bytes(), nil
}
