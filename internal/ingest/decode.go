package ingest

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/jackzampolin/snaptranslate/internal/imaging"
)

// Kind is the routing decision for one input file.
type Kind int

const (
	KindUnsupported Kind = iota
	KindImage
	KindPDF
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindPDF:
		return "pdf"
	default:
		return "unsupported"
	}
}

var pdfMagic = []byte("%PDF-")

// DetectKind routes a file by content first and extension second.
func DetectKind(name string, data []byte) Kind {
	if bytes.HasPrefix(data, pdfMagic) {
		return KindPDF
	}
	if strings.HasPrefix(http.DetectContentType(data), "image/") {
		return KindImage
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return KindPDF
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return KindImage
	}
	return KindUnsupported
}

// DecodeImage decodes any registered raster format into a fresh NRGBA
// bitmap owned by the caller.
func DecodeImage(data []byte) (*image.NRGBA, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, format, fmt.Errorf("image has no pixels")
	}
	return imaging.Clone(img), format, nil
}
