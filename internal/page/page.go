// Package page holds the Page entity and the ordered Registry that owns
// pipeline state for a session.
package page

import (
	"errors"
	"fmt"
	"image"
)

// Status is the lifecycle state of a page.
type Status string

const (
	StatusReady      Status = "ready"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

// Terminal reports whether the status ends a page's trip through a run.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// SourceKind records where a page came from. Informational only.
type SourceKind string

const (
	SourceImage        SourceKind = "image"
	SourceDocumentPage SourceKind = "pdf-page"
)

// ErrInvalidRotation is returned for rotations outside {0, 90, 180, 270}.
var ErrInvalidRotation = errors.New("rotation must be one of 0, 90, 180, 270")

// ErrNotFound is returned when a page id is not in the registry.
var ErrNotFound = errors.New("page not found")

// Page is one unit of processable content.
type Page struct {
	ID         int        `json:"id" yaml:"id"`
	Name       string     `json:"name" yaml:"name"`
	SourceKind SourceKind `json:"source_kind" yaml:"source_kind"`

	// Bitmap is the canonical raster set at ingestion. Never modified afterwards.
	Bitmap *image.NRGBA `json:"-" yaml:"-"`

	Rotation       int    `json:"rotation" yaml:"rotation"`
	RecognizedText string `json:"recognized_text" yaml:"recognized_text"`
	TranslatedText string `json:"translated_text,omitempty" yaml:"translated_text,omitempty"`
	Status         Status `json:"status" yaml:"status"`
	IsIncluded     bool   `json:"is_included" yaml:"is_included"`

	// Page-scoped failure details from the most recent run.
	Failure            string `json:"failure,omitempty" yaml:"failure,omitempty"`
	TranslationFailure string `json:"translation_failure,omitempty" yaml:"translation_failure,omitempty"`

	// OCR metadata.
	Confidence       float64 `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	DetectedLanguage string  `json:"detected_language,omitempty" yaml:"detected_language,omitempty"`
}

// Eligible reports whether a batch run should pick up the page: it is
// included and has no recognized text yet. Status is deliberately ignored,
// so a page whose text was edited to a non-empty value is never re-run.
func (p Page) Eligible() bool {
	return p.IsIncluded && p.RecognizedText == ""
}

// Width returns the pixel width of the source bitmap, or 0 when unset.
func (p Page) Width() int {
	if p.Bitmap == nil {
		return 0
	}
	return p.Bitmap.Bounds().Dx()
}

// Height returns the pixel height of the source bitmap, or 0 when unset.
func (p Page) Height() int {
	if p.Bitmap == nil {
		return 0
	}
	return p.Bitmap.Bounds().Dy()
}

// NormalizeRotation maps any multiple of 90 degrees onto {0, 90, 180, 270}.
func NormalizeRotation(deg int) (int, error) {
	if deg%90 != 0 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidRotation, deg)
	}
	return ((deg % 360) + 360) % 360, nil
}

// ValidRotation reports whether deg is already in canonical form.
func ValidRotation(deg int) bool {
	switch deg {
	case 0, 90, 180, 270:
		return true
	}
	return false
}
