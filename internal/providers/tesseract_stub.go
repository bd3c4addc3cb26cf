//go:build !ocr

package providers

import (
	"context"
	"errors"
)

// TesseractName identifies the local Tesseract engine.
const TesseractName = "tesseract"

// ErrOCRNotEnabled is returned when the binary was built without the "ocr" tag.
var ErrOCRNotEnabled = errors.New("tesseract support not enabled: rebuild with -tags ocr")

// TesseractEngine is unavailable without the "ocr" build tag.
type TesseractEngine struct{}

// NewTesseractEngine returns an engine whose Open always fails.
func NewTesseractEngine() *TesseractEngine {
	return &TesseractEngine{}
}

func (e *TesseractEngine) Name() string { return TesseractName }

func (e *TesseractEngine) Open(_ context.Context, language string) (OCRSession, error) {
	return nil, &EngineError{Engine: TesseractName, Language: NormalizeLanguage(language), Err: ErrOCRNotEnabled}
}

var _ OCREngine = (*TesseractEngine)(nil)
