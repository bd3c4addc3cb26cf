//go:build ocr

package providers

import (
	"context"
	"errors"
	"testing"
)

func TestTesseractEngine_UnknownLanguage(t *testing.T) {
	_, err := NewTesseractEngine().Open(context.Background(), "zzz_not_a_language")

	var engErr *EngineError
	if !errors.As(err, &engErr) {
		t.Fatalf("expected EngineError, got %v", err)
	}
}

func TestTesseractEngine_BlankPage(t *testing.T) {
	s, err := NewTesseractEngine().Open(context.Background(), "eng")
	if err != nil {
		t.Skipf("tesseract eng data not available: %v", err)
	}
	defer s.Close()

	r, err := s.Recognize(context.Background(), testBitmap())
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if r.Text != "" {
		t.Errorf("expected no text on a blank page, got %q", r.Text)
	}
}
