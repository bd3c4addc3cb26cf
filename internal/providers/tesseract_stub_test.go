//go:build !ocr

package providers

import (
	"context"
	"errors"
	"testing"
)

func TestTesseractEngine_NotEnabled(t *testing.T) {
	_, err := NewTesseractEngine().Open(context.Background(), "auto")

	var engErr *EngineError
	if !errors.As(err, &engErr) {
		t.Fatalf("expected EngineError, got %v", err)
	}
	if !errors.Is(err, ErrOCRNotEnabled) || engErr.Language != "eng" {
		t.Errorf("unexpected error: %+v", engErr)
	}
}
