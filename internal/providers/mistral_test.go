package providers

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func testBitmap() *image.NRGBA {
	return image.NewNRGBA(image.Rect(0, 0, 4, 3))
}

func newTestMistral(url string) *MistralOCREngine {
	return NewMistralOCREngine(MistralOCRConfig{
		APIKey:     "test-key",
		BaseURL:    url,
		RateLimit:  1000,
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
	})
}

func TestMistralOCREngine_Recognize(t *testing.T) {
	t.Run("successful OCR", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/ocr" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			if r.Method != http.MethodPost {
				t.Errorf("unexpected method: %s", r.Method)
			}
			if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
				t.Errorf("unexpected authorization: %s", auth)
			}

			var req mistralOCRRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode request: %v", err)
			}
			if req.Document.ImageURL == nil || !strings.HasPrefix(req.Document.ImageURL.URL, "data:image/png;base64,") {
				t.Errorf("expected png data url, got %+v", req.Document)
			}

			resp := mistralOCRResponse{
				Model: "mistral-ocr-latest",
				Pages: []mistralOCRPage{{
					Markdown:   "Hello world",
					Dimensions: mistralPageDimensions{Width: 4, Height: 3, DPI: 72},
				}},
				UsageInfo: &mistralUsageInfo{PagesProcessed: 1},
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(resp)
		}))
		defer server.Close()

		session, err := newTestMistral(server.URL).Open(context.Background(), "auto")
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer session.Close()

		result, err := session.Recognize(context.Background(), testBitmap())
		if err != nil {
			t.Fatalf("Recognize() error = %v", err)
		}
		if result.Text != "Hello world" {
			t.Errorf("Text = %q", result.Text)
		}
		if result.Metadata["language"] != "eng" {
			t.Errorf("language = %v, want eng", result.Metadata["language"])
		}
		if result.Metadata["model_used"] != "mistral-ocr-latest" {
			t.Errorf("model_used = %v", result.Metadata["model_used"])
		}
	})

	t.Run("retries after rate limit", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			json.NewEncoder(w).Encode(mistralOCRResponse{Pages: []mistralOCRPage{{Markdown: "ok"}}})
		}))
		defer server.Close()

		session, _ := newTestMistral(server.URL).Open(context.Background(), "eng")
		result, err := session.Recognize(context.Background(), testBitmap())
		if err != nil {
			t.Fatalf("Recognize() error = %v", err)
		}
		if result.Text != "ok" {
			t.Errorf("Text = %q", result.Text)
		}
		if calls.Load() != 2 {
			t.Errorf("calls = %d, want 2", calls.Load())
		}
	})

	t.Run("client error is not retried", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]string{"message": "Invalid image format"},
			})
		}))
		defer server.Close()

		session, _ := newTestMistral(server.URL).Open(context.Background(), "eng")
		_, err := session.Recognize(context.Background(), testBitmap())

		var recErr *RecognitionError
		if !errors.As(err, &recErr) {
			t.Fatalf("expected RecognitionError, got %v", err)
		}
		var statusErr *StatusError
		if !errors.As(err, &statusErr) || statusErr.Message != "Invalid image format" {
			t.Errorf("expected StatusError with message, got %v", err)
		}
		if calls.Load() != 1 {
			t.Errorf("calls = %d, want 1", calls.Load())
		}
	})

	t.Run("empty pages response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(mistralOCRResponse{Model: "mistral-ocr-latest"})
		}))
		defer server.Close()

		session, _ := newTestMistral(server.URL).Open(context.Background(), "eng")
		if _, err := session.Recognize(context.Background(), testBitmap()); err == nil {
			t.Error("expected error for empty pages")
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(100 * time.Millisecond)
		}))
		defer server.Close()

		session, _ := newTestMistral(server.URL).Open(context.Background(), "eng")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := session.Recognize(ctx, testBitmap()); err == nil {
			t.Error("expected error from cancelled context")
		}
	})
}

func TestMistralOCREngine_OpenWithoutKey(t *testing.T) {
	_, err := NewMistralOCREngine(MistralOCRConfig{}).Open(context.Background(), "deu")

	var engErr *EngineError
	if !errors.As(err, &engErr) {
		t.Fatalf("expected EngineError, got %v", err)
	}
	if engErr.Language != "deu" || engErr.Engine != MistralOCRName {
		t.Errorf("unexpected error fields: %+v", engErr)
	}
}
