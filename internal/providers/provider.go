package providers

import (
	"context"
	"image"
	"strings"
	"time"
)

// DefaultLanguage is the OCR language used when none (or "auto") is configured.
const DefaultLanguage = "eng"

// OCREngine hands out recognition sessions configured for one language.
// A session is the single stateful recognition context used for a whole
// batch run; it is not safe for concurrent use.
type OCREngine interface {
	// Name returns the engine identifier (e.g., "tesseract", "mistral").
	Name() string

	// Open initializes a session for the language. Failure here is fatal to
	// the run and is reported as *EngineError.
	Open(ctx context.Context, language string) (OCRSession, error)
}

// OCRSession recognizes text on one page at a time.
type OCRSession interface {
	// Recognize extracts text from a prepared bitmap.
	Recognize(ctx context.Context, img image.Image) (*OCRResult, error)

	// Close releases the engine resources held by the session.
	Close() error
}

// OCRResult is the response from an OCR session.
type OCRResult struct {
	Text string `json:"text"`

	// Confidence is the mean word confidence in [0, 1]; zero when the engine
	// does not report one.
	Confidence float64 `json:"confidence,omitempty"`

	// Metadata from the engine (dimensions, model, usage, etc.)
	Metadata map[string]any `json:"metadata,omitempty"`

	ExecutionTime time.Duration `json:"execution_time"`
}

// Translator turns recognized text into a target language.
type Translator interface {
	// Name returns the provider identifier (e.g., "openai", "placeholder").
	Name() string

	// Translate returns text translated into target.
	Translate(ctx context.Context, text, target string) (string, error)
}

// NormalizeLanguage maps "" and "auto" to DefaultLanguage.
func NormalizeLanguage(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" || strings.EqualFold(lang, "auto") {
		return DefaultLanguage
	}
	return lang
}

// TranslationDisabled reports whether target means "do not translate".
func TranslationDisabled(target string) bool {
	target = strings.TrimSpace(target)
	return target == "" || strings.EqualFold(target, "none")
}
