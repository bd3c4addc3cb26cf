package pipeline

import "time"

// Failure stages.
const (
	StageOCR       = "ocr"
	StageTranslate = "translate"
)

// PageFailure is one page-scoped error from a run.
type PageFailure struct {
	PageID int    `json:"page_id" yaml:"page_id"`
	Name   string `json:"name" yaml:"name"`
	Stage  string `json:"stage" yaml:"stage"`
	Error  string `json:"error" yaml:"error"`
}

// Summary is the outcome of one batch run.
type Summary struct {
	RunID     string        `json:"run_id" yaml:"run_id"`
	Engine    string        `json:"engine" yaml:"engine"`
	Language  string        `json:"language" yaml:"language"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"duration" yaml:"duration"`

	Eligible  int `json:"eligible" yaml:"eligible"`
	Processed int `json:"processed" yaml:"processed"`
	Done      int `json:"done" yaml:"done"`
	Error     int `json:"error" yaml:"error"`

	// Skipped counts eligible pages that were removed, or given text by the
	// user, before their turn came.
	Skipped int `json:"skipped,omitempty" yaml:"skipped,omitempty"`

	Translated         int `json:"translated,omitempty" yaml:"translated,omitempty"`
	TranslationFailed  int `json:"translation_failed,omitempty" yaml:"translation_failed,omitempty"`
	TranslationSkipped int `json:"translation_skipped,omitempty" yaml:"translation_skipped,omitempty"`

	Cancelled bool          `json:"cancelled,omitempty" yaml:"cancelled,omitempty"`
	Failures  []PageFailure `json:"failures,omitempty" yaml:"failures,omitempty"`
}
