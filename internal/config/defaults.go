package config

import (
	"fmt"
	"strings"
)

// Entry is a single configuration key with its value and description.
type Entry struct {
	Key         string `json:"key" yaml:"key"`
	Value       any    `json:"value" yaml:"value"`
	Description string `json:"description" yaml:"description"`
	Secret      bool   `json:"-" yaml:"-"`
}

// DefaultEntries returns every known configuration key with its default.
// Viper defaults are seeded from this list, which also makes every key
// reachable through SNAPTRANSLATE_* environment variables.
func DefaultEntries() []Entry {
	d := DefaultConfig()
	return []Entry{
		// OCR
		{Key: "ocr.engine", Value: d.OCR.Engine, Description: "OCR engine: tesseract, mistral or mock"},
		{Key: "ocr.language", Value: d.OCR.Language, Description: "OCR language code; auto means eng"},
		{Key: "ocr.enhanced", Value: d.OCR.Enhanced, Description: "Binarize pages before recognition"},
		{Key: "ocr.mistral.api_key", Value: d.OCR.Mistral.APIKey, Description: "Mistral API key (uses environment variable)", Secret: true},
		{Key: "ocr.mistral.base_url", Value: d.OCR.Mistral.BaseURL, Description: "Mistral API base URL"},
		{Key: "ocr.mistral.model", Value: d.OCR.Mistral.Model, Description: "Mistral OCR model"},
		{Key: "ocr.mistral.timeout_seconds", Value: d.OCR.Mistral.TimeoutSeconds, Description: "HTTP timeout in seconds for Mistral OCR requests"},
		{Key: "ocr.mistral.rate_limit", Value: d.OCR.Mistral.RateLimit, Description: "Rate limit in requests per second for Mistral"},

		// Translation
		{Key: "translation.provider", Value: d.Translation.Provider, Description: "Translator: none, placeholder or openai"},
		{Key: "translation.target", Value: d.Translation.Target, Description: "Target language code; none disables translation"},
		{Key: "translation.skip_same_language", Value: d.Translation.SkipSameLanguage, Description: "Skip pages already written in the target language"},
		{Key: "translation.openai.api_key", Value: d.Translation.OpenAI.APIKey, Description: "OpenAI API key (uses environment variable)", Secret: true},
		{Key: "translation.openai.base_url", Value: d.Translation.OpenAI.BaseURL, Description: "OpenAI-compatible base URL; empty uses the OpenAI API"},
		{Key: "translation.openai.model", Value: d.Translation.OpenAI.Model, Description: "Chat model used for translation"},
		{Key: "translation.openai.timeout_seconds", Value: d.Translation.OpenAI.TimeoutSeconds, Description: "HTTP timeout in seconds for translation requests"},
		{Key: "translation.openai.max_retries", Value: d.Translation.OpenAI.MaxRetries, Description: "Maximum attempts for rate limited or failed requests"},
		{Key: "translation.openai.rate_limit", Value: d.Translation.OpenAI.RateLimit, Description: "Rate limit in requests per second for translation"},

		// Ingest
		{Key: "ingest.max_file_size_mb", Value: d.Ingest.MaxFileSizeMB, Description: "Largest accepted input file in MB"},
		{Key: "ingest.dpi", Value: d.Ingest.DPI, Description: "PDF rasterization resolution"},
		{Key: "ingest.pdftoppm", Value: d.Ingest.Pdftoppm, Description: "Path to the pdftoppm binary"},
		{Key: "ingest.max_workers", Value: d.Ingest.MaxWorkers, Description: "Concurrent PDF page renders; 0 means one per CPU"},

		// Export
		{Key: "export.dir", Value: d.Export.Dir, Description: "Export directory; empty means {home}/exports"},
		{Key: "export.text_file", Value: d.Export.TextFile, Description: "Text export file name"},
		{Key: "export.pdf_file", Value: d.Export.PDFFile, Description: "PDF export file name"},
	}
}

// Masked returns a copy of e whose value is hidden when it is a secret that
// is set. Unresolved ${ENV_VAR} references are shown as-is.
func (e Entry) Masked() Entry {
	if !e.Secret {
		return e
	}
	s := fmt.Sprint(e.Value)
	if s == "" || envRefPattern.MatchString(s) {
		return e
	}
	if len(s) <= 4 {
		e.Value = strings.Repeat("*", len(s))
		return e
	}
	e.Value = strings.Repeat("*", len(s)-4) + s[len(s)-4:]
	return e
}
