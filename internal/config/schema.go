package config

import (
	"time"

	"github.com/jackzampolin/snaptranslate/internal/pipeline"
	"github.com/jackzampolin/snaptranslate/internal/providers"
)

// Config holds snaptranslate configuration.
// Stored at: {home}/config.yaml
type Config struct {
	OCR         OCRCfg         `mapstructure:"ocr" yaml:"ocr"`
	Translation TranslationCfg `mapstructure:"translation" yaml:"translation"`
	Ingest      IngestCfg      `mapstructure:"ingest" yaml:"ingest"`
	Export      ExportCfg      `mapstructure:"export" yaml:"export"`
}

// OCRCfg selects the OCR engine and its run defaults.
type OCRCfg struct {
	Engine   string     `mapstructure:"engine" yaml:"engine"`     // "tesseract", "mistral", "mock"
	Language string     `mapstructure:"language" yaml:"language"` // Tesseract code; "auto" means eng
	Enhanced bool       `mapstructure:"enhanced" yaml:"enhanced"`
	Mistral  MistralCfg `mapstructure:"mistral" yaml:"mistral"`
}

// MistralCfg configures the hosted Mistral OCR engine.
type MistralCfg struct {
	APIKey         string  `mapstructure:"api_key" yaml:"api_key"` // Supports ${ENV_VAR} syntax
	BaseURL        string  `mapstructure:"base_url" yaml:"base_url"`
	Model          string  `mapstructure:"model" yaml:"model"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	RateLimit      float64 `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per second
}

// TranslationCfg selects the translator.
type TranslationCfg struct {
	Provider         string    `mapstructure:"provider" yaml:"provider"` // "none", "placeholder", "openai"
	Target           string    `mapstructure:"target" yaml:"target"`     // Language code or "none"
	SkipSameLanguage bool      `mapstructure:"skip_same_language" yaml:"skip_same_language"`
	OpenAI           OpenAICfg `mapstructure:"openai" yaml:"openai"`
}

// OpenAICfg configures any OpenAI-compatible chat completions endpoint.
type OpenAICfg struct {
	APIKey         string  `mapstructure:"api_key" yaml:"api_key"` // Supports ${ENV_VAR} syntax
	BaseURL        string  `mapstructure:"base_url" yaml:"base_url"`
	Model          string  `mapstructure:"model" yaml:"model"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	MaxRetries     int     `mapstructure:"max_retries" yaml:"max_retries"`
	RateLimit      float64 `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per second
}

// IngestCfg bounds and tunes file ingestion.
type IngestCfg struct {
	MaxFileSizeMB int    `mapstructure:"max_file_size_mb" yaml:"max_file_size_mb"`
	DPI           int    `mapstructure:"dpi" yaml:"dpi"`
	Pdftoppm      string `mapstructure:"pdftoppm" yaml:"pdftoppm"`
	MaxWorkers    int    `mapstructure:"max_workers" yaml:"max_workers"` // 0 means NumCPU
}

// ExportCfg names the export destinations.
type ExportCfg struct {
	Dir      string `mapstructure:"dir" yaml:"dir"` // Empty means {home}/exports
	TextFile string `mapstructure:"text_file" yaml:"text_file"`
	PDFFile  string `mapstructure:"pdf_file" yaml:"pdf_file"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		OCR: OCRCfg{
			Engine:   "tesseract",
			Language: providers.DefaultLanguage,
			Mistral: MistralCfg{
				APIKey:         "${MISTRAL_API_KEY}",
				BaseURL:        providers.MistralOCRBaseURL,
				Model:          providers.MistralOCRModel,
				TimeoutSeconds: 120,
				RateLimit:      6.0,
			},
		},
		Translation: TranslationCfg{
			Provider: "none",
			Target:   "none",
			OpenAI: OpenAICfg{
				APIKey:         "${OPENAI_API_KEY}",
				Model:          providers.OpenAIDefaultModel,
				TimeoutSeconds: 60,
				MaxRetries:     3,
				RateLimit:      2.0,
			},
		},
		Ingest: IngestCfg{
			MaxFileSizeMB: 20,
			DPI:           108,
			Pdftoppm:      "pdftoppm",
		},
		Export: ExportCfg{
			TextFile: "ocr-translation-result.txt",
			PDFFile:  "scanned-doc.pdf",
		},
	}
}

// ToProviderRegistryConfig converts the config to a format suitable for providers.Registry.
// It resolves all ${ENV_VAR} references in API keys.
func (c *Config) ToProviderRegistryConfig() providers.RegistryConfig {
	return providers.RegistryConfig{
		OCR: providers.OCRConfig{
			Engine: c.OCR.Engine,
			Mistral: providers.MistralOCRConfig{
				APIKey:    ResolveEnvVars(c.OCR.Mistral.APIKey),
				BaseURL:   c.OCR.Mistral.BaseURL,
				Model:     c.OCR.Mistral.Model,
				Timeout:   seconds(c.OCR.Mistral.TimeoutSeconds),
				RateLimit: c.OCR.Mistral.RateLimit,
			},
		},
		Translation: providers.TranslationConfig{
			Provider: c.Translation.Provider,
			OpenAI: providers.OpenAITranslatorConfig{
				APIKey:     ResolveEnvVars(c.Translation.OpenAI.APIKey),
				BaseURL:    c.Translation.OpenAI.BaseURL,
				Model:      c.Translation.OpenAI.Model,
				Timeout:    seconds(c.Translation.OpenAI.TimeoutSeconds),
				MaxRetries: c.Translation.OpenAI.MaxRetries,
				RateLimit:  c.Translation.OpenAI.RateLimit,
			},
		},
	}
}

// RunOptions returns the per-run options a batch uses by default.
func (c *Config) RunOptions() pipeline.Options {
	return pipeline.Options{
		Language:         c.OCR.Language,
		Enhanced:         c.OCR.Enhanced,
		TargetLanguage:   c.Translation.Target,
		SkipSameLanguage: c.Translation.SkipSameLanguage,
	}
}

// MaxFileSize returns the ingest size limit in bytes.
func (c *Config) MaxFileSize() int64 {
	return int64(c.Ingest.MaxFileSizeMB) << 20
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
