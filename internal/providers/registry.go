package providers

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// RegistryConfig selects and configures the OCR engine and translator.
// It mirrors the ocr and translation sections of the config file with
// API keys already resolved.
type RegistryConfig struct {
	OCR         OCRConfig
	Translation TranslationConfig
}

// OCRConfig configures the OCR engine.
type OCRConfig struct {
	Engine  string // "tesseract", "mistral", "mock"
	Mistral MistralOCRConfig
}

// TranslationConfig configures the translator.
type TranslationConfig struct {
	Provider string // "none", "placeholder", "openai"
	OpenAI   OpenAITranslatorConfig
}

// Registry holds the active OCR engine and translator. It is rebuilt from
// config on hot reload; callers fetch the current pair at the start of each
// run so a reload never changes providers mid-run.
type Registry struct {
	mu         sync.RWMutex
	cfg        RegistryConfig
	engine     OCREngine
	translator Translator
	loaded     bool
	logger     *slog.Logger
}

// NewRegistryFromConfig creates a registry with providers built from cfg.
func NewRegistryFromConfig(cfg RegistryConfig, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{logger: logger}
	if err := r.Reload(cfg); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload swaps in providers for cfg. Providers whose config is unchanged
// are kept. On error the previous providers stay active.
func (r *Registry) Reload(cfg RegistryConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	engine := r.engine
	if !r.loaded || cfg.OCR != r.cfg.OCR {
		e, err := NewOCREngine(cfg.OCR)
		if err != nil {
			return err
		}
		if r.loaded {
			r.logger.Info("updated OCR engine", "engine", e.Name())
		} else {
			r.logger.Debug("registered OCR engine", "engine", e.Name())
		}
		engine = e
	}

	translator := r.translator
	if !r.loaded || cfg.Translation != r.cfg.Translation {
		t, err := NewTranslator(cfg.Translation)
		if err != nil {
			return err
		}
		if t != nil {
			r.logger.Debug("registered translator", "provider", t.Name())
		}
		translator = t
	}

	r.cfg = cfg
	r.engine = engine
	r.translator = translator
	r.loaded = true
	return nil
}

// Engine returns the active OCR engine.
func (r *Registry) Engine() OCREngine {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.engine
}

// Translator returns the active translator, or nil when translation is off.
func (r *Registry) Translator() Translator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.translator
}

// NewOCREngine builds the engine named by cfg.Engine.
func NewOCREngine(cfg OCRConfig) (OCREngine, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Engine)) {
	case "", TesseractName:
		return NewTesseractEngine(), nil
	case MistralOCRName, "mistral-ocr":
		return NewMistralOCREngine(cfg.Mistral), nil
	case MockClientName:
		return NewMockOCREngine(), nil
	default:
		return nil, fmt.Errorf("unknown OCR engine: %s", cfg.Engine)
	}
}

// NewTranslator builds the translator named by cfg.Provider. It returns a
// nil Translator for "none".
func NewTranslator(cfg TranslationConfig) (Translator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "none":
		return nil, nil
	case PlaceholderTranslatorName:
		return PlaceholderTranslator{}, nil
	case OpenAITranslatorName:
		if cfg.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("openai translator requires an API key")
		}
		return NewOpenAITranslator(cfg.OpenAI), nil
	case MockClientName:
		return NewMockTranslator(), nil
	default:
		return nil, fmt.Errorf("unknown translation provider: %s", cfg.Provider)
	}
}
