// Package pipeline runs batch OCR and translation over a page registry.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/snaptranslate/internal/imaging"
	"github.com/jackzampolin/snaptranslate/internal/page"
	"github.com/jackzampolin/snaptranslate/internal/providers"
)

var (
	// ErrAlreadyRunning is returned when a run is requested while one is active.
	ErrAlreadyRunning = errors.New("a batch run is already active")

	// ErrNothingToDo is returned when no page is eligible. Nothing is touched.
	ErrNothingToDo = errors.New("no pages need processing")

	errUnsettled = errors.New("run ended before the page settled")
)

// Providers supplies the OCR engine and translator for a run. They are
// fetched once at run start.
type Providers interface {
	Engine() providers.OCREngine
	Translator() providers.Translator
}

type fixedProviders struct {
	engine     providers.OCREngine
	translator providers.Translator
}

func (f fixedProviders) Engine() providers.OCREngine      { return f.engine }
func (f fixedProviders) Translator() providers.Translator { return f.translator }

// Fixed returns Providers that always hand out the same pair. translator may
// be nil.
func Fixed(engine providers.OCREngine, translator providers.Translator) Providers {
	return fixedProviders{engine: engine, translator: translator}
}

// Config configures an Orchestrator.
type Config struct {
	Registry  *page.Registry
	Providers Providers
	Detector  providers.LanguageDetector // Optional
	Observer  Observer                   // Optional
	Logger    *slog.Logger               // Optional
}

// Options are fixed for the duration of one run.
type Options struct {
	Language         string `json:"language" yaml:"language"`
	Enhanced         bool   `json:"enhanced" yaml:"enhanced"`
	TargetLanguage   string `json:"target_language" yaml:"target_language"`
	SkipSameLanguage bool   `json:"skip_same_language" yaml:"skip_same_language"`
}

// Orchestrator processes eligible pages one at a time. The single OCR
// session opened per run is never shared between goroutines.
type Orchestrator struct {
	registry  *page.Registry
	providers Providers
	detector  providers.LanguageDetector
	observer  Observer
	logger    *slog.Logger

	running atomic.Bool

	mu       sync.Mutex
	progress float64
}

// New creates an Orchestrator.
func New(cfg Config) *Orchestrator {
	if cfg.Observer == nil {
		cfg.Observer = NopObserver{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Orchestrator{
		registry:  cfg.Registry,
		providers: cfg.Providers,
		detector:  cfg.Detector,
		observer:  cfg.Observer,
		logger:    cfg.Logger,
	}
}

// Running reports whether a run is active.
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}

// Progress returns the aggregate progress of the current or last run in [0, 1].
func (o *Orchestrator) Progress() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.progress
}

// Run processes every page that is included and has no recognized text,
// in registry order. Per-page failures are recorded on the page and in the
// summary; they never stop the run.
//
// Errors: ErrAlreadyRunning, ErrNothingToDo, *providers.EngineError (no page
// touched), or the context error when cancelled between pages, in which case
// the partial summary is returned as well.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Summary, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer o.running.Store(false)

	eligible := o.registry.Eligible()
	if len(eligible) == 0 {
		return nil, ErrNothingToDo
	}

	language := providers.NormalizeLanguage(opts.Language)
	engine := o.providers.Engine()
	if engine == nil {
		return nil, &providers.EngineError{Engine: "none", Language: language, Err: errors.New("no OCR engine configured")}
	}
	session, err := engine.Open(ctx, language)
	if err != nil {
		var engErr *providers.EngineError
		if !errors.As(err, &engErr) {
			err = &providers.EngineError{Engine: engine.Name(), Language: language, Err: err}
		}
		o.logger.Error("OCR engine failed to start", "engine", engine.Name(), "language", language, "error", err)
		return nil, err
	}
	defer func() {
		if err := session.Close(); err != nil {
			o.logger.Warn("failed to close OCR session", "engine", engine.Name(), "error", err)
		}
	}()

	translator := o.providers.Translator()
	if providers.TranslationDisabled(opts.TargetLanguage) {
		translator = nil
	}

	summary := &Summary{
		RunID:     uuid.New().String(),
		Engine:    engine.Name(),
		Language:  language,
		StartedAt: time.Now(),
		Eligible:  len(eligible),
	}
	log := o.logger.With("run_id", summary.RunID)
	log.Info("batch run started", "eligible", len(eligible), "engine", engine.Name(), "language", language)

	defer o.settle(eligible)

	o.resetProgress()
	for _, p := range eligible {
		if ctx.Err() != nil {
			summary.Cancelled = true
			break
		}
		// A page that has started always finishes, even if ctx is cancelled.
		o.processPage(context.WithoutCancel(ctx), session, translator, p.ID, opts, summary)
		summary.Processed++
		o.advanceProgress(float64(summary.Processed) / float64(summary.Eligible))
	}
	o.advanceProgress(1)

	summary.Duration = time.Since(summary.StartedAt)
	if summary.Cancelled {
		o.observer.StatusMessage("Run cancelled.")
		log.Warn("batch run cancelled", "processed", summary.Processed, "eligible", summary.Eligible)
		return summary, ctx.Err()
	}

	o.observer.StatusMessage("All pages processed.")
	log.Info("batch run finished",
		"done", summary.Done,
		"error", summary.Error,
		"skipped", summary.Skipped,
		"translation_failed", summary.TranslationFailed,
		"duration", summary.Duration)
	return summary, nil
}

func (o *Orchestrator) processPage(ctx context.Context, session providers.OCRSession, translator providers.Translator, id int, opts Options, summary *Summary) {
	// Re-read: rotation may have changed and the page may be gone.
	current, ok := o.registry.Get(id)
	if !ok || current.RecognizedText != "" {
		summary.Skipped++
		return
	}

	p, err := o.registry.MarkProcessing(id)
	if err != nil {
		summary.Skipped++
		return
	}
	o.observer.PageStatusChanged(p)
	o.observer.StatusMessage(fmt.Sprintf("Processing Page %d...", id))

	text, confidence, err := o.recognize(ctx, session, p, opts.Enhanced)
	if err != nil {
		o.fail(summary, p, StageOCR, err)
		if p, err := o.registry.MarkError(id, err); err == nil {
			o.observer.PageStatusChanged(p)
		}
		return
	}

	p, err = o.registry.MarkDone(id, text, confidence)
	if err != nil {
		// Removed while recognizing.
		summary.Skipped++
		return
	}
	summary.Done++
	o.observer.PageStatusChanged(p)

	if text == "" {
		return
	}

	detected := o.detect(id, text)

	if translator == nil {
		return
	}
	if opts.SkipSameLanguage && detected != "" && providers.SameLanguage(detected, opts.TargetLanguage) {
		summary.TranslationSkipped++
		return
	}

	o.observer.StatusMessage(fmt.Sprintf("Translating Page %d...", id))
	translated, err := translator.Translate(ctx, text, opts.TargetLanguage)
	if err != nil {
		var trErr *providers.TranslationError
		if !errors.As(err, &trErr) {
			err = &providers.TranslationError{Target: opts.TargetLanguage, Err: err}
		}
		summary.TranslationFailed++
		o.fail(summary, p, StageTranslate, err)
		o.registry.MarkTranslationFailed(id, err)
		return
	}
	if _, err := o.registry.SetTranslation(id, translated); err == nil {
		summary.Translated++
	}
}

func (o *Orchestrator) recognize(ctx context.Context, session providers.OCRSession, p page.Page, enhanced bool) (string, float64, error) {
	prepared, err := imaging.Prepare(p.Bitmap, p.Rotation, enhanced)
	if err != nil {
		return "", 0, &providers.RecognitionError{Err: fmt.Errorf("prepare bitmap: %w", err)}
	}
	res, err := session.Recognize(ctx, prepared)
	if err != nil {
		var recErr *providers.RecognitionError
		if !errors.As(err, &recErr) {
			err = &providers.RecognitionError{Err: err}
		}
		return "", 0, err
	}
	return res.Text, res.Confidence, nil
}

func (o *Orchestrator) detect(id int, text string) string {
	if o.detector == nil {
		return ""
	}
	lang, ok := o.detector.Detect(text)
	if !ok {
		return ""
	}
	o.registry.SetDetectedLanguage(id, lang)
	return lang
}

func (o *Orchestrator) fail(summary *Summary, p page.Page, stage string, err error) {
	if stage == StageOCR {
		summary.Error++
	}
	f := PageFailure{PageID: p.ID, Name: p.Name, Stage: stage, Error: err.Error()}
	summary.Failures = append(summary.Failures, f)
	o.observer.PageFailed(f)
}

// settle guarantees no page from this run is left in Processing.
func (o *Orchestrator) settle(eligible []page.Page) {
	for _, p := range eligible {
		current, ok := o.registry.Get(p.ID)
		if !ok || current.Status != page.StatusProcessing {
			continue
		}
		if settled, err := o.registry.MarkError(p.ID, errUnsettled); err == nil {
			o.observer.PageStatusChanged(settled)
		}
	}
}

func (o *Orchestrator) resetProgress() {
	o.mu.Lock()
	o.progress = 0
	o.mu.Unlock()
	o.observer.ProgressChanged(0)
}

// advanceProgress never moves progress backwards within a run.
func (o *Orchestrator) advanceProgress(v float64) {
	if v > 1 {
		v = 1
	}
	o.mu.Lock()
	if v < o.progress {
		v = o.progress
	}
	o.progress = v
	o.mu.Unlock()
	o.observer.ProgressChanged(v)
}
