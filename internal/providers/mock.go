package providers

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"
)

const MockClientName = "mock"

// MockOCREngine is an OCREngine for testing.
type MockOCREngine struct {
	// Configurable behavior
	Latency      time.Duration
	OpenError    error         // Returned (wrapped in EngineError) from Open
	FailOn       map[int]error // Fail the Nth Recognize call (1-based)
	Texts        []string      // Text for the Nth call; falls back to ResponseText
	ResponseText string
	Confidence   float64

	// Block, when set, holds every Recognize call until it receives or is
	// closed. Entered gets the call number before blocking.
	Block   chan struct{}
	Entered chan int

	mu        sync.Mutex
	calls     int
	opens     int
	closes    int
	languages []string
	bounds    []image.Rectangle
}

// NewMockOCREngine creates a new mock engine with sensible defaults.
func NewMockOCREngine() *MockOCREngine {
	return &MockOCREngine{
		ResponseText: "mock OCR text",
		Confidence:   0.9,
	}
}

// Name returns the engine identifier.
func (m *MockOCREngine) Name() string {
	return MockClientName
}

// Open returns a session or the configured OpenError.
func (m *MockOCREngine) Open(ctx context.Context, language string) (OCRSession, error) {
	language = NormalizeLanguage(language)
	m.mu.Lock()
	m.opens++
	m.languages = append(m.languages, language)
	m.mu.Unlock()

	if m.OpenError != nil {
		return nil, &EngineError{Engine: MockClientName, Language: language, Err: m.OpenError}
	}
	if err := ctx.Err(); err != nil {
		return nil, &EngineError{Engine: MockClientName, Language: language, Err: err}
	}
	return &mockOCRSession{engine: m}, nil
}

// Calls returns the number of Recognize calls made.
func (m *MockOCREngine) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Opens returns the number of sessions opened.
func (m *MockOCREngine) Opens() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens
}

// Closes returns the number of sessions closed.
func (m *MockOCREngine) Closes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}

// Languages returns the normalized language of every Open call.
func (m *MockOCREngine) Languages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.languages...)
}

// Bounds returns the bounds of every bitmap passed to Recognize.
func (m *MockOCREngine) Bounds() []image.Rectangle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]image.Rectangle(nil), m.bounds...)
}

type mockOCRSession struct {
	engine *MockOCREngine
	closed bool
}

func (s *mockOCRSession) Recognize(ctx context.Context, img image.Image) (*OCRResult, error) {
	start := time.Now()
	m := s.engine
	if s.closed {
		return nil, &RecognitionError{Err: errors.New("session closed")}
	}

	m.mu.Lock()
	m.calls++
	call := m.calls
	if img != nil {
		m.bounds = append(m.bounds, img.Bounds())
	}
	failErr := m.FailOn[call]
	text := m.ResponseText
	if call <= len(m.Texts) {
		text = m.Texts[call-1]
	}
	m.mu.Unlock()

	if m.Entered != nil {
		m.Entered <- call
	}
	if m.Block != nil {
		select {
		case <-m.Block:
		case <-ctx.Done():
			return nil, &RecognitionError{Err: ctx.Err()}
		}
	}
	if m.Latency > 0 {
		select {
		case <-time.After(m.Latency):
		case <-ctx.Done():
			return nil, &RecognitionError{Err: ctx.Err()}
		}
	}

	if failErr != nil {
		return nil, &RecognitionError{Err: failErr}
	}
	return &OCRResult{
		Text:          text,
		Confidence:    m.Confidence,
		Metadata:      map[string]any{"call": call},
		ExecutionTime: time.Since(start),
	}, nil
}

func (s *mockOCRSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.engine.mu.Lock()
	s.engine.closes++
	s.engine.mu.Unlock()
	return nil
}

// MockTranslator is a Translator for testing.
type MockTranslator struct {
	ShouldFail bool
	FailOn     map[int]error // Fail the Nth Translate call (1-based)

	mu    sync.Mutex
	calls []string
}

// NewMockTranslator creates a mock translator that prefixes the target.
func NewMockTranslator() *MockTranslator {
	return &MockTranslator{}
}

func (t *MockTranslator) Name() string { return MockClientName }

// Translate returns "<target>: <text>".
func (t *MockTranslator) Translate(ctx context.Context, text, target string) (string, error) {
	t.mu.Lock()
	t.calls = append(t.calls, text)
	n := len(t.calls)
	failErr := t.FailOn[n]
	t.mu.Unlock()

	if t.ShouldFail {
		return "", &TranslationError{Target: target, Err: errors.New("mock translator configured to fail")}
	}
	if failErr != nil {
		return "", &TranslationError{Target: target, Err: failErr}
	}
	if err := ctx.Err(); err != nil {
		return "", &TranslationError{Target: target, Err: err}
	}
	return fmt.Sprintf("%s: %s", target, text), nil
}

// Calls returns the texts passed to Translate, in order.
func (t *MockTranslator) Calls() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.calls...)
}

var (
	_ OCREngine  = (*MockOCREngine)(nil)
	_ Translator = (*MockTranslator)(nil)
)
