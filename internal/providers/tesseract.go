//go:build ocr

package providers

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"

	"github.com/jackzampolin/snaptranslate/internal/imaging"
)

// TesseractName identifies the local Tesseract engine.
const TesseractName = "tesseract"

// TesseractEngine implements OCREngine with a local Tesseract install.
type TesseractEngine struct {
	clientFactory func() *gosseract.Client
}

// NewTesseractEngine constructs a Tesseract-backed OCR engine.
func NewTesseractEngine() *TesseractEngine {
	return &TesseractEngine{clientFactory: gosseract.NewClient}
}

func (e *TesseractEngine) Name() string { return TesseractName }

// Open creates one client for the whole run. Tesseract initializes lazily,
// so a one-pixel probe forces missing language data to fail here rather
// than on the first page.
func (e *TesseractEngine) Open(ctx context.Context, language string) (OCRSession, error) {
	language = NormalizeLanguage(language)
	fail := func(err error) (OCRSession, error) {
		return nil, &EngineError{Engine: TesseractName, Language: language, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	c := e.clientFactory()
	if err := c.SetLanguage(strings.Split(language, "+")...); err != nil {
		c.Close()
		return fail(fmt.Errorf("set language: %w", err))
	}
	if err := c.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		c.Close()
		return fail(fmt.Errorf("set page segmentation mode: %w", err))
	}

	probe := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	probe.SetNRGBA(0, 0, color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})
	data, err := imaging.EncodePNG(probe)
	if err != nil {
		c.Close()
		return fail(err)
	}
	if err := c.SetImageFromBytes(data); err != nil {
		c.Close()
		return fail(fmt.Errorf("set probe image: %w", err))
	}
	if _, err := c.Text(); err != nil {
		c.Close()
		return fail(err)
	}

	return &tesseractSession{client: c, language: language}, nil
}

type tesseractSession struct {
	client   *gosseract.Client
	language string
}

func (s *tesseractSession) Recognize(ctx context.Context, img image.Image) (*OCRResult, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, &RecognitionError{Err: err}
	}

	data, err := imaging.EncodePNG(img)
	if err != nil {
		return nil, &RecognitionError{Err: err}
	}
	if err := s.client.SetImageFromBytes(data); err != nil {
		return nil, &RecognitionError{Err: fmt.Errorf("set image: %w", err)}
	}
	text, err := s.client.Text()
	if err != nil {
		return nil, &RecognitionError{Err: fmt.Errorf("recognize text: %w", err)}
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")

	words, confidence := s.wordConfidence()
	return &OCRResult{
		Text:       strings.TrimSpace(text),
		Confidence: confidence,
		Metadata: map[string]any{
			"engine":     TesseractName,
			"language":   s.language,
			"word_count": words,
		},
		ExecutionTime: time.Since(start),
	}, nil
}

// wordConfidence averages per-word confidence, scaled to [0, 1].
func (s *tesseractSession) wordConfidence() (int, float64) {
	boxes, err := s.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0, 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence / 100.0
	}
	return len(boxes), sum / float64(len(boxes))
}

func (s *tesseractSession) Close() error {
	return s.client.Close()
}

var _ OCREngine = (*TesseractEngine)(nil)
