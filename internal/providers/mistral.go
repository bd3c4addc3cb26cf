package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/jackzampolin/snaptranslate/internal/imaging"
)

const (
	MistralOCRName    = "mistral"
	MistralOCRBaseURL = "https://api.mistral.ai/v1"
	MistralOCRModel   = "mistral-ocr-latest"
)

// MistralOCRConfig holds configuration for the Mistral OCR engine.
type MistralOCRConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	RateLimit  float64 // Requests per second (default: 6.0)
	MaxRetries int
	RetryDelay time.Duration
}

// MistralOCREngine implements OCREngine using the hosted Mistral OCR API.
// The language hint is recorded in result metadata only; the model detects
// script on its own.
type MistralOCREngine struct {
	cfg     MistralOCRConfig
	client  *http.Client
	limiter *RateLimiter
}

// NewMistralOCREngine creates a new Mistral OCR engine.
func NewMistralOCREngine(cfg MistralOCRConfig) *MistralOCREngine {
	if cfg.BaseURL == "" {
		cfg.BaseURL = MistralOCRBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = MistralOCRModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 6.0
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &MistralOCREngine{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: NewRateLimiter(cfg.RateLimit),
	}
}

// Name returns the engine identifier.
func (e *MistralOCREngine) Name() string {
	return MistralOCRName
}

// Open validates credentials and returns a session. No request is made.
func (e *MistralOCREngine) Open(ctx context.Context, language string) (OCRSession, error) {
	language = NormalizeLanguage(language)
	if e.cfg.APIKey == "" {
		return nil, &EngineError{Engine: MistralOCRName, Language: language, Err: fmt.Errorf("api key not configured")}
	}
	if err := ctx.Err(); err != nil {
		return nil, &EngineError{Engine: MistralOCRName, Language: language, Err: err}
	}
	return &mistralSession{engine: e, language: language}, nil
}

type mistralSession struct {
	engine   *MistralOCREngine
	language string
}

// Recognize sends the bitmap as a PNG data URL and returns the page markdown.
func (s *mistralSession) Recognize(ctx context.Context, img image.Image) (*OCRResult, error) {
	start := time.Now()

	png, err := imaging.EncodePNG(img)
	if err != nil {
		return nil, &RecognitionError{Err: err}
	}

	reqBody := mistralOCRRequest{
		Model: s.engine.cfg.Model,
		Document: mistralDocument{
			Type: "image_url",
			ImageURL: &mistralImageURL{
				URL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
			},
		},
	}

	var resp *mistralOCRResponse
	err = retry.Do(
		func() error {
			if err := s.engine.limiter.Wait(ctx); err != nil {
				return retry.Unrecoverable(err)
			}
			r, err := s.engine.doRequest(ctx, "/ocr", reqBody)
			if err != nil {
				return err
			}
			resp = r
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(s.engine.cfg.MaxRetries)),
		retry.Delay(s.engine.cfg.RetryDelay),
		retry.RetryIf(IsRetryable),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, &RecognitionError{Err: err}
	}

	if len(resp.Pages) == 0 {
		return nil, &RecognitionError{Err: fmt.Errorf("no pages in OCR response")}
	}

	// Single image means single page.
	page := resp.Pages[0]

	metadata := map[string]any{
		"model_used": resp.Model,
		"language":   s.language,
		"dimensions": map[string]any{
			"width":  page.Dimensions.Width,
			"height": page.Dimensions.Height,
			"dpi":    page.Dimensions.DPI,
		},
	}
	if resp.UsageInfo != nil {
		metadata["pages_processed"] = resp.UsageInfo.PagesProcessed
	}

	return &OCRResult{
		Text:          page.Markdown,
		Metadata:      metadata,
		ExecutionTime: time.Since(start),
	}, nil
}

// Close is a no-op; the HTTP client is shared by the engine.
func (s *mistralSession) Close() error { return nil }

func (e *MistralOCREngine) doRequest(ctx context.Context, path string, body any) (*mistralOCRResponse, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.BaseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		e.limiter.Drain()
		return nil, &RateLimitError{
			Message:    "mistral rate limit exceeded",
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			StatusCode: resp.StatusCode,
		}
	}
	if resp.StatusCode != http.StatusOK {
		msg := string(respBody)
		var errResp mistralErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			msg = errResp.Error.Message
		}
		return nil, &StatusError{Provider: "mistral", StatusCode: resp.StatusCode, Message: msg}
	}

	var ocrResp mistralOCRResponse
	if err := json.Unmarshal(respBody, &ocrResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &ocrResp, nil
}

// Mistral OCR API types

type mistralOCRRequest struct {
	Model              string          `json:"model"`
	Document           mistralDocument `json:"document"`
	IncludeImageBase64 bool            `json:"include_image_base64,omitempty"`
}

type mistralDocument struct {
	Type     string           `json:"type"` // "image_url" or "document_url"
	ImageURL *mistralImageURL `json:"image_url,omitempty"`
}

type mistralImageURL struct {
	URL string `json:"url"`
}

type mistralOCRResponse struct {
	Model     string            `json:"model"`
	Pages     []mistralOCRPage  `json:"pages"`
	UsageInfo *mistralUsageInfo `json:"usage_info,omitempty"`
}

type mistralOCRPage struct {
	Index      int                   `json:"index"`
	Markdown   string                `json:"markdown"`
	Dimensions mistralPageDimensions `json:"dimensions"`
}

type mistralPageDimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	DPI    int `json:"dpi"`
}

type mistralUsageInfo struct {
	PagesProcessed int `json:"pages_processed"`
}

type mistralErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

var _ OCREngine = (*MistralOCREngine)(nil)
