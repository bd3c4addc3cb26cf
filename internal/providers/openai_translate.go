package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	OpenAITranslatorName      = "openai"
	OpenAIDefaultModel        = "gpt-4o-mini"
	openAITranslateSystemText = `You translate OCR output. Keep line breaks and paragraph structure. Do not summarize, explain, or add notes. Reply with JSON of the form {"translation": "..."} and nothing else.`
)

// OpenAITranslatorConfig holds configuration for the OpenAI translator.
type OpenAITranslatorConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	RateLimit  float64 // Requests per second
	MaxRetries int
	RetryDelay time.Duration
	HTTPClient *http.Client // Optional (tests)
}

// OpenAITranslator implements Translator with the OpenAI chat API.
type OpenAITranslator struct {
	model      string
	maxRetries int
	retryDelay time.Duration
	limiter    *RateLimiter
	client     openai.Client
}

// NewOpenAITranslator creates a new OpenAI-backed translator.
func NewOpenAITranslator(cfg OpenAITranslatorConfig) *OpenAITranslator {
	if cfg.Model == "" {
		cfg.Model = OpenAIDefaultModel
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 8.0
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	// Retries are driven here so 429s also drain the shared limiter.
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAITranslator{
		model:      cfg.Model,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		limiter:    NewRateLimiter(cfg.RateLimit),
		client:     openai.NewClient(opts...),
	}
}

// Name returns the provider identifier.
func (t *OpenAITranslator) Name() string {
	return OpenAITranslatorName
}

// Model returns the configured chat model.
func (t *OpenAITranslator) Model() string {
	return t.model
}

// Translate asks the model for a JSON reply and validates it locally. A reply
// that fails validation is sent back once more with a repair prompt.
func (t *OpenAITranslator) Translate(ctx context.Context, text, target string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(openAITranslateSystemText),
		openai.UserMessage(fmt.Sprintf("Target language: %s\n\nText:\n%s", target, text)),
	}

	var lastErr error
	for attempt := 0; attempt < maxStructuredRepairAttempts; attempt++ {
		content, err := t.complete(ctx, messages)
		if err != nil {
			return "", &TranslationError{Target: target, Err: err}
		}
		translation, err := decodeTranslation(content)
		if err == nil {
			return translation, nil
		}
		lastErr = err
		messages = append(messages,
			openai.AssistantMessage(content),
			openai.UserMessage(structuredRepairPrompt(content, err)),
		)
	}
	return "", &TranslationError{Target: target, Err: lastErr}
}

func (t *OpenAITranslator) complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	var content string
	err := retry.Do(
		func() error {
			if err := t.limiter.Wait(ctx); err != nil {
				return retry.Unrecoverable(err)
			}
			resp, err := t.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
				Model:       openai.ChatModel(t.model),
				Messages:    messages,
				Temperature: openai.Float(0),
			})
			if err != nil {
				return t.mapError(err)
			}
			if len(resp.Choices) == 0 {
				return fmt.Errorf("no choices in response")
			}
			content = resp.Choices[0].Message.Content
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(t.maxRetries)),
		retry.Delay(t.retryDelay),
		retry.RetryIf(IsRetryable),
		retry.LastErrorOnly(true),
	)
	return content, err
}

func (t *OpenAITranslator) mapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			t.limiter.Drain()
			retryAfter := time.Duration(0)
			if apiErr.Response != nil {
				retryAfter = parseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
			}
			return &RateLimitError{
				Message:    fmt.Sprintf("OpenAI rate limited: %s", apiErr.Message),
				RetryAfter: retryAfter,
				StatusCode: apiErr.StatusCode,
			}
		}
		return &StatusError{Provider: "openai", StatusCode: apiErr.StatusCode, Message: apiErr.Message}
	}
	return err
}

var _ Translator = (*OpenAITranslator)(nil)
