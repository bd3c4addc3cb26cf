package providers

import (
	"context"
	"fmt"
	"strings"
)

const (
	PlaceholderTranslatorName = "placeholder"
	placeholderNotice         = "(Translation API requires key. This is a demo placeholder.)"
)

// PlaceholderTranslator echoes the text tagged with the target language. It
// stands in when no translation provider is configured.
type PlaceholderTranslator struct{}

func (PlaceholderTranslator) Name() string { return PlaceholderTranslatorName }

func (PlaceholderTranslator) Translate(ctx context.Context, text, target string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &TranslationError{Target: target, Err: err}
	}
	return fmt.Sprintf("[%s] %s\n\n%s", strings.ToUpper(target), text, placeholderNotice), nil
}

var _ Translator = PlaceholderTranslator{}
