// Package export renders the included pages of a registry as a text bundle
// or a reconstructed PDF. It never mutates pages.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jackzampolin/snaptranslate/internal/page"
)

// ErrNoIncludedPages means there is nothing to export; no artifact is produced.
var ErrNoIncludedPages = errors.New("no pages to export")

const (
	// NoTextPlaceholder stands in for pages without recognized text.
	NoTextPlaceholder = "(No Text extracted)"

	pageDelimiter = "\n" + "====================" + "\n\n"
)

// Included filters pages to those with IsIncluded set, keeping order.
func Included(pages []page.Page) []page.Page {
	out := make([]page.Page, 0, len(pages))
	for _, p := range pages {
		if p.IsIncluded {
			out = append(out, p)
		}
	}
	return out
}

// WriteText writes the text bundle for the included pages:
//
//	--- <name> ---
//	[Original]
//	<recognized text or placeholder>
//
//	[Translation]        (only when translated)
//	<translated text>
//
//	====================
func WriteText(w io.Writer, pages []page.Page) error {
	included := Included(pages)
	if len(included) == 0 {
		return ErrNoIncludedPages
	}

	var b strings.Builder
	for _, p := range included {
		original := p.RecognizedText
		if original == "" {
			original = NoTextPlaceholder
		}
		fmt.Fprintf(&b, "--- %s ---\n", p.Name)
		fmt.Fprintf(&b, "[Original]\n%s\n\n", original)
		if p.TranslatedText != "" {
			fmt.Fprintf(&b, "[Translation]\n%s\n\n", p.TranslatedText)
		}
		b.WriteString(pageDelimiter)
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("failed to write text export: %w", err)
	}
	return nil
}

// Text returns the text bundle as bytes.
func Text(pages []page.Page) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteText(&buf, pages); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
