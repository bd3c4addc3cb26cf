package main

import (
	"fmt"
	"io"

	"github.com/jackzampolin/snaptranslate/internal/pipeline"
)

// progressPrinter writes run progress and status lines for a human watching
// the terminal.
type progressPrinter struct {
	pipeline.NopObserver
	w io.Writer
}

func (p progressPrinter) ProgressChanged(progress float64) {
	fmt.Fprintf(p.w, "[%3d%%]\n", int(progress*100))
}

func (p progressPrinter) StatusMessage(msg string) {
	fmt.Fprintln(p.w, msg)
}

func (p progressPrinter) PageFailed(f pipeline.PageFailure) {
	fmt.Fprintf(p.w, "page %d (%s) failed: %s\n", f.PageID, f.Name, f.Error)
}
