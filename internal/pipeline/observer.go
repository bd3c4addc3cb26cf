package pipeline

import (
	"log/slog"

	"github.com/jackzampolin/snaptranslate/internal/page"
)

// Observer receives run events. Calls are made synchronously from the run
// goroutine, in order; implementations must not block for long.
type Observer interface {
	PageStatusChanged(p page.Page)
	ProgressChanged(progress float64)
	PageFailed(f PageFailure)
	StatusMessage(msg string)
}

// NopObserver ignores every event. Embed it to implement a subset.
type NopObserver struct{}

func (NopObserver) PageStatusChanged(page.Page) {}
func (NopObserver) ProgressChanged(float64)     {}
func (NopObserver) PageFailed(PageFailure)      {}
func (NopObserver) StatusMessage(string)        {}

// LogObserver writes run events to a logger.
type LogObserver struct {
	Logger *slog.Logger
}

func (o LogObserver) PageStatusChanged(p page.Page) {
	o.Logger.Debug("page status changed", "page_id", p.ID, "page", p.Name, "status", p.Status)
}

func (o LogObserver) ProgressChanged(progress float64) {
	o.Logger.Debug("progress", "percent", int(progress*100))
}

func (o LogObserver) PageFailed(f PageFailure) {
	o.Logger.Warn("page failed", "page_id", f.PageID, "page", f.Name, "stage", f.Stage, "error", f.Error)
}

func (o LogObserver) StatusMessage(msg string) {
	o.Logger.Info(msg)
}

// Observers fans events out to several observers in order.
type Observers []Observer

func (obs Observers) PageStatusChanged(p page.Page) {
	for _, o := range obs {
		o.PageStatusChanged(p)
	}
}

func (obs Observers) ProgressChanged(progress float64) {
	for _, o := range obs {
		o.ProgressChanged(progress)
	}
}

func (obs Observers) PageFailed(f PageFailure) {
	for _, o := range obs {
		o.PageFailed(f)
	}
}

func (obs Observers) StatusMessage(msg string) {
	for _, o := range obs {
		o.StatusMessage(msg)
	}
}

var (
	_ Observer = NopObserver{}
	_ Observer = LogObserver{}
	_ Observer = Observers(nil)
)
