package page

import (
	"fmt"
	"image"
	"sync"
)

// Registry is the ordered collection of pages for one session and the single
// source of truth for pipeline state.
//
// Reads return value copies, so enumerating while the orchestrator mutates
// pages never observes a torn entity or trips over a concurrent modification.
// The bitmap pointer is shared between copies; it is immutable after Create.
type Registry struct {
	mu     sync.RWMutex
	nextID int
	pages  []*Page
	index  map[int]*Page
}

// NewRegistry creates an empty registry. The first page gets id 1.
func NewRegistry() *Registry {
	return &Registry{
		nextID: 1,
		index:  make(map[int]*Page),
	}
}

// Create appends a new page with a fresh id and default field values.
func (r *Registry) Create(name string, kind SourceKind, bitmap *image.NRGBA) Page {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := &Page{
		ID:         r.nextID,
		Name:       name,
		SourceKind: kind,
		Bitmap:     bitmap,
		Status:     StatusReady,
		IsIncluded: true,
	}
	r.nextID++
	r.pages = append(r.pages, p)
	r.index[p.ID] = p
	return *p
}

// Get returns a copy of the page with the given id.
func (r *Registry) Get(id int) (Page, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.index[id]
	if !ok {
		return Page{}, false
	}
	return *p, true
}

// Remove deletes the page. Unknown ids are a no-op; the return value reports
// whether anything was removed.
func (r *Registry) Remove(id int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.index[id]; !ok {
		return false
	}
	delete(r.index, id)
	for i, p := range r.pages {
		if p.ID == id {
			r.pages = append(r.pages[:i], r.pages[i+1:]...)
			break
		}
	}
	return true
}

// Clear removes every page and returns how many were dropped. Ids keep
// increasing afterwards.
func (r *Registry) Clear() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.pages)
	r.pages = nil
	r.index = make(map[int]*Page)
	return n
}

// All returns a snapshot of every page in insertion order.
func (r *Registry) All() []Page {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Page, len(r.pages))
	for i, p := range r.pages {
		out[i] = *p
	}
	return out
}

// Included returns a snapshot of the included pages in registry order.
func (r *Registry) Included() []Page {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Page
	for _, p := range r.pages {
		if p.IsIncluded {
			out = append(out, *p)
		}
	}
	return out
}

// Eligible returns the pages a batch run would process right now.
func (r *Registry) Eligible() []Page {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Page
	for _, p := range r.pages {
		if p.Eligible() {
			out = append(out, *p)
		}
	}
	return out
}

// Len returns the number of pages.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pages)
}

// First returns the first page in registry order.
func (r *Registry) First() (Page, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.pages) == 0 {
		return Page{}, false
	}
	return *r.pages[0], true
}

// update applies fn to the live page under the write lock.
func (r *Registry) update(id int, fn func(*Page)) (Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.index[id]
	if !ok {
		return Page{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	fn(p)
	return *p, nil
}

// SetRotation sets an absolute rotation. Already-computed text is kept.
func (r *Registry) SetRotation(id, deg int) (Page, error) {
	if !ValidRotation(deg) {
		return Page{}, fmt.Errorf("%w: got %d", ErrInvalidRotation, deg)
	}
	return r.update(id, func(p *Page) { p.Rotation = deg })
}

// Rotate adds delta degrees (a multiple of 90, either sign) to the rotation.
func (r *Registry) Rotate(id, delta int) (Page, error) {
	if delta%90 != 0 {
		return Page{}, fmt.Errorf("%w: got delta %d", ErrInvalidRotation, delta)
	}
	return r.update(id, func(p *Page) {
		p.Rotation, _ = NormalizeRotation(p.Rotation + delta)
	})
}

// SetIncluded toggles whether the page takes part in runs and exports.
func (r *Registry) SetIncluded(id int, included bool) (Page, error) {
	return r.update(id, func(p *Page) { p.IsIncluded = included })
}

// SetRecognizedText replaces the recognized text with a user edit. Status is
// left alone; a non-empty value takes the page out of future runs.
func (r *Registry) SetRecognizedText(id int, text string) (Page, error) {
	return r.update(id, func(p *Page) { p.RecognizedText = text })
}

// SetTranslatedText replaces the translated text with a user edit.
func (r *Registry) SetTranslatedText(id int, text string) (Page, error) {
	return r.update(id, func(p *Page) { p.TranslatedText = text })
}

// ResetText is the explicit reset: both texts and failure details are
// cleared and the page goes back to Ready, making it eligible again.
func (r *Registry) ResetText(id int) (Page, error) {
	return r.update(id, func(p *Page) {
		p.RecognizedText = ""
		p.TranslatedText = ""
		p.Failure = ""
		p.TranslationFailure = ""
		p.Confidence = 0
		p.DetectedLanguage = ""
		p.Status = StatusReady
	})
}

// The transitions below are driven by the batch orchestrator only.

// MarkProcessing moves the page into Processing and clears the failures and
// translation left by earlier runs.
func (r *Registry) MarkProcessing(id int) (Page, error) {
	return r.update(id, func(p *Page) {
		p.Status = StatusProcessing
		p.Failure = ""
		p.TranslatedText = ""
		p.TranslationFailure = ""
	})
}

// MarkDone stores a successful recognition result.
func (r *Registry) MarkDone(id int, text string, confidence float64) (Page, error) {
	return r.update(id, func(p *Page) {
		p.RecognizedText = text
		p.Confidence = confidence
		p.Status = StatusDone
	})
}

// MarkError records a page-scoped recognition failure. Existing text is kept.
func (r *Registry) MarkError(id int, cause error) (Page, error) {
	return r.update(id, func(p *Page) {
		p.Status = StatusError
		if cause != nil {
			p.Failure = cause.Error()
		}
	})
}

// SetTranslation stores a successful translation.
func (r *Registry) SetTranslation(id int, text string) (Page, error) {
	return r.update(id, func(p *Page) {
		p.TranslatedText = text
		p.TranslationFailure = ""
	})
}

// MarkTranslationFailed records a translation failure and drops any earlier
// translation. Status is not touched.
func (r *Registry) MarkTranslationFailed(id int, cause error) (Page, error) {
	return r.update(id, func(p *Page) {
		p.TranslatedText = ""
		if cause != nil {
			p.TranslationFailure = cause.Error()
		}
	})
}

// SetDetectedLanguage annotates the page with the language of its text.
func (r *Registry) SetDetectedLanguage(id int, lang string) (Page, error) {
	return r.update(id, func(p *Page) { p.DetectedLanguage = lang })
}
