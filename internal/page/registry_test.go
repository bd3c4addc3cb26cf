package page

import (
	"errors"
	"image"
	"sync"
	"testing"
)

func newBitmap(w, h int) *image.NRGBA {
	return image.NewNRGBA(image.Rect(0, 0, w, h))
}

func TestRegistry_Create(t *testing.T) {
	r := NewRegistry()

	a := r.Create("a.png", SourceImage, newBitmap(2, 3))
	b := r.Create("doc.pdf (Page 1)", SourceDocumentPage, newBitmap(4, 5))

	if a.ID != 1 || b.ID != 2 {
		t.Fatalf("ids = %d, %d, want 1, 2", a.ID, b.ID)
	}
	if a.Status != StatusReady {
		t.Errorf("status = %s, want ready", a.Status)
	}
	if !a.IsIncluded {
		t.Error("new page should be included")
	}
	if a.Rotation != 0 || a.RecognizedText != "" || a.TranslatedText != "" {
		t.Errorf("unexpected defaults: %+v", a)
	}
	if b.Width() != 4 || b.Height() != 5 {
		t.Errorf("dims = %dx%d, want 4x5", b.Width(), b.Height())
	}
}

func TestRegistry_IDsNeverReused(t *testing.T) {
	r := NewRegistry()
	r.Create("a", SourceImage, nil)
	b := r.Create("b", SourceImage, nil)

	r.Remove(b.ID)
	r.Clear()

	c := r.Create("c", SourceImage, nil)
	if c.ID != 3 {
		t.Errorf("id after removal = %d, want 3", c.ID)
	}
}

func TestRegistry_RemoveUnknownIsNoop(t *testing.T) {
	r := NewRegistry()
	r.Create("a", SourceImage, nil)

	if r.Remove(42) {
		t.Error("Remove(42) reported a removal")
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestRegistry_OrderPreserved(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"one", "two", "three", "four"} {
		r.Create(name, SourceImage, nil)
	}
	r.Remove(2)

	all := r.All()
	want := []string{"one", "three", "four"}
	if len(all) != len(want) {
		t.Fatalf("len = %d, want %d", len(all), len(want))
	}
	for i, p := range all {
		if p.Name != want[i] {
			t.Errorf("index %d: got %q, want %q", i, p.Name, want[i])
		}
	}

	first, ok := r.First()
	if !ok || first.Name != "one" {
		t.Errorf("First() = %q, %v", first.Name, ok)
	}
}

func TestRegistry_SnapshotIsolation(t *testing.T) {
	r := NewRegistry()
	p := r.Create("a", SourceImage, nil)

	snap := r.All()
	if _, err := r.MarkDone(p.ID, "hello", 0.9); err != nil {
		t.Fatal(err)
	}

	if snap[0].RecognizedText != "" {
		t.Error("snapshot observed a later mutation")
	}
	got, _ := r.Get(p.ID)
	if got.RecognizedText != "hello" || got.Status != StatusDone {
		t.Errorf("Get() = %+v", got)
	}
}

func TestRegistry_Rotation(t *testing.T) {
	r := NewRegistry()
	p := r.Create("a", SourceImage, nil)

	t.Run("rotate wraps", func(t *testing.T) {
		for i, want := range []int{90, 180, 270, 0} {
			got, err := r.Rotate(p.ID, 90)
			if err != nil {
				t.Fatal(err)
			}
			if got.Rotation != want {
				t.Errorf("step %d: rotation = %d, want %d", i, got.Rotation, want)
			}
		}
	})

	t.Run("negative delta", func(t *testing.T) {
		got, err := r.Rotate(p.ID, -90)
		if err != nil {
			t.Fatal(err)
		}
		if got.Rotation != 270 {
			t.Errorf("rotation = %d, want 270", got.Rotation)
		}
	})

	t.Run("invalid absolute", func(t *testing.T) {
		if _, err := r.SetRotation(p.ID, 45); !errors.Is(err, ErrInvalidRotation) {
			t.Errorf("err = %v, want ErrInvalidRotation", err)
		}
	})

	t.Run("rotation keeps text", func(t *testing.T) {
		r.MarkDone(p.ID, "text", 0)
		r.SetTranslation(p.ID, "texte")
		got, err := r.SetRotation(p.ID, 180)
		if err != nil {
			t.Fatal(err)
		}
		if got.RecognizedText != "text" || got.TranslatedText != "texte" {
			t.Errorf("rotation invalidated text: %+v", got)
		}
	})

	t.Run("unknown page", func(t *testing.T) {
		if _, err := r.Rotate(99, 90); !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestRegistry_Eligible(t *testing.T) {
	r := NewRegistry()
	a := r.Create("a", SourceImage, nil)
	b := r.Create("b", SourceImage, nil)
	c := r.Create("c", SourceImage, nil)
	d := r.Create("d", SourceImage, nil)

	r.SetIncluded(b.ID, false)
	r.SetRecognizedText(c.ID, "user typed this")
	r.MarkError(d.ID, errors.New("boom"))

	got := r.Eligible()
	if len(got) != 2 || got[0].ID != a.ID || got[1].ID != d.ID {
		t.Fatalf("Eligible() = %+v", got)
	}

	r.ResetText(c.ID)
	if len(r.Eligible()) != 3 {
		t.Errorf("reset page should be eligible again")
	}
}

func TestRegistry_ResetText(t *testing.T) {
	r := NewRegistry()
	p := r.Create("a", SourceImage, nil)
	r.MarkDone(p.ID, "text", 0.5)
	r.SetTranslation(p.ID, "texte")

	got, err := r.ResetText(p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.RecognizedText != "" || got.TranslatedText != "" || got.Status != StatusReady {
		t.Errorf("ResetText() = %+v", got)
	}
}

func TestRegistry_StaleTranslationCleared(t *testing.T) {
	t.Run("processing", func(t *testing.T) {
		r := NewRegistry()
		p := r.Create("a", SourceImage, nil)
		r.SetTranslatedText(p.ID, "old")
		r.MarkTranslationFailed(p.ID, errors.New("quota"))

		got, _ := r.MarkProcessing(p.ID)
		if got.TranslatedText != "" || got.TranslationFailure != "" {
			t.Errorf("MarkProcessing() = %+v", got)
		}
	})

	t.Run("translation failure", func(t *testing.T) {
		r := NewRegistry()
		p := r.Create("a", SourceImage, nil)
		r.MarkDone(p.ID, "hola", 1)
		r.SetTranslation(p.ID, "hello")

		got, _ := r.MarkTranslationFailed(p.ID, errors.New("quota"))
		if got.TranslatedText != "" || got.TranslationFailure != "quota" || got.Status != StatusDone {
			t.Errorf("MarkTranslationFailed() = %+v", got)
		}
	})
}

func TestRegistry_MarkErrorKeepsText(t *testing.T) {
	r := NewRegistry()
	p := r.Create("a", SourceImage, nil)
	r.SetRecognizedText(p.ID, "keep me")

	got, _ := r.MarkError(p.ID, errors.New("recognition failed"))
	if got.RecognizedText != "keep me" {
		t.Errorf("text cleared by MarkError")
	}
	if got.Failure != "recognition failed" {
		t.Errorf("Failure = %q", got.Failure)
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 20; i++ {
		r.Create("p", SourceImage, nil)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 1; i <= 20; i++ {
			r.MarkProcessing(i)
			r.MarkDone(i, "x", 1)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			for _, p := range r.All() {
				_ = p.Status
			}
		}
	}()
	wg.Wait()

	for _, p := range r.All() {
		if p.Status != StatusDone {
			t.Fatalf("page %d status = %s", p.ID, p.Status)
		}
	}
}

func TestNormalizeRotation(t *testing.T) {
	tests := []struct {
		in      int
		want    int
		wantErr bool
	}{
		{0, 0, false},
		{90, 90, false},
		{360, 0, false},
		{450, 90, false},
		{-90, 270, false},
		{-360, 0, false},
		{45, 0, true},
	}
	for _, tt := range tests {
		got, err := NormalizeRotation(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizeRotation(%d) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeRotation(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
