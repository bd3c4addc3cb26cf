package export

import (
	"bytes"
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/jackzampolin/snaptranslate/internal/imaging"
	"github.com/jackzampolin/snaptranslate/internal/page"
)

func bitmap(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	return img
}

func TestWriteText(t *testing.T) {
	pages := []page.Page{
		{ID: 1, Name: "a.png", RecognizedText: "Hallo", TranslatedText: "Hello", IsIncluded: true},
		{ID: 2, Name: "b.png", IsIncluded: true},
		{ID: 3, Name: "hidden.png", RecognizedText: "secret", IsIncluded: false},
		{ID: 4, Name: "doc.pdf (Page 1)", RecognizedText: "Bonjour", IsIncluded: true},
	}

	got, err := Text(pages)
	if err != nil {
		t.Fatal(err)
	}

	want := "--- a.png ---\n[Original]\nHallo\n\n[Translation]\nHello\n\n\n====================\n\n" +
		"--- b.png ---\n[Original]\n(No Text extracted)\n\n\n====================\n\n" +
		"--- doc.pdf (Page 1) ---\n[Original]\nBonjour\n\n\n====================\n\n"
	if string(got) != want {
		t.Errorf("text export mismatch\ngot:\n%q\nwant:\n%q", got, want)
	}
}

func TestText_NoIncludedPages(t *testing.T) {
	tests := []struct {
		name  string
		pages []page.Page
	}{
		{"empty", nil},
		{"all excluded", []page.Page{{ID: 1, Name: "a", RecognizedText: "x"}, {ID: 2, Name: "b"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Text(tt.pages)
			if !errors.Is(err, ErrNoIncludedPages) {
				t.Errorf("err = %v", err)
			}
			if data != nil {
				t.Error("blob produced")
			}
			if _, err := PDF(context.Background(), tt.pages); !errors.Is(err, ErrNoIncludedPages) {
				t.Errorf("PDF err = %v", err)
			}
		})
	}
}

func TestPDF(t *testing.T) {
	pages := []page.Page{
		{ID: 1, Name: "wide", Bitmap: bitmap(40, 20), IsIncluded: true},
		{ID: 2, Name: "skip", Bitmap: bitmap(10, 10), IsIncluded: false},
		{ID: 3, Name: "turned", Bitmap: bitmap(30, 50), Rotation: 90, IsIncluded: true},
	}

	data, err := PDF(context.Background(), pages)
	if err != nil {
		t.Fatal(err)
	}

	n, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("page count = %d, want 2", n)
	}

	dims, err := api.PageDims(bytes.NewReader(data), nil)
	if err != nil {
		t.Fatal(err)
	}
	want := [][2]float64{{40, 20}, {50, 30}}
	for i, d := range dims {
		if d.Width != want[i][0] || d.Height != want[i][1] {
			t.Errorf("page %d dims = %vx%v, want %vx%v", i+1, d.Width, d.Height, want[i][0], want[i][1])
		}
	}
}

func TestPDF_BadPageAbortsExport(t *testing.T) {
	pages := []page.Page{
		{ID: 1, Name: "ok", Bitmap: bitmap(4, 4), IsIncluded: true},
		{ID: 2, Name: "broken", Bitmap: nil, IsIncluded: true},
	}
	data, err := PDF(context.Background(), pages)
	if !errors.Is(err, imaging.ErrNilBitmap) {
		t.Fatalf("err = %v, want ErrNilBitmap", err)
	}
	if data != nil {
		t.Error("partial pdf returned")
	}
}

func TestService(t *testing.T) {
	dir := t.TempDir()
	reg := page.NewRegistry()
	p := reg.Create("scan.png", page.SourceImage, bitmap(8, 6))
	reg.MarkDone(p.ID, "text", 0.9)

	svc := NewService(Config{Registry: reg, Dir: dir})

	t.Run("default paths", func(t *testing.T) {
		txt, err := svc.ExportText("")
		if err != nil {
			t.Fatal(err)
		}
		if txt != filepath.Join(dir, DefaultTextFile) {
			t.Errorf("text path = %s", txt)
		}
		pdf, err := svc.ExportPDF(context.Background(), "")
		if err != nil {
			t.Fatal(err)
		}
		if pdf != filepath.Join(dir, DefaultPDFFile) {
			t.Errorf("pdf path = %s", pdf)
		}
		data, _ := os.ReadFile(pdf)
		if !bytes.HasPrefix(data, []byte("%PDF-")) {
			t.Error("not a pdf")
		}
	})

	t.Run("explicit path in new dir", func(t *testing.T) {
		path := filepath.Join(dir, "nested", "out.txt")
		if _, err := svc.ExportText(path); err != nil {
			t.Fatal(err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Error(err)
		}
	})

	t.Run("no file when nothing included", func(t *testing.T) {
		reg.SetIncluded(p.ID, false)
		defer reg.SetIncluded(p.ID, true)

		path := filepath.Join(dir, "empty.txt")
		if _, err := svc.ExportText(path); !errors.Is(err, ErrNoIncludedPages) {
			t.Fatalf("err = %v", err)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Error("file created for failed export")
		}
		entries, _ := os.ReadDir(dir)
		for _, e := range entries {
			if filepath.Ext(e.Name()) != ".txt" && filepath.Ext(e.Name()) != ".pdf" && !e.IsDir() {
				t.Errorf("leftover temp file %s", e.Name())
			}
		}
	})

	t.Run("export does not mutate pages", func(t *testing.T) {
		before, _ := reg.Get(p.ID)
		svc.ExportPDF(context.Background(), "")
		after, _ := reg.Get(p.ID)
		if before.Status != after.Status || before.RecognizedText != after.RecognizedText || before.Bitmap != after.Bitmap {
			t.Error("export changed page state")
		}
	})
}
