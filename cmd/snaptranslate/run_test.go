package main

import (
	"errors"
	"image"
	"testing"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/snaptranslate/internal/config"
	"github.com/jackzampolin/snaptranslate/internal/page"
)

func TestParsePageEdits(t *testing.T) {
	tests := []struct {
		name    string
		rotate  []string
		want    map[int]int
		wantErr bool
	}{
		{"empty", nil, map[int]int{}, false},
		{"absolute", []string{"1=90", "3=180"}, map[int]int{1: 90, 3: 180}, false},
		{"normalized", []string{"2=-90", "4=450"}, map[int]int{2: 270, 4: 90}, false},
		{"spaces", []string{" 5 = 270 "}, map[int]int{5: 270}, false},
		{"missing equals", []string{"190"}, nil, true},
		{"bad page", []string{"x=90"}, nil, true},
		{"bad degrees", []string{"1=45"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			edits, err := parsePageEdits(nil, tt.rotate)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(edits.rotation) != len(tt.want) {
				t.Fatalf("rotation = %v, want %v", edits.rotation, tt.want)
			}
			for id, deg := range tt.want {
				if edits.rotation[id] != deg {
					t.Errorf("page %d: got %d, want %d", id, edits.rotation[id], deg)
				}
			}
		})
	}
}

func TestPageEdits_Apply(t *testing.T) {
	reg := page.NewRegistry()
	bmp := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	a := reg.Create("a.png", page.SourceImage, bmp)
	b := reg.Create("b.png", page.SourceImage, bmp)

	edits, err := parsePageEdits([]int{b.ID}, []string{"1=90"})
	if err != nil {
		t.Fatal(err)
	}
	if err := edits.apply(reg); err != nil {
		t.Fatal(err)
	}

	if got, _ := reg.Get(a.ID); got.Rotation != 90 || !got.IsIncluded {
		t.Errorf("page a = rotation %d included %v", got.Rotation, got.IsIncluded)
	}
	if got, _ := reg.Get(b.ID); got.IsIncluded {
		t.Error("page b still included")
	}

	t.Run("unknown page", func(t *testing.T) {
		edits, _ := parsePageEdits([]int{99}, nil)
		if err := edits.apply(reg); !errors.Is(err, page.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestRunFlags_Apply(t *testing.T) {
	parse := func(t *testing.T, args ...string) *config.Config {
		t.Helper()
		var f runFlags
		cmd := &cobra.Command{Use: "test"}
		f.register(cmd)
		if err := cmd.ParseFlags(args); err != nil {
			t.Fatal(err)
		}
		cfg := config.DefaultConfig()
		f.apply(cmd)(cfg)
		return cfg
	}

	t.Run("unset flags keep config", func(t *testing.T) {
		cfg := parse(t)
		if cfg.OCR.Engine != "tesseract" || cfg.Translation.Target != "none" || cfg.OCR.Enhanced {
			t.Errorf("cfg changed: %+v", cfg)
		}
	})

	t.Run("overrides", func(t *testing.T) {
		cfg := parse(t, "--engine", "mock", "--lang", "fra", "--enhanced", "--skip-same-language")
		if cfg.OCR.Engine != "mock" || cfg.OCR.Language != "fra" || !cfg.OCR.Enhanced || !cfg.Translation.SkipSameLanguage {
			t.Errorf("cfg = %+v", cfg)
		}
	})

	t.Run("target without provider uses placeholder", func(t *testing.T) {
		cfg := parse(t, "--translate", "fr")
		if cfg.Translation.Target != "fr" || cfg.Translation.Provider != "placeholder" {
			t.Errorf("translation = %+v", cfg.Translation)
		}
	})

	t.Run("explicit translator wins", func(t *testing.T) {
		cfg := parse(t, "--translate", "fr", "--translator", "openai")
		if cfg.Translation.Provider != "openai" {
			t.Errorf("provider = %q", cfg.Translation.Provider)
		}
	})

	t.Run("translate none stays off", func(t *testing.T) {
		cfg := parse(t, "--translate", "none")
		if cfg.Translation.Provider != "none" {
			t.Errorf("provider = %q", cfg.Translation.Provider)
		}
	})
}
