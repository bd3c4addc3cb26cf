package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/snaptranslate/internal/api"
	"github.com/jackzampolin/snaptranslate/internal/config"
	"github.com/jackzampolin/snaptranslate/internal/export"
	"github.com/jackzampolin/snaptranslate/internal/ingest"
	"github.com/jackzampolin/snaptranslate/internal/page"
	"github.com/jackzampolin/snaptranslate/internal/pipeline"
	"github.com/jackzampolin/snaptranslate/internal/session"
)

// runFlags are the per-run overrides shared by run and watch.
type runFlags struct {
	engine           string
	translator       string
	lang             string
	enhanced         bool
	target           string
	skipSameLanguage bool
	detect           bool
	progress         bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.engine, "engine", "", "OCR engine: tesseract, mistral or mock (default from config)")
	cmd.Flags().StringVar(&f.translator, "translator", "", "translator: none, placeholder or openai (default from config)")
	cmd.Flags().StringVar(&f.lang, "lang", "", "OCR language code, auto means eng (default from config)")
	cmd.Flags().BoolVar(&f.enhanced, "enhanced", false, "binarize pages before recognition")
	cmd.Flags().StringVar(&f.target, "translate", "", "translate recognized text into this language; none disables")
	cmd.Flags().BoolVar(&f.skipSameLanguage, "skip-same-language", false, "do not translate pages already in the target language")
	cmd.Flags().BoolVar(&f.detect, "detect", false, "detect and report the language of recognized text")
	cmd.Flags().BoolVar(&f.progress, "progress", false, "print batch progress to stderr")
}

// apply returns an override func for the flags the user actually set.
func (f *runFlags) apply(cmd *cobra.Command) func(*config.Config) {
	changed := cmd.Flags().Changed
	return func(cfg *config.Config) {
		if changed("engine") {
			cfg.OCR.Engine = f.engine
		}
		if changed("translator") {
			cfg.Translation.Provider = f.translator
		}
		if changed("lang") {
			cfg.OCR.Language = f.lang
		}
		if changed("enhanced") {
			cfg.OCR.Enhanced = f.enhanced
		}
		if changed("translate") {
			cfg.Translation.Target = f.target
			// Asking for a target with no provider configured uses the
			// placeholder rather than silently not translating.
			if !changed("translator") && !isTranslationOff(f.target) && isTranslationOff(cfg.Translation.Provider) {
				cfg.Translation.Provider = "placeholder"
			}
		}
		if changed("skip-same-language") {
			cfg.Translation.SkipSameLanguage = f.skipSameLanguage
		}
	}
}

func isTranslationOff(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, "none")
}

var (
	runFlagSet runFlags
	runExclude []int
	runRotate  []string
	runTxtPath string
	runPDFPath string
	runNoExp   bool
)

var runCmd = &cobra.Command{
	Use:   "run FILE...",
	Short: "Recognize (and translate) the given images and PDFs",
	Long: `Ingest the given files into a fresh session, run one batch over every
included page, then export the text bundle and the reconstructed PDF.

Pages are numbered from 1 in ingestion order; each PDF page is its own page.

Examples:
  snaptranslate run scan.jpg
  snaptranslate run book.pdf --lang fra --translate en
  snaptranslate run a.png b.png --exclude 2 --rotate 1=90 --pdf out.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := slog.Default()

		edits, err := parsePageEdits(runExclude, runRotate)
		if err != nil {
			return err
		}

		a, err := newApp(logger, runFlagSet.apply(cmd))
		if err != nil {
			return err
		}
		cfg := a.current()
		sess := a.newSession(cfg, runFlagSet)

		report := runReport{Session: sess.ID}

		res, err := sess.AddPaths(ctx, args)
		if err != nil {
			return err
		}
		report.Rejected = rejected(res)
		if sess.Registry().Len() == 0 {
			_ = api.Output(report)
			return errors.New("no pages could be ingested")
		}

		if err := edits.apply(sess.Registry()); err != nil {
			return err
		}

		summary, runErr := sess.Run(ctx, cfg.RunOptions())
		report.Summary = summary
		switch {
		case errors.Is(runErr, pipeline.ErrNothingToDo):
			logger.Warn("no eligible pages; every page is excluded")
			runErr = nil
		case runErr != nil && summary == nil:
			return runErr
		}

		if !runNoExp && runErr == nil {
			exp, err := exportAll(ctx, sess, runTxtPath, runPDFPath)
			if err != nil {
				_ = api.Output(report)
				return err
			}
			report.Exports = exp
		}

		report.Pages = pageReports(sess.Registry().All())
		if err := api.Output(report); err != nil {
			return err
		}
		return runErr
	},
}

func init() {
	runFlagSet.register(runCmd)
	runCmd.Flags().IntSliceVar(&runExclude, "exclude", nil, "page numbers to exclude from the run and exports")
	runCmd.Flags().StringSliceVar(&runRotate, "rotate", nil, "clockwise page rotations as N=DEG, e.g. 1=90,3=180")
	runCmd.Flags().StringVar(&runTxtPath, "txt", "", "text export path (default: {export.dir}/{export.text_file})")
	runCmd.Flags().StringVar(&runPDFPath, "pdf", "", "PDF export path (default: {export.dir}/{export.pdf_file})")
	runCmd.Flags().BoolVar(&runNoExp, "no-export", false, "skip writing exports")

	rootCmd.AddCommand(runCmd)
}

// pageEdits are the per-page changes requested on the command line.
type pageEdits struct {
	exclude  []int
	rotation map[int]int
}

func parsePageEdits(exclude []int, rotate []string) (pageEdits, error) {
	edits := pageEdits{exclude: exclude, rotation: make(map[int]int)}
	for _, arg := range rotate {
		id, deg, ok := strings.Cut(arg, "=")
		if !ok {
			return edits, fmt.Errorf("invalid --rotate %q: want N=DEG", arg)
		}
		n, err := strconv.Atoi(strings.TrimSpace(id))
		if err != nil {
			return edits, fmt.Errorf("invalid --rotate page %q: %w", id, err)
		}
		d, err := strconv.Atoi(strings.TrimSpace(deg))
		if err != nil {
			return edits, fmt.Errorf("invalid --rotate degrees %q: %w", deg, err)
		}
		normalized, err := page.NormalizeRotation(d)
		if err != nil {
			return edits, fmt.Errorf("invalid --rotate %q: %w", arg, err)
		}
		edits.rotation[n] = normalized
	}
	return edits, nil
}

func (e pageEdits) apply(reg *page.Registry) error {
	for _, id := range e.exclude {
		if _, err := reg.SetIncluded(id, false); err != nil {
			return fmt.Errorf("exclude page %d: %w", id, err)
		}
	}
	for id, deg := range e.rotation {
		if _, err := reg.SetRotation(id, deg); err != nil {
			return fmt.Errorf("rotate page %d: %w", id, err)
		}
	}
	return nil
}

// exportAll writes both exports. No included pages is a warning, not an error.
func exportAll(ctx context.Context, sess *session.Session, txtPath, pdfPath string) (*exportReport, error) {
	txt, err := sess.ExportText(txtPath)
	if errors.Is(err, export.ErrNoIncludedPages) {
		slog.Warn("nothing to export", "reason", err)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	pdf, err := sess.ExportPDF(ctx, pdfPath)
	if err != nil {
		return &exportReport{Text: txt}, err
	}
	return &exportReport{Text: txt, PDF: pdf}, nil
}

type runReport struct {
	Session  string            `json:"session" yaml:"session"`
	Rejected []rejectedFile    `json:"rejected,omitempty" yaml:"rejected,omitempty"`
	Summary  *pipeline.Summary `json:"summary,omitempty" yaml:"summary,omitempty"`
	Exports  *exportReport     `json:"exports,omitempty" yaml:"exports,omitempty"`
	Pages    []pageReport      `json:"pages,omitempty" yaml:"pages,omitempty"`
}

type rejectedFile struct {
	File   string `json:"file" yaml:"file"`
	Reason string `json:"reason" yaml:"reason"`
}

type exportReport struct {
	Text string `json:"text" yaml:"text"`
	PDF  string `json:"pdf,omitempty" yaml:"pdf,omitempty"`
}

type pageReport struct {
	ID         int     `json:"id" yaml:"id"`
	Name       string  `json:"name" yaml:"name"`
	Status     string  `json:"status" yaml:"status"`
	Included   bool    `json:"included" yaml:"included"`
	Rotation   int     `json:"rotation,omitempty" yaml:"rotation,omitempty"`
	Confidence float64 `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	Language   string  `json:"language,omitempty" yaml:"language,omitempty"`
	Chars      int     `json:"chars" yaml:"chars"`
	Translated bool    `json:"translated,omitempty" yaml:"translated,omitempty"`
	Failure    string  `json:"failure,omitempty" yaml:"failure,omitempty"`
}

func rejected(res *ingest.Result) []rejectedFile {
	if res == nil {
		return nil
	}
	out := make([]rejectedFile, 0, len(res.Failures))
	for _, f := range res.Failures {
		out = append(out, rejectedFile{File: f.File, Reason: f.Reason})
	}
	return out
}

func pageReports(pages []page.Page) []pageReport {
	out := make([]pageReport, 0, len(pages))
	for _, p := range pages {
		failure := p.Failure
		if failure == "" {
			failure = p.TranslationFailure
		}
		out = append(out, pageReport{
			ID:         p.ID,
			Name:       p.Name,
			Status:     string(p.Status),
			Included:   p.IsIncluded,
			Rotation:   p.Rotation,
			Confidence: p.Confidence,
			Language:   p.DetectedLanguage,
			Chars:      len([]rune(p.RecognizedText)),
			Translated: p.TranslatedText != "",
			Failure:    failure,
		})
	}
	return out
}
