package main

import (
	"log/slog"
	"os"

	"github.com/jackzampolin/snaptranslate/internal/config"
	"github.com/jackzampolin/snaptranslate/internal/home"
	"github.com/jackzampolin/snaptranslate/internal/ingest"
	"github.com/jackzampolin/snaptranslate/internal/pipeline"
	"github.com/jackzampolin/snaptranslate/internal/providers"
	"github.com/jackzampolin/snaptranslate/internal/session"
)

// app is the wiring shared by run and watch.
type app struct {
	home      *home.Dir
	config    *config.Manager
	overrides func(*config.Config)
	providers *providers.Registry
	logger    *slog.Logger
}

// newApp loads config and builds providers. overrides applies command-line
// flags on top of every config snapshot, including hot reloads.
func newApp(logger *slog.Logger, overrides func(*config.Config)) (*app, error) {
	h, mgr, err := loadConfig(logger)
	if err != nil {
		return nil, err
	}
	a := &app{home: h, config: mgr, overrides: overrides, logger: logger}
	reg, err := providers.NewRegistryFromConfig(a.current().ToProviderRegistryConfig(), logger)
	if err != nil {
		return nil, err
	}
	a.providers = reg
	return a, nil
}

// current returns a copy of the live config with flag overrides applied.
func (a *app) current() *config.Config {
	cfg := *a.config.Get()
	if a.overrides != nil {
		a.overrides(&cfg)
	}
	return &cfg
}

// newSession builds a session from cfg. The language detector is only
// loaded when same-language skipping is on or --detect is set.
func (a *app) newSession(cfg *config.Config, flags runFlags) *session.Session {
	exportDir := cfg.Export.Dir
	if exportDir == "" {
		exportDir = a.home.ExportsDir()
	}

	var detector providers.LanguageDetector
	if flags.detect || cfg.Translation.SkipSameLanguage {
		detector = providers.NewLinguaDetector()
	}

	return session.New(session.Config{
		Providers:   a.providers,
		Detector:    detector,
		Observer:    a.observer(flags.progress),
		Rasterizer:  ingest.NewPDFRasterizer(cfg.Ingest.Pdftoppm, cfg.Ingest.DPI),
		MaxFileSize: cfg.MaxFileSize(),
		MaxWorkers:  cfg.Ingest.MaxWorkers,
		ExportDir:   exportDir,
		TextFile:    cfg.Export.TextFile,
		PDFFile:     cfg.Export.PDFFile,
		Logger:      a.logger,
	})
}

// observer always logs run events; progress adds a line per step on stderr.
func (a *app) observer(progress bool) pipeline.Observer {
	logged := pipeline.LogObserver{Logger: a.logger}
	if !progress {
		return logged
	}
	return pipeline.Observers{logged, progressPrinter{w: os.Stderr}}
}
