package providers

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
)

// LanguageDetector guesses the language of recognized text.
type LanguageDetector interface {
	// Detect returns a lowercase ISO 639-1 code, or false when unsure.
	Detect(text string) (string, bool)
}

// minDetectRunes is the shortest text worth running detection on.
const minDetectRunes = 12

// LinguaDetector detects languages with lingua. Language models load lazily
// on first use. Low accuracy mode is enough for page-length text.
type LinguaDetector struct {
	once     sync.Once
	detector lingua.LanguageDetector
}

// NewLinguaDetector returns a detector over every language lingua knows.
func NewLinguaDetector() *LinguaDetector {
	return &LinguaDetector{}
}

func (d *LinguaDetector) Detect(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if len([]rune(text)) < minDetectRunes {
		return "", false
	}
	d.once.Do(func() {
		d.detector = lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			WithLowAccuracyMode().
			WithMinimumRelativeDistance(0.1).
			Build()
	})
	lang, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}

var (
	isoOnce    sync.Once
	iso3ToIso1 map[string]string
)

// canonicalLanguage reduces codes like "en-US", "EN", "eng" or "chi_sim"
// to a lowercase ISO 639-1 code when lingua knows the language.
func canonicalLanguage(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_+"); i > 0 {
		code = code[:i]
	}
	isoOnce.Do(func() {
		iso3ToIso1 = make(map[string]string)
		for _, l := range lingua.AllLanguages() {
			iso3ToIso1[strings.ToLower(l.IsoCode639_3().String())] = strings.ToLower(l.IsoCode639_1().String())
		}
		// Tesseract traineddata names that differ from ISO 639-3.
		iso3ToIso1["chi"] = "zh"
		iso3ToIso1["ger"] = "de"
		iso3ToIso1["fre"] = "fr"
	})
	if len(code) == 3 {
		if iso1, ok := iso3ToIso1[code]; ok {
			return iso1
		}
	}
	return code
}

// SameLanguage reports whether two language codes name the same language.
func SameLanguage(a, b string) bool {
	ca, cb := canonicalLanguage(a), canonicalLanguage(b)
	return ca != "" && ca == cb
}

var _ LanguageDetector = (*LinguaDetector)(nil)
