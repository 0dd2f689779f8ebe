package detector

import (
	"net/url"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"
	"github.com/pemistahl/lingua-go"

	"github.com/I0633852860/ultimate-recovery-temp/models"
)

// minLanguageRunes is the shortest text handed to language detection.
const minLanguageRunes = 20

// recoveredURL stands in for the page URL readability wants; recovered HTML has none.
var recoveredURL = &url.URL{Scheme: "file", Path: "/recovered"}

var (
	detectorOnce sync.Once
	langDetector lingua.LanguageDetector
)

// languageDetector builds the lingua detector on first use. Loading models is slow,
// so the detector is shared by all callers.
func languageDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		langDetector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(lingua.English, lingua.Russian).
			Build()
	})
	return langDetector
}

// EnrichedMetadata is what can be learned about a recovered file's text without
// any network access.
type EnrichedMetadata struct {
	Language           string  // ISO 639-1, lowercase; empty when undetermined
	LanguageConfidence float64 // 0-1

	// Readability enrichment, HTML only
	Title    string
	Excerpt  string
	SiteName string
}

// Enrich analyzes cleaned text recovered as fileType.
func Enrich(cleaned string, fileType models.FileType) *EnrichedMetadata {
	em := &EnrichedMetadata{}
	em.Language, em.LanguageConfidence = DetectLanguage(cleaned)

	if fileType == models.FileTypeHTML {
		em.readArticle(cleaned)
	}
	return em
}

// DetectLanguage returns the ISO 639-1 code of text and the detector's confidence.
// Text shorter than minLanguageRunes is not classified.
func DetectLanguage(text string) (string, float64) {
	if utf8.RuneCountInString(text) < minLanguageRunes {
		return "", 0
	}
	d := languageDetector()
	lang, ok := d.DetectLanguageOf(text)
	if !ok {
		return "", 0
	}
	return strings.ToLower(lang.IsoCode639_1().String()), d.ComputeLanguageConfidence(text, lang)
}

func (em *EnrichedMetadata) readArticle(html string) {
	parser := readability.NewParser()
	article, err := parser.Parse(strings.NewReader(html), recoveredURL)
	if err != nil {
		return
	}
	em.Title = strings.TrimSpace(article.Title)
	em.Excerpt = strings.TrimSpace(article.Excerpt)
	em.SiteName = strings.TrimSpace(article.SiteName)
}
