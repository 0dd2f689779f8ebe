package reconstructor

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/I0633852860/ultimate-recovery-temp/models"
)

const (
	defaultBaseName  = "recovered_file"
	defaultCategory  = "GENERAL"
	maxBaseNameRunes = 50
)

var jsonTitle = regexp.MustCompile(`(?i)["']title["']\s*:\s*["']([^"']+)["']`)

type category struct {
	name     string
	keywords []string
}

// Checked in order; the first category with a keyword present wins.
var categories = []category{
	{name: "ВЕБИНАР", keywords: []string{"вебинар", "webinar", "online", "трансляция"}},
	{name: "РАЗБОР", keywords: []string{"разбор", "анализ", "review", "tutorial"}},
	{name: "ДОПОЛНИТЕЛЬНЫЙ", keywords: []string{"доп", "extra", "additional", "bonus"}},
	{name: "КУРС", keywords: []string{"курс", "course", "lesson", "урок"}},
}

// SuggestName derives a "{CATEGORY}_{title}.{ext}" name from cleaned text.
func SuggestName(cleaned string, fileType models.FileType) string {
	base := sanitizeName(extractTitle(cleaned))
	if base == "" {
		base = defaultBaseName
	}
	return fmt.Sprintf("%s_%s.%s", Categorize(cleaned), base, extension(fileType))
}

// Categorize returns the content category for text by keyword search.
func Categorize(text string) string {
	lower := strings.ToLower(text)
	for _, c := range categories {
		for _, kw := range c.keywords {
			if strings.Contains(lower, kw) {
				return c.name
			}
		}
	}
	return defaultCategory
}

func extractTitle(text string) string {
	if m := jsonTitle.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if !strings.Contains(strings.ToLower(text), "<title") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func sanitizeName(title string) string {
	var b strings.Builder
	n := 0
	for _, r := range title {
		if n == maxBaseNameRunes {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '_' || r == '-' {
			b.WriteRune(r)
			n++
		}
	}
	return strings.TrimSpace(b.String())
}

func extension(t models.FileType) string {
	if t == "" {
		return string(models.FileTypeUnknown)
	}
	return string(t)
}
