// Package reconstructor classifies carved byte blobs, cleans their text, extracts embedded
// video links, and scores how likely the blob is a real recovered file.
package reconstructor

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/I0633852860/ultimate-recovery-temp/models"
)

var (
	nulRun      = regexp.MustCompile(`\x00{2,}`)
	spaceRun    = regexp.MustCompile(` +`)
	newlineRun  = regexp.MustCompile(`\n+`)
	videoLink   = regexp.MustCompile(`(?:https?://)?(?:www\.)?(?:youtube\.com/watch\?v=|youtu\.be/)([a-zA-Z0-9_-]{11})`)
	htmlMarkers = []string{"<html", "<body", "<div"}
)

// CleanText decodes data with the first encoding that accepts it (UTF-8, UTF-16LE,
// Windows-1251, then lossy UTF-8) and strips everything that is not printable ASCII,
// Cyrillic, or line structure.
func CleanText(data []byte) string {
	if len(data) == 0 {
		return ""
	}

	text := decode(data)
	text = nulRun.ReplaceAllString(text, "\n")

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if isPrintable(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}

	cleaned := spaceRun.ReplaceAllString(b.String(), " ")
	cleaned = newlineRun.ReplaceAllString(cleaned, "\n")
	return strings.TrimSpace(cleaned)
}

func decode(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	if len(data)%2 == 0 {
		if out, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(data); err == nil && utf8.Valid(out) && !strings.ContainsRune(string(out), utf8.RuneError) {
			return string(out)
		}
	}
	if out, err := charmap.Windows1251.NewDecoder().Bytes(data); err == nil && !strings.ContainsRune(string(out), utf8.RuneError) {
		return string(out)
	}
	return strings.ToValidUTF8(string(data), string(utf8.RuneError))
}

func isPrintable(r rune) bool {
	switch {
	case r >= 0x20 && r <= 0x7E:
		return true
	case r >= 0x0400 && r <= 0x04FF:
		return true
	case r == '\n' || r == '\r' || r == '\t':
		return true
	}
	return false
}

// decodeIgnoringErrors drops invalid UTF-8 bytes instead of replacing them.
func decodeIgnoringErrors(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	var b strings.Builder
	b.Grow(len(data))
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r != utf8.RuneError || size > 1 {
			b.WriteRune(r)
		}
		data = data[size:]
	}
	return b.String()
}

// DetectFileType classifies data by structure and markers.
func DetectFileType(data []byte) models.FileType {
	text := strings.TrimSpace(decodeIgnoringErrors(data))
	if text == "" {
		return models.FileTypeUnknown
	}

	if strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[") {
		if json.Valid([]byte(text)) {
			return models.FileTypeJSON
		}
		if strings.Count(text, `"`) > 4 && strings.Count(text, ":") > 1 {
			return models.FileTypeJSON
		}
	}

	lower := strings.ToLower(text)
	for _, marker := range htmlMarkers {
		if strings.Contains(lower, marker) {
			return models.FileTypeHTML
		}
	}

	if strings.Count(text, ",") > 5 && strings.Count(text, "\n") > 1 {
		return models.FileTypeCSV
	}

	return models.FileTypeTXT
}

func isIDChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '-'
}

// ExtractLinks returns the distinct video ids referenced in text, in order of first
// appearance. An id immediately followed by another id character is a partial match and
// is skipped.
func ExtractLinks(text string) []string {
	matches := videoLink.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	var ids []string
	for _, m := range matches {
		end := m[1]
		if end < len(text) && isIDChar(text[end]) {
			continue
		}
		id := text[m[2]:m[3]]
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// ExtractLinksFromBytes cleans data and extracts the video ids it references.
func ExtractLinksFromBytes(data []byte) []string {
	return ExtractLinks(CleanText(data))
}

// Reconstruct validates one byte sequence and scores it.
func Reconstruct(data []byte) models.ReconstructedFile {
	fileType := DetectFileType(data)
	cleaned := CleanText(data)
	links := ExtractLinks(cleaned)

	isValid, confidence := score(fileType, cleaned, len(links))

	return models.ReconstructedFile{
		FileType:      fileType,
		IsValid:       isValid,
		Confidence:    confidence,
		CleanedText:   cleaned,
		Links:         links,
		SuggestedName: SuggestName(cleaned, fileType),
		Size:          len(data),
	}
}

func score(fileType models.FileType, cleaned string, linkCount int) (bool, float64) {
	switch fileType {
	case models.FileTypeJSON:
		if json.Valid([]byte(cleaned)) {
			return true, 100
		}
		if linkCount > 0 {
			return true, min(90, 30+10*float64(linkCount))
		}
		return false, 0
	case models.FileTypeHTML:
		if strings.Contains(strings.ToLower(cleaned), "</html>") || linkCount > 2 {
			return true, 80
		}
		return false, 0
	}
	if linkCount > 0 {
		return true, min(95, 50+float64(linkCount))
	}
	return false, 0
}

// ComputeChunkSize picks how many bytes of data to keep for a single-window candidate.
// It is a plain clamp: data no longer than minSize is kept whole, anything else is capped
// at maxSize.
func ComputeChunkSize(data []byte, minSize, maxSize int) int {
	if len(data) <= minSize {
		return len(data)
	}
	return min(len(data), maxSize)
}
