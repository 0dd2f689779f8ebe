package analytics

import (
	"sort"
	"strings"
	"unicode"
)

type Analytics struct{}

// stopwords are ignored in frequency analysis. Recovered text is mostly English or
// Russian, with link residue from the carved pages.
var stopwords = buildStopwords(
	// English
	`a about above after again against all almost also although always am among an and
	another any are around as at back be because been before being below between both but by
	can cannot could did do does doing done down during each either else enough even ever every
	few for from further had has have having he her here hers him his how however i if in into is
	it its itself just last least less let like made make many may me might more most much must my
	neither never next no nor not nothing now of off often on once one only onto or other our ours
	out over own per perhaps please rather same see she should since so some still such than that
	the their them then there these they this those through thus to too toward under until up upon
	us use very via was we well were what when where whether which while who whom whose why will
	with within without would yet you your yours`,
	// Russian
	`а без более бы был была были было быть в вам вас весь во вот все всего всех вы где да даже
	для до его ее если есть еще же за здесь и из или им их к как ко когда кто ли либо между меня
	мне может мы на над надо наш не него нее нет ни них но ну о об однако он она они оно от очень
	по под после при про с со так также такой там те тем то того тоже той только том ты у уже
	хотя чего чей чем что чтобы чье эта эти это этот я`,
	// Link and markup residue
	`http https www com ru be youtu youtube watch html json div span href nbsp amp quot`,
)

func buildStopwords(lists ...string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, list := range lists {
		for _, w := range strings.Fields(list) {
			words[w] = struct{}{}
		}
	}
	return words
}

// IsStopword checks if a word is a common stopword that should be filtered out.
func IsStopword(word string) bool {
	_, exists := stopwords[strings.ToLower(word)]
	return exists
}

// WordFrequency counts words of at least two letters in text, skipping stopwords.
// Words are runs of letters and digits in any script.
func (a *Analytics) WordFrequency(text string) map[string]int {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	frequencies := make(map[string]int)

	for _, word := range words {
		if len([]rune(word)) < 2 || isNumber(word) {
			continue
		}
		if _, exists := stopwords[word]; exists {
			continue
		}
		frequencies[word]++
	}

	return frequencies
}

func isNumber(word string) bool {
	for _, r := range word {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

type wordCount struct {
	Word  string
	Count int
}

// TopNWords returns the n most frequent words, ties broken alphabetically.
func (a *Analytics) TopNWords(text string, n int) []string {
	frequencies := a.WordFrequency(text)

	counts := make([]wordCount, 0, len(frequencies))
	for k, v := range frequencies {
		counts = append(counts, wordCount{k, v})
	}

	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Word < counts[j].Word
	})

	limit := min(n, len(counts))
	topN := make([]string, limit)
	for i := 0; i < limit; i++ {
		topN[i] = counts[i].Word
	}

	return topN
}
