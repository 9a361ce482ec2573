package services

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// TextAnalyzer turns free text into a keyword set for lexical similarity.
type TextAnalyzer interface {
	// KeywordSet extracts the distinct significant words of text
	KeywordSet(text string) map[string]struct{}
}

// DefaultTextAnalyzer lower-cases, strips punctuation, splits on whitespace
// and drops short words and stop words.
type DefaultTextAnalyzer struct {
	stopWords map[string]struct{}
	minRunes  int
}

// NewDefaultTextAnalyzer creates an analyzer that keeps words of at least
// minRunes runes. Values below one fall back to four.
func NewDefaultTextAnalyzer(minRunes int) *DefaultTextAnalyzer {
	if minRunes < 1 {
		minRunes = 4
	}
	return &DefaultTextAnalyzer{
		stopWords: defaultStopWords(),
		minRunes:  minRunes,
	}
}

// KeywordSet extracts the distinct significant words of text
func (ta *DefaultTextAnalyzer) KeywordSet(text string) map[string]struct{} {
	keywords := make(map[string]struct{})
	for _, word := range strings.Fields(stripPunctuation(strings.ToLower(text))) {
		if utf8.RuneCountInString(word) < ta.minRunes {
			continue
		}
		if _, stop := ta.stopWords[word]; stop {
			continue
		}
		keywords[word] = struct{}{}
	}
	return keywords
}

// stripPunctuation removes every rune that is neither a letter, a digit,
// an underscore nor whitespace. "can't" becomes "cant", "e-mail" becomes "email".
func stripPunctuation(text string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_':
			return r
		case unicode.IsSpace(r):
			return ' '
		default:
			return -1
		}
	}, text)
}

// Jaccard returns |a ∩ b| / |a ∪ b|, or 0 when either set is empty.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	shared := 0
	for word := range small {
		if _, ok := large[word]; ok {
			shared++
		}
	}
	union := len(a) + len(b) - shared
	return float64(shared) / float64(union)
}

// truncateRunes returns at most n leading runes of s.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func defaultStopWords() map[string]struct{} {
	words := []string{
		"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for",
		"of", "with", "by", "from", "up", "about", "into", "through", "during",
		"is", "are", "was", "were", "be", "been", "being", "have", "has", "had",
		"do", "does", "did", "will", "would", "could", "should", "may", "might",
		"must", "can", "this", "that", "these", "those", "what", "which", "who",
		"when", "where", "why", "how", "there", "here", "then", "than", "them",
		"they", "their", "your", "yours", "mine", "ours", "also", "just", "very",
		"some", "such", "only", "other", "more", "most", "over", "under", "again",
		"into", "onto", "upon", "each", "both", "either", "neither", "whether",
		"while", "because", "without", "within", "like", "want", "need", "make",
		"please", "thanks", "thank", "hello", "okay",
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
