package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}

func TestKeywordSet(t *testing.T) {
	analyzer := NewDefaultTextAnalyzer(4)

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "drops short words and stop words",
			text: "Building dashboards with React and Go",
			want: []string{"building", "dashboards", "react"},
		},
		{
			name: "strips punctuation inside and around words",
			text: "Don't re-render (again)! Hooks, hooks; HOOKS.",
			want: []string{"dont", "rerender", "hooks"},
		},
		{
			name: "splits on any whitespace",
			text: "vector\tsearch\nindex",
			want: []string{"vector", "search", "index"},
		},
		{
			name: "counts runes not bytes",
			text: "café über naïve",
			want: []string{"café", "über", "naïve"},
		},
		{
			name: "empty text",
			text: "   ",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ElementsMatch(t, tt.want, keys(analyzer.KeywordSet(tt.text)))
		})
	}
}

func TestJaccard(t *testing.T) {
	set := func(words ...string) map[string]struct{} {
		s := make(map[string]struct{}, len(words))
		for _, w := range words {
			s[w] = struct{}{}
		}
		return s
	}

	assert.Equal(t, 0.0, Jaccard(set(), set("a")))
	assert.Equal(t, 1.0, Jaccard(set("a", "b"), set("b", "a")))
	assert.InDelta(t, 1.0/3.0, Jaccard(set("a", "b"), set("b", "c")), 1e-12)
	assert.Equal(t, Jaccard(set("a", "b", "c"), set("c")), Jaccard(set("c"), set("a", "b", "c")))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "héll", truncateRunes("héllo", 4))
	assert.Equal(t, "héllo", truncateRunes("héllo", 10))
	assert.Equal(t, "", truncateRunes("héllo", 0))
}
