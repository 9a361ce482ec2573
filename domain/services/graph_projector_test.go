package services

import (
	"testing"
	"time"

	"chatarchive/domain/core/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColorKeyFor(t *testing.T) {
	assert.Equal(t, ColorKeyFor("ChatGPT"), ColorKeyFor("chatgpt"))
	assert.Equal(t, ColorKeyFor("Claude"), ColorKeyFor(" CLAUDE "))
	assert.NotEqual(t, ColorKeyFor("Claude"), ColorKeyFor("Gemini"))
	assert.Equal(t, DefaultColorKey, ColorKeyFor("SomethingNew"))
	assert.Equal(t, DefaultColorKey, ColorKeyFor(""))
}

func TestGraphProjector_Project(t *testing.T) {
	// Arrange
	e1 := entry("e1", "ChatGPT", "A very long conversation title about graphs", "", nil, "")
	e2 := entry("e2", "Claude", "Short", "", nil, "")
	e3 := entry("e3", "Unknown", "Third", "", nil, "")

	pair, err := entities.NewDetectedPair("e1", "e2", 0.64, time.Now())
	require.NoError(t, err)
	dangling, err := entities.NewDetectedPair("e3", "gone", 0.9, time.Now())
	require.NoError(t, err)

	rels := []entities.Relationship{pair.Forward(), pair.Reverse(), dangling.Forward()}

	// Act
	data := NewGraphProjector(10).Project([]*entities.Entry{e2, e1, e3}, rels)

	// Assert
	require.Len(t, data.Nodes, 3)
	assert.Equal(t, "e1", data.Nodes[0].ID)
	assert.Equal(t, "A very lo…", data.Nodes[0].Label)
	assert.Equal(t, ColorKeyFor("ChatGPT"), data.Nodes[0].ColorKey)
	assert.Equal(t, DefaultColorKey, data.Nodes[2].ColorKey)

	require.Len(t, data.Edges, 1, "mirrored rows collapse and dangling edges drop")
	assert.Equal(t, "e1", data.Edges[0].SourceID)
	assert.Equal(t, "e2", data.Edges[0].TargetID)
	assert.Equal(t, 0.64, data.Edges[0].Strength)
}

func TestGraphProjector_Empty(t *testing.T) {
	data := NewGraphProjector(0).Project(nil, nil)
	assert.Empty(t, data.Nodes)
	assert.Empty(t, data.Edges)
	assert.NotNil(t, data.Nodes)
}

func TestTruncateLabel(t *testing.T) {
	assert.Equal(t, "hello", TruncateLabel("hello", 5))
	assert.Equal(t, "hell…", TruncateLabel("hello!", 5))
	assert.Equal(t, "…", TruncateLabel("hello", 1))
	assert.Equal(t, "hello", TruncateLabel("hello", 0))
}
