package services

import (
	"sort"
	"strings"
	"unicode/utf8"

	"chatarchive/domain/core/entities"
	"chatarchive/domain/core/valueobjects"
)

// DefaultColorKey is used for unknown or empty source labels.
const DefaultColorKey = "#94a3b8"

// sourcePalette maps lower-cased source labels to fixed colors so the same
// source is drawn the same way in every session.
var sourcePalette = map[string]string{
	"chatgpt":    "#10a37f",
	"openai":     "#10a37f",
	"claude":     "#d97757",
	"anthropic":  "#d97757",
	"gemini":     "#4285f4",
	"bard":       "#4285f4",
	"copilot":    "#7f5af0",
	"perplexity": "#20808d",
	"mistral":    "#ff7000",
	"llama":      "#0668e1",
	"deepseek":   "#4d6bfe",
	"grok":       "#111827",
}

// ColorKeyFor returns the palette color of a source label.
func ColorKeyFor(sourceLabel string) string {
	if c, ok := sourcePalette[strings.ToLower(strings.TrimSpace(sourceLabel))]; ok {
		return c
	}
	return DefaultColorKey
}

// GraphNode is a positionless node ready for layout.
type GraphNode struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	ColorKey    string `json:"colorKey"`
	SourceLabel string `json:"sourceLabel"`
}

// GraphEdge is a relationship projected for layout and drawing.
type GraphEdge struct {
	SourceID string                        `json:"sourceId"`
	TargetID string                        `json:"targetId"`
	Strength float64                       `json:"strength"`
	Kind     valueobjects.RelationshipKind `json:"kind"`
}

// GraphData is the renderer-ready dataset.
type GraphData struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// GraphProjector converts stored entries and relationships into GraphData.
type GraphProjector struct {
	labelRunes int
}

// NewGraphProjector creates a projector truncating labels to labelRunes runes.
// Zero or negative keeps full titles.
func NewGraphProjector(labelRunes int) *GraphProjector {
	return &GraphProjector{labelRunes: labelRunes}
}

// Project builds one node per entry and one edge per relationship.
// Mirrored rows collapse to a single edge and edges to absent entries are dropped.
func (p *GraphProjector) Project(entries []*entities.Entry, relationships []entities.Relationship) GraphData {
	data := GraphData{
		Nodes: make([]GraphNode, 0, len(entries)),
		Edges: make([]GraphEdge, 0, len(relationships)),
	}

	known := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if _, dup := known[e.ID()]; dup {
			continue
		}
		known[e.ID()] = struct{}{}
		data.Nodes = append(data.Nodes, GraphNode{
			ID:          e.ID(),
			Label:       TruncateLabel(e.Title(), p.labelRunes),
			ColorKey:    ColorKeyFor(e.SourceLabel()),
			SourceLabel: e.SourceLabel(),
		})
	}

	seen := make(map[[2]string]struct{}, len(relationships))
	for _, r := range relationships {
		if _, ok := known[r.SourceID]; !ok {
			continue
		}
		if _, ok := known[r.TargetID]; !ok {
			continue
		}
		a, b := entities.PairKey(r.SourceID, r.TargetID)
		key := [2]string{a, b}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		data.Edges = append(data.Edges, GraphEdge{
			SourceID: a,
			TargetID: b,
			Strength: r.Score.Float64(),
			Kind:     r.Kind,
		})
	}

	sort.Slice(data.Nodes, func(i, j int) bool { return data.Nodes[i].ID < data.Nodes[j].ID })
	sort.Slice(data.Edges, func(i, j int) bool {
		if data.Edges[i].SourceID != data.Edges[j].SourceID {
			return data.Edges[i].SourceID < data.Edges[j].SourceID
		}
		return data.Edges[i].TargetID < data.Edges[j].TargetID
	})
	return data
}

// TruncateLabel shortens s to at most n runes, ending with an ellipsis.
func TruncateLabel(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return truncateRunes(s, n-1) + "…"
}
