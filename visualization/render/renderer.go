package render

import (
	"math"

	"chatarchive/domain/config"
	domainservices "chatarchive/domain/services"
	"chatarchive/visualization/layout"
)

const (
	// NodeRadius is the drawn radius of an unselected node.
	NodeRadius = 8.0
	// SelectedRadius is the drawn radius of the selected node.
	SelectedRadius = 12.0
	// PickSlack widens the hit area beyond the node radius.
	PickSlack = 4.0

	background   = "#0f172a"
	edgeColor    = "#cbd5e1"
	manualColor  = "#facc15"
	labelColor   = "#e2e8f0"
	outlineColor = "#ffffff"
	labelSize    = 11.0
)

// Frame is everything needed to draw one picture
type Frame struct {
	Graph    domainservices.GraphData
	State    layout.State
	Viewport Viewport
	Selected string
}

// Renderer draws frames
type Renderer struct {
	labelRunes int
	labels     map[string]string
	colors     map[string]string
}

// NewRenderer creates a renderer for one graph. Labels and colors are
// resolved once.
func NewRenderer(cfg config.RenderConfig, graph domainservices.GraphData) *Renderer {
	r := &Renderer{
		labelRunes: cfg.LabelRunes,
		labels:     make(map[string]string, len(graph.Nodes)),
		colors:     make(map[string]string, len(graph.Nodes)),
	}
	for _, n := range graph.Nodes {
		r.labels[n.ID] = domainservices.TruncateLabel(n.Label, r.labelRunes)
		r.colors[n.ID] = n.ColorKey
	}
	return r
}

// Draw clears the surface and paints edges, nodes and labels in that order
func (r *Renderer) Draw(s Surface, f Frame) {
	s.Clear(background)
	s.SetTransform(f.Viewport.Zoom, f.Viewport.OffsetX, f.Viewport.OffsetY)

	pos := make(map[string]int, f.State.Len())
	for i, id := range f.State.IDs {
		pos[id] = i
	}

	for _, e := range f.Graph.Edges {
		a, okA := pos[e.SourceID]
		b, okB := pos[e.TargetID]
		if !okA || !okB {
			continue
		}
		color := edgeColor
		if e.Kind.IsManual() {
			color = manualColor
		}
		s.Line(f.State.X[a], f.State.Y[a], f.State.X[b], f.State.Y[b], EdgeStroke(color, e.Strength))
	}

	for i, id := range f.State.IDs {
		radius := NodeRadius
		var outline *Stroke
		if id == f.Selected {
			radius = SelectedRadius
			outline = &Stroke{Color: outlineColor, Width: 2, Opacity: 1}
		}
		color := r.colors[id]
		if color == "" {
			color = domainservices.DefaultColorKey
		}
		s.Circle(f.State.X[i], f.State.Y[i], radius, Fill{Color: color, Opacity: 1}, outline)
	}

	for i, id := range f.State.IDs {
		radius := NodeRadius
		if id == f.Selected {
			radius = SelectedRadius
		}
		s.Text(f.State.X[i], f.State.Y[i]-radius-4, r.labels[id], TextStyle{Color: labelColor, Size: labelSize})
	}
}

// EdgeStroke scales width and opacity with strength
func EdgeStroke(color string, strength float64) Stroke {
	strength = math.Min(math.Max(strength, 0), 1)
	return Stroke{Color: color, Width: 1 + 3*strength, Opacity: 0.2 + 0.6*strength}
}

// Pick returns the node nearest to the screen point within the pick radius
func Pick(state layout.State, vp Viewport, sx, sy float64) (string, bool) {
	wx, wy := vp.ScreenToWorld(sx, sy)
	best, bestDist := -1, NodeRadius+PickSlack
	for i := range state.IDs {
		d := math.Hypot(state.X[i]-wx, state.Y[i]-wy)
		if d <= bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return "", false
	}
	return state.IDs[best], true
}
