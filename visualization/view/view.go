// Package view drives an interactive graph session: it steps the layout one
// frame at a time on a cooperative loop, renders at a throttled rate, and
// turns pointer input into selection, pan and zoom.
package view

import (
	"math"
	"sync"
	"time"

	"chatarchive/domain/config"
	domainservices "chatarchive/domain/services"
	"chatarchive/visualization/layout"
	"chatarchive/visualization/render"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// defaultFrameDelay paces layout steps on a GoroutineLoop.
const defaultFrameDelay = time.Second / 60

// Options configures a View
type Options struct {
	OnClose        func()
	OnSelectEntry  func(entryID string)
	FocusedEntryID string
	Width          float64
	Height         float64

	// Loop defaults to a GoroutineLoop owned and stopped by the view.
	Loop Loop
	// Surface defaults to an SVGSurface of Width x Height.
	Surface render.Surface
	// OnRender is called on the loop after each render, with the view locked.
	// It must not call back into the view.
	OnRender func(render.Surface)
	Config   *config.DomainConfig
	Logger   *zap.Logger
}

// View is one visualization session
type View struct {
	mu sync.Mutex

	opts      Options
	graph     domainservices.GraphData
	loop      Loop
	ownLoop   *GoroutineLoop
	surface   render.Surface
	sim       *layout.Simulator
	renderer  *render.Renderer
	viewport  render.Viewport
	throttle  *rate.Sometimes
	logger    *zap.Logger
	selected  string
	renders   int
	closed    bool
	closeOnce sync.Once
	cancel    func()

	dragging     bool
	lastX, lastY float64
}

// New creates a view and schedules the layout to start on the loop
func New(graph domainservices.GraphData, opts Options) *View {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if opts.Width <= 0 {
		opts.Width = cfg.Render.DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = cfg.Render.DefaultHeight
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	v := &View{
		opts:     opts,
		graph:    graph,
		loop:     opts.Loop,
		surface:  opts.Surface,
		sim:      layout.NewSimulator(layout.ParamsFrom(cfg.Layout)),
		renderer: render.NewRenderer(cfg.Render, graph),
		viewport: render.NewViewport(cfg.Render.MinZoom, cfg.Render.MaxZoom),
		throttle: &rate.Sometimes{Every: cfg.Render.FrameEvery, Interval: cfg.Render.FrameInterval},
		logger:   logger,
		selected: opts.FocusedEntryID,
	}
	if v.loop == nil {
		v.ownLoop = NewGoroutineLoop(defaultFrameDelay)
		v.loop = v.ownLoop
	}
	if v.surface == nil {
		v.surface = render.NewSVGSurface(opts.Width, opts.Height)
	}

	v.loop.Post(v.start)
	return v
}

func (v *View) start() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.sim.Start(v.graph, v.opts.Width, v.opts.Height)
	v.logger.Debug("Layout started",
		zap.Int("nodes", len(v.graph.Nodes)),
		zap.Int("edges", len(v.graph.Edges)),
	)
	if v.sim.Phase() == layout.Settled {
		v.settleLocked()
		return
	}
	v.renderLocked()
	v.cancel = v.loop.RequestFrame(v.step)
}

// step runs one simulation step per frame and requests the next frame until
// the simulation settles.
func (v *View) step() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cancel = nil
	if v.closed {
		return
	}
	if !v.sim.Advance() {
		v.settleLocked()
		return
	}
	v.throttle.Do(v.renderLocked)
	v.cancel = v.loop.RequestFrame(v.step)
}

func (v *View) settleLocked() {
	if v.opts.FocusedEntryID != "" {
		state := v.sim.State()
		if i := state.Index(v.opts.FocusedEntryID); i >= 0 {
			v.viewport.CenterOn(state.X[i], state.Y[i], v.opts.Width/2, v.opts.Height/2)
		}
	}
	v.logger.Debug("Layout settled", zap.Int("iterations", v.sim.Iteration()))
	v.renderLocked()
}

func (v *View) renderLocked() {
	v.renderer.Draw(v.surface, render.Frame{
		Graph:    v.graph,
		State:    v.sim.State(),
		Viewport: v.viewport,
		Selected: v.selected,
	})
	v.renders++
	if v.opts.OnRender != nil {
		v.opts.OnRender(v.surface)
	}
}

// PointerDown selects the node under the pointer, or starts a pan-drag on
// empty canvas.
func (v *View) PointerDown(sx, sy float64) {
	v.loop.Post(func() {
		v.mu.Lock()
		if v.closed {
			v.mu.Unlock()
			return
		}
		id, hit := render.Pick(v.sim.State(), v.viewport, sx, sy)
		if hit {
			v.selected = id
		} else {
			v.dragging = true
			v.lastX, v.lastY = sx, sy
		}
		v.renderLocked()
		onSelect := v.opts.OnSelectEntry
		v.mu.Unlock()

		if hit && onSelect != nil {
			onSelect(id)
		}
	})
}

// PointerMove pans while dragging
func (v *View) PointerMove(sx, sy float64) {
	v.interact(func() {
		if !v.dragging {
			return
		}
		v.viewport.Pan(sx-v.lastX, sy-v.lastY)
		v.lastX, v.lastY = sx, sy
		v.renderLocked()
	})
}

// PointerUp ends a drag
func (v *View) PointerUp() {
	v.interact(func() { v.dragging = false })
}

// ZoomIn scales the view up one step
func (v *View) ZoomIn() {
	v.interact(func() { v.viewport.ZoomIn(); v.renderLocked() })
}

// ZoomOut scales the view down one step
func (v *View) ZoomOut() {
	v.interact(func() { v.viewport.ZoomOut(); v.renderLocked() })
}

// ResetView restores zoom 1 and offset (0,0)
func (v *View) ResetView() {
	v.interact(func() { v.viewport.Reset(); v.renderLocked() })
}

func (v *View) interact(fn func()) {
	v.loop.Post(func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		if !v.closed {
			fn()
		}
	})
}

// Close cancels the pending frame and fires OnClose once. Later callbacks
// are ignored.
func (v *View) Close() {
	v.closeOnce.Do(func() {
		v.mu.Lock()
		v.closed = true
		if v.cancel != nil {
			v.cancel()
			v.cancel = nil
		}
		v.mu.Unlock()

		if v.ownLoop != nil {
			v.ownLoop.Stop()
		}
		if v.opts.OnClose != nil {
			v.opts.OnClose()
		}
	})
}

// Phase reports the layout phase
func (v *View) Phase() layout.Phase {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sim.Phase()
}

// Selected returns the selected entry id, if any
func (v *View) Selected() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.selected
}

// Viewport returns a copy of the current viewport
func (v *View) Viewport() render.Viewport {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.viewport
}

// State returns a copy of the current node positions
func (v *View) State() layout.State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sim.State().Clone()
}

// Renders counts frames drawn so far
func (v *View) Renders() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.renders
}

// Iteration returns the number of layout steps taken
func (v *View) Iteration() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sim.Iteration()
}

func usableDimension(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// RenderSVG lays graph out to completion without a live loop and returns the
// settled picture.
func RenderSVG(graph domainservices.GraphData, cfg *config.DomainConfig, focus string, width, height float64) []byte {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if !usableDimension(width) {
		width = cfg.Render.DefaultWidth
	}
	if !usableDimension(height) {
		height = cfg.Render.DefaultHeight
	}
	loop := NewManualLoop()
	surface := render.NewSVGSurface(width, height)
	v := New(graph, Options{
		FocusedEntryID: focus,
		Width:          width,
		Height:         height,
		Loop:           loop,
		Surface:        surface,
		Config:         cfg,
	})
	loop.RunUntilIdle(cfg.Layout.MaxIterations + 2)
	v.Close()
	return surface.Document()
}
