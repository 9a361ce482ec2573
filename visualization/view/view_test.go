package view

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"chatarchive/domain/config"
	domainservices "chatarchive/domain/services"
	"chatarchive/visualization/layout"
	"chatarchive/visualization/render"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(iterations int) *config.DomainConfig {
	cfg := config.DefaultDomainConfig()
	cfg.Layout.MaxIterations = iterations
	cfg.Render.FrameEvery = 5
	cfg.Render.FrameInterval = time.Hour
	return cfg
}

func triangle() domainservices.GraphData {
	return domainservices.GraphData{
		Nodes: []domainservices.GraphNode{
			{ID: "a", Label: "Alpha", ColorKey: "#10a37f"},
			{ID: "b", Label: "Beta", ColorKey: "#d97706"},
			{ID: "c", Label: "Gamma <c>", ColorKey: domainservices.DefaultColorKey},
		},
		Edges: []domainservices.GraphEdge{
			{SourceID: "a", TargetID: "b", Strength: 0.9},
			{SourceID: "b", TargetID: "c", Strength: 0.4},
		},
	}
}

func TestView_SteppingAndThrottledRenders(t *testing.T) {
	loop := NewManualLoop()
	v := New(triangle(), Options{Loop: loop, Config: testConfig(20), Width: 800, Height: 600})

	ticks := loop.RunUntilIdle(100)

	assert.Equal(t, 20, ticks, "one layout step per frame")
	assert.Equal(t, 20, v.Iteration())
	assert.Equal(t, layout.Settled, v.Phase())
	assert.Zero(t, loop.PendingFrames(), "no frames after settling")
	// initial render, four throttled renders over 19 mid-run steps, settle render
	assert.Equal(t, 6, v.Renders())
}

func TestView_EmptyGraphSettlesImmediately(t *testing.T) {
	loop := NewManualLoop()
	v := New(domainservices.GraphData{}, Options{Loop: loop, Config: testConfig(300)})

	loop.Tick()

	assert.Equal(t, layout.Settled, v.Phase())
	assert.Equal(t, 1, v.Renders())
	assert.Zero(t, loop.PendingFrames())
}

func TestView_CentersOnFocusedEntry(t *testing.T) {
	loop := NewManualLoop()
	v := New(triangle(), Options{Loop: loop, Config: testConfig(30), FocusedEntryID: "b", Width: 800, Height: 600})
	loop.RunUntilIdle(100)

	state := v.State()
	i := state.Index("b")
	require.GreaterOrEqual(t, i, 0)
	vp := v.Viewport()
	sx, sy := vp.WorldToScreen(state.X[i], state.Y[i])
	assert.InDelta(t, 400, sx, 1e-9)
	assert.InDelta(t, 300, sy, 1e-9)
	assert.Equal(t, "b", v.Selected())
}

func TestView_CloseCancelsPendingFrame(t *testing.T) {
	loop := NewManualLoop()
	var closes atomic.Int32
	v := New(triangle(), Options{
		Loop:    loop,
		Config:  testConfig(50),
		OnClose: func() { closes.Add(1) },
	})
	loop.Tick()
	require.Equal(t, 1, v.Iteration())
	require.Equal(t, 1, loop.PendingFrames())

	v.Close()
	v.Close()

	assert.Equal(t, int32(1), closes.Load())
	assert.Zero(t, loop.PendingFrames())

	v.ZoomIn()
	loop.RunUntilIdle(10)
	assert.Equal(t, 1, v.Iteration(), "no steps after close")
	assert.Equal(t, 1.0, v.Viewport().Zoom, "input after close is ignored")
	assert.Equal(t, layout.Simulating, v.Phase())
}

func TestView_PointerSelectsAndPans(t *testing.T) {
	loop := NewManualLoop()
	var picked []string
	v := New(triangle(), Options{
		Loop:          loop,
		Config:        testConfig(10),
		Width:         800,
		Height:        600,
		OnSelectEntry: func(id string) { picked = append(picked, id) },
	})
	loop.RunUntilIdle(100)

	state := v.State()
	i := state.Index("c")
	sx, sy := v.Viewport().WorldToScreen(state.X[i], state.Y[i])

	t.Run("click on node selects it", func(t *testing.T) {
		v.PointerDown(sx+2, sy-2)
		v.PointerUp()
		loop.RunUntilIdle(10)

		assert.Equal(t, []string{"c"}, picked)
		assert.Equal(t, "c", v.Selected())
	})

	t.Run("drag on empty canvas pans", func(t *testing.T) {
		before := v.Viewport()
		v.PointerDown(2, 2)
		v.PointerMove(12, 7)
		v.PointerMove(22, 12)
		v.PointerUp()
		v.PointerMove(100, 100)
		loop.RunUntilIdle(10)

		after := v.Viewport()
		assert.InDelta(t, before.OffsetX+20, after.OffsetX, 1e-9)
		assert.InDelta(t, before.OffsetY+10, after.OffsetY, 1e-9)
		assert.Len(t, picked, 1, "panning does not select")
	})
}

func TestView_ZoomControls(t *testing.T) {
	loop := NewManualLoop()
	cfg := testConfig(5)
	v := New(triangle(), Options{Loop: loop, Config: cfg})
	loop.RunUntilIdle(20)

	for range 20 {
		v.ZoomIn()
	}
	loop.RunUntilIdle(10)
	assert.Equal(t, cfg.Render.MaxZoom, v.Viewport().Zoom)

	for range 40 {
		v.ZoomOut()
	}
	loop.RunUntilIdle(10)
	assert.Equal(t, cfg.Render.MinZoom, v.Viewport().Zoom)

	v.PointerDown(1, 1)
	v.PointerMove(40, 40)
	v.ResetView()
	loop.RunUntilIdle(10)
	vp := v.Viewport()
	assert.Equal(t, 1.0, vp.Zoom)
	assert.Zero(t, vp.OffsetX)
	assert.Zero(t, vp.OffsetY)
}

func TestView_OnRenderReceivesSurface(t *testing.T) {
	loop := NewManualLoop()
	surface := render.NewSVGSurface(400, 300)
	var last string
	New(triangle(), Options{
		Loop:     loop,
		Config:   testConfig(3),
		Surface:  surface,
		OnRender: func(s render.Surface) { last = string(s.(*render.SVGSurface).Document()) },
	})
	loop.RunUntilIdle(10)

	assert.Contains(t, last, "Alpha")
	assert.Contains(t, last, "Gamma &lt;c&gt;")
}

func TestRenderSVG(t *testing.T) {
	doc := string(RenderSVG(triangle(), testConfig(40), "a", 640, 480))

	assert.True(t, strings.HasPrefix(doc, "<svg"))
	assert.Contains(t, doc, "Beta")
	assert.Equal(t, 3, strings.Count(doc, "<circle"))
}

func TestRenderSVG_UnusableCanvasFallsBackToDefault(t *testing.T) {
	cfg := testConfig(10)
	want := fmt.Sprintf(`width="%.2f" height="%.2f"`, cfg.Render.DefaultWidth, cfg.Render.DefaultHeight)

	for _, size := range []float64{0, -5, math.NaN(), math.Inf(1)} {
		doc := string(RenderSVG(triangle(), cfg, "", size, size))
		assert.Contains(t, doc, want, "size %v", size)
	}
}

func TestView_GoroutineLoop(t *testing.T) {
	closed := make(chan struct{})
	v := New(triangle(), Options{
		Config:  testConfig(5),
		OnClose: func() { close(closed) },
	})

	assert.Eventually(t, func() bool { return v.Phase() == layout.Settled }, 2*time.Second, 5*time.Millisecond)
	v.Close()

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("OnClose not called")
	}
}

func TestManualLoop_CancelledFramesDoNotRun(t *testing.T) {
	loop := NewManualLoop()
	ran := 0
	cancel := loop.RequestFrame(func() { ran++ })
	loop.RequestFrame(func() { ran++ })
	cancel()

	assert.Equal(t, 1, loop.PendingFrames())
	assert.True(t, loop.Tick())
	assert.Equal(t, 1, ran)
	assert.False(t, loop.Tick())
}
