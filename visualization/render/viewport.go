package render

import "math"

// zoomStep is the factor applied by ZoomIn and ZoomOut.
const zoomStep = 1.2

// Viewport maps world coordinates to the screen: screen = world*Zoom + Offset.
type Viewport struct {
	Zoom    float64
	OffsetX float64
	OffsetY float64
	MinZoom float64
	MaxZoom float64
}

// NewViewport returns an identity viewport with the given zoom bounds
func NewViewport(minZoom, maxZoom float64) Viewport {
	return Viewport{Zoom: 1, MinZoom: minZoom, MaxZoom: maxZoom}
}

// ZoomIn scales up by one step
func (v *Viewport) ZoomIn() { v.SetZoom(v.Zoom * zoomStep) }

// ZoomOut scales down by one step
func (v *Viewport) ZoomOut() { v.SetZoom(v.Zoom / zoomStep) }

// SetZoom sets the zoom factor clamped to [MinZoom, MaxZoom]
func (v *Viewport) SetZoom(z float64) {
	v.Zoom = math.Min(math.Max(z, v.MinZoom), v.MaxZoom)
}

// Reset restores zoom 1 and offset (0,0)
func (v *Viewport) Reset() {
	v.Zoom = 1
	v.OffsetX, v.OffsetY = 0, 0
}

// Pan moves the view by a screen-space delta
func (v *Viewport) Pan(dx, dy float64) {
	v.OffsetX += dx
	v.OffsetY += dy
}

// ScreenToWorld inverts the transform
func (v Viewport) ScreenToWorld(sx, sy float64) (float64, float64) {
	return (sx - v.OffsetX) / v.Zoom, (sy - v.OffsetY) / v.Zoom
}

// WorldToScreen applies the transform
func (v Viewport) WorldToScreen(wx, wy float64) (float64, float64) {
	return wx*v.Zoom + v.OffsetX, wy*v.Zoom + v.OffsetY
}

// CenterOn pans so that the world point lands at the screen point
func (v *Viewport) CenterOn(wx, wy, sx, sy float64) {
	v.OffsetX = sx - wx*v.Zoom
	v.OffsetY = sy - wy*v.Zoom
}
