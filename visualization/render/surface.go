// Package render draws a laid-out graph onto an abstract surface and owns
// the pan/zoom/pick geometry.
package render

import (
	"fmt"
	"html"
	"strconv"
	"strings"
)

// Stroke describes a line or outline
type Stroke struct {
	Color   string
	Width   float64
	Opacity float64
}

// Fill describes a shape interior
type Fill struct {
	Color   string
	Opacity float64
}

// TextStyle describes a label
type TextStyle struct {
	Color string
	Size  float64
}

// Surface is anything the renderer can draw on. Coordinates passed after
// SetTransform are world coordinates.
type Surface interface {
	Clear(color string)
	SetTransform(scale, tx, ty float64)
	Line(x1, y1, x2, y2 float64, stroke Stroke)
	Circle(cx, cy, r float64, fill Fill, outline *Stroke)
	Text(x, y float64, s string, style TextStyle)
}

// SVGSurface records draw calls as an SVG document
type SVGSurface struct {
	width, height float64
	b             strings.Builder
	groupOpen     bool
}

// NewSVGSurface creates a surface of the given pixel size
func NewSVGSurface(width, height float64) *SVGSurface {
	return &SVGSurface{width: width, height: height}
}

// Clear discards everything drawn so far and paints the background
func (s *SVGSurface) Clear(color string) {
	s.b.Reset()
	s.groupOpen = false
	fmt.Fprintf(&s.b, `<rect width="%s" height="%s" fill="%s"/>`, num(s.width), num(s.height), html.EscapeString(color))
}

// SetTransform starts a new group scaled then translated in screen space
func (s *SVGSurface) SetTransform(scale, tx, ty float64) {
	if s.groupOpen {
		s.b.WriteString("</g>")
	}
	fmt.Fprintf(&s.b, `<g transform="translate(%s %s) scale(%s)">`, num(tx), num(ty), num(scale))
	s.groupOpen = true
}

// Line draws a segment
func (s *SVGSurface) Line(x1, y1, x2, y2 float64, stroke Stroke) {
	fmt.Fprintf(&s.b, `<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-width="%s" stroke-opacity="%s"/>`,
		num(x1), num(y1), num(x2), num(y2), html.EscapeString(stroke.Color), num(stroke.Width), num(stroke.Opacity))
}

// Circle draws a filled circle with an optional outline
func (s *SVGSurface) Circle(cx, cy, r float64, fill Fill, outline *Stroke) {
	fmt.Fprintf(&s.b, `<circle cx="%s" cy="%s" r="%s" fill="%s" fill-opacity="%s"`,
		num(cx), num(cy), num(r), html.EscapeString(fill.Color), num(fill.Opacity))
	if outline != nil {
		fmt.Fprintf(&s.b, ` stroke="%s" stroke-width="%s"`, html.EscapeString(outline.Color), num(outline.Width))
	}
	s.b.WriteString("/>")
}

// Text draws a label centered on x with its baseline at y
func (s *SVGSurface) Text(x, y float64, str string, style TextStyle) {
	fmt.Fprintf(&s.b, `<text x="%s" y="%s" fill="%s" font-size="%s" text-anchor="middle">%s</text>`,
		num(x), num(y), html.EscapeString(style.Color), num(style.Size), html.EscapeString(str))
}

// Document returns the complete SVG
func (s *SVGSurface) Document() []byte {
	var out strings.Builder
	fmt.Fprintf(&out, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s" font-family="sans-serif">`,
		num(s.width), num(s.height), num(s.width), num(s.height))
	out.WriteString(s.b.String())
	if s.groupOpen {
		out.WriteString("</g>")
	}
	out.WriteString("</svg>")
	return []byte(out.String())
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
