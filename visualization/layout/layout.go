// Package layout assigns 2D positions to graph nodes with a damped
// spring-repulsion simulation. Step is pure; Simulator adds the phase
// machine and iteration ceiling around it.
package layout

import (
	"math"

	"chatarchive/domain/config"
	domainservices "chatarchive/domain/services"
)

// Params tunes the simulation
type Params struct {
	Repulsion       float64
	SpringLength    float64
	SpringStiffness float64
	Damping         float64
	ForceScale      float64
	DistanceFloor   float64
	MaxSpeed        float64
	Gravity         float64
	MaxIterations   int
}

// ParamsFrom copies the layout section of the domain config
func ParamsFrom(c config.LayoutConfig) Params {
	return Params{
		Repulsion:       c.Repulsion,
		SpringLength:    c.SpringLength,
		SpringStiffness: c.SpringStiffness,
		Damping:         c.Damping,
		ForceScale:      c.ForceScale,
		DistanceFloor:   c.DistanceFloor,
		MaxSpeed:        c.MaxSpeed,
		Gravity:         c.Gravity,
		MaxIterations:   c.MaxIterations,
	}
}

// DefaultParams returns the default tuning
func DefaultParams() Params {
	return ParamsFrom(config.DefaultDomainConfig().Layout)
}

// State holds positions and velocities as parallel slices. Index i of every
// slice belongs to IDs[i].
type State struct {
	IDs     []string
	X, Y    []float64
	VX, VY  []float64
	CenterX float64
	CenterY float64
}

// Len is the node count
func (s State) Len() int { return len(s.IDs) }

// Clone deep-copies the state
func (s State) Clone() State {
	return State{
		IDs:     append([]string(nil), s.IDs...),
		X:       append([]float64(nil), s.X...),
		Y:       append([]float64(nil), s.Y...),
		VX:      append([]float64(nil), s.VX...),
		VY:      append([]float64(nil), s.VY...),
		CenterX: s.CenterX,
		CenterY: s.CenterY,
	}
}

// Index returns the position of id in IDs, or -1
func (s State) Index(id string) int {
	for i, x := range s.IDs {
		if x == id {
			return i
		}
	}
	return -1
}

// Edge is a spring between two node indices
type Edge struct {
	From, To int
	Strength float64
}

// IndexEdges resolves graph edges against ids, dropping edges whose ends are
// unknown or identical.
func IndexEdges(ids []string, edges []domainservices.GraphEdge) []Edge {
	pos := make(map[string]int, len(ids))
	for i, id := range ids {
		pos[id] = i
	}
	out := make([]Edge, 0, len(edges))
	for _, e := range edges {
		from, ok1 := pos[e.SourceID]
		to, ok2 := pos[e.TargetID]
		if !ok1 || !ok2 || from == to {
			continue
		}
		out = append(out, Edge{From: from, To: to, Strength: e.Strength})
	}
	return out
}

// Initialize places ids on a circle of radius min(width,height)/3 around the
// center, angle 2πi/n, at rest.
func Initialize(ids []string, width, height float64) State {
	n := len(ids)
	s := State{
		IDs:     append([]string(nil), ids...),
		X:       make([]float64, n),
		Y:       make([]float64, n),
		VX:      make([]float64, n),
		VY:      make([]float64, n),
		CenterX: width / 2,
		CenterY: height / 2,
	}
	radius := math.Min(width, height) / 3
	for i := range ids {
		angle := 2 * math.Pi * float64(i) / float64(n)
		s.X[i] = s.CenterX + radius*math.Cos(angle)
		s.Y[i] = s.CenterY + radius*math.Sin(angle)
	}
	return s
}

// Step advances the simulation by one tick and returns the new state. The
// input is not modified.
func Step(s State, edges []Edge, p Params) State {
	n := s.Len()
	next := s.Clone()
	if n == 0 {
		return next
	}
	fx := make([]float64, n)
	fy := make([]float64, n)

	// repulsion between every pair
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dx, dy := s.X[i]-s.X[j], s.Y[i]-s.Y[j]
			if dx == 0 && dy == 0 {
				// coincident: push apart along a direction fixed by the pair
				angle := float64(i*31+j*17) * 0.618
				dx, dy = math.Cos(angle), math.Sin(angle)
			}
			d := math.Max(math.Hypot(dx, dy), p.DistanceFloor)
			f := p.Repulsion / (d * d)
			ux, uy := dx/d, dy/d
			fx[i] += f * ux
			fy[i] += f * uy
			fx[j] -= f * ux
			fy[j] -= f * uy
		}
	}

	// springs toward the rest length
	for _, e := range edges {
		dx, dy := s.X[e.To]-s.X[e.From], s.Y[e.To]-s.Y[e.From]
		d := math.Max(math.Hypot(dx, dy), p.DistanceFloor)
		f := p.SpringStiffness * e.Strength * (d - p.SpringLength)
		ux, uy := dx/d, dy/d
		fx[e.From] += f * ux
		fy[e.From] += f * uy
		fx[e.To] -= f * ux
		fy[e.To] -= f * uy
	}

	for i := 0; i < n; i++ {
		fx[i] += p.Gravity * (s.CenterX - s.X[i])
		fy[i] += p.Gravity * (s.CenterY - s.Y[i])

		vx := p.Damping*s.VX[i] + p.ForceScale*fx[i]
		vy := p.Damping*s.VY[i] + p.ForceScale*fy[i]
		if speed := math.Hypot(vx, vy); p.MaxSpeed > 0 && speed > p.MaxSpeed {
			vx, vy = vx/speed*p.MaxSpeed, vy/speed*p.MaxSpeed
		}
		if math.IsNaN(vx) || math.IsNaN(vy) {
			vx, vy = 0, 0
		}
		next.VX[i], next.VY[i] = vx, vy
		next.X[i] = s.X[i] + vx
		next.Y[i] = s.Y[i] + vy
	}
	return next
}
