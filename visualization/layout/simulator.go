package layout

import (
	domainservices "chatarchive/domain/services"
)

// Phase is where a Simulator is in its lifecycle
type Phase int

const (
	Idle Phase = iota
	Initializing
	Simulating
	Settled
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Initializing:
		return "initializing"
	case Simulating:
		return "simulating"
	case Settled:
		return "settled"
	default:
		return "unknown"
	}
}

// Simulator runs Step until the iteration ceiling. It is not safe for
// concurrent use; the view drives it from a single loop.
type Simulator struct {
	params    Params
	phase     Phase
	state     State
	edges     []Edge
	iteration int
}

// NewSimulator creates an idle simulator
func NewSimulator(params Params) *Simulator {
	return &Simulator{params: params}
}

// Start lays the graph out on the initial circle. An empty graph or a zero
// iteration ceiling settles immediately.
func (s *Simulator) Start(graph domainservices.GraphData, width, height float64) {
	s.phase = Initializing
	ids := make([]string, len(graph.Nodes))
	for i, n := range graph.Nodes {
		ids[i] = n.ID
	}
	s.state = Initialize(ids, width, height)
	s.edges = IndexEdges(ids, graph.Edges)
	s.iteration = 0

	if len(ids) == 0 || s.params.MaxIterations <= 0 {
		s.phase = Settled
		return
	}
	s.phase = Simulating
}

// Advance runs one step and reports whether more steps remain. It returns
// false without stepping once settled.
func (s *Simulator) Advance() bool {
	if s.phase != Simulating {
		return false
	}
	s.state = Step(s.state, s.edges, s.params)
	s.iteration++
	if s.iteration >= s.params.MaxIterations {
		s.phase = Settled
		return false
	}
	return true
}

// Run advances until settled and returns the step count
func (s *Simulator) Run() int {
	for s.Advance() {
	}
	return s.iteration
}

// Phase returns the current phase
func (s *Simulator) Phase() Phase { return s.phase }

// Iteration returns the number of steps taken
func (s *Simulator) Iteration() int { return s.iteration }

// State returns the current positions. Callers must not modify it.
func (s *Simulator) State() State { return s.state }
