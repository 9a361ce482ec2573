package view

import (
	"sync"
	"sync/atomic"
	"time"
)

// Loop runs tasks one at a time in posting order. RequestFrame schedules fn
// as the next animation frame and returns a handle that cancels it.
type Loop interface {
	Post(task func())
	RequestFrame(fn func()) (cancel func())
}

// GoroutineLoop is a Loop backed by one goroutine. Frames fire after a
// fixed delay.
type GoroutineLoop struct {
	tasks      chan func()
	done       chan struct{}
	stopOnce   sync.Once
	frameDelay time.Duration
}

// NewGoroutineLoop starts a loop whose frames fire every frameDelay
func NewGoroutineLoop(frameDelay time.Duration) *GoroutineLoop {
	l := &GoroutineLoop{
		tasks:      make(chan func(), 64),
		done:       make(chan struct{}),
		frameDelay: frameDelay,
	}
	go l.run()
	return l
}

func (l *GoroutineLoop) run() {
	for {
		select {
		case task := <-l.tasks:
			task()
		case <-l.done:
			return
		}
	}
}

// Post queues task. Tasks posted after Stop are dropped.
func (l *GoroutineLoop) Post(task func()) {
	select {
	case l.tasks <- task:
	case <-l.done:
	}
}

// RequestFrame posts fn after the frame delay unless cancelled first
func (l *GoroutineLoop) RequestFrame(fn func()) func() {
	var cancelled atomic.Bool
	timer := time.AfterFunc(l.frameDelay, func() {
		l.Post(func() {
			if !cancelled.Load() {
				fn()
			}
		})
	})
	return func() {
		cancelled.Store(true)
		timer.Stop()
	}
}

// Stop ends the loop goroutine
func (l *GoroutineLoop) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

// ManualLoop is a Loop driven by explicit Tick calls. It backs tests and
// headless rendering.
type ManualLoop struct {
	mu     sync.Mutex
	tasks  []func()
	frames []*frameRequest
}

type frameRequest struct {
	fn        func()
	cancelled atomic.Bool
}

// NewManualLoop creates an empty loop
func NewManualLoop() *ManualLoop {
	return &ManualLoop{}
}

// Post queues task for the next Tick
func (l *ManualLoop) Post(task func()) {
	l.mu.Lock()
	l.tasks = append(l.tasks, task)
	l.mu.Unlock()
}

// RequestFrame queues fn for the next Tick
func (l *ManualLoop) RequestFrame(fn func()) func() {
	req := &frameRequest{fn: fn}
	l.mu.Lock()
	l.frames = append(l.frames, req)
	l.mu.Unlock()
	return func() { req.cancelled.Store(true) }
}

// Tick runs every queued task, then the frames requested before this call.
// It reports whether anything ran.
func (l *ManualLoop) Tick() bool {
	ran := false
	for {
		l.mu.Lock()
		tasks := l.tasks
		l.tasks = nil
		l.mu.Unlock()
		if len(tasks) == 0 {
			break
		}
		for _, task := range tasks {
			task()
		}
		ran = true
	}

	l.mu.Lock()
	frames := l.frames
	l.frames = nil
	l.mu.Unlock()
	for _, f := range frames {
		if !f.cancelled.Load() {
			f.fn()
			ran = true
		}
	}
	return ran
}

// PendingFrames counts requested frames that were not cancelled
func (l *ManualLoop) PendingFrames() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, f := range l.frames {
		if !f.cancelled.Load() {
			n++
		}
	}
	return n
}

// RunUntilIdle ticks until nothing runs or max ticks pass. It returns the
// number of ticks that did work.
func (l *ManualLoop) RunUntilIdle(max int) int {
	n := 0
	for n < max && l.Tick() {
		n++
	}
	return n
}
