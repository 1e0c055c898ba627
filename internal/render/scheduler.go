// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package render contains the frame pipeline: a frame scheduler, a GPU
// device abstraction with a software implementation, the CRT compositor,
// the capture loop and the subtitle rasterizer.
package render

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// FrameHandle identifies a pending frame callback or timer.
type FrameHandle uint64

// FrameFunc is invoked once on the tick it was scheduled for.
type FrameFunc func(now time.Time)

type timer struct {
	handle   FrameHandle
	deadline time.Time
	fn       func()
}

// Scheduler is a deterministic stand-in for a display refresh callback queue.
// Frame callbacks requested during a tick run on the following tick. Timers
// fire on the first tick at or after their deadline. Posted tasks run first,
// before timers and frames.
//
// All callbacks run on the goroutine calling Tick (or Run).
type Scheduler struct {
	mu     sync.Mutex
	clock  func() time.Time
	next   FrameHandle
	frames map[FrameHandle]FrameFunc
	order  []FrameHandle
	timers []timer
	tasks  []func()
}

// NewScheduler creates a scheduler. A nil clock uses time.Now.
func NewScheduler(clock func() time.Time) *Scheduler {
	if clock == nil {
		clock = time.Now
	}
	return &Scheduler{
		clock:  clock,
		frames: make(map[FrameHandle]FrameFunc),
	}
}

// Now returns the scheduler clock.
func (s *Scheduler) Now() time.Time {
	return s.clock()
}

// RequestFrame schedules fn for the next tick.
func (s *Scheduler) RequestFrame(fn FrameFunc) FrameHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	h := s.next
	s.frames[h] = fn
	s.order = append(s.order, h)
	return h
}

// After schedules fn to run on the first tick at least d from now.
func (s *Scheduler) After(d time.Duration, fn func()) FrameHandle {
	deadline := s.clock().Add(d)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	h := s.next
	s.timers = append(s.timers, timer{handle: h, deadline: deadline, fn: fn})
	return h
}

// Cancel drops a pending frame callback or timer. Unknown handles are ignored.
func (s *Scheduler) Cancel(h FrameHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.frames[h]; ok {
		delete(s.frames, h)
		return
	}
	for i, t := range s.timers {
		if t.handle == h {
			s.timers = append(s.timers[:i], s.timers[i+1:]...)
			return
		}
	}
}

// Post queues fn to run at the start of the next tick. Safe for use from any goroutine.
func (s *Scheduler) Post(fn func()) {
	s.mu.Lock()
	s.tasks = append(s.tasks, fn)
	s.mu.Unlock()
}

// Pending reports the number of queued frame callbacks and timers.
func (s *Scheduler) Pending() (frames, timers int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames), len(s.timers)
}

// Tick runs everything that is due at now.
func (s *Scheduler) Tick(now time.Time) {
	s.mu.Lock()
	tasks := s.tasks
	s.tasks = nil
	s.mu.Unlock()
	for _, fn := range tasks {
		fn()
	}

	s.mu.Lock()
	var due []timer
	kept := s.timers[:0]
	for _, t := range s.timers {
		if !t.deadline.After(now) {
			due = append(due, t)
		} else {
			kept = append(kept, t)
		}
	}
	s.timers = kept
	s.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].deadline.Before(due[j].deadline) })
	for _, t := range due {
		t.fn()
	}

	s.mu.Lock()
	order := s.order
	s.order = nil
	frames := make([]FrameFunc, 0, len(order))
	for _, h := range order {
		if fn, ok := s.frames[h]; ok {
			frames = append(frames, fn)
			delete(s.frames, h)
		}
	}
	s.mu.Unlock()

	for _, fn := range frames {
		fn(now)
	}
}

// Run ticks at fps until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, fps int) error {
	if fps <= 0 {
		return errors.New("render: fps must be positive")
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Tick(s.clock())
		}
	}
}
