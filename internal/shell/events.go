// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package shell

// Source names the object an event is raised on.
type Source string

const (
	SourceVideo    Source = "video"
	SourceTrack    Source = "track"
	SourceDocument Source = "document"
	SourceWindow   Source = "window"
)

// EventType names an event. Media events reuse the playback names.
type EventType string

const (
	EventKeyDown EventType = "keydown"
	EventResize  EventType = "resize"
)

// Phase selects when a listener runs. Capture listeners run before bubble
// listeners for the same source and type.
type Phase int

const (
	PhaseCapture Phase = iota
	PhaseBubble
)

// Event is one dispatched occurrence.
type Event struct {
	Source Source
	Type   EventType

	Key    string // keydown
	Shift  bool   // keydown
	Width  int    // resize
	Height int    // resize

	stopped   bool
	immediate bool
	prevented bool
}

// StopPropagation skips the remaining phases. Listeners of the current
// phase still run.
func (e *Event) StopPropagation() { e.stopped = true }

// StopImmediatePropagation skips every remaining listener.
func (e *Event) StopImmediatePropagation() {
	e.stopped = true
	e.immediate = true
}

// PreventDefault marks the event as handled.
func (e *Event) PreventDefault() { e.prevented = true }

// DefaultPrevented reports whether a listener called PreventDefault.
func (e *Event) DefaultPrevented() bool { return e.prevented }

// Stopped reports whether propagation was stopped.
func (e *Event) Stopped() bool { return e.stopped }

// Handler handles one event.
type Handler func(e *Event)

// ListenerID identifies a registered listener for removal.
type ListenerID uint64

type listenerKey struct {
	source Source
	typ    EventType
	phase  Phase
}

type listener struct {
	id ListenerID
	fn Handler
}

// Dispatcher is a listener table keyed by (source, type, phase). It is not
// safe for concurrent use; the render goroutine owns it.
type Dispatcher struct {
	next      ListenerID
	listeners map[listenerKey][]listener
	index     map[ListenerID]listenerKey
}

// NewDispatcher creates an empty table.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		listeners: make(map[listenerKey][]listener),
		index:     make(map[ListenerID]listenerKey),
	}
}

// Add registers fn and returns its id.
func (d *Dispatcher) Add(src Source, typ EventType, phase Phase, fn Handler) ListenerID {
	d.next++
	k := listenerKey{source: src, typ: typ, phase: phase}
	d.listeners[k] = append(d.listeners[k], listener{id: d.next, fn: fn})
	d.index[d.next] = k
	return d.next
}

// Remove unregisters a listener. It reports whether id was registered.
func (d *Dispatcher) Remove(id ListenerID) bool {
	k, ok := d.index[id]
	if !ok {
		return false
	}
	delete(d.index, id)
	ls := d.listeners[k]
	for i, l := range ls {
		if l.id == id {
			// copy so an in-flight dispatch keeps its snapshot
			next := make([]listener, 0, len(ls)-1)
			next = append(next, ls[:i]...)
			d.listeners[k] = append(next, ls[i+1:]...)
			break
		}
	}
	if len(d.listeners[k]) == 0 {
		delete(d.listeners, k)
	}
	return true
}

// RemoveAll unregisters every id in ids.
func (d *Dispatcher) RemoveAll(ids []ListenerID) {
	for _, id := range ids {
		d.Remove(id)
	}
}

// Len returns the number of registered listeners.
func (d *Dispatcher) Len() int { return len(d.index) }

// Dispatch runs the capture listeners, then the bubble listeners, in
// registration order. Listeners removed during dispatch do not run; listeners
// added during dispatch wait for the next event. It returns the number of
// listeners invoked.
func (d *Dispatcher) Dispatch(e *Event) int {
	n := 0
	for _, phase := range []Phase{PhaseCapture, PhaseBubble} {
		if e.stopped {
			break
		}
		for _, l := range d.listeners[listenerKey{source: e.Source, typ: e.Type, phase: phase}] {
			if e.immediate {
				break
			}
			if _, live := d.index[l.id]; !live {
				continue
			}
			l.fn(e)
			n++
		}
	}
	return n
}
