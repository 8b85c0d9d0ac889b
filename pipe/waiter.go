package pipe

import (
	"slices"
	"sync"
)

// EventMask represents readiness events as used by poll(2).
type EventMask uint16

const (
	EventIn     EventMask = 0x01  // POLLIN
	EventOut    EventMask = 0x04  // POLLOUT
	EventErr    EventMask = 0x08  // POLLERR
	EventHUp    EventMask = 0x10  // POLLHUP
	EventRdNorm EventMask = 0x040 // POLLRDNORM
	EventWrNorm EventMask = 0x100 // POLLWRNORM

	ReadableEvents = EventIn | EventRdNorm
	WritableEvents = EventOut | EventWrNorm
)

// Waitable is implemented by objects that can report readiness and notify
// registered waiters when it may have changed.
type Waitable interface {
	// Readiness returns the subset of mask the object is currently ready for.
	Readiness(mask EventMask) EventMask

	// EventRegister registers e to be notified when the object may have
	// become ready for any event in e's mask.
	EventRegister(e *Entry)

	// EventUnregister removes a registration made with EventRegister.
	EventUnregister(e *Entry)
}

// Entry is a waiter registration. The callback runs with the queue locked
// and must not call back into the queue.
type Entry struct {
	mask     EventMask
	callback func(EventMask)
}

// NewFunctionEntry returns an Entry that calls fn on notification.
func NewFunctionEntry(mask EventMask, fn func(EventMask)) *Entry {
	return &Entry{mask: mask, callback: fn}
}

// NewChannelEntry returns an Entry that performs a non-blocking send on
// the returned channel when notified. The channel has a buffer of one, so
// a notification that arrives before the receiver is waiting is kept.
func NewChannelEntry(mask EventMask) (*Entry, chan struct{}) {
	ch := make(chan struct{}, 1)
	return NewFunctionEntry(mask, func(EventMask) {
		select {
		case ch <- struct{}{}:
		default:
		}
	}), ch
}

// Mask returns the events e is interested in.
func (e *Entry) Mask() EventMask { return e.mask }

// Queue is a list of waiters interested in readiness changes.
type Queue struct {
	mu      sync.RWMutex
	entries []*Entry
}

func (q *Queue) EventRegister(e *Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !slices.Contains(q.entries, e) {
		q.entries = append(q.entries, e)
	}
}

func (q *Queue) EventUnregister(e *Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = slices.DeleteFunc(q.entries, func(x *Entry) bool { return x == e })
}

// Notify calls the callback of every entry whose mask intersects mask.
func (q *Queue) Notify(mask EventMask) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	for _, e := range q.entries {
		if e.mask&mask != 0 && e.callback != nil {
			e.callback(mask)
		}
	}
}

// Events returns the union of all registered masks.
func (q *Queue) Events() EventMask {
	q.mu.RLock()
	defer q.mu.RUnlock()
	var m EventMask
	for _, e := range q.entries {
		m |= e.mask
	}
	return m
}

func (q *Queue) IsEmpty() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.entries) == 0
}
