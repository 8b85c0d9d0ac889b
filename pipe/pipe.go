// Package pipe implements a full-duplex, in-memory byte pipe built from two
// bounded buffers. Each Port reads from one buffer and writes to the other,
// so bytes written on one Port of a Pair are read from the other.
//
// Reads and writes block until they can make progress unless asked not to,
// in which case they fail with ErrWouldBlock. Blocking calls take a context
// whose cancellation surfaces as ErrInterrupted. Transfers may be partial:
// a read returns what is buffered up to the requested size, and a write
// accepts what fits.
package pipe

import (
	"context"
	"io"
)

// Port is one endpoint of a Pair. It does not own its buffers.
type Port struct {
	incoming *Buffer
	outgoing *Buffer
}

var (
	_ io.Reader = (*Port)(nil)
	_ io.Writer = (*Port)(nil)
	_ Waitable  = (*Port)(nil)
)

// PollResult is the readiness snapshot returned by Poll.
type PollResult struct {
	Readable bool
	Writable bool
}

// Mask returns the result as poll events.
func (r PollResult) Mask() EventMask {
	var m EventMask
	if r.Readable {
		m |= ReadableEvents
	}
	if r.Writable {
		m |= WritableEvents
	}
	return m
}

// ReadTo moves up to max bytes from the port's incoming buffer into dst.
// While the buffer is empty it waits for a writer, or fails with
// ErrWouldBlock if nonBlocking is set. It returns 0 only when max or dst is
// empty. A zero-length read returns 0, nil at once without taking the
// lock, even on an empty buffer. This differs from read(2) on a character
// device, where a zero count can still block or fail with EAGAIN while the
// buffer is empty.
func (p *Port) ReadTo(ctx context.Context, dst Region, max int, nonBlocking bool) (int, error) {
	if max <= 0 || dst.Len() == 0 {
		return 0, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	b := p.incoming
	if err := b.lock(ctx); err != nil {
		return 0, err
	}
	for b.emptyLocked() && !b.closed {
		ready := b.cond.ready()
		b.unlock()
		if nonBlocking {
			return 0, ErrWouldBlock
		}
		if err := b.cond.wait(ctx, ready); err != nil {
			return 0, err
		}
		if err := b.lock(ctx); err != nil {
			return 0, err
		}
	}
	if b.closed {
		b.unlock()
		return 0, ErrClosed
	}
	n, err := b.takeLocked(dst, max)
	b.unlock()
	if n > 0 {
		b.notify()
	}
	return n, err
}

// WriteFrom moves as many bytes from src into the port's outgoing buffer as
// currently fit. While the buffer is full it waits for a reader, or fails
// with ErrWouldBlock if nonBlocking is set. Callers that need every byte
// delivered must loop.
func (p *Port) WriteFrom(ctx context.Context, src Region, nonBlocking bool) (int, error) {
	if src.Len() == 0 {
		return 0, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	b := p.outgoing
	if err := b.lock(ctx); err != nil {
		return 0, err
	}
	for b.fullLocked() && !b.closed {
		ready := b.cond.ready()
		b.unlock()
		if nonBlocking {
			return 0, ErrWouldBlock
		}
		if err := b.cond.wait(ctx, ready); err != nil {
			return 0, err
		}
		if err := b.lock(ctx); err != nil {
			return 0, err
		}
	}
	if b.closed {
		b.unlock()
		return 0, ErrClosed
	}
	n, err := b.tryAppendLocked(src)
	b.unlock()
	if n > 0 {
		b.notify()
	}
	return n, err
}

// ReadBytes is ReadTo with a byte slice destination.
func (p *Port) ReadBytes(ctx context.Context, b []byte, nonBlocking bool) (int, error) {
	return p.ReadTo(ctx, Bytes(b), len(b), nonBlocking)
}

// WriteBytes is WriteFrom with a byte slice source.
func (p *Port) WriteBytes(ctx context.Context, b []byte, nonBlocking bool) (int, error) {
	return p.WriteFrom(ctx, Bytes(b), nonBlocking)
}

// Read implements io.Reader with a blocking read.
func (p *Port) Read(b []byte) (int, error) {
	return p.ReadBytes(context.Background(), b, false)
}

// Write implements io.Writer. Unlike WriteFrom it keeps writing until all
// of b has been accepted, as io.Writer requires.
func (p *Port) Write(b []byte) (n int, err error) {
	for n < len(b) {
		var nn int
		nn, err = p.WriteBytes(context.Background(), b[n:], false)
		n += nn
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// Poll reports whether the port can be read from or written to without
// blocking. If e is non-nil it is registered on both buffers before the
// snapshot is taken, so a change after the snapshot still notifies e; the
// caller removes it with EventUnregister. On failure e is unregistered.
func (p *Port) Poll(ctx context.Context, e *Entry) (PollResult, error) {
	var r PollResult
	if ctx == nil {
		ctx = context.Background()
	}
	if e != nil {
		p.EventRegister(e)
	}
	fail := func(err error) (PollResult, error) {
		if e != nil {
			p.EventUnregister(e)
		}
		return PollResult{}, err
	}

	if err := p.incoming.lock(ctx); err != nil {
		return fail(err)
	}
	closed := p.incoming.closed
	r.Readable = !p.incoming.emptyLocked()
	p.incoming.unlock()
	if closed {
		return fail(ErrClosed)
	}

	if err := p.outgoing.lock(ctx); err != nil {
		return fail(err)
	}
	closed = p.outgoing.closed
	r.Writable = !p.outgoing.fullLocked()
	p.outgoing.unlock()
	if closed {
		return fail(ErrClosed)
	}
	return r, nil
}

// Readiness implements Waitable.
func (p *Port) Readiness(mask EventMask) EventMask {
	r, err := p.Poll(context.Background(), nil)
	if err != nil {
		return mask & (EventHUp | EventErr)
	}
	return r.Mask() & mask
}

// EventRegister registers e on both the incoming and outgoing buffers.
func (p *Port) EventRegister(e *Entry) {
	p.incoming.queue.EventRegister(e)
	p.outgoing.queue.EventRegister(e)
}

func (p *Port) EventUnregister(e *Entry) {
	p.incoming.queue.EventUnregister(e)
	p.outgoing.queue.EventUnregister(e)
}

// Size returns the number of bytes waiting to be read from the port.
func (p *Port) Size() int {
	return p.incoming.Len()
}

// Cap returns the capacity of each direction of the port.
func (p *Port) Cap() int {
	return p.incoming.Cap()
}
