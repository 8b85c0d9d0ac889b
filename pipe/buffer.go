package pipe

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// MaxBufferSize is the largest capacity NewBuffer will allocate.
const MaxBufferSize = 1 << 30

// Buffer is a fixed-capacity byte queue. Valid data is always the first
// length bytes of data, oldest byte first; reads shift the remainder to the
// front. All access to data and length happens with the lock held.
type Buffer struct {
	data   []byte
	size   int
	length int
	closed bool

	sem   *semaphore.Weighted // weight 1, so it acts as a mutex
	cond  *cond
	queue Queue
}

// NewBuffer allocates a Buffer with the given capacity.
func NewBuffer(size int) (*Buffer, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	if size > MaxBufferSize {
		return nil, ErrNoMemory
	}
	return &Buffer{
		data: make([]byte, size),
		size: size,
		sem:  semaphore.NewWeighted(1),
		cond: newCond(),
	}, nil
}

// lock acquires the buffer lock, failing with ErrInterrupted if ctx is done
// before the lock is obtained.
func (b *Buffer) lock(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return interrupted(ctx)
	}
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return interrupted(ctx)
	}
	return nil
}

func (b *Buffer) mustLock() {
	// Acquire with a background context cannot fail.
	_ = b.sem.Acquire(context.Background(), 1)
}

func (b *Buffer) unlock() {
	b.sem.Release(1)
}

// notify wakes blocked readers and writers and poll waiters. It is called
// after every successful mutation, without the lock held.
func (b *Buffer) notify() {
	b.cond.broadcast()
	b.queue.Notify(ReadableEvents | WritableEvents)
}

func (b *Buffer) emptyLocked() bool { return b.length == 0 }

func (b *Buffer) fullLocked() bool { return b.length == b.size }

// tryAppendLocked copies up to the free room from src to the end of the
// valid data. A failed copy leaves length unchanged.
func (b *Buffer) tryAppendLocked(src Region) (int, error) {
	n := min(src.Len(), b.size-b.length)
	if n == 0 {
		return 0, nil
	}
	copied, err := src.CopyIn(b.data[b.length : b.length+n])
	if err != nil || copied != n {
		return 0, fault(err)
	}
	b.length += n
	return n, nil
}

// takeLocked copies up to max bytes from the front of the valid data into
// dst and shifts the rest forward. A failed copy leaves the buffer
// unchanged.
func (b *Buffer) takeLocked(dst Region, max int) (int, error) {
	n := min(max, dst.Len(), b.length)
	if n == 0 {
		return 0, nil
	}
	copied, err := dst.CopyOut(b.data[:n])
	if err != nil || copied != n {
		return 0, fault(err)
	}
	copy(b.data, b.data[n:b.length])
	b.length -= n
	return n, nil
}

// TryAppend appends as much of src as fits without blocking and returns
// the number of bytes appended, which is 0 when the buffer is full.
func (b *Buffer) TryAppend(src Region) (int, error) {
	b.mustLock()
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

// TakeUpTo removes up to max bytes from the front of the buffer into dst
// without blocking and returns the number of bytes taken, which is 0 when
// the buffer is empty.
func (b *Buffer) TakeUpTo(dst Region, max int) (int, error) {
	b.mustLock()
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

func (b *Buffer) Empty() bool {
	b.mustLock()
	defer b.unlock()
	return b.emptyLocked()
}

func (b *Buffer) Full() bool {
	b.mustLock()
	defer b.unlock()
	return b.fullLocked()
}

// Len returns the number of valid bytes in the buffer.
func (b *Buffer) Len() int {
	b.mustLock()
	defer b.unlock()
	return b.length
}

// Cap returns the fixed capacity of the buffer.
func (b *Buffer) Cap() int {
	return b.size
}

// release drops the storage and wakes every waiter so that it observes
// ErrClosed.
func (b *Buffer) release() {
	b.mustLock()
	b.closed = true
	b.length = 0
	b.data = nil
	b.unlock()
	b.cond.broadcast()
	b.queue.Notify(ReadableEvents | WritableEvents | EventHUp)
}
