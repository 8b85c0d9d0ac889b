package pipe

import (
	"context"
	"errors"
	"io"
	"sync/atomic"

	"tractor.dev/charloop/fs"
	"tractor.dev/charloop/fs/fskit"
)

// PortFile is an open handle on a Port, exposed as an fs.File. It models a
// stream-like, non-seekable special file (named pipe).
//
// Semantics:
// - Read/Write go to the Port, blocking unless the handle is non-blocking
// - ReadAt and WriteAt ignore the offset
// - Read returns io.EOF once the pair has been torn down
// - Close releases the handle only; the pair stays up
// - Stat reports a named pipe whose size is the number of readable bytes
type PortFile struct {
	Port *Port
	Name string
	Mode fs.FileMode

	nonblock atomic.Bool
	closed   atomic.Bool
}

var (
	_ fs.File          = (*PortFile)(nil)
	_ fs.ContextReader = (*PortFile)(nil)
	_ fs.ContextWriter = (*PortFile)(nil)
	_ Waitable         = (*PortFile)(nil)
)

// NewPortFile opens a handle on p. The handle starts in blocking mode
// unless nonblock is set.
func NewPortFile(p *Port, name string, nonblock bool) *PortFile {
	pf := &PortFile{Port: p, Name: name, Mode: fs.ModeNamedPipe | 0666}
	pf.nonblock.Store(nonblock)
	return pf
}

// SetNonblock switches the handle between blocking and non-blocking mode.
func (pf *PortFile) SetNonblock(nonblocking bool) error {
	if pf.closed.Load() {
		return fs.ErrClosed
	}
	pf.nonblock.Store(nonblocking)
	return nil
}

func (pf *PortFile) Nonblock() bool { return pf.nonblock.Load() }

func (pf *PortFile) Close() error {
	if pf.closed.Swap(true) {
		return fs.ErrClosed
	}
	return nil
}

func (pf *PortFile) Stat() (fs.FileInfo, error) {
	mode := pf.Mode
	if mode == 0 {
		mode = fs.ModeNamedPipe | 0666
	}
	return fskit.Entry(pf.Name, mode, int64(pf.Port.Size())), nil
}

func (pf *PortFile) Read(b []byte) (int, error) {
	return pf.ReadContext(context.Background(), b)
}

// ReadContext reads with ctx bounding any wait for data.
func (pf *PortFile) ReadContext(ctx context.Context, b []byte) (int, error) {
	if pf.closed.Load() {
		return 0, fs.ErrClosed
	}
	n, err := pf.Port.ReadBytes(ctx, b, pf.nonblock.Load())
	if errors.Is(err, ErrClosed) {
		return n, io.EOF
	}
	return n, err
}

func (pf *PortFile) ReadAt(b []byte, off int64) (int, error) {
	return pf.Read(b)
}

// Write blocks until all of b is written. On a non-blocking handle it
// writes what fits and may return a short count with a nil error.
func (pf *PortFile) Write(b []byte) (int, error) {
	return pf.WriteContext(context.Background(), b)
}

// WriteContext writes with ctx bounding any wait for space. If ctx is
// cancelled after some bytes were accepted, the count written so far is
// returned along with the error.
func (pf *PortFile) WriteContext(ctx context.Context, b []byte) (n int, err error) {
	if pf.closed.Load() {
		return 0, fs.ErrClosed
	}
	if pf.nonblock.Load() {
		return pf.Port.WriteBytes(ctx, b, true)
	}
	for n < len(b) {
		var nn int
		nn, err = pf.Port.WriteBytes(ctx, b[n:], false)
		n += nn
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func (pf *PortFile) WriteAt(b []byte, off int64) (int, error) {
	return pf.Write(b)
}

func (pf *PortFile) Readiness(mask EventMask) EventMask {
	if pf.closed.Load() {
		return mask & EventErr
	}
	return pf.Port.Readiness(mask)
}

func (pf *PortFile) EventRegister(e *Entry) { pf.Port.EventRegister(e) }

func (pf *PortFile) EventUnregister(e *Entry) { pf.Port.EventUnregister(e) }
