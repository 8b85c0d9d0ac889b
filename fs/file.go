package fs

import (
	"context"
	"io"
)

// ContextReader is implemented by files whose reads can block and should
// give up when a context is done.
type ContextReader interface {
	ReadContext(ctx context.Context, p []byte) (int, error)
}

// ContextWriter is the write counterpart of ContextReader.
type ContextWriter interface {
	WriteContext(ctx context.Context, p []byte) (int, error)
}

// NonblockSetter is implemented by files that support non-blocking mode.
type NonblockSetter interface {
	SetNonblock(nonblocking bool) error
}

// ReadContext reads from f using ctx if the file supports it.
func ReadContext(ctx context.Context, f File, p []byte) (int, error) {
	if cr, ok := f.(ContextReader); ok {
		return cr.ReadContext(ctx, p)
	}
	return f.Read(p)
}

// WriteContext writes to f using ctx if the file supports it.
func WriteContext(ctx context.Context, f File, p []byte) (int, error) {
	if cw, ok := f.(ContextWriter); ok {
		return cw.WriteContext(ctx, p)
	}
	return Write(f, p)
}

// ReadAtContext reads from f at off. Files that take a context are
// streams, so off is ignored for them.
func ReadAtContext(ctx context.Context, f File, p []byte, off int64) (int, error) {
	if cr, ok := f.(ContextReader); ok {
		return cr.ReadContext(ctx, p)
	}
	return ReadAt(f, p, off)
}

// WriteAtContext is the write counterpart of ReadAtContext.
func WriteAtContext(ctx context.Context, f File, p []byte, off int64) (int, error) {
	if cw, ok := f.(ContextWriter); ok {
		return cw.WriteContext(ctx, p)
	}
	return WriteAt(f, p, off)
}

// SetNonblock puts f into non-blocking mode if supported.
func SetNonblock(f File, nonblocking bool) error {
	if ns, ok := f.(NonblockSetter); ok {
		return ns.SetNonblock(nonblocking)
	}
	return ErrNotSupported
}

// Write writes data to the file.
func Write(f File, data []byte) (int, error) {
	w, ok := f.(io.Writer)
	if !ok {
		return 0, ErrPermission
	}
	return w.Write(data)
}

// ReadAt reads from the file at the given offset, falling back to a seek
// and read for files that are not io.ReaderAt.
func ReadAt(f File, p []byte, off int64) (int, error) {
	if ra, ok := f.(io.ReaderAt); ok {
		return ra.ReadAt(p, off)
	}
	if off > 0 {
		if _, err := Seek(f, off, io.SeekStart); err != nil {
			return 0, err
		}
	}
	return f.Read(p)
}

// WriteAt writes data to the file at the given offset.
func WriteAt(f File, data []byte, off int64) (int, error) {
	_, ok := f.(io.Writer)
	if !ok {
		return 0, ErrPermission
	}
	wa, ok := f.(io.WriterAt)
	if ok {
		return wa.WriteAt(data, off)
	}
	if off > 0 {
		_, err := Seek(f, off, io.SeekStart)
		if err != nil {
			return 0, err
		}
	}
	return Write(f, data)
}

// Seek seeks to the given offset and whence.
func Seek(f File, offset int64, whence int) (int64, error) {
	s, ok := f.(io.Seeker)
	if !ok {
		return 0, ErrNotSupported
	}
	return s.Seek(offset, whence)
}
