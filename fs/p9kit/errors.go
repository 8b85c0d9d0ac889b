package p9kit

import (
	"errors"
	"io"
	"syscall"

	"github.com/hugelgupf/p9/linux"
	"tractor.dev/charloop/fs"
	"tractor.dev/charloop/pipe"
)

// errnos pairs each error the server reports with the errno it travels as.
// Order matters: the first match wins on both sides.
var errnos = []struct {
	err   error
	errno linux.Errno
}{
	{pipe.ErrWouldBlock, linux.EAGAIN},
	{pipe.ErrInterrupted, linux.EINTR},
	{pipe.ErrFault, linux.EFAULT},
	{pipe.ErrNoMemory, linux.ENOMEM},
	{fs.ErrInvalid, linux.EINVAL},
	{pipe.ErrInvalidSize, linux.EINVAL},
	{pipe.ErrClosed, linux.EPIPE},
	{fs.ErrNotExist, linux.ENOENT},
	{fs.ErrExist, linux.EEXIST},
	{fs.ErrPermission, linux.EACCES},
	{fs.ErrClosed, linux.EBADF},
	{fs.ErrNotSupported, linux.ENOSYS},
}

// toErrno converts err into the linux.Errno the p9 server sends in
// Rlerror. Errors with no errno of their own become EIO.
func toErrno(err error) error {
	if err == nil {
		return nil
	}
	for _, e := range errnos {
		if errors.Is(err, e.err) {
			return e.errno
		}
	}
	if errno, ok := errnoOf(err); ok {
		return errno
	}
	return linux.EIO
}

func errnoOf(err error) (linux.Errno, bool) {
	var le linux.Errno
	if errors.As(err, &le) {
		return le, true
	}
	var se syscall.Errno
	if errors.As(err, &se) {
		return linux.Errno(se), true
	}
	return 0, false
}

// translateError converts an error from the p9 client back into the
// sentinel the server started from, wrapped in a PathError.
func translateError(op, path string, err error) error {
	if err == nil || err == io.EOF {
		return err
	}
	if errno, ok := errnoOf(err); ok {
		for _, e := range errnos {
			if e.errno == errno {
				return &fs.PathError{Op: op, Path: path, Err: e.err}
			}
		}
	}
	return &fs.PathError{Op: op, Path: path, Err: err}
}
