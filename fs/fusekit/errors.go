package fusekit

import (
	"errors"
	"syscall"

	"golang.org/x/sys/unix"
	"tractor.dev/charloop/fs"
	"tractor.dev/charloop/pipe"
)

func sysErrno(err error) syscall.Errno {
	if err == nil {
		return syscall.Errno(0)
	}

	switch {
	case errors.Is(err, pipe.ErrWouldBlock):
		return unix.EAGAIN
	case errors.Is(err, pipe.ErrInterrupted):
		return unix.EINTR
	case errors.Is(err, pipe.ErrFault):
		return unix.EFAULT
	case errors.Is(err, pipe.ErrNoMemory):
		return unix.ENOMEM
	case errors.Is(err, pipe.ErrClosed):
		return unix.EPIPE
	case errors.Is(err, fs.ErrNotSupported):
		return unix.EOPNOTSUPP
	case errors.Is(err, fs.ErrExist):
		return unix.EEXIST
	case errors.Is(err, fs.ErrNotExist):
		return unix.ENOENT
	case errors.Is(err, fs.ErrInvalid), errors.Is(err, pipe.ErrInvalidSize):
		return unix.EINVAL
	case errors.Is(err, fs.ErrPermission):
		return unix.EACCES
	case errors.Is(err, fs.ErrClosed):
		return unix.EBADF
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return unix.EIO
}
