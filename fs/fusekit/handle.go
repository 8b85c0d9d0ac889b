package fusekit

import (
	"context"
	"errors"
	"io"
	"sync"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	iofs "tractor.dev/charloop/fs"
)

type handle struct {
	file iofs.File
	path string

	closeOnce sync.Once
	closeErr  error
}

var _ = (fs.FileReader)((*handle)(nil))

func (h *handle) Read(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	n, err := iofs.ReadAtContext(ctx, h.file, dest, off)
	if err != nil && err != io.EOF {
		return nil, sysErrno(err)
	}
	return fuse.ReadResultData(dest[:n]), 0
}

var _ = (fs.FileWriter)((*handle)(nil))

func (h *handle) Write(ctx context.Context, data []byte, off int64) (uint32, syscall.Errno) {
	n, err := iofs.WriteAtContext(ctx, h.file, data, off)
	if err != nil && n == 0 {
		return 0, sysErrno(err)
	}
	return uint32(n), 0
}

var _ = (fs.FileFlusher)((*handle)(nil))

// Flush closes the file on the first close(2) of the descriptor so that
// errors from ctl commands reach the caller.
func (h *handle) Flush(ctx context.Context) syscall.Errno {
	h.closeOnce.Do(func() {
		h.closeErr = h.file.Close()
	})
	if h.closeErr != nil && !errors.Is(h.closeErr, iofs.ErrClosed) {
		return sysErrno(h.closeErr)
	}
	return 0
}

var _ = (fs.FileReleaser)((*handle)(nil))

func (h *handle) Release(ctx context.Context) syscall.Errno {
	h.closeOnce.Do(func() {
		h.closeErr = h.file.Close()
	})
	return 0
}

var _ = (fs.FileGetattrer)((*handle)(nil))

func (h *handle) Getattr(ctx context.Context, out *fuse.AttrOut) syscall.Errno {
	fi, err := h.file.Stat()
	if err != nil {
		return sysErrno(err)
	}
	applyStat(&out.Attr, fi)
	return 0
}
