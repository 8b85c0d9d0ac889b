package fs

import (
	"context"
	"errors"
	"os"
	"slices"
	"strings"
	"syscall"
)

// O_NONBLOCK asks OpenFile for a handle whose reads and writes fail
// instead of waiting.
const O_NONBLOCK = syscall.O_NONBLOCK

type OpenContextFS interface {
	FS
	OpenContext(ctx context.Context, name string) (File, error)
}

// OpenContext is a helper that opens a file with the given context and name
// falling back to Open if context is not supported.
func OpenContext(ctx context.Context, fsys FS, name string) (File, error) {
	if o, ok := fsys.(OpenContextFS); ok {
		return o.OpenContext(ctx, name)
	}
	return fsys.Open(name)
}

type OpenFileFS interface {
	FS
	OpenFile(name string, flag int, perm FileMode) (File, error)
}

// OpenFile is a helper that opens a file with the given flag and permissions
// if supported. File systems that only implement Open cannot create files.
func OpenFile(fsys FS, name string, flag int, perm FileMode) (File, error) {
	if o, ok := fsys.(OpenFileFS); ok {
		return o.OpenFile(name, flag, perm)
	}
	if flag&os.O_CREATE != 0 {
		return nil, &PathError{Op: "open", Path: name, Err: ErrNotSupported}
	}
	return fsys.Open(name)
}

type StatContextFS interface {
	FS
	StatContext(ctx context.Context, name string) (FileInfo, error)
}

func StatContext(ctx context.Context, fsys FS, name string) (FileInfo, error) {
	if s, ok := fsys.(StatContextFS); ok {
		return s.StatContext(ctx, name)
	}
	if s, ok := fsys.(StatFS); ok {
		return s.Stat(name)
	}
	f, err := OpenContext(ctx, fsys, name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.Stat()
}

// ReadDirContext reads the named directory and returns its entries sorted
// by name.
func ReadDirContext(ctx context.Context, fsys FS, name string) ([]DirEntry, error) {
	f, err := OpenContext(ctx, fsys, name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dir, ok := f.(ReadDirFile)
	if !ok {
		return nil, &PathError{Op: "readdir", Path: name, Err: errors.New("not a directory")}
	}
	list, err := dir.ReadDir(-1)
	slices.SortFunc(list, func(a, b DirEntry) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return list, err
}
