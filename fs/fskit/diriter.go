package fskit

import (
	"io"

	"tractor.dev/charloop/fs"
)

// DirIter implements fs.ReadDirFile.ReadDir over a listing that is fetched
// lazily with fn on the first call.
type DirIter struct {
	fn      func() ([]fs.DirEntry, error)
	entries []fs.DirEntry
	loaded  bool
	cursor  int
}

func NewDirIter(fn func() ([]fs.DirEntry, error)) *DirIter {
	return &DirIter{fn: fn}
}

func (it *DirIter) ReadDir(n int) ([]fs.DirEntry, error) {
	if !it.loaded {
		entries, err := it.fn()
		if err != nil {
			return nil, err
		}
		it.entries = entries
		it.loaded = true
	}

	rest := it.entries[it.cursor:]
	if n <= 0 {
		it.cursor = len(it.entries)
		return rest, nil
	}
	if len(rest) == 0 {
		return nil, io.EOF
	}
	n = min(n, len(rest))
	it.cursor += n
	return rest[:n], nil
}
