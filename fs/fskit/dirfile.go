package fskit

import (
	"io"
	"sort"

	"tractor.dev/charloop/fs"
)

// dirFile is a directory fs.File implementing fs.ReadDirFile
type dirFile struct {
	*Node
	entries []fs.DirEntry
	offset  int
}

// DirFile returns a directory file for info listing entries. Duplicate
// names keep the last entry given and the listing is sorted by name.
func DirFile(info *Node, entries ...fs.DirEntry) fs.File {
	info.mu.Lock()
	info.mode |= fs.ModeDir
	if info.size == 0 {
		info.size = int64(2 + len(entries))
	}
	info.mu.Unlock()
	return &dirFile{Node: info, entries: removeDuplicatesAndSort(entries)}
}

func (d *dirFile) Stat() (fs.FileInfo, error) { return d.Node, nil }
func (d *dirFile) Close() error               { return nil }
func (d *dirFile) Read(b []byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.Path(), Err: fs.ErrInvalid}
}

func (d *dirFile) ReadDir(count int) ([]fs.DirEntry, error) {
	n := len(d.entries) - d.offset
	if n == 0 && count > 0 {
		return nil, io.EOF
	}
	if count > 0 && n > count {
		n = count
	}
	list := make([]fs.DirEntry, n)
	copy(list, d.entries[d.offset:d.offset+n])
	d.offset += n
	return list, nil
}

func removeDuplicatesAndSort(entries []fs.DirEntry) []fs.DirEntry {
	last := make(map[string]fs.DirEntry)
	for _, e := range entries {
		last[e.Name()] = e
	}
	result := make([]fs.DirEntry, 0, len(last))
	for _, e := range last {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name() < result[j].Name()
	})
	return result
}
