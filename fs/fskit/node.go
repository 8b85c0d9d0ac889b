package fskit

import (
	"io"
	"log/slog"
	"path"
	"sync"
	"time"

	"tractor.dev/charloop/fs"
)

// Node is used to create an fs.FileInfo, fs.DirEntry, or fs.File.
type Node struct {
	path    string
	mode    fs.FileMode
	modTime time.Time
	size    int64
	sys     any
	data    []byte
	log     *slog.Logger

	mu sync.Mutex
}

// RawNode builds a Node from attributes given in any order: a string path,
// an fs.FileMode, an integer size, a time.Time, []byte data, another
// *Node or fs.FileInfo to copy from, or a *slog.Logger.
func RawNode(attrs ...any) *Node {
	n := &Node{}
	for _, m := range attrs {
		switch v := m.(type) {
		case *Node:
			v.mu.Lock()
			n.path = v.path
			n.mode = v.mode
			n.size = v.size
			n.modTime = v.modTime
			n.sys = v.sys
			n.data = v.data
			n.log = v.log
			v.mu.Unlock()
		case int64:
			n.size = v
		case int:
			n.size = int64(v)
		case time.Time:
			n.modTime = v
		case []byte:
			n.data = v
		case string:
			n.path = v
		case fs.FileMode:
			n.mode = v
		case fs.FileInfo:
			n.path = v.Name()
			n.mode = v.Mode()
			n.size = v.Size()
			n.modTime = v.ModTime()
			n.sys = v.Sys()
		case *slog.Logger:
			n.log = v
		}
	}
	if n.log == nil {
		n.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return n
}

func Entry(name string, mode fs.FileMode, more ...any) *Node {
	n := RawNode(more...)
	n.path = name
	n.mode = mode
	return n
}

var _ = (fs.FileInfo)((*Node)(nil))
var _ = (fs.DirEntry)((*Node)(nil))

func (n *Node) Info() (fs.FileInfo, error) { return n, nil }

func (n *Node) Path() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.path
}

func (n *Node) Name() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return path.Base(n.path)
}

func (n *Node) Mode() fs.FileMode {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.mode
}

func (n *Node) Type() fs.FileMode {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.mode.Type()
}

func (n *Node) ModTime() time.Time {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.modTime
}

func (n *Node) IsDir() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.mode&fs.ModeDir != 0
}

func (n *Node) Sys() any {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sys
}

// Size returns the explicit size if one was set, otherwise the length of
// the node's data. A negative size reports as zero.
func (n *Node) Size() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.size < 0 {
		return 0
	}
	if n.size > 0 {
		return n.size
	}
	return int64(len(n.data))
}

func (n *Node) String() string {
	return fs.FormatFileInfo(n)
}

func (n *Node) Data() []byte {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.data == nil {
		return nil
	}
	dataCopy := make([]byte, len(n.data))
	copy(dataCopy, n.data)
	return dataCopy
}

func (n *Node) Log() *slog.Logger {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.log
}

func SetData(n *Node, data []byte) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.data = data
}

func SetModTime(n *Node, modTime time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.modTime = modTime
}

// file opens the node as a file backed by a copy of its data. Writes are
// stored back to the node on Close.
func (n *Node) file() *nodeFile {
	return &nodeFile{data: n.Data(), inode: n}
}

type nodeFile struct {
	data    []byte
	inode   *Node
	dirty   bool
	offset  int64
	closed  bool
	modTime time.Time
	mu      sync.Mutex
}

func (f *nodeFile) Close() (err error) {
	defer func() {
		f.inode.Log().Debug("close", "name", f.inode.Path(), "err", err)
	}()
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return fs.ErrClosed
	}
	if f.dirty {
		SetData(f.inode, f.data)
		SetModTime(f.inode, f.modTime)
	}
	f.closed = true
	return nil
}

func (f *nodeFile) Stat() (fs.FileInfo, error) {
	return f.inode, nil
}

func (f *nodeFile) Read(b []byte) (n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, fs.ErrClosed
	}
	if f.offset >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n = copy(b, f.data[f.offset:])
	f.offset += int64(n)
	return n, nil
}

func (f *nodeFile) ReadAt(b []byte, off int64) (n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, fs.ErrClosed
	}
	if off < 0 {
		return 0, &fs.PathError{Op: "read", Path: f.inode.Path(), Err: fs.ErrInvalid}
	}
	if off >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n = copy(b, f.data[off:])
	if n < len(b) {
		return n, io.EOF
	}
	return n, nil
}

// Write appends at the current offset, growing the data as needed.
func (f *nodeFile) Write(b []byte) (n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, fs.ErrClosed
	}
	end := f.offset + int64(len(b))
	if end > int64(len(f.data)) {
		grown := make([]byte, end)
		copy(grown, f.data)
		f.data = grown
	}
	n = copy(f.data[f.offset:], b)
	f.offset += int64(n)
	f.modTime = time.Now()
	f.dirty = true
	return n, nil
}
