package fskit

import (
	"sync"

	"tractor.dev/charloop/fs"
)

// FuncFile is a file whose content is produced or consumed by callbacks.
// ReadFunc runs before the first read and may update the node's data.
// CloseFunc runs on Close with the node holding whatever was written.
type FuncFile struct {
	Node      *Node
	ReadFunc  func(n *Node) error
	CloseFunc func(n *Node) error

	firstRead bool
	closed    bool
	openFile  *nodeFile
	mu        sync.Mutex
}

var _ fs.File = (*FuncFile)(nil)

func (f *FuncFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return fs.ErrClosed
	}
	f.closed = true

	if f.openFile == nil {
		return nil
	}
	if err := f.openFile.Close(); err != nil {
		return err
	}
	if f.CloseFunc != nil {
		return f.CloseFunc(f.Node)
	}
	return nil
}

func (f *FuncFile) Stat() (fs.FileInfo, error) {
	return f.Node, nil
}

func (f *FuncFile) Read(b []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, fs.ErrClosed
	}

	if !f.firstRead {
		f.firstRead = true
		if f.ReadFunc != nil {
			if err := f.ReadFunc(f.Node); err != nil {
				return 0, err
			}
		}
		f.openFile = f.Node.file()
	}

	return f.openFile.Read(b)
}

func (f *FuncFile) ReadAt(b []byte, off int64) (int, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return 0, fs.ErrClosed
	}
	if !f.firstRead {
		f.firstRead = true
		if f.ReadFunc != nil {
			if err := f.ReadFunc(f.Node); err != nil {
				f.mu.Unlock()
				return 0, err
			}
		}
		f.openFile = f.Node.file()
	}
	of := f.openFile
	f.mu.Unlock()
	return of.ReadAt(b, off)
}

func (f *FuncFile) Write(b []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, fs.ErrClosed
	}
	if f.openFile == nil {
		f.openFile = &nodeFile{inode: f.Node}
	}
	return f.openFile.Write(b)
}
