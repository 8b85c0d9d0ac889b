package fskit

import (
	"errors"
	"io"
	"testing"

	"tractor.dev/charloop/fs"
)

func TestFuncFileRead(t *testing.T) {
	node := Entry("field", 0444, []byte("initial"))

	calls := 0
	ff := &FuncFile{
		Node: node,
		ReadFunc: func(n *Node) error {
			calls++
			SetData(n, []byte("from ReadFunc\n"))
			return nil
		},
	}

	b, err := io.ReadAll(ff)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(b) != "from ReadFunc\n" {
		t.Errorf("got %q, want %q", b, "from ReadFunc\n")
	}
	if calls != 1 {
		t.Errorf("ReadFunc called %d times, want 1", calls)
	}
}

func TestFuncFileWriteThenClose(t *testing.T) {
	var got string
	ff := &FuncFile{
		Node: Entry("ctl", 0644),
		CloseFunc: func(n *Node) error {
			got = string(n.Data())
			return nil
		},
	}

	if _, err := ff.Write([]byte("new a ")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := ff.Write([]byte("b")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := ff.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got != "new a b" {
		t.Errorf("CloseFunc saw %q, want %q", got, "new a b")
	}

	if err := ff.Close(); !errors.Is(err, fs.ErrClosed) {
		t.Errorf("second Close: got %v, want ErrClosed", err)
	}
	if _, err := ff.Write([]byte("x")); !errors.Is(err, fs.ErrClosed) {
		t.Errorf("Write after Close: got %v, want ErrClosed", err)
	}
}

func TestFuncFileCloseWithoutWrite(t *testing.T) {
	called := false
	ff := &FuncFile{
		Node:      Entry("ctl", 0644),
		CloseFunc: func(n *Node) error { called = true; return nil },
	}
	if err := ff.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if called {
		t.Error("CloseFunc should not run when nothing was read or written")
	}
}

func TestDirFile(t *testing.T) {
	dir := DirFile(Entry(".", 0555),
		Entry("b", 0644),
		Entry("a", 0644),
		Entry("b", 0600),
	)

	fi, err := dir.Stat()
	if err != nil {
		t.Fatal(err)
	}
	if !fi.IsDir() {
		t.Error("DirFile info should be a directory")
	}

	rd := dir.(fs.ReadDirFile)
	first, err := rd.ReadDir(1)
	if err != nil || len(first) != 1 || first[0].Name() != "a" {
		t.Fatalf("ReadDir(1) = %v, %v", first, err)
	}
	rest, err := rd.ReadDir(-1)
	if err != nil || len(rest) != 1 || rest[0].Name() != "b" {
		t.Fatalf("ReadDir(-1) = %v, %v", rest, err)
	}
	info, _ := rest[0].Info()
	if info.Mode() != 0600 {
		t.Errorf("duplicate entry kept mode %v, want the last one", info.Mode())
	}
	if _, err := rd.ReadDir(1); err != io.EOF {
		t.Errorf("ReadDir at end: got %v, want io.EOF", err)
	}
}

func TestDirIter(t *testing.T) {
	loads := 0
	it := NewDirIter(func() ([]fs.DirEntry, error) {
		loads++
		return []fs.DirEntry{Entry("x", 0644), Entry("y", 0644), Entry("z", 0644)}, nil
	})

	page, err := it.ReadDir(2)
	if err != nil || len(page) != 2 {
		t.Fatalf("ReadDir(2) = %v, %v", page, err)
	}
	page, err = it.ReadDir(2)
	if err != nil || len(page) != 1 || page[0].Name() != "z" {
		t.Fatalf("ReadDir(2) = %v, %v", page, err)
	}
	if _, err := it.ReadDir(2); err != io.EOF {
		t.Errorf("got %v, want io.EOF", err)
	}
	if loads != 1 {
		t.Errorf("listing fetched %d times, want 1", loads)
	}
}

func TestNodeSize(t *testing.T) {
	if got := Entry("f", 0644, []byte("abc")).Size(); got != 3 {
		t.Errorf("size from data = %d, want 3", got)
	}
	if got := Entry("f", 0644, 10).Size(); got != 10 {
		t.Errorf("explicit size = %d, want 10", got)
	}
	if got := Entry("f", 0644, -1, []byte("abc")).Size(); got != 0 {
		t.Errorf("negative size = %d, want 0", got)
	}
}
