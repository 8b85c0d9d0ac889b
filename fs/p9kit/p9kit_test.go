package p9kit

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"testing"
	"time"

	"tractor.dev/charloop"
	"tractor.dev/charloop/fs"
	"tractor.dev/charloop/pipe"
)

const testTimeout = 5 * time.Second

// testSetup serves a registry with the default pair over net.Pipe and
// returns the registry and a client attached to it.
func testSetup(t *testing.T) (*charloop.Registry, *FS) {
	t.Helper()

	reg, err := charloop.New(charloop.Config{BufferSize: 4, Names: charloop.DefaultNames})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	a, b := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewServer(reg).ServeConn(ctx, a)
	}()

	fsys, err := ClientFS(b, "")
	if err != nil {
		t.Fatalf("ClientFS: %v", err)
	}

	t.Cleanup(func() {
		fsys.Close()
		cancel()
		<-done
		reg.Close()
	})
	return reg, fsys
}

func TestIntegration_Listing(t *testing.T) {
	_, fsys := testSetup(t)

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	want := []string{"buffer_size", "charloop0", "charloop1", "ctl", "new"}
	if len(entries) != len(want) {
		t.Fatalf("ReadDir: expected %d entries, got %d", len(want), len(entries))
	}
	for i, e := range entries {
		if e.Name() != want[i] {
			t.Errorf("entry %d: expected %s, got %s", i, want[i], e.Name())
		}
	}

	fi, err := fs.Stat(fsys, "charloop0")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if fi.Mode()&fs.ModeNamedPipe == 0 {
		t.Errorf("Stat: expected a named pipe, got %v", fi.Mode())
	}

	if _, err := fs.Stat(fsys, "charloop9"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Stat missing: expected ErrNotExist, got %v", err)
	}
}

func TestIntegration_BufferSize(t *testing.T) {
	_, fsys := testSetup(t)

	data, err := fs.ReadFile(fsys, charloop.BufferSizeFile)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "4\n" {
		t.Errorf("ReadFile: expected %q, got %q", "4\n", data)
	}
}

func TestIntegration_Transfer(t *testing.T) {
	_, fsys := testSetup(t)

	a, err := fsys.Open("charloop0")
	if err != nil {
		t.Fatalf("Open a: %v", err)
	}
	defer a.Close()
	b, err := fsys.OpenFile("charloop1", os.O_RDWR|fs.O_NONBLOCK, 0)
	if err != nil {
		t.Fatalf("Open b: %v", err)
	}
	defer b.Close()

	t.Run("empty read would block", func(t *testing.T) {
		_, err := b.Read(make([]byte, 4))
		if !errors.Is(err, pipe.ErrWouldBlock) {
			t.Fatalf("Read: expected ErrWouldBlock, got %v", err)
		}
	})

	t.Run("write then read", func(t *testing.T) {
		if _, err := fs.Write(a, []byte("abc")); err != nil {
			t.Fatalf("Write: %v", err)
		}
		buf := make([]byte, 8)
		n, err := b.Read(buf)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if string(buf[:n]) != "abc" {
			t.Errorf("Read: expected %q, got %q", "abc", buf[:n])
		}
	})

	t.Run("full write would block", func(t *testing.T) {
		n, err := fs.Write(b, []byte("wxyz"))
		if err != nil || n != 4 {
			t.Fatalf("Write: %d, %v", n, err)
		}
		if _, err := fs.Write(b, []byte("!")); !errors.Is(err, pipe.ErrWouldBlock) {
			t.Fatalf("Write: expected ErrWouldBlock, got %v", err)
		}
		buf := make([]byte, 8)
		n, err = a.Read(buf)
		if err != nil || string(buf[:n]) != "wxyz" {
			t.Fatalf("Read: %q, %v", buf[:n], err)
		}
	})
}

func TestIntegration_BlockedReadWakes(t *testing.T) {
	reg, fsys := testSetup(t)

	b, err := fsys.Open("charloop1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer b.Close()

	type result struct {
		data string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		buf := make([]byte, 4)
		n, err := b.Read(buf)
		done <- result{string(buf[:n]), err}
	}()

	select {
	case r := <-done:
		t.Fatalf("Read returned early: %q, %v", r.data, r.err)
	case <-time.After(50 * time.Millisecond):
	}

	port, err := reg.Lookup("charloop0")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := port.WriteBytes(context.Background(), []byte("hi"), true); err != nil {
		t.Fatal(err)
	}

	select {
	case r := <-done:
		if r.err != nil || r.data != "hi" {
			t.Fatalf("Read: %q, %v", r.data, r.err)
		}
	case <-time.After(testTimeout):
		t.Fatal("remote read not woken by local write")
	}
}

func TestIntegration_Ctl(t *testing.T) {
	reg, fsys := testSetup(t)

	f, err := fsys.Open(charloop.CtlFile)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := fs.Write(f, []byte("new left right\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	deadline := time.Now().Add(testTimeout)
	for {
		if _, err := reg.Lookup("left"); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("ctl command not executed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if _, err := fs.Stat(fsys, "right"); err != nil {
		t.Errorf("Stat right: %v", err)
	}
}

func TestIntegration_TeardownEOF(t *testing.T) {
	reg, fsys := testSetup(t)

	b, err := fsys.Open("charloop1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer b.Close()

	if err := reg.DestroyPair("charloop0"); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Read(make([]byte, 1)); err != io.EOF {
		t.Fatalf("Read after teardown: expected EOF, got %v", err)
	}
}

func TestErrnoRoundTrip(t *testing.T) {
	for _, want := range []error{
		pipe.ErrWouldBlock,
		pipe.ErrInterrupted,
		pipe.ErrFault,
		pipe.ErrNoMemory,
		pipe.ErrClosed,
		fs.ErrNotExist,
		fs.ErrExist,
		fs.ErrPermission,
		fs.ErrInvalid,
	} {
		t.Run(want.Error(), func(t *testing.T) {
			got := translateError("read", "x", toErrno(want))
			if !errors.Is(got, want) {
				t.Fatalf("round trip: expected %v, got %v", want, got)
			}
		})
	}

	t.Run("wrapped", func(t *testing.T) {
		err := &fs.PathError{Op: "read", Path: "x", Err: &pipe.InterruptedError{Cause: context.Canceled}}
		got := translateError("read", "x", toErrno(err))
		if !errors.Is(got, pipe.ErrInterrupted) {
			t.Fatalf("expected ErrInterrupted, got %v", got)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		if toErrno(errors.New("boom")) == nil {
			t.Fatal("expected an errno")
		}
		if toErrno(nil) != nil {
			t.Fatal("expected nil")
		}
	})
}
