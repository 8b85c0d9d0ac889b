package pipe

import (
	"context"
	"errors"
	"testing"
	"time"
)

// badRegion fails every copy.
type badRegion struct{ n int }

var errBadAddress = errors.New("unmapped")

func (r badRegion) Len() int                    { return r.n }
func (r badRegion) CopyOut([]byte) (int, error) { return 0, errBadAddress }
func (r badRegion) CopyIn([]byte) (int, error)  { return 0, errBadAddress }

// shortRegion copies at most one byte without reporting an error.
type shortRegion []byte

func (r shortRegion) Len() int                        { return len(r) }
func (r shortRegion) CopyOut(src []byte) (int, error) { return copy(r[:1], src), nil }
func (r shortRegion) CopyIn(dst []byte) (int, error)  { return copy(dst[:1], r), nil }

func TestNewBuffer(t *testing.T) {
	for _, tt := range []struct {
		size int
		err  error
	}{
		{size: 1},
		{size: 4096},
		{size: 0, err: ErrInvalidSize},
		{size: -1, err: ErrInvalidSize},
		{size: MaxBufferSize + 1, err: ErrNoMemory},
	} {
		b, err := NewBuffer(tt.size)
		if !errors.Is(err, tt.err) {
			t.Errorf("NewBuffer(%d): got %v, want %v", tt.size, err, tt.err)
			continue
		}
		if err == nil && (b.Cap() != tt.size || b.Len() != 0 || !b.Empty()) {
			t.Errorf("NewBuffer(%d): cap=%d len=%d", tt.size, b.Cap(), b.Len())
		}
	}
}

func TestBufferAppendTake(t *testing.T) {
	b, err := NewBuffer(4)
	if err != nil {
		t.Fatal(err)
	}

	n, err := b.TryAppend(Bytes("abcdef"))
	if err != nil || n != 4 {
		t.Fatalf("TryAppend = %d, %v; want 4, nil", n, err)
	}
	if !b.Full() {
		t.Fatal("buffer should be full")
	}
	if n, _ := b.TryAppend(Bytes("g")); n != 0 {
		t.Fatalf("append to full buffer accepted %d bytes", n)
	}

	dst := make([]byte, 2)
	n, err = b.TakeUpTo(Bytes(dst), 2)
	if err != nil || n != 2 || string(dst) != "ab" {
		t.Fatalf("TakeUpTo = %d, %v, %q", n, err, dst)
	}
	if b.Len() != 2 {
		t.Fatalf("len %d, want 2", b.Len())
	}

	// remaining bytes were shifted to the front
	if got := string(b.data[:b.length]); got != "cd" {
		t.Fatalf("valid data %q, want %q", got, "cd")
	}

	dst = make([]byte, 8)
	n, _ = b.TakeUpTo(Bytes(dst), 1)
	if n != 1 || dst[0] != 'c' {
		t.Fatalf("max not honoured: took %d (%q)", n, dst[:n])
	}
}

func TestFaultLeavesStateUnchanged(t *testing.T) {
	p := newTestPair(t, 4)
	ctx := context.Background()
	mustWrite(t, p.A, "ab", false)

	t.Run("write", func(t *testing.T) {
		for _, src := range []Region{badRegion{n: 2}, shortRegion("xy")} {
			n, err := p.A.WriteFrom(ctx, src, false)
			if !errors.Is(err, ErrFault) || n != 0 {
				t.Fatalf("got %d, %v; want 0, ErrFault", n, err)
			}
			if size := p.B.Size(); size != 2 {
				t.Fatalf("length %d after faulted write, want 2", size)
			}
		}
	})

	t.Run("read", func(t *testing.T) {
		for _, dst := range []Region{badRegion{n: 2}, make(shortRegion, 2)} {
			n, err := p.B.ReadTo(ctx, dst, 2, false)
			if !errors.Is(err, ErrFault) || n != 0 {
				t.Fatalf("got %d, %v; want 0, ErrFault", n, err)
			}
			if size := p.B.Size(); size != 2 {
				t.Fatalf("length %d after faulted read, want 2", size)
			}
		}
	})

	t.Run("cause is kept", func(t *testing.T) {
		_, err := p.A.WriteFrom(ctx, badRegion{n: 1}, false)
		if !errors.Is(err, errBadAddress) {
			t.Fatalf("got %v, want it to wrap the copy error", err)
		}
	})

	if got := mustRead(t, p.B, 4); got != "ab" {
		t.Fatalf("read %q after faults, want %q", got, "ab")
	}
}

func TestLockInterrupted(t *testing.T) {
	b, err := NewBuffer(4)
	if err != nil {
		t.Fatal(err)
	}
	b.mustLock()
	defer b.unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := b.lock(ctx); !errors.Is(err, ErrInterrupted) {
		t.Fatalf("got %v, want ErrInterrupted", err)
	}
}

func TestCondBroadcast(t *testing.T) {
	c := newCond()
	first := c.ready()
	c.broadcast()
	select {
	case <-first:
	default:
		t.Fatal("captured channel not closed by broadcast")
	}
	select {
	case <-c.ready():
		t.Fatal("new channel already closed")
	default:
	}
}

func TestCondWait(t *testing.T) {
	c := newCond()
	done := make(chan error, 1)
	go func() {
		done <- c.wait(context.Background(), c.ready())
	}()

	deadline := time.Now().Add(testTimeout)
	for c.waiting() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("waiter never parked")
		}
		time.Sleep(time.Millisecond)
	}
	c.broadcast()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(testTimeout):
		t.Fatal("waiter not woken by broadcast")
	}
	if n := c.waiting(); n != 0 {
		t.Fatalf("%d waiters after wake, want 0", n)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.wait(ctx, c.ready()); !errors.Is(err, ErrInterrupted) {
		t.Fatalf("got %v, want ErrInterrupted", err)
	}
}
