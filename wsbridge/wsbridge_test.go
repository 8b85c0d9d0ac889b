package wsbridge

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tractor.dev/charloop"
	"tractor.dev/charloop/fs"
)

func testServer(t *testing.T) (*charloop.Registry, string) {
	t.Helper()
	reg, err := charloop.New(charloop.Config{BufferSize: 16, Names: charloop.DefaultNames})
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(New(reg, nil))
	t.Cleanup(func() {
		srv.Close()
		reg.Close()
	})
	return reg, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestBridge(t *testing.T) {
	reg, url := testServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := Dial(ctx, url+"/charloop0")
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	b, err := reg.Lookup("charloop1")
	if err != nil {
		t.Fatal(err)
	}

	t.Run("to endpoint", func(t *testing.T) {
		if _, err := conn.Write([]byte("ping")); err != nil {
			t.Fatal(err)
		}
		buf := make([]byte, 8)
		n, err := b.ReadBytes(ctx, buf, false)
		if err != nil {
			t.Fatal(err)
		}
		if string(buf[:n]) != "ping" {
			t.Fatalf("endpoint got %q", buf[:n])
		}
	})

	t.Run("from endpoint", func(t *testing.T) {
		if _, err := b.WriteBytes(ctx, []byte("pong"), false); err != nil {
			t.Fatal(err)
		}
		buf := make([]byte, 4)
		if _, err := io.ReadFull(conn, buf); err != nil {
			t.Fatal(err)
		}
		if string(buf) != "pong" {
			t.Fatalf("ws got %q", buf)
		}
	})

	t.Run("teardown ends stream", func(t *testing.T) {
		if err := reg.DestroyPair("charloop1"); err != nil {
			t.Fatal(err)
		}
		if _, err := io.ReadAll(conn); err != nil {
			t.Fatalf("ReadAll: %v", err)
		}
	})
}

func TestDialUnknown(t *testing.T) {
	_, url := testServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, name := range []string{"nope", charloop.CtlFile} {
		if _, err := Dial(ctx, url+"/"+name); !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("Dial %s: got %v, want ErrNotExist", name, err)
		}
	}
}
