package internal

import (
	"errors"
	"io"
	"strings"
	"testing"

	"tractor.dev/charloop/fs"
	"tractor.dev/toolkit-go/engine/cli"
)

func TestFieldFile(t *testing.T) {
	fsys := FieldFile("16384")
	b, err := fs.ReadFile(fsys, ".")
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "16384\n" {
		t.Fatalf("got %q", b)
	}
	fi, err := fs.Stat(fsys, ".")
	if err != nil {
		t.Fatal(err)
	}
	if fi.Mode().Perm() != 0444 {
		t.Fatalf("mode %v, want read-only", fi.Mode())
	}
}

func TestFieldFileGetterSetter(t *testing.T) {
	value := "a"
	fsys := FieldFile(
		func() (string, error) { return value, nil },
		func(b []byte) error { value = string(b); return nil },
	)

	f, err := fsys.Open(".")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.(io.Writer).Write([]byte("b")); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	if value != "b" {
		t.Fatalf("setter not called, value %q", value)
	}

	b, err := fs.ReadFile(fsys, ".")
	if err != nil || string(b) != "b\n" {
		t.Fatalf("ReadFile = %q, %v", b, err)
	}
}

func TestControlFile(t *testing.T) {
	var got []string
	errBoom := errors.New("boom")
	ctl := &Control{}
	root := &cli.Command{Usage: "ctl"}
	root.AddCommand(&cli.Command{
		Usage: "say <word>",
		Args:  cli.ExactArgs(1),
		Run: func(ctx *cli.Context, args []string) {
			got = append(got, args[0])
		},
	})
	root.AddCommand(&cli.Command{
		Usage: "fail",
		Run: func(ctx *cli.Context, args []string) {
			ctl.Fail(errBoom)
		},
	})
	ctl.Cmd = root
	fsys := ControlFile(ctl)

	write := func(s string) error {
		f, err := fsys.Open(".")
		if err != nil {
			return err
		}
		if _, err := f.(io.Writer).Write([]byte(s)); err != nil {
			return err
		}
		return f.Close()
	}

	if err := write("say hello\n"); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "hello" {
		t.Fatalf("got %v", got)
	}
	if err := write("fail"); !errors.Is(err, errBoom) {
		t.Fatalf("got %v, want errBoom", err)
	}
	if err := write("say again"); err != nil {
		t.Fatalf("failure leaked into next execution: %v", err)
	}

	t.Run("one command per line", func(t *testing.T) {
		got = nil
		if err := write("say a\n\nsay b\nsay c"); err != nil {
			t.Fatal(err)
		}
		if strings.Join(got, ",") != "a,b,c" {
			t.Fatalf("got %v, want [a b c]", got)
		}
	})

	t.Run("stops at failing line", func(t *testing.T) {
		got = nil
		if err := write("say a\nfail\nsay b\n"); !errors.Is(err, errBoom) {
			t.Fatalf("got %v, want errBoom", err)
		}
		if strings.Join(got, ",") != "a" {
			t.Fatalf("got %v, want [a]", got)
		}
	})
}
