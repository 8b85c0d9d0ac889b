// Package slogger is a compact console handler for log/slog used by the
// charloop commands.
package slogger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

type HandlerOptions struct {
	Level   slog.Leveler
	Output  io.Writer // defaults to os.Stderr
	Color   bool
	Exclude []string // records with an attr matching any pattern are dropped
}

// Handler writes one line per record:
//
//	15:04:05.000 pkg: message key=value ... file.go:42
//
// Exclude patterns use path.Match syntax and are tried against both
// "key" and "key=value".
type Handler struct {
	opts  HandlerOptions
	attrs []slog.Attr
	group string
	mu    *sync.Mutex
}

var _ slog.Handler = (*Handler)(nil)

func NewHandler(opts HandlerOptions) *Handler {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if opts.Level == nil {
		opts.Level = slog.LevelInfo
	}
	return &Handler{opts: opts, mu: &sync.Mutex{}}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := *h
	for _, a := range attrs {
		a.Key = h.qualify(a.Key)
		h2.attrs = append(h2.attrs[:len(h2.attrs):len(h2.attrs)], a)
	}
	return &h2
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.group = h.qualify(name)
	return &h2
}

func (h *Handler) qualify(key string) string {
	if h.group == "" {
		return key
	}
	return h.group + "." + key
}

func (h *Handler) excluded(key, value string) bool {
	for _, p := range h.opts.Exclude {
		if ok, _ := path.Match(p, key); ok {
			return true
		}
		if ok, _ := path.Match(p, key+"="+value); ok {
			return true
		}
	}
	return false
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	attrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	attrs = append(attrs, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		a.Key = h.qualify(a.Key)
		attrs = append(attrs, a)
		return true
	})

	gray := func(s string) string { return s }
	if h.opts.Color {
		gray = func(s string) string { return "\033[90m" + s + "\033[0m" }
	}

	var parts []string
	for _, a := range attrs {
		v := "<nil>"
		if a.Value.Any() != nil {
			v = a.Value.String()
		}
		if h.excluded(a.Key, v) {
			return nil
		}
		parts = append(parts, gray(a.Key+"=")+v)
	}

	file, line := "???", 0
	if r.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		if frame.File != "" {
			file, line = frame.File, frame.Line
		}
	}
	pkg := filepath.Base(filepath.Dir(file))

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: %s", gray(r.Time.Format("15:04:05.000")), pkg, r.Message)
	if len(parts) > 0 {
		b.WriteString(" ")
		b.WriteString(strings.Join(parts, " "))
	}
	fmt.Fprintf(&b, " %s\n", gray(fmt.Sprintf("%s:%d", filepath.Base(file), line)))

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.opts.Output, b.String())
	return err
}

func New(level slog.Level) *slog.Logger {
	return slog.New(NewHandler(HandlerOptions{Level: level}))
}

// Use installs a console handler at level as the slog default.
func Use(level slog.Level) {
	slog.SetDefault(New(level))
}
