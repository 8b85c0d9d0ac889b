package internal

import (
	"context"
	"errors"
	"strings"
	"sync"

	"tractor.dev/charloop/fs"
	"tractor.dev/charloop/fs/fskit"
	"tractor.dev/toolkit-go/engine/cli"
)

// FieldFile returns a file system whose root is a small text file. Args
// may be a fixed string value, a getter func() (string, error) called on
// each read, a setter func([]byte) error called with the written bytes on
// close, and an fs.FileMode.
func FieldFile(args ...any) fs.FS {
	var (
		mode   fs.FileMode = 0444
		value  string
		getter func() (string, error)
		setter func([]byte) error
	)
	for _, arg := range args {
		switch v := arg.(type) {
		case string:
			value = v
		case func() (string, error):
			getter = v
		case func([]byte) error:
			setter = v
		case fs.FileMode:
			mode = v
		}
	}
	if setter != nil && mode == 0444 {
		mode = 0644
	}
	return fskit.OpenFunc(func(ctx context.Context, name string) (fs.File, error) {
		var wasRead bool
		return &fskit.FuncFile{
			Node: fskit.Entry(name, mode, []byte(withNewline(value))),
			ReadFunc: func(n *fskit.Node) error {
				wasRead = true
				if getter != nil {
					v, err := getter()
					if err != nil {
						return err
					}
					fskit.SetData(n, []byte(withNewline(v)))
				}
				return nil
			},
			CloseFunc: func(n *fskit.Node) error {
				if setter == nil {
					if !wasRead {
						return fs.ErrPermission
					}
					return nil
				}
				if !wasRead {
					return setter(n.Data())
				}
				return nil
			},
		}, nil
	})
}

func withNewline(s string) string {
	if len(s) == 0 || s[len(s)-1] != '\n' {
		return s + "\n"
	}
	return s
}

// Control runs command lines written to a ctl file. Commands report
// failure with Fail from inside their Run func; the failure is returned
// from the Close of the ctl file that triggered it.
type Control struct {
	Cmd *cli.Command

	mu  sync.Mutex
	err error
}

// Fail records err against the command line currently executing.
func (c *Control) Fail(err error) {
	c.err = errors.Join(c.err, err)
}

// Execute runs each line of text as a command, in order. It stops at the
// first line that fails and returns that line's error. Blank lines are
// skipped. Executions are serialized.
func (c *Control) Execute(ctx context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for line := range strings.Lines(text) {
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		c.err = nil
		if err := cli.Execute(ctx, c.Cmd, args); err != nil {
			return err
		}
		if c.err != nil {
			return c.err
		}
	}
	return nil
}

// ControlFile returns a file system whose root is a write-only file that
// executes what was written to it when closed, one command per line.
func ControlFile(c *Control) fs.FS {
	return fskit.OpenFunc(func(ctx context.Context, name string) (fs.File, error) {
		return &fskit.FuncFile{
			Node: fskit.Entry(c.Cmd.Name(), 0222),
			CloseFunc: func(n *fskit.Node) error {
				return c.Execute(ctx, string(n.Data()))
			},
		}, nil
	})
}
