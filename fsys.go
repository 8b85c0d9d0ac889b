package charloop

import (
	"context"
	"os"
	"strconv"

	"tractor.dev/charloop/fs"
	"tractor.dev/charloop/fs/fskit"
	"tractor.dev/charloop/internal"
	"tractor.dev/charloop/pipe"
	"tractor.dev/toolkit-go/engine/cli"
)

// EndpointMode is the mode endpoints are listed with.
const EndpointMode = fs.ModeNamedPipe | 0666

var (
	_ fs.FS            = (*Registry)(nil)
	_ fs.OpenContextFS = (*Registry)(nil)
	_ fs.OpenFileFS    = (*Registry)(nil)
	_ fs.StatContextFS = (*Registry)(nil)
)

func (r *Registry) Open(name string) (fs.File, error) {
	return r.OpenContext(context.Background(), name)
}

func (r *Registry) OpenContext(ctx context.Context, name string) (fs.File, error) {
	return r.openFile(ctx, name, os.O_RDWR)
}

// OpenFile opens name. An endpoint opened with fs.O_NONBLOCK returns a
// handle whose reads and writes fail with pipe.ErrWouldBlock instead of
// waiting. Endpoints cannot be created through the file system; use the
// ctl file.
func (r *Registry) OpenFile(name string, flag int, perm fs.FileMode) (fs.File, error) {
	if flag&os.O_CREATE != 0 {
		if _, err := r.StatContext(context.Background(), name); err == nil && flag&os.O_EXCL == 0 {
			return r.openFile(context.Background(), name, flag)
		}
		return nil, &fs.PathError{Op: "create", Path: name, Err: fs.ErrPermission}
	}
	return r.openFile(context.Background(), name, flag)
}

func (r *Registry) openFile(ctx context.Context, name string, flag int) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	switch name {
	case ".":
		return fskit.DirFile(fskit.Entry(".", fs.ModeDir|0555), r.entries()...), nil
	case BufferSizeFile:
		return fs.OpenContext(ctx, internal.FieldFile(strconv.Itoa(r.cfg.BufferSize)), name)
	case CtlFile:
		return fs.OpenContext(ctx, internal.ControlFile(r.control()), name)
	case NewFile:
		return &fskit.FuncFile{
			Node: fskit.Entry(NewFile, 0444),
			ReadFunc: func(n *fskit.Node) error {
				p, err := r.Alloc()
				if err != nil {
					return err
				}
				a, b := p.Names()
				fskit.SetData(n, []byte(a+" "+b+"\n"))
				return nil
			},
		}, nil
	}
	port, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	pf := pipe.NewPortFile(port, name, flag&fs.O_NONBLOCK != 0)
	r.log.Debug("open", "name", name, "nonblock", pf.Nonblock())
	return pf, nil
}

func (r *Registry) Stat(name string) (fs.FileInfo, error) {
	return r.StatContext(context.Background(), name)
}

func (r *Registry) StatContext(ctx context.Context, name string) (fs.FileInfo, error) {
	switch name {
	case ".":
		return fskit.Entry(".", fs.ModeDir|0555), nil
	case BufferSizeFile:
		return fskit.Entry(name, 0444, []byte(strconv.Itoa(r.cfg.BufferSize)+"\n")), nil
	case CtlFile:
		return fskit.Entry(name, 0222), nil
	case NewFile:
		return fskit.Entry(name, 0444), nil
	}
	port, err := r.Lookup(name)
	if err != nil {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
	}
	return fskit.Entry(name, EndpointMode, int64(port.Size())), nil
}

func (r *Registry) entries() []fs.DirEntry {
	entries := []fs.DirEntry{
		fskit.Entry(BufferSizeFile, 0444),
		fskit.Entry(CtlFile, 0222),
		fskit.Entry(NewFile, 0444),
	}
	for _, name := range r.Names() {
		entries = append(entries, fskit.Entry(name, EndpointMode))
	}
	return entries
}

func (r *Registry) control() *internal.Control {
	ctl := &internal.Control{}
	root := &cli.Command{
		Usage: "ctl",
		Short: "manage pipe pairs",
	}
	root.AddCommand(&cli.Command{
		Usage: "new <a> <b>",
		Short: "create a pair exposed as a and b",
		Args:  cli.ExactArgs(2),
		Run: func(_ *cli.Context, args []string) {
			if _, err := r.NewPair(args[0], args[1]); err != nil {
				ctl.Fail(err)
			}
		},
	})
	root.AddCommand(&cli.Command{
		Usage: "destroy <name>",
		Short: "tear down the pair that owns name",
		Args:  cli.ExactArgs(1),
		Run: func(_ *cli.Context, args []string) {
			if err := r.DestroyPair(args[0]); err != nil {
				ctl.Fail(err)
			}
		},
	})
	ctl.Cmd = root
	return ctl
}
