package fusekit

import (
	"context"
	"log/slog"
	"path"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"golang.org/x/sys/unix"
	iofs "tractor.dev/charloop/fs"
)

type node struct {
	fs.Inode
	fsys iofs.FS
	path string
	ctx  context.Context
	log  *slog.Logger
}

var _ = (fs.NodeGetattrer)((*node)(nil))

func (n *node) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	fi, err := iofs.StatContext(n.ctx, n.fsys, n.path)
	if err != nil {
		return sysErrno(err)
	}
	applyStat(&out.Attr, fi)
	return 0
}

var _ = (fs.NodeSetattrer)((*node)(nil))

// Setattr accepts the truncate the kernel sends for open(O_TRUNC), which
// shells use for "echo ... > ctl", and reports attributes unchanged.
func (n *node) Setattr(ctx context.Context, fh fs.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	if in.Valid&(fuse.FATTR_MODE|fuse.FATTR_UID|fuse.FATTR_GID) != 0 {
		return unix.EPERM
	}
	return n.Getattr(ctx, fh, out)
}

var _ = (fs.NodeReaddirer)((*node)(nil))

func (n *node) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	entries, err := iofs.ReadDirContext(n.ctx, n.fsys, n.path)
	if err != nil {
		return nil, sysErrno(err)
	}

	var fentries []fuse.DirEntry
	for _, entry := range entries {
		fentries = append(fentries, fuse.DirEntry{
			Name: entry.Name(),
			Mode: unixMode(entry.Type()),
			Ino:  fakeIno(path.Join(n.path, entry.Name())),
		})
	}
	return fs.NewListDirStream(fentries), 0
}

var _ = (fs.NodeOpendirer)((*node)(nil))

func (n *node) Opendir(ctx context.Context) syscall.Errno {
	return 0
}

var _ = (fs.NodeLookuper)((*node)(nil))

func (n *node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	p := path.Join(n.path, name)
	fi, err := iofs.StatContext(n.ctx, n.fsys, p)
	if err != nil {
		return nil, sysErrno(err)
	}
	applyStat(&out.Attr, fi)

	child := &node{fsys: n.fsys, path: p, ctx: n.ctx, log: n.log}
	return n.NewInode(ctx, child, fs.StableAttr{
		Mode: out.Attr.Mode & unix.S_IFMT,
		Ino:  fakeIno(p),
	}), 0
}

var _ = (fs.NodeOpener)((*node)(nil))

// Open opens the node with O_NONBLOCK carried over from the open flags.
// Reads bypass the page cache and offsets are ignored, as for a pipe.
func (n *node) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	flag := int(flags & unix.O_ACCMODE)
	if flags&unix.O_NONBLOCK != 0 {
		flag |= iofs.O_NONBLOCK
	}
	f, err := iofs.OpenFile(n.fsys, n.path, flag, 0)
	if err != nil {
		return nil, 0, sysErrno(err)
	}
	n.log.Debug("fuse open", "path", n.path, "flags", flag)
	return &handle{file: f, path: n.path}, fuse.FOPEN_DIRECT_IO | fuse.FOPEN_NONSEEKABLE, 0
}
