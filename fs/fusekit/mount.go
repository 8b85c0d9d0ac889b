package fusekit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	iofs "tractor.dev/charloop/fs"
)

type mount struct {
	path string
	*fuse.Server
}

func (m *mount) Close() error {
	if m.Server == nil {
		exec.Command("umount", m.path).Run()
		return nil
	}
	return m.Server.Unmount()
}

// Mount serves fsys at path until the returned closer is closed. Reads and
// writes run under the context of the FUSE request, which the kernel
// cancels when the calling process is interrupted. fsctx is used for
// lookups and directory listings.
func Mount(fsys iofs.FS, path string, fsctx context.Context, log *slog.Logger, debug bool) (io.Closer, error) {
	exec.Command("umount", path).Run()

	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("mount %s: %w", path, err)
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	opts := &fs.Options{
		UID: uint32(os.Getuid()),
		GID: uint32(os.Getgid()),
	}
	opts.Debug = debug
	opts.FsName = "charloop"
	opts.Name = "charloop"

	server, err := fs.Mount(path, &node{fsys: fsys, path: ".", ctx: fsctx, log: log}, opts)
	if err != nil {
		return nil, err
	}
	log.Info("mounted", "path", path)
	return &mount{Server: server, path: path}, nil
}
