package p9kit

import (
	"context"
	"io"
	"net"
	"os"
	"path"
	"strings"
	"time"

	"github.com/hugelgupf/p9/p9"
	"tractor.dev/charloop/fs"
	"tractor.dev/charloop/fs/fskit"
)

// readdirChunk keeps Treaddir counts well under what the server can encode.
const readdirChunk = 4096

// ClientFS attaches to a 9P server on conn and returns its root as a file
// system.
func ClientFS(conn net.Conn, aname string, o ...p9.ClientOpt) (*FS, error) {
	client, err := p9.NewClient(conn, o...)
	if err != nil {
		return nil, err
	}
	root, err := client.Attach(aname)
	if err != nil {
		return nil, err
	}
	return &FS{conn: conn, root: root}, nil
}

type FS struct {
	conn net.Conn
	root p9.File
}

var (
	_ fs.OpenContextFS = (*FS)(nil)
	_ fs.OpenFileFS    = (*FS)(nil)
	_ fs.StatContextFS = (*FS)(nil)
	_ fs.ReadDirFS     = (*FS)(nil)
)

// Close releases the root fid and the connection.
func (fsys *FS) Close() error {
	fsys.root.Close()
	return fsys.conn.Close()
}

func walkParts(name string) []string {
	name = path.Clean(name)
	if name == "." {
		return nil
	}
	return strings.Split(name, "/")
}

func (fsys *FS) walk(op, name string) (p9.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: op, Path: name, Err: fs.ErrInvalid}
	}
	_, f, err := fsys.root.Walk(walkParts(name))
	if err != nil {
		return nil, translateError(op, name, err)
	}
	return f, nil
}

func (fsys *FS) Open(name string) (fs.File, error) {
	return fsys.OpenFile(name, os.O_RDWR, 0)
}

func (fsys *FS) OpenContext(ctx context.Context, name string) (fs.File, error) {
	return fsys.Open(name)
}

// OpenFile opens name with the access mode in flag, falling back to
// read-only for O_RDWR opens the server refuses. fs.O_NONBLOCK is passed
// through, so reads and writes on an empty or full endpoint fail with
// pipe.ErrWouldBlock.
func (fsys *FS) OpenFile(name string, flag int, perm fs.FileMode) (fs.File, error) {
	if flag&os.O_CREATE != 0 {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotSupported}
	}
	f, err := fsys.walk("open", name)
	if err != nil {
		return nil, err
	}

	mode := p9.OpenFlags(flag & linuxAccMode)
	if flag&fs.O_NONBLOCK != 0 {
		mode |= p9.OpenFlags(linuxNonblock)
	}
	_, _, err = f.Open(mode)
	if err != nil && flag&linuxAccMode == os.O_RDWR {
		// directories and read-only files
		_, _, err = f.Open(p9.ReadOnly | (mode &^ linuxAccMode))
	}
	if err != nil {
		f.Close()
		return nil, translateError("open", name, err)
	}

	return &remoteFile{
		file: f,
		root: fsys.root,
		path: name,
	}, nil
}

func (fsys *FS) Stat(name string) (fs.FileInfo, error) {
	return fsys.StatContext(context.Background(), name)
}

func (fsys *FS) StatContext(ctx context.Context, name string) (fs.FileInfo, error) {
	f, err := fsys.walk("stat", name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := fileInfo(f, path.Base(name))
	if err != nil {
		return nil, translateError("stat", name, err)
	}
	return fi, nil
}

func (fsys *FS) ReadDir(name string) ([]fs.DirEntry, error) {
	f, err := fsys.walk("readdir", name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if _, _, err := f.Open(p9.ReadOnly); err != nil {
		return nil, translateError("readdir", name, err)
	}
	return readDir(fsys.root, f, name)
}

// readDir lists the opened directory fid f. Opened fids cannot be walked
// from, so each entry is statted by a walk from root.
func readDir(root, f p9.File, name string) ([]fs.DirEntry, error) {
	var entries []fs.DirEntry
	var offset uint64
	for {
		dirents, err := f.Readdir(offset, readdirChunk)
		if err != nil {
			return nil, translateError("readdir", name, err)
		}
		if len(dirents) == 0 {
			return entries, nil
		}
		for _, d := range dirents {
			offset = d.Offset
			_, child, err := root.Walk(append(walkParts(name), d.Name))
			if err != nil {
				// removed since the listing
				continue
			}
			fi, err := fileInfo(child, d.Name)
			child.Close()
			if err != nil {
				continue
			}
			entries = append(entries, fi)
		}
	}
}

type remoteFile struct {
	file   p9.File
	root   p9.File
	path   string
	offset int64
	iter   *fskit.DirIter
}

var (
	_ io.ReadWriter = (*remoteFile)(nil)
	_ io.ReaderAt   = (*remoteFile)(nil)
	_ io.WriterAt   = (*remoteFile)(nil)
)

// Read reads at the file's offset. Endpoints ignore it.
func (f *remoteFile) Read(p []byte) (n int, err error) {
	n, err = f.file.ReadAt(p, f.offset)
	f.offset += int64(n)
	return n, translateError("read", f.path, err)
}

// Write sends p in one request. A non-blocking endpoint may accept fewer
// bytes than len(p) without an error.
func (f *remoteFile) Write(p []byte) (n int, err error) {
	n, err = f.file.WriteAt(p, f.offset)
	f.offset += int64(n)
	return n, translateError("write", f.path, err)
}

func (f *remoteFile) ReadAt(p []byte, off int64) (n int, err error) {
	n, err = f.file.ReadAt(p, off)
	return n, translateError("read", f.path, err)
}

func (f *remoteFile) WriteAt(p []byte, off int64) (n int, err error) {
	n, err = f.file.WriteAt(p, off)
	return n, translateError("write", f.path, err)
}

func (f *remoteFile) Close() error {
	return translateError("close", f.path, f.file.Close())
}

func (f *remoteFile) Stat() (fs.FileInfo, error) {
	fi, err := fileInfo(f.file, path.Base(f.path))
	if err != nil {
		return nil, translateError("stat", f.path, err)
	}
	return fi, nil
}

func (f *remoteFile) ReadDir(n int) ([]fs.DirEntry, error) {
	if f.iter == nil {
		f.iter = fskit.NewDirIter(func() ([]fs.DirEntry, error) {
			return readDir(f.root, f.file, f.path)
		})
	}
	return f.iter.ReadDir(n)
}

func fileInfo(f p9.File, name string) (*fskit.Node, error) {
	_, _, attr, err := f.GetAttr(p9.AttrMask{
		Mode:  true,
		MTime: true,
		Size:  true,
	})
	if err != nil {
		return nil, err
	}
	mode := fs.FileMode(attr.Mode&0o777) | attr.Mode.OSMode().Type()
	return fskit.Entry(
		name,
		mode,
		int64(attr.Size),
		time.Unix(int64(attr.MTimeSeconds), int64(attr.MTimeNanoSeconds)),
	), nil
}
