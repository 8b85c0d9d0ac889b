package fusekit

import (
	"hash/fnv"

	"github.com/hanwen/go-fuse/v2/fuse"
	"golang.org/x/sys/unix"
	iofs "tractor.dev/charloop/fs"
)

func fakeIno(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

// unixMode converts a Go file mode to st_mode. Named pipes become regular
// files: the kernel handles FIFO inodes itself and would never send their
// reads and writes to us.
func unixMode(m iofs.FileMode) uint32 {
	mode := uint32(m.Perm())
	switch {
	case m.IsDir():
		mode |= unix.S_IFDIR
	case m&iofs.ModeSymlink != 0:
		mode |= unix.S_IFLNK
	default:
		mode |= unix.S_IFREG
	}
	return mode
}

func applyStat(out *fuse.Attr, fi iofs.FileInfo) {
	out.Mtime = uint64(fi.ModTime().Unix())
	out.Mtimensec = uint32(fi.ModTime().Nanosecond())
	out.Ctime = out.Mtime
	out.Ctimensec = out.Mtimensec
	out.Mode = unixMode(fi.Mode())
	out.Size = uint64(fi.Size())
	out.Nlink = 1
}
