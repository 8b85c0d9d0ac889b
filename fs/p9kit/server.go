package p9kit

import (
	"context"
	"errors"
	"hash/fnv"
	"io"
	"log/slog"
	"net"
	"path"
	"sync"
	"time"

	"github.com/hugelgupf/p9/fsimpl/templatefs"
	"github.com/hugelgupf/p9/linux"
	"github.com/hugelgupf/p9/p9"
	"github.com/u-root/uio/ulog"
	"tractor.dev/charloop/fs"
)

// Linux open(2) bits as they arrive in Tlopen.
const (
	linuxAccMode  = 0x3
	linuxNonblock = 0x800
)

type Option func(*options)

type options struct {
	log   *slog.Logger
	trace ulog.Logger
}

// WithLogger sets the logger for errors the 9P protocol cannot carry back
// to the client, such as a failed ctl command on clunk.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithTrace logs every 9P message to l.
func WithTrace(l ulog.Logger) Option {
	return func(o *options) { o.trace = l }
}

func newOptions(opts []Option) options {
	o := options{log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type attacher struct {
	fsys fs.FS
	ctx  context.Context
	log  *slog.Logger
}

var _ p9.Attacher = &attacher{}

// Attacher serves fsys with a background context. Blocking reads and
// writes on its files can only be woken by the file system itself.
func Attacher(fsys fs.FS, opts ...Option) p9.Attacher {
	o := newOptions(opts)
	return &attacher{fsys: fsys, ctx: context.Background(), log: o.log}
}

// Attach implements p9.Attacher.Attach.
func (a *attacher) Attach() (p9.File, error) {
	return &p9file{path: ".", a: a}, nil
}

// Server exports a file system over 9P2000.L, one p9.Server per
// connection. Every request on a connection runs under a context that is
// cancelled when the connection's read side fails, so reads and writes
// blocked on that connection's behalf return EINTR.
type Server struct {
	fsys fs.FS
	opts options
}

func NewServer(fsys fs.FS, opts ...Option) *Server {
	return &Server{fsys: fsys, opts: newOptions(opts)}
}

// ServeConn serves one connection until it is closed or ctx is done.
func (s *Server) ServeConn(ctx context.Context, conn io.ReadWriteCloser) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	var popts []p9.ServerOpt
	if s.opts.trace != nil {
		popts = append(popts, p9.WithServerLogger(s.opts.trace))
	}
	srv := p9.NewServer(&attacher{fsys: s.fsys, ctx: ctx, log: s.opts.log}, popts...)
	r := &cancelReader{ReadCloser: conn, cancel: cancel}
	err := srv.Handle(r, conn)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// Serve accepts connections on l until ctx is done or l fails.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	stop := context.AfterFunc(ctx, func() { l.Close() })
	defer stop()

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.opts.log.Debug("9p connect", "remote", conn.RemoteAddr())
			if err := s.ServeConn(ctx, conn); err != nil {
				s.opts.log.Warn("9p connection", "remote", conn.RemoteAddr(), "err", err)
			}
			s.opts.log.Debug("9p disconnect", "remote", conn.RemoteAddr())
		}()
	}
}

type cancelReader struct {
	io.ReadCloser
	cancel context.CancelCauseFunc
}

func (r *cancelReader) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	if err != nil {
		r.cancel(err)
	}
	return n, err
}

func toQid(name string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return h.Sum64()
}

type p9file struct {
	templatefs.NotImplementedFile
	templatefs.NoopRenamed

	path string
	file fs.File
	a    *attacher
}

var _ p9.File = &p9file{}

// info constructs a QID for this file.
func (l *p9file) info() (p9.QID, fs.FileInfo, error) {
	fi, err := fs.StatContext(l.a.ctx, l.a.fsys, l.path)
	if err != nil {
		return p9.QID{}, nil, err
	}
	// Version stays 0 so clients never cache endpoint contents.
	qid := p9.QID{
		Type: p9.ModeFromOS(fi.Mode()).QIDType(),
		Path: toQid(l.path),
	}
	return qid, fi, nil
}

// Walk implements p9.File.Walk.
func (l *p9file) Walk(names []string) ([]p9.QID, p9.File, error) {
	last := &p9file{path: l.path, a: l.a}
	if len(names) == 0 {
		return nil, last, nil
	}

	var qids []p9.QID
	for _, name := range names {
		c := &p9file{path: path.Join(last.path, name), a: l.a}
		qid, _, err := c.info()
		if err != nil {
			return nil, nil, toErrno(err)
		}
		qids = append(qids, qid)
		last = c
	}
	return qids, last, nil
}

var startTime = time.Now()

// GetAttr implements p9.File.GetAttr.
func (l *p9file) GetAttr(req p9.AttrMask) (p9.QID, p9.AttrMask, p9.Attr, error) {
	qid, fi, err := l.info()
	if err != nil {
		return qid, p9.AttrMask{}, p9.Attr{}, toErrno(err)
	}
	attr := p9.Attr{
		Mode:             p9.ModeFromOS(fi.Mode()),
		NLink:            1,
		Size:             uint64(fi.Size()),
		MTimeSeconds:     uint64(fi.ModTime().Unix()),
		MTimeNanoSeconds: uint64(fi.ModTime().Nanosecond()),
		CTimeSeconds:     uint64(startTime.Unix()),
		CTimeNanoSeconds: uint64(startTime.Nanosecond()),
	}
	return qid, req, attr, nil
}

// SetAttr accepts the size and time updates Linux sends for open(O_TRUNC)
// and ignores them; nothing here has a settable size.
func (l *p9file) SetAttr(valid p9.SetAttrMask, attr p9.SetAttr) error {
	supported := p9.SetAttrMask{Size: true, MTime: true, CTime: true, ATime: true}
	if !valid.IsSubsetOf(supported) {
		return linux.EPERM
	}
	return nil
}

// Open implements p9.File.Open.
func (l *p9file) Open(mode p9.OpenFlags) (p9.QID, uint32, error) {
	qid, _, err := l.info()
	if err != nil {
		return qid, 0, toErrno(err)
	}
	flag := int(uint32(mode) & linuxAccMode)
	if uint32(mode)&linuxNonblock != 0 {
		flag |= fs.O_NONBLOCK
	}
	f, err := fs.OpenFile(l.a.fsys, l.path, flag, 0)
	if err != nil {
		return qid, 0, toErrno(err)
	}
	l.file = f
	return qid, 0, nil
}

// ReadAt implements p9.File.ReadAt. A torn down endpoint reads as zero
// bytes, which the client reports as EOF.
func (l *p9file) ReadAt(p []byte, offset int64) (int, error) {
	if l.file == nil {
		return 0, linux.EBADF
	}
	n, err := fs.ReadAtContext(l.a.ctx, l.file, p, offset)
	if err == io.EOF {
		return n, nil
	}
	return n, toErrno(err)
}

// WriteAt implements p9.File.WriteAt.
func (l *p9file) WriteAt(p []byte, offset int64) (int, error) {
	if l.file == nil {
		return 0, linux.EBADF
	}
	n, err := fs.WriteAtContext(l.a.ctx, l.file, p, offset)
	return n, toErrno(err)
}

// FSync implements p9.File.FSync.
func (l *p9file) FSync() error {
	return nil
}

// StatFS implements p9.File.StatFS.
func (l *p9file) StatFS() (p9.FSStat, error) {
	return p9.FSStat{}, nil
}

// Close implements p9.File.Close. The server calls it once, on clunk, and
// has no way to return its error to the client, so failures are logged.
func (l *p9file) Close() error {
	if l.file == nil {
		return nil
	}
	if err := l.file.Close(); err != nil {
		l.a.log.Warn("close", "path", l.path, "err", err)
		return toErrno(err)
	}
	return nil
}

// Readdir implements p9.File.Readdir. Offsets are entry indexes into the
// sorted listing, so a client resuming at the last offset it saw gets the
// entries that follow.
func (l *p9file) Readdir(offset uint64, count uint32) (p9.Dirents, error) {
	if _, ok := l.file.(fs.ReadDirFile); !ok {
		return nil, linux.ENOTDIR
	}
	entries, err := fs.ReadDirContext(l.a.ctx, l.a.fsys, l.path)
	if err != nil {
		return nil, toErrno(err)
	}

	dirents := make(p9.Dirents, 0)
	for i := offset; i < uint64(len(entries)) && len(dirents) < int(count); i++ {
		e := entries[i]
		name := path.Join(l.path, e.Name())
		dirents = append(dirents, p9.Dirent{
			QID: p9.QID{
				Type: p9.ModeFromOS(e.Type()).QIDType(),
				Path: toQid(name),
			},
			Type:   p9.ModeFromOS(e.Type()).QIDType(),
			Name:   e.Name(),
			Offset: i + 1,
		})
	}
	return dirents, nil
}
