// Package wsbridge carries endpoint bytes over WebSocket connections.
//
// A Handler upgrades a request for /<name> and relays binary messages to
// and from the endpoint called name. Dial is the client side, returning the
// connection as a byte stream.
package wsbridge

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"tractor.dev/charloop/fs"
)

const readChunk = 4096

type Handler struct {
	fsys     fs.FS
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func New(fsys fs.FS, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{
		fsys: fsys,
		log:  log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  readChunk,
			WriteBufferSize: readChunk,
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	fi, err := fs.StatContext(r.Context(), h.fsys, name)
	if err != nil || fi.Mode()&fs.ModeNamedPipe == 0 {
		http.NotFound(w, r)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied
		h.log.Debug("ws upgrade", "name", name, "err", err)
		return
	}
	defer conn.Close()

	f, err := fs.OpenContext(r.Context(), h.fsys, name)
	if err != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, err.Error()),
			time.Now().Add(time.Second))
		return
	}
	defer f.Close()

	h.log.Info("ws attach", "name", name, "remote", r.RemoteAddr)
	err = Bridge(context.Background(), conn, f)
	h.log.Info("ws detach", "name", name, "remote", r.RemoteAddr, "err", err)
}

// Bridge relays between conn and f until either side fails or ctx is done.
// Bytes read from f go out as binary messages; each message received is
// written to f in full.
func Bridge(ctx context.Context, conn *websocket.Conn, f fs.File) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	var wg sync.WaitGroup
	var readErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		buf := make([]byte, readChunk)
		for {
			n, err := fs.ReadContext(ctx, f, buf)
			if n > 0 {
				if werr := conn.WriteMessage(websocket.BinaryMessage, buf[:n]); werr != nil {
					readErr = werr
					return
				}
			}
			if err == io.EOF {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "pair closed"),
					time.Now().Add(time.Second))
			}
			if err != nil {
				readErr = err
				return
			}
		}
	}()

	var writeErr error
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			writeErr = err
			break
		}
		if _, err := fs.WriteContext(ctx, f, data); err != nil {
			writeErr = err
			break
		}
	}
	cancel()
	wg.Wait()

	return errors.Join(quiet(writeErr), quiet(readErr))
}

// quiet drops the errors a normal hangup produces.
func quiet(err error) error {
	var ce *websocket.CloseError
	switch {
	case err == nil, err == io.EOF, errors.As(err, &ce):
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, net.ErrClosed), errors.Is(err, websocket.ErrCloseSent):
		return nil
	}
	return err
}

// Conn is a WebSocket connection read and written as a byte stream.
type Conn struct {
	ws *websocket.Conn
	r  io.Reader

	wmu sync.Mutex
}

var _ io.ReadWriteCloser = (*Conn)(nil)

// Dial connects to a Handler. url names the endpoint, as in
// ws://host:port/charloop0.
func Dial(ctx context.Context, url string) (*Conn, error) {
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, &fs.PathError{Op: "dial", Path: url, Err: fs.ErrNotExist}
		}
		return nil, err
	}
	return &Conn{ws: ws}, nil
}

func (c *Conn) Read(p []byte) (int, error) {
	for {
		if c.r == nil {
			_, r, err := c.ws.NextReader()
			if err != nil {
				if quiet(err) == nil {
					return 0, io.EOF
				}
				return 0, err
			}
			c.r = r
		}
		n, err := c.r.Read(p)
		if err == io.EOF {
			c.r = nil
			if n == 0 {
				continue
			}
			err = nil
		}
		return n, err
	}
}

func (c *Conn) Write(p []byte) (int, error) {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := c.ws.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close sends a close frame and closes the connection.
func (c *Conn) Close() error {
	c.wmu.Lock()
	c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.wmu.Unlock()
	return c.ws.Close()
}
