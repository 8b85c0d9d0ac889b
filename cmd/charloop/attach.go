package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"

	"golang.org/x/term"
	"tractor.dev/charloop/fs/p9kit"
	"tractor.dev/charloop/wsbridge"
	"tractor.dev/toolkit-go/engine/cli"
)

// ctrlD detaches an attached terminal.
const ctrlD = 4

func attachCmd() *cli.Command {
	cmd := &cli.Command{
		Usage: "attach <addr> <name>",
		Short: "attach the terminal to an endpoint",
		Long: "Connects to a charloop server and relays the terminal to the named endpoint.\n" +
			"addr is a 9P address such as localhost:5640, or a ws:// URL for a server\n" +
			"started with serve --ws.",
		Args: cli.ExactArgs(2),
		Run: func(ctx *cli.Context, args []string) {
			conn, err := dialEndpoint(context.Background(), args[0], args[1])
			exit(err)
			defer conn.Close()

			fd := int(os.Stdin.Fd())
			if term.IsTerminal(fd) {
				oldstate, err := term.MakeRaw(fd)
				exit(err)
				defer term.Restore(fd, oldstate)
				fmt.Fprint(os.Stderr, "attached, Ctrl-D to detach\r\n")
			}

			done := make(chan struct{})
			go func() {
				defer close(done)
				if _, err := io.Copy(os.Stdout, conn); err != nil {
					slog.Debug("attach", "err", err)
				}
			}()

			buffer := make([]byte, 1024)
			for {
				select {
				case <-done:
					return
				default:
				}
				n, err := os.Stdin.Read(buffer)
				if err != nil {
					return
				}
				data, detach := cutDetach(buffer[:n])
				if len(data) > 0 {
					if _, err := conn.Write(data); err != nil {
						return
					}
				}
				if detach {
					return
				}
			}
		},
	}
	return cmd
}

// dialEndpoint opens name on the server at addr, over websocket for ws://
// and wss:// URLs and over 9P otherwise.
func dialEndpoint(ctx context.Context, addr, name string) (io.ReadWriteCloser, error) {
	if strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://") {
		return wsbridge.Dial(ctx, strings.TrimSuffix(addr, "/")+"/"+name)
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	fsys, err := p9kit.ClientFS(conn, "")
	if err != nil {
		conn.Close()
		return nil, err
	}
	f, err := fsys.Open(name)
	if err != nil {
		fsys.Close()
		return nil, err
	}
	return &remoteEndpoint{ReadWriteCloser: f.(io.ReadWriteCloser), fsys: fsys}, nil
}

// remoteEndpoint closes the 9P session along with the endpoint file.
type remoteEndpoint struct {
	io.ReadWriteCloser
	fsys *p9kit.FS
}

func (r *remoteEndpoint) Close() error {
	err := r.ReadWriteCloser.Close()
	r.fsys.Close()
	return err
}

// cutDetach returns the bytes before the first Ctrl-D and whether one was
// found.
func cutDetach(b []byte) ([]byte, bool) {
	for i, c := range b {
		if c == ctrlD {
			return b[:i], true
		}
	}
	return b, false
}
