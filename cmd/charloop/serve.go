package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/u-root/uio/ulog"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"
	"tractor.dev/charloop/fs/p9kit"
	"tractor.dev/charloop/wsbridge"
	"tractor.dev/toolkit-go/engine/cli"
)

func serveCmd() *cli.Command {
	var (
		rf       registryFlags
		addr     string
		wsAddr   string
		maxConns int
		debug9p  bool
	)
	cmd := &cli.Command{
		Usage: "serve",
		Short: "serve pipe pairs over 9P",
		Run: func(ctx *cli.Context, args []string) {
			log := rf.logger()
			reg, err := rf.registry(log)
			exit(err)
			defer reg.Close()

			sigctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			l, err := net.Listen("tcp", addr)
			exit(err)
			if maxConns > 0 {
				l = netutil.LimitListener(l, maxConns)
			}

			opts := []p9kit.Option{p9kit.WithLogger(log)}
			if debug9p {
				opts = append(opts, p9kit.WithTrace(ulog.Log))
			}
			srv := p9kit.NewServer(reg, opts...)

			g, gctx := errgroup.WithContext(sigctx)
			g.Go(func() error {
				return srv.Serve(gctx, l)
			})
			if wsAddr != "" {
				hs := &http.Server{Addr: wsAddr, Handler: wsbridge.New(reg, log)}
				g.Go(func() error {
					if err := hs.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
						return err
					}
					return nil
				})
				g.Go(func() error {
					<-gctx.Done()
					shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					return hs.Shutdown(shutdown)
				})
				log.Info("serving websocket", "addr", wsAddr)
			}

			log.Info("serving 9p", "addr", l.Addr().String(), "endpoints", reg.Names())
			if err := g.Wait(); err != nil {
				log.Error("serve", "err", err)
			}
			log.Info("shutting down")
		},
	}
	rf.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", "localhost:5640", "9P listen address")
	cmd.Flags().StringVar(&wsAddr, "ws", "", "also serve endpoints over websocket at this address")
	cmd.Flags().IntVar(&maxConns, "max-conns", 0, "limit concurrent 9P connections (0 for no limit)")
	cmd.Flags().BoolVar(&debug9p, "debug-9p", false, "trace 9P messages")
	return cmd
}
