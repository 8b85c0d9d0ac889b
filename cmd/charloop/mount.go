package main

import (
	"context"
	"os"
	"os/signal"

	"tractor.dev/charloop/fs/fusekit"
	"tractor.dev/toolkit-go/engine/cli"
)

func mountCmd() *cli.Command {
	var (
		rf        registryFlags
		debugFuse bool
	)
	cmd := &cli.Command{
		Usage: "mount <dir>",
		Short: "mount pipe pairs with FUSE",
		Args:  cli.ExactArgs(1),
		Run: func(ctx *cli.Context, args []string) {
			log := rf.logger()
			reg, err := rf.registry(log)
			exit(err)
			defer reg.Close()

			sigctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			mount, err := fusekit.Mount(reg, args[0], sigctx, log, debugFuse)
			exit(err)
			defer func() {
				if err := mount.Close(); err != nil {
					log.Error("unmount", "path", args[0], "err", err)
				}
			}()

			<-sigctx.Done()
		},
	}
	rf.register(cmd)
	cmd.Flags().BoolVar(&debugFuse, "debug-fuse", false, "trace FUSE requests")
	return cmd
}
