package main

import (
	"fmt"
	"log/slog"
	"os"

	"tractor.dev/charloop"
	"tractor.dev/charloop/internal/slogger"
	"tractor.dev/toolkit-go/engine"
	"tractor.dev/toolkit-go/engine/cli"
)

func main() {
	engine.Run(Main{})
}

type Main struct{}

func (m *Main) InitializeCLI(root *cli.Command) {
	root.Usage = "charloop"
	root.Short = "in-memory byte pipe pairs"
	root.AddCommand(serveCmd())
	root.AddCommand(mountCmd())
	root.AddCommand(attachCmd())
	root.AddCommand(versionCmd())
}

// registryFlags are shared by the commands that host a registry.
type registryFlags struct {
	bufferSize int
	names      string
	debug      bool
}

func (f *registryFlags) register(cmd *cli.Command) {
	cmd.Flags().IntVar(&f.bufferSize, "buffer-size", 0, fmt.Sprintf("bytes per direction (default %d, or $%s)", charloop.DefaultBufferSize, charloop.BufferSizeEnv))
	cmd.Flags().StringVar(&f.names, "names", "", "endpoint names of the initial pair as a,b (default charloop0,charloop1)")
	cmd.Flags().BoolVar(&f.debug, "debug", false, "log at debug level")
}

func (f *registryFlags) logger() *slog.Logger {
	level := slog.LevelInfo
	if f.debug {
		level = slog.LevelDebug
	}
	return slogger.New(level)
}

func (f *registryFlags) registry(log *slog.Logger) (*charloop.Registry, error) {
	cfg := charloop.DefaultConfig()
	if err := cfg.LoadEnv(); err != nil {
		return nil, err
	}
	if f.bufferSize != 0 {
		cfg.BufferSize = f.bufferSize
	}
	if f.names != "" {
		if err := cfg.ParseNames(f.names); err != nil {
			return nil, err
		}
	}
	cfg.Logger = log
	return charloop.New(cfg)
}

func exit(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "charloop:", err)
		os.Exit(1)
	}
}
