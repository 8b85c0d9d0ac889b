package charloop

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"tractor.dev/charloop/pipe"
)

const (
	// DefaultBufferSize is the capacity of each direction of a pair.
	DefaultBufferSize = 16384

	// BufferSizeEnv overrides the buffer size when no flag is given.
	BufferSizeEnv = "CHARLOOP_BUFFER_SIZE"
)

// DefaultNames are the endpoint names of the pair created at startup.
var DefaultNames = [2]string{"charloop0", "charloop1"}

// Config is fixed once a Registry is created.
type Config struct {
	// BufferSize is the capacity in bytes of both buffers of every pair.
	BufferSize int

	// Names, if both are set, are the endpoints of a pair created by New.
	Names [2]string

	Logger *slog.Logger
}

func DefaultConfig() Config {
	return Config{
		BufferSize: DefaultBufferSize,
		Names:      DefaultNames,
	}
}

// LoadEnv applies CHARLOOP_BUFFER_SIZE to c if it is set.
func (c *Config) LoadEnv() error {
	v, ok := os.LookupEnv(BufferSizeEnv)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", BufferSizeEnv, err)
	}
	c.BufferSize = n
	return nil
}

// ParseNames sets Names from a comma separated pair such as "a,b".
func (c *Config) ParseNames(s string) error {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return fmt.Errorf("names: want two comma separated names, got %q", s)
	}
	c.Names = [2]string{strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])}
	return nil
}

func (c Config) Validate() error {
	if c.BufferSize <= 0 {
		return fmt.Errorf("buffer size %d: %w", c.BufferSize, pipe.ErrInvalidSize)
	}
	if c.BufferSize > pipe.MaxBufferSize {
		return fmt.Errorf("buffer size %d: %w", c.BufferSize, pipe.ErrNoMemory)
	}
	a, b := c.Names[0], c.Names[1]
	if (a == "") != (b == "") {
		return fmt.Errorf("names: both or neither must be set")
	}
	if a != "" {
		for _, name := range c.Names {
			if err := validName(name); err != nil {
				return err
			}
		}
		if a == b {
			return fmt.Errorf("names: %q used twice", a)
		}
	}
	return nil
}
