// Package charloop serves in-memory byte pipe pairs as named endpoints.
//
// A Registry owns every pair it creates and publishes each pair's two
// ports by name. Writing to one endpoint of a pair makes the bytes
// readable on the other. The registry is also a file system: each
// endpoint is a named pipe at its root, next to a read-only buffer_size
// file, a ctl file that accepts "new <a> <b>" and "destroy <name>", and a
// new file that allocates a pair with generated names when read.
package charloop

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"

	"tractor.dev/charloop/fs"
	"tractor.dev/charloop/pipe"
)

// Names reserved for the registry's own files.
const (
	CtlFile        = "ctl"
	BufferSizeFile = "buffer_size"
	NewFile        = "new"
)

var ErrRegistryClosed = errors.New("registry closed")

// Registry is a table of exposed endpoints and the pairs that own them.
type Registry struct {
	cfg Config
	log *slog.Logger

	mu     sync.Mutex
	ports  map[string]*pipe.Port
	pairs  []*pipe.Pair
	nextID int
	closed bool
}

var _ pipe.Host = (*Registry)(nil)

// New validates cfg and returns a registry. If cfg names an initial pair,
// it is created and exposed before New returns.
func New(cfg Config) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	r := &Registry{
		cfg:   cfg,
		log:   log,
		ports: make(map[string]*pipe.Port),
	}
	if cfg.Names[0] != "" {
		if _, err := r.NewPair(cfg.Names[0], cfg.Names[1]); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Config() Config { return r.cfg }

func validName(name string) error {
	if !fs.ValidPath(name) || name == "." || strings.Contains(name, "/") {
		return &fs.PathError{Op: "expose", Path: name, Err: fs.ErrInvalid}
	}
	switch name {
	case CtlFile, BufferSizeFile, NewFile:
		return &fs.PathError{Op: "expose", Path: name, Err: fs.ErrExist}
	}
	return nil
}

// Expose publishes p under name.
func (r *Registry) Expose(name string, p *pipe.Port) error {
	if err := validName(name); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRegistryClosed
	}
	if _, ok := r.ports[name]; ok {
		return &fs.PathError{Op: "expose", Path: name, Err: fs.ErrExist}
	}
	r.ports[name] = p
	r.log.Debug("expose", "name", name)
	return nil
}

// Unexpose withdraws name. Handles already open on it keep working until
// the owning pair is closed.
func (r *Registry) Unexpose(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ports[name]; !ok {
		return &fs.PathError{Op: "unexpose", Path: name, Err: fs.ErrNotExist}
	}
	delete(r.ports, name)
	r.log.Debug("unexpose", "name", name)
	return nil
}

// NewPair allocates a pair and exposes its ports as nameA and nameB. On
// any failure nothing is left exposed or allocated.
func (r *Registry) NewPair(nameA, nameB string) (*pipe.Pair, error) {
	if nameA == nameB {
		return nil, &fs.PathError{Op: "expose", Path: nameB, Err: fs.ErrExist}
	}
	p, err := pipe.NewPair(r.cfg.BufferSize)
	if err != nil {
		return nil, err
	}

	// The pair is owned before its names are visible, so DestroyPair can
	// always find the owner of an exposed name.
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		p.Close()
		return nil, ErrRegistryClosed
	}
	r.pairs = append(r.pairs, p)
	r.mu.Unlock()

	if err := p.Expose(r, nameA, nameB); err != nil {
		r.mu.Lock()
		r.pairs = slices.DeleteFunc(r.pairs, func(q *pipe.Pair) bool { return q == p })
		r.mu.Unlock()
		p.Close()
		return nil, err
	}

	r.log.Info("pair created", "a", nameA, "b", nameB, "size", r.cfg.BufferSize)
	return p, nil
}

// Alloc creates a pair with the next free pair of generated names, in the
// style of the default charloop0/charloop1.
func (r *Registry) Alloc() (*pipe.Pair, error) {
	for {
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return nil, ErrRegistryClosed
		}
		id := r.nextID
		r.nextID++
		a := fmt.Sprintf("charloop%d", 2*id)
		b := fmt.Sprintf("charloop%d", 2*id+1)
		_, takenA := r.ports[a]
		_, takenB := r.ports[b]
		r.mu.Unlock()
		if takenA || takenB {
			continue
		}
		p, err := r.NewPair(a, b)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		return p, err
	}
}

// DestroyPair closes the pair that owns the endpoint name. Readers and
// writers blocked on either endpoint wake with pipe.ErrClosed.
func (r *Registry) DestroyPair(name string) error {
	r.mu.Lock()
	port, ok := r.ports[name]
	var pair *pipe.Pair
	if ok {
		i := slices.IndexFunc(r.pairs, func(p *pipe.Pair) bool {
			return p.A == port || p.B == port
		})
		if i >= 0 {
			pair = r.pairs[i]
			r.pairs = slices.Delete(r.pairs, i, i+1)
		}
	}
	r.mu.Unlock()
	if pair == nil {
		return &fs.PathError{Op: "destroy", Path: name, Err: fs.ErrNotExist}
	}
	a, b := pair.Names()
	r.log.Info("pair destroyed", "a", a, "b", b)
	return pair.Close()
}

// Lookup returns the port exposed as name.
func (r *Registry) Lookup(name string) (*pipe.Port, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.ports[name]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return p, nil
}

// Names returns the exposed endpoint names in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.ports))
	for name := range r.ports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close tears down every pair, newest first.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	pairs := r.pairs
	r.pairs = nil
	r.mu.Unlock()

	var errs []error
	for _, p := range slices.Backward(pairs) {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}
