package pipe

import (
	"errors"
	"sync"
)

// Host is a registry that ports can be published to under a name.
type Host interface {
	Expose(name string, p *Port) error
	Unexpose(name string) error
}

// Pair owns two buffers cross-wired into two ports: whatever is written to
// A is read from B, and whatever is written to B is read from A.
type Pair struct {
	A *Port
	B *Port

	bufs [2]*Buffer

	mu      sync.Mutex
	host    Host
	names   [2]string
	exposed bool
	closed  bool
}

// NewPair allocates both buffers with capacity size and wires the ports.
// If either allocation fails nothing is returned.
func NewPair(size int) (*Pair, error) {
	buf0, err := NewBuffer(size)
	if err != nil {
		return nil, err
	}
	buf1, err := NewBuffer(size)
	if err != nil {
		buf0.release()
		return nil, err
	}
	return &Pair{
		A:    &Port{incoming: buf0, outgoing: buf1},
		B:    &Port{incoming: buf1, outgoing: buf0},
		bufs: [2]*Buffer{buf0, buf1},
	}, nil
}

// Port returns A for 0 and B for 1.
func (p *Pair) Port(i int) *Port {
	switch i {
	case 0:
		return p.A
	case 1:
		return p.B
	}
	return nil
}

// Names returns the names the ports were exposed under, if any.
func (p *Pair) Names() (a, b string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.names[0], p.names[1]
}

// Expose publishes A as nameA and then B as nameB. If B cannot be exposed,
// A is withdrawn again before the error is returned, so either both names
// are visible or neither is.
func (p *Pair) Expose(h Host, nameA, nameB string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if p.exposed {
		return errors.New("pipe: pair already exposed")
	}
	if err := h.Expose(nameA, p.A); err != nil {
		return err
	}
	if err := h.Expose(nameB, p.B); err != nil {
		return errors.Join(err, h.Unexpose(nameA))
	}
	p.host = h
	p.names = [2]string{nameA, nameB}
	p.exposed = true
	return nil
}

// Close withdraws B and then A from the host they were exposed on, then
// releases both buffers. Blocked readers and writers wake with ErrClosed.
// Calling Close again does nothing.
func (p *Pair) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	var err error
	if p.exposed {
		err = errors.Join(
			p.host.Unexpose(p.names[1]),
			p.host.Unexpose(p.names[0]),
		)
		p.exposed = false
	}
	p.bufs[0].release()
	p.bufs[1].release()
	return err
}
