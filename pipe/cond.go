package pipe

import (
	"context"
	"sync"
)

// cond is an edge-triggered condition that can be waited on alongside a
// context. Waiters capture the ready channel while holding the buffer lock,
// release the lock, then block on the channel. broadcast closes the
// channel and installs a fresh one, so a waiter that captured the channel
// before a state change can never miss the wakeup.
type cond struct {
	mu      sync.Mutex
	ch      chan struct{}
	waiters int
}

func newCond() *cond { return &cond{ch: make(chan struct{})} }

// ready returns a channel that is closed by the next broadcast.
func (c *cond) ready() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ch
}

// wait blocks until ready is closed or ctx is done. ready must come from
// an earlier call to c.ready.
func (c *cond) wait(ctx context.Context, ready <-chan struct{}) error {
	c.mu.Lock()
	c.waiters++
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.waiters--
		c.mu.Unlock()
	}()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return interrupted(ctx)
	}
}

// waiting returns the number of goroutines currently inside wait.
func (c *cond) waiting() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waiters
}

// broadcast wakes every pending waiter and resets the condition.
func (c *cond) broadcast() {
	c.mu.Lock()
	defer c.mu.Unlock()
	close(c.ch)
	c.ch = make(chan struct{})
}
