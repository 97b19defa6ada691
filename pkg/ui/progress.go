package ui

import (
	"fmt"
	"io"
	"sync"
)

// Counter prints a running "caught N items" line while a listing or a
// secondary fetch is in progress. Observe is safe to pass as a pipeline
// observer.
type Counter struct {
	mu     sync.Mutex
	w      io.Writer
	noun   string
	count  int
	active bool
}

// NewCounter creates a counter for noun ("followers", "comments") writing to w
func NewCounter(w io.Writer, noun string) *Counter {
	return &Counter{w: w, noun: noun}
}

// Observe records the running total and redraws the line
func (c *Counter) Observe(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.count = n
	c.active = true
	fmt.Fprintf(c.w, "\rCaught %d %s", n, c.noun)
}

// Count returns the last observed total
func (c *Counter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Done terminates the progress line so later output starts on a fresh one
func (c *Counter) Done() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active {
		fmt.Fprintln(c.w)
		c.active = false
	}
}
