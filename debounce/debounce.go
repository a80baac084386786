// Package debounce turns a fast stream of text input into a bounded stream
// of settled queries.
package debounce

import (
	"sync"
	"time"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	// DefaultDelay is how long input has to stay unchanged before it settles.
	DefaultDelay = 300 * time.Millisecond
	// DefaultMinChars is the shortest text that is ever settled.
	DefaultMinChars = 1
)

// Options configures a Controller.
type Options struct {
	Delay    time.Duration
	MinChars int
}

// DefaultOptions returns the design defaults.
func DefaultOptions() Options {
	return Options{Delay: DefaultDelay, MinChars: DefaultMinChars}
}

// Validate checks the option ranges. MinChars is at least 1: empty text
// always clears.
func (o Options) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.Delay, validation.Min(time.Duration(0))),
		validation.Field(&o.MinChars, validation.Required.Error("must be at least 1"), validation.Min(1)),
	)
}

// Controller emits a settle no earlier than Delay after the last Input call.
//
// Text shorter than MinChars never settles; dropping below the threshold
// after a non-empty settle emits an empty settle right away so stale results
// can be cleared. A settle equal to the previous one is suppressed.
type Controller struct {
	mu        sync.Mutex
	opts      Options
	onSettled func(string)
	timer     *time.Timer
	gen       uint64
	pending   string
	hasTimer  bool
	settled   string
	stopped   bool
}

// New returns a Controller that calls onSettled from its own goroutine.
func New(opts Options, onSettled func(string)) (*Controller, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if onSettled == nil {
		onSettled = func(string) {}
	}
	return &Controller{opts: opts, onSettled: onSettled}, nil
}

// Input records a new raw text value.
func (c *Controller) Input(text string) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}

	c.gen++
	c.cancelTimerLocked()

	if utf8.RuneCountInString(text) < c.opts.MinChars {
		emitClear := c.settled != ""
		c.settled = ""
		c.mu.Unlock()
		if emitClear {
			c.onSettled("")
		}
		return
	}

	gen := c.gen
	c.pending = text
	c.hasTimer = true
	c.timer = time.AfterFunc(c.opts.Delay, func() { c.fire(gen) })
	c.mu.Unlock()
}

// Flush settles pending input immediately.
func (c *Controller) Flush() {
	c.mu.Lock()
	if c.stopped || !c.hasTimer {
		c.mu.Unlock()
		return
	}
	c.gen++
	c.cancelTimerLocked()
	gen := c.gen
	c.mu.Unlock()

	c.fire(gen)
}

// Settled returns the last settled text.
func (c *Controller) Settled() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settled
}

// Stop drops pending input and ignores every later Input call.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	c.gen++
	c.cancelTimerLocked()
}

func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	if c.stopped || gen != c.gen {
		c.mu.Unlock()
		return
	}
	text := c.pending
	c.timer = nil
	c.hasTimer = false
	if text == c.settled {
		c.mu.Unlock()
		return
	}
	c.settled = text
	c.mu.Unlock()

	c.onSettled(text)
}

func (c *Controller) cancelTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.hasTimer = false
}
