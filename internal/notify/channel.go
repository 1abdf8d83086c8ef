// Package notify delivers session events to subscribers asynchronously
// and in publish order.
package notify

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hedzr/go-ringbuf/v2/mpmc"
	"github.com/sirupsen/logrus"

	"github.com/srg/remotte/internal/groutine"
)

const (
	// Lifecycle states (uint32 for atomic ops)
	StateNotRunning uint32 = iota
	StateRunning
	StateStopping

	// DefaultBufferSize is the number of undelivered events kept before the oldest is overwritten.
	DefaultBufferSize uint32 = 1024

	// MaxBufferSize guards against accidental misconfiguration.
	MaxBufferSize uint32 = 1024 * 1024
)

// Metrics provides lock-free counters for a Channel.
type Metrics struct {
	Published   atomic.Int64
	Delivered   atomic.Int64
	Overwritten atomic.Int64 // lost to buffer overflow
	Dropped     atomic.Int64 // dequeued with no subscriber attached
	Panics      atomic.Int64 // subscriber panics recovered
}

// Snapshot is a point-in-time copy of Metrics.
type Snapshot struct {
	Published, Delivered, Overwritten, Dropped, Panics int64
}

type subscription[T any] struct {
	id uint64
	fn func(T)
}

// entry is a published value tagged with its position in publish order.
type entry[T any] struct {
	seq uint64
	v   T
}

// Option configures a Channel.
type Option[T any] func(*Channel[T])

// Lossless routes values matching keep to an unbounded queue that is never
// overwritten. Delivery order across both queues stays the publish order.
func Lossless[T any](keep func(T) bool) Option[T] {
	return func(c *Channel[T]) {
		c.lossless = keep
	}
}

// Channel fans published events out to subscribers from a single
// dispatcher goroutine. Publish never blocks: when subscribers fall
// behind, the oldest undelivered events are overwritten, except for
// values selected with Lossless.
//
// All methods are thread-safe.
type Channel[T any] struct {
	name   string
	logger *logrus.Logger
	buffer mpmc.RichOverlappedRingBuffer[entry[T]]
	wake   chan struct{}

	lossless func(T) bool
	pubMu    sync.Mutex // orders seq assignment with enqueueing
	seq      uint64
	keptMu   sync.Mutex
	kept     []entry[T]
	held     *entry[T] // dequeued from buffer, not yet delivered; dispatcher only

	mu     sync.RWMutex
	subs   []subscription[T]
	nextID uint64

	stop    chan struct{}
	done    chan struct{}
	state   uint32
	metrics Metrics
}

// New creates a stopped channel. name labels the dispatcher goroutine.
func New[T any](name string, bufferSize uint32, logger *logrus.Logger, opts ...Option[T]) (*Channel[T], error) {
	if bufferSize == 0 {
		return nil, fmt.Errorf("buffer size must be > 0")
	}
	if bufferSize > MaxBufferSize {
		return nil, fmt.Errorf("buffer size %d exceeds maximum %d", bufferSize, MaxBufferSize)
	}
	if logger == nil {
		logger = logrus.New()
	}

	c := &Channel[T]{
		name:   name,
		logger: logger,
		buffer: mpmc.NewOverlappedRingBuffer[entry[T]](bufferSize),
		wake:   make(chan struct{}, 1),
		state:  StateNotRunning,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Subscribe registers fn and returns a function that removes it.
// fn runs on the dispatcher goroutine and must not block for long.
func (c *Channel[T]) Subscribe(fn func(T)) (cancel func()) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.subs = append(c.subs, subscription[T]{id: id, fn: fn})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, s := range c.subs {
				if s.id == id {
					c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Subscribers returns the number of registered subscribers.
func (c *Channel[T]) Subscribers() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subs)
}

// Publish enqueues v for delivery. It never blocks.
func (c *Channel[T]) Publish(v T) {
	c.pubMu.Lock()
	c.seq++
	e := entry[T]{seq: c.seq, v: v}

	if c.lossless != nil && c.lossless(v) {
		c.keptMu.Lock()
		c.kept = append(c.kept, e)
		c.keptMu.Unlock()
		c.pubMu.Unlock()
		c.metrics.Published.Add(1)
		c.signal()
		return
	}

	overwrites, err := c.buffer.EnqueueM(e)
	c.pubMu.Unlock()
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"channel": c.name,
			"error":   err,
		}).Error("Failed to enqueue event")
		return
	}
	c.metrics.Published.Add(1)
	if overwrites > 0 {
		c.metrics.Overwritten.Add(int64(overwrites))
		c.logger.WithFields(logrus.Fields{
			"channel":     c.name,
			"overwritten": overwrites,
		}).Warn("Event buffer overflow, oldest events overwritten")
	}
	c.signal()
}

func (c *Channel[T]) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Start launches the dispatcher goroutine.
func (c *Channel[T]) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapUint32(&c.state, StateNotRunning, StateRunning) {
		switch atomic.LoadUint32(&c.state) {
		case StateRunning:
			return fmt.Errorf("channel %q is already running", c.name)
		default:
			return fmt.Errorf("channel %q is stopping, wait for it to finish", c.name)
		}
	}

	// Fresh channels per start cycle so Stop never closes a closed channel.
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	stop, done := c.stop, c.done

	groutine.Go(ctx, c.name, func(ctx context.Context) {
		defer func() {
			close(done)
			atomic.StoreUint32(&c.state, StateNotRunning)
		}()
		for {
			select {
			case <-stop:
				c.drain()
				return
			case <-ctx.Done():
				c.drain()
				return
			case <-c.wake:
				c.drain()
			}
		}
	})
	return nil
}

// Stop delivers everything already published, then stops the dispatcher.
func (c *Channel[T]) Stop(timeout time.Duration) error {
	if !atomic.CompareAndSwapUint32(&c.state, StateRunning, StateStopping) {
		if atomic.LoadUint32(&c.state) == StateNotRunning {
			return nil
		}
	} else {
		close(c.stop)
	}

	select {
	case <-c.done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("channel %q did not stop within %v", c.name, timeout)
	}
}

// Running reports whether the dispatcher is active.
func (c *Channel[T]) Running() bool {
	return atomic.LoadUint32(&c.state) == StateRunning
}

// Metrics returns a snapshot of the counters.
func (c *Channel[T]) Metrics() Snapshot {
	return Snapshot{
		Published:   c.metrics.Published.Load(),
		Delivered:   c.metrics.Delivered.Load(),
		Overwritten: c.metrics.Overwritten.Load(),
		Dropped:     c.metrics.Dropped.Load(),
		Panics:      c.metrics.Panics.Load(),
	}
}

// drain delivers everything queued, merging the ring buffer and the
// lossless queue by publish sequence.
func (c *Channel[T]) drain() {
	for {
		if c.held == nil && !c.buffer.IsEmpty() {
			if e, err := c.buffer.Dequeue(); err == nil {
				c.held = &e
			}
		}

		c.keptMu.Lock()
		var next entry[T]
		switch {
		case len(c.kept) > 0 && (c.held == nil || c.kept[0].seq < c.held.seq):
			next = c.kept[0]
			c.kept[0] = entry[T]{}
			c.kept = c.kept[1:]
		case c.held != nil:
			next = *c.held
			c.held = nil
		default:
			c.keptMu.Unlock()
			return
		}
		c.keptMu.Unlock()

		c.deliver(next.v)
	}
}

func (c *Channel[T]) deliver(v T) {
	c.mu.RLock()
	subs := make([]subscription[T], len(c.subs))
	copy(subs, c.subs)
	c.mu.RUnlock()

	if len(subs) == 0 {
		c.metrics.Dropped.Add(1)
		return
	}
	for _, s := range subs {
		c.call(s.fn, v)
	}
	c.metrics.Delivered.Add(1)
}

func (c *Channel[T]) call(fn func(T), v T) {
	defer func() {
		if r := recover(); r != nil {
			c.metrics.Panics.Add(1)
			c.logger.WithFields(logrus.Fields{
				"channel": c.name,
				"panic":   r,
			}).Error("Subscriber panicked")
		}
	}()
	fn(v)
}
