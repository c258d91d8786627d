package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dtroode/zeitnachricht/internal/logger"
)

// DefaultPollInterval is the refresh period of view collections.
const DefaultPollInterval = 10 * time.Second

// FetchFunc loads the current server state of a collection.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// PollerOption configures a Poller.
type PollerOption[T any] func(*Poller[T])

// WithGuard skips fetches while fn returns false. fn is evaluated on every tick.
func WithGuard[T any](fn func() bool) PollerOption[T] {
	return func(p *Poller[T]) {
		p.guard = fn
	}
}

// WithOnUpdate registers fn to receive every applied value.
// fn runs under the poller lock and must not call back into the poller.
func WithOnUpdate[T any](fn func(T)) PollerOption[T] {
	return func(p *Poller[T]) {
		p.onUpdate = fn
	}
}

// WithOnError registers fn to receive fetch errors of polling ticks.
func WithOnError[T any](fn func(error)) PollerOption[T] {
	return func(p *Poller[T]) {
		p.onError = fn
	}
}

// Poller keeps a view-local copy of a server collection fresh.
//
// Every fetch takes a sequence number when it is issued; a result is applied
// only if no fetch issued later has been applied already. Tick errors are
// logged and never stop the ticker. After Stop returns no fetch is issued and
// no result is applied until the next Start.
type Poller[T any] struct {
	name     string
	interval time.Duration
	fetch    FetchFunc[T]
	guard    func() bool
	onUpdate func(T)
	onError  func(error)
	logger   *logger.Logger

	seq atomic.Uint64
	wg  sync.WaitGroup

	mu      sync.Mutex
	applied uint64
	latest  T
	has     bool
	running bool
	stopped bool
	// epoch changes on every Stop; results issued in an older epoch are dropped
	epoch  uint64
	runCtx context.Context
	cancel context.CancelFunc
}

// NewPoller creates a stopped poller.
func NewPoller[T any](name string, interval time.Duration, fetch FetchFunc[T], logger *logger.Logger, opts ...PollerOption[T]) *Poller[T] {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	p := &Poller[T]{
		name:     name,
		interval: interval,
		fetch:    fetch,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start performs an immediate fetch and then one fetch per interval until Stop.
// Calling Start on a running poller does nothing.
func (p *Poller[T]) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	p.runCtx = ctx
	p.cancel = cancel
	p.running = true
	p.stopped = false
	epoch := p.epoch
	p.mu.Unlock()

	p.logger.Debug("Poller: started",
		"poller", p.name,
		"interval", p.interval.String())

	p.wg.Add(1)
	go p.loop(ctx, epoch)
}

// Stop cancels the timer and in-flight fetches, including running Refetch
// calls, and waits for them to finish. Their results are dropped.
func (p *Poller[T]) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.stopped = true
	p.epoch++
	p.cancel()
	p.mu.Unlock()

	p.wg.Wait()

	p.logger.Debug("Poller: stopped",
		"poller", p.name)
}

// Running reports whether the poller is between Start and Stop.
func (p *Poller[T]) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Refetch fetches immediately, outside the timer, and applies the result
// under the same sequencing rule. The guard applies; a skipped fetch returns
// nil. A stopped poller skips the fetch. While running, the fetch is
// cancelled by Stop.
func (p *Poller[T]) Refetch(ctx context.Context) error {
	if !p.allowed() {
		return nil
	}

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		p.logger.Debug("Poller: refetch after stop skipped",
			"poller", p.name)
		return nil
	}
	epoch := p.epoch
	if p.running {
		p.wg.Add(1)
		defer p.wg.Done()

		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		defer cancel()
		stop := context.AfterFunc(p.runCtx, cancel)
		defer stop()
	}
	p.mu.Unlock()

	return p.run(ctx, p.seq.Add(1), epoch)
}

// Latest returns the most recently applied value.
func (p *Poller[T]) Latest() (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest, p.has
}

func (p *Poller[T]) loop(ctx context.Context, epoch uint64) {
	defer p.wg.Done()

	p.tick(ctx, epoch)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx, epoch)
		}
	}
}

// tick issues a fetch without waiting for earlier ones to complete.
func (p *Poller[T]) tick(ctx context.Context, epoch uint64) {
	if ctx.Err() != nil {
		return
	}
	if !p.allowed() {
		p.logger.Debug("Poller: tick skipped by guard",
			"poller", p.name)
		return
	}

	seq := p.seq.Add(1)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		err := p.run(ctx, seq, epoch)
		if err == nil || ctx.Err() != nil {
			return
		}
		p.logger.Warn("Poller: fetch failed",
			"poller", p.name,
			"seq", seq,
			"error", err.Error())
		if p.onError != nil {
			p.onError(err)
		}
	}()
}

func (p *Poller[T]) allowed() bool {
	return p.guard == nil || p.guard()
}

func (p *Poller[T]) run(ctx context.Context, seq, epoch uint64) error {
	value, err := p.fetch(ctx)
	if err != nil {
		return err
	}
	p.apply(seq, epoch, value)
	return nil
}

func (p *Poller[T]) apply(seq, epoch uint64, value T) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if epoch != p.epoch {
		p.logger.Debug("Poller: discarding response issued before stop",
			"poller", p.name,
			"seq", seq)
		return
	}

	if seq <= p.applied {
		p.logger.Debug("Poller: discarding stale response",
			"poller", p.name,
			"seq", seq,
			"applied", p.applied)
		return
	}

	p.applied = seq
	p.latest = value
	p.has = true

	if p.onUpdate != nil {
		p.onUpdate(value)
	}
}

// IsStopped reports whether err was caused by poller teardown.
func IsStopped(err error) bool {
	return errors.Is(err, context.Canceled)
}
