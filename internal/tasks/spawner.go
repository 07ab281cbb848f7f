// Package tasks provides the background-job primitive used for document
// extraction and welcome-message fan-out. Jobs run detached from the
// request that spawned them: the request's context cancels when the
// response is written, so each job gets its own context, bounded only by
// server shutdown.
package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Spawner launches named background jobs. Services depend on this interface
// so tests can run jobs synchronously.
type Spawner interface {
	Go(name string, fn func(ctx context.Context))
}

// Pool is the production Spawner. Each job runs in its own goroutine with
// panic recovery and is tracked so Shutdown can wait for in-flight work.
type Pool struct {
	// JobTimeout bounds each job; zero means no bound.
	JobTimeout time.Duration

	mu     sync.Mutex
	wg     sync.WaitGroup
	base   context.Context
	cancel context.CancelFunc
	closed bool
}

// NewPool builds a Pool whose jobs stop when Shutdown is called.
func NewPool(jobTimeout time.Duration) *Pool {
	base, cancel := context.WithCancel(context.Background())
	return &Pool{JobTimeout: jobTimeout, base: base, cancel: cancel}
}

// Go runs fn in a new goroutine. Jobs spawned after Shutdown are dropped
// with a warning instead of racing the process exit.
func (p *Pool) Go(name string, fn func(ctx context.Context)) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		log.Warn().Str("job", name).Msg("spawner closed; job dropped")
		return
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Error().Str("job", name).Interface("panic", r).Msg("background job panicked")
			}
		}()

		ctx := p.base
		if p.JobTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, p.JobTimeout)
			defer cancel()
		}

		start := time.Now()
		fn(ctx)
		log.Debug().Str("job", name).Dur("elapsed", time.Since(start)).Msg("background job finished")
	}()
}

// Shutdown stops accepting jobs and waits for in-flight ones, up to ctx.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		return ctx.Err()
	}
}

// Sync runs jobs inline on the caller's goroutine. Test helper.
type Sync struct{}

// Go executes fn immediately with a background context.
func (Sync) Go(_ string, fn func(ctx context.Context)) { fn(context.Background()) }
