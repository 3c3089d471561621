// Package loader resolves shared report-definition modules asynchronously.
package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/ratios/internal/queryreport"
)

const defaultLoadTimeout = 30 * time.Second

// ErrModuleNotFound indicates no provider is registered for the requested path.
var ErrModuleNotFound = errors.New("loader: module not found")

// Provider produces the report definition exported by a module.
type Provider func(ctx context.Context) (queryreport.Definition, error)

// Future is the pending result of a module request.
type Future struct {
	done chan struct{}
	def  queryreport.Definition
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) resolve(def queryreport.Definition, err error) {
	f.def = def
	f.err = err
	close(f.done)
}

// Done is closed once the module has loaded or failed.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the module resolves or ctx ends.
func (f *Future) Await(ctx context.Context) (queryreport.Definition, error) {
	select {
	case <-ctx.Done():
		return queryreport.Definition{}, ctx.Err()
	case <-f.done:
		if f.err != nil {
			return queryreport.Definition{}, f.err
		}
		return queryreport.Clone(f.def), nil
	}
}

// Loader keeps module providers and memoises successful loads.
type Loader struct {
	mu        sync.RWMutex
	providers map[string]Provider
	loaded    map[string]queryreport.Definition
	group     singleflight.Group
	timeout   time.Duration
}

// New constructs an empty Loader.
func New() *Loader {
	return &Loader{
		providers: make(map[string]Provider),
		loaded:    make(map[string]queryreport.Definition),
		timeout:   defaultLoadTimeout,
	}
}

// WithLoadTimeout bounds a single provider run. Loads are shared between
// requesters, so they run detached from any one requester's cancellation.
func (l *Loader) WithLoadTimeout(d time.Duration) *Loader {
	if d > 0 {
		l.timeout = d
	}
	return l
}

// Register binds a provider to a module path, replacing any earlier provider.
func (l *Loader) Register(path string, provider Provider) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.providers[path] = provider
	delete(l.loaded, path)
}

// Require starts loading path and returns immediately.
func (l *Loader) Require(ctx context.Context, path string) *Future {
	fut := newFuture()

	l.mu.RLock()
	def, cached := l.loaded[path]
	provider, known := l.providers[path]
	l.mu.RUnlock()

	if cached {
		fut.resolve(def, nil)
		return fut
	}
	if !known || provider == nil {
		fut.resolve(queryreport.Definition{}, fmt.Errorf("%s: %w", path, ErrModuleNotFound))
		return fut
	}

	go func() {
		ch := l.group.DoChan(path, func() (interface{}, error) {
			loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
			defer cancel()
			def, err := provider(loadCtx)
			if err != nil {
				return nil, fmt.Errorf("loader: load %s: %w", path, err)
			}
			l.mu.Lock()
			l.loaded[path] = def
			l.mu.Unlock()
			return def, nil
		})
		select {
		case <-ctx.Done():
			fut.resolve(queryreport.Definition{}, ctx.Err())
		case res := <-ch:
			if res.Err != nil {
				fut.resolve(queryreport.Definition{}, res.Err)
				return
			}
			fut.resolve(res.Val.(queryreport.Definition), nil)
		}
	}()
	return fut
}
