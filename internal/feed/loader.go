package feed

import (
	"context"
	"errors"
	"sync"

	"schedview/internal/filter"
	"schedview/internal/model"
)

// ErrSuperseded is returned by Loader.Load when a newer load started before
// this one finished. Its result, if any, has been discarded.
var ErrSuperseded = errors.New("feed: load superseded by a newer request")

// Loader serializes loads triggered by state changes: starting a load
// cancels the one in flight, and only the newest load may deliver a result.
type Loader struct {
	src Source

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

func NewLoader(src Source) *Loader {
	return &Loader{src: src}
}

// Load fetches events for f. It blocks until the source returns.
func (l *Loader) Load(ctx context.Context, f filter.Filters) ([]model.Event, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.gen++
	gen := l.gen
	l.cancel = cancel
	l.mu.Unlock()

	events, err := l.src.Load(ctx, f)

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		return nil, ErrSuperseded
	}
	l.cancel = nil
	return events, err
}

// Cancel aborts the load in flight, if any. Its caller gets ErrSuperseded.
func (l *Loader) Cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.gen++
}
