// Package refresh keeps an in-memory snapshot of all schedule records,
// reloaded on a cron schedule and on demand.
package refresh

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"schedview/internal/feed"
	"schedview/internal/filter"
	"schedview/internal/ics"
	appLog "schedview/internal/log"
	"schedview/internal/model"
)

// Snapshot is the last load outcome. Err holds the most recent failure;
// Events keeps the last good data so views stay usable while it is shown.
type Snapshot struct {
	Events    []model.Event
	Err       error
	UpdatedAt time.Time
}

// Options controls how loaded records are post-processed.
type Options struct {
	// Expand turns recurring records into per-occurrence events inside Window.
	Expand   bool
	Location *time.Location
	Window   func(now time.Time) (time.Time, time.Time)
	Now      func() time.Time
}

// Refresher owns the snapshot. It is safe for concurrent use.
type Refresher struct {
	mu     sync.RWMutex
	loader *feed.Loader
	opts   Options
	snap   Snapshot
	// gen increases with every Refresh and Reconfigure; only the newest
	// refresh may commit its snapshot.
	gen uint64
}

func New(src feed.Source, opts Options) *Refresher {
	r := &Refresher{}
	r.Reconfigure(src, opts)
	return r
}

// Reconfigure swaps the source and options, e.g. after a config reload. The
// current snapshot is kept until the next refresh.
func (r *Refresher) Reconfigure(src feed.Source, opts Options) {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Window == nil {
		opts.Window = func(now time.Time) (time.Time, time.Time) {
			return now.AddDate(0, -1, 0), now.AddDate(0, 3, 0)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loader != nil {
		r.loader.Cancel()
	}
	r.loader = feed.NewLoader(src)
	r.opts = opts
	r.gen++
}

// Snapshot returns the current snapshot. Callers must not mutate Events.
func (r *Refresher) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap
}

// Refresh reloads all records. Overlapping calls supersede each other; a
// superseded call returns feed.ErrSuperseded and leaves the snapshot alone.
func (r *Refresher) Refresh(ctx context.Context) error {
	r.mu.Lock()
	r.gen++
	gen, loader, opts := r.gen, r.loader, r.opts
	r.mu.Unlock()

	start := opts.Now()
	events, err := loader.Load(ctx, filter.Filters{})
	if errors.Is(err, feed.ErrSuperseded) {
		appLog.Debug("refresh superseded")
		return err
	}

	if opts.Expand && len(events) > 0 {
		from, to := opts.Window(start)
		res, xerr := ics.ExpandOccurrences(ics.FromEvents(events), ics.ExpandConfig{
			DisplayLocation: opts.Location,
			RangeStart:      from,
			RangeEnd:        to,
		})
		if xerr != nil {
			err = errors.Join(err, xerr)
		} else {
			events = res.Events
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen {
		appLog.Debug("refresh superseded")
		return feed.ErrSuperseded
	}
	r.snap.Err = err
	r.snap.UpdatedAt = opts.Now()
	// A failed load with nothing to show keeps the previous events.
	if err == nil || len(events) > 0 {
		r.snap.Events = events
	}

	if err != nil {
		appLog.Error("refresh failed", err, "events", len(r.snap.Events))
		return err
	}
	appLog.Info("refresh done", "events", len(events), "took", opts.Now().Sub(start))
	return nil
}

// Run refreshes once, then on every tick of the cron spec until ctx is
// cancelled. It returns an error only for an invalid spec.
func (r *Refresher) Run(ctx context.Context, spec string) error {
	r.mu.RLock()
	loc := r.opts.Location
	r.mu.RUnlock()

	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(spec, func() { _ = r.Refresh(ctx) }); err != nil {
		return err
	}

	_ = r.Refresh(ctx)
	c.Start()
	appLog.Info("refresh scheduled", "spec", spec)

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
