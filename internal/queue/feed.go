// Package queue keeps consumers synchronized with the set of queued
// reports. A subscription delivers full queue snapshots; consumers
// replace their view with each one rather than merging.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Sonnyywithanyextray/CheckMate/internal/reports"
)

// ObservationError signals that the feed's underlying query failed.
// The feed delivers it and stops; it never reconnects on its own.
type ObservationError struct {
	Err error
}

func (e *ObservationError) Error() string {
	return fmt.Sprintf("queue observation failed: %v", e.Err)
}

func (e *ObservationError) Unwrap() error {
	return e.Err
}

// Snapshot is one authoritative view of the current queue. When Err is
// set the feed has failed and the channel closes after this event.
type Snapshot struct {
	Reports []reports.Report
	Err     error
}

// Source is the filtered query the feed observes.
type Source interface {
	QueryByStatus(ctx context.Context, status reports.Status) ([]reports.Report, error)
}

// Feed is an owned subscription handle. Callers must Close it when done
// or the underlying polling goroutine runs until process exit.
type Feed struct {
	events    chan Snapshot
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// Subscribe starts observing queued reports at the given poll interval.
// The first snapshot is delivered immediately; later ones only when the
// queue changed. Rapid successive changes may coalesce into a single
// snapshot. Re-subscribing after Close starts a fresh feed.
func Subscribe(ctx context.Context, src Source, interval time.Duration) *Feed {
	ctx, cancel := context.WithCancel(ctx)
	f := &Feed{
		events: make(chan Snapshot, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go f.run(ctx, src, interval)
	return f
}

// Snapshots returns the event channel. It closes when the feed is
// closed or after an ObservationError is delivered.
func (f *Feed) Snapshots() <-chan Snapshot {
	return f.events
}

// Close tears the subscription down on all paths and waits for the
// polling goroutine to exit. Safe to call more than once.
func (f *Feed) Close() {
	f.closeOnce.Do(f.cancel)
	<-f.done
}

func (f *Feed) run(ctx context.Context, src Source, interval time.Duration) {
	defer close(f.done)
	defer close(f.events)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last []reports.Report
	first := true
	for {
		current, err := src.QueryByStatus(ctx, reports.StatusQueued)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Msg("Queue feed query failed")
			f.deliver(Snapshot{Err: &ObservationError{Err: err}})
			return
		}

		if first || changed(last, current) {
			f.deliver(Snapshot{Reports: current})
			last = current
			first = false
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// deliver never blocks: a snapshot the consumer has not taken yet is
// replaced by the newer one. Each snapshot is authoritative, so
// dropping a stale one loses nothing.
func (f *Feed) deliver(s Snapshot) {
	select {
	case f.events <- s:
	default:
		select {
		case <-f.events:
		default:
		}
		f.events <- s
	}
}

func changed(prev, next []reports.Report) bool {
	if len(prev) != len(next) {
		return true
	}
	for i := range prev {
		if prev[i].ID != next[i].ID || !prev[i].UpdatedAt.Equal(next[i].UpdatedAt) {
			return true
		}
	}
	return false
}
