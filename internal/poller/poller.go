package poller

import (
	"context"
	"errors"
	"iter"
	"sync"
	"sync/atomic"
	"time"

	"sdnlabel/internal/logger"
	"sdnlabel/internal/metrics"
	"sdnlabel/pkg/models"
)

var log = logger.With("poller")

// ErrPollerUsed is reported by Err when a Poller is iterated more than once.
var ErrPollerUsed = errors.New("poller already used; create a new poller per run")

const (
	DefaultInterval = 5 * time.Second
	DefaultTimeout  = 3 * time.Second
)

// FetchFunc retrieves one raw snapshot.
type FetchFunc func(ctx context.Context) ([]byte, error)

// DecodeFunc turns a raw snapshot into records. A decode error counts as a
// failed poll.
type DecodeFunc func(payload []byte) ([]models.FlowRecord, error)

// Config controls one polling run.
type Config struct {
	Interval time.Duration
	Timeout  time.Duration
	Duration time.Duration
	Decode   DecodeFunc
	Scenario string
	Metrics  *metrics.Collector
}

// Stats summarizes a run.
type Stats struct {
	Attempts  int
	Successes int
	Failures  int
	Malformed int
	LastError error
	Elapsed   time.Duration
}

// Poller drives periodic snapshot acquisition for a bounded wall-clock
// duration. It is single-use.
type Poller struct {
	fetch FetchFunc
	cfg   Config
	used  atomic.Bool

	mu    sync.Mutex
	stats Stats
	err   error
}

// New creates a poller.
func New(fetch FetchFunc, cfg Config) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Poller{fetch: fetch, cfg: cfg}
}

// Snapshots returns the lazy snapshot sequence. Polls happen only while the
// consumer ranges over it; one fetch is in flight at a time. Failed rounds
// are skipped without a placeholder. The sequence ends when the configured
// duration has elapsed, when ctx is done, or when the consumer stops.
func (p *Poller) Snapshots(ctx context.Context) iter.Seq[models.Snapshot] {
	return func(yield func(models.Snapshot) bool) {
		if !p.used.CompareAndSwap(false, true) {
			log.Warnf("%v", ErrPollerUsed)
			p.mu.Lock()
			p.err = ErrPollerUsed
			p.mu.Unlock()
			return
		}

		start := time.Now()
		deadline := start.Add(p.cfg.Duration)
		defer func() {
			p.mu.Lock()
			p.stats.Elapsed = time.Since(start)
			p.mu.Unlock()
		}()

		for round := 0; ; round++ {
			if ctx.Err() != nil || !time.Now().Before(deadline) {
				return
			}

			snap, ok := p.poll(ctx, round, deadline)
			if ok && !yield(snap) {
				return
			}

			wait := p.cfg.Interval
			if remaining := time.Until(deadline); remaining < wait {
				wait = remaining
			}
			if wait <= 0 {
				return
			}
			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
		}
	}
}

func (p *Poller) poll(ctx context.Context, round int, deadline time.Time) (models.Snapshot, bool) {
	pollDeadline := time.Now().Add(p.cfg.Timeout)
	if deadline.Before(pollDeadline) {
		pollDeadline = deadline
	}
	pctx, cancel := context.WithDeadline(ctx, pollDeadline)
	defer cancel()

	began := time.Now()
	payload, err := p.fetch(pctx)
	takenAt := time.Now()

	var records []models.FlowRecord
	reason := "fetch"
	if err == nil && p.cfg.Decode != nil {
		records, err = p.cfg.Decode(payload)
		reason = "malformed"
	}

	// An interrupted run is not a failed poll.
	if err != nil && ctx.Err() != nil {
		return models.Snapshot{}, false
	}

	p.cfg.Metrics.ObservePoll(p.cfg.Scenario, takenAt.Sub(began).Seconds(), err != nil, reason)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.Attempts++
	if err != nil {
		p.stats.Failures++
		if reason == "malformed" {
			p.stats.Malformed++
		}
		p.stats.LastError = err
		log.Warnf("round %d: %s failure (%d so far): %v", round, reason, p.stats.Failures, err)
		return models.Snapshot{}, false
	}
	p.stats.Successes++
	return models.Snapshot{Round: round, TakenAt: takenAt, Payload: payload, Records: records}, true
}

// Stats returns a copy of the run statistics.
func (p *Poller) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Err reports misuse of the poller, currently only ErrPollerUsed.
func (p *Poller) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}
