package labeler

import (
	"errors"
	"sort"
	"time"

	"sdnlabel/pkg/models"
)

// DefaultHalfWidth is the alert window half-width used when none is configured.
const DefaultHalfWidth = 10 * time.Second

// Config controls temporal labeling.
type Config struct {
	// HalfWidth is W in [event-W, event+W]. Zero means DefaultHalfWidth.
	HalfWidth time.Duration
	// EventClockOffset is added to every event time to correct skew between
	// the controller clock and the collector clock.
	EventClockOffset time.Duration
	// Location interprets zone-less event timestamps. Nil means time.Local.
	Location *time.Location
}

// Stats summarizes one labeling pass.
type Stats struct {
	Records  int
	Events   int
	Attack   int
	Benign   int
	ByKind   map[models.AttackKind]int
	Earliest time.Time
	Latest   time.Time
}

// Labeler assigns ground-truth labels by correlating records with alerts.
type Labeler struct {
	cfg Config
}

type timedEvent struct {
	at   time.Time
	kind models.AttackKind
}

// New creates a labeler.
func New(cfg Config) *Labeler {
	if cfg.HalfWidth <= 0 {
		cfg.HalfWidth = DefaultHalfWidth
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Labeler{cfg: cfg}
}

// HalfWidth returns the effective window half-width.
func (l *Labeler) HalfWidth() time.Duration { return l.cfg.HalfWidth }

// Label returns a labeled copy of records in their original order.
//
// Every record starts benign with kind "none". A record observed at t is an
// attack when some event e satisfies |t - e| <= W; among all such events the
// latest one supplies the kind, and events at the same instant resolve to
// the one supplied last. Records and events are sorted once and matched with
// a single forward sweep, O((n+m) log(n+m)).
//
// The first record or event whose time cannot be resolved aborts the pass
// with a *TimestampError.
func (l *Labeler) Label(records []models.FlowRecord, events []models.AlertEvent) ([]models.FlowRecord, Stats, error) {
	stats := Stats{Records: len(records), Events: len(events), ByKind: map[models.AttackKind]int{}}
	if len(records) == 0 {
		return nil, stats, nil
	}

	times := make([]time.Time, len(records))
	for i, r := range records {
		if r.ObservedAt.IsZero() {
			return nil, stats, &TimestampError{Source: "record", Index: i, Raw: "", Err: errEmptyTimestamp}
		}
		times[i] = r.ObservedAt.Round(0)
	}

	order := make([]int, len(records))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return times[order[a]].Before(times[order[b]])
	})
	stats.Earliest = times[order[0]]
	stats.Latest = times[order[len(order)-1]]

	evs, err := l.resolveEvents(events, stats.Earliest)
	if err != nil {
		return nil, stats, err
	}

	out := make([]models.FlowRecord, len(records))
	for i, r := range records {
		out[i] = r.WithLabel(models.LabelBenign, models.KindNone)
	}

	w := l.cfg.HalfWidth
	next := 0
	for _, idx := range order {
		t := times[idx]
		upper := t.Add(w)
		for next < len(evs) && !evs[next].at.After(upper) {
			next++
		}
		if next == 0 {
			continue
		}
		// evs[next-1] is the latest event not after t+W.
		e := evs[next-1]
		if e.at.Before(t.Add(-w)) {
			continue
		}
		out[idx] = out[idx].WithLabel(models.LabelAttack, e.kind)
	}

	for _, r := range out {
		if *r.Label == models.LabelAttack {
			stats.Attack++
		} else {
			stats.Benign++
		}
		stats.ByKind[r.AttackKind]++
	}
	return out, stats, nil
}

func (l *Labeler) resolveEvents(events []models.AlertEvent, anchor time.Time) ([]timedEvent, error) {
	resolved, err := l.ResolveEvents(events, anchor)
	if err != nil {
		return nil, err
	}
	evs := make([]timedEvent, len(resolved))
	for i, e := range resolved {
		evs[i] = timedEvent{at: e.OccurredAt.Add(l.cfg.EventClockOffset), kind: e.Kind}
	}
	sort.SliceStable(evs, func(a, b int) bool {
		return evs[a].at.Before(evs[b].at)
	})
	return evs, nil
}

// ResolveEvents returns copies of events with OccurredAt placed on the
// timeline and Kind normalized, in input order. Time-of-day values are
// anchored to anchor. The clock offset is not applied.
func (l *Labeler) ResolveEvents(events []models.AlertEvent, anchor time.Time) ([]models.AlertEvent, error) {
	out := make([]models.AlertEvent, len(events))
	for i, e := range events {
		if e.OccurredAt.IsZero() {
			parsed, err := ParseTimestamp(e.RawTime, anchor, l.cfg.Location)
			if err != nil {
				return nil, &TimestampError{Source: "event", Index: i, Raw: e.RawTime, Err: err}
			}
			e.OccurredAt = parsed
		}
		e.OccurredAt = e.OccurredAt.Round(0)
		e.Kind = eventKind(e.Kind)
		out[i] = e
	}
	return out, nil
}

// eventKind keeps known kinds and maps anything else to unknown; alerts are
// never dropped for lacking a recognizable kind.
func eventKind(k models.AttackKind) models.AttackKind {
	return models.ParseAttackKind(string(k))
}

// IsTimestampError reports whether err carries a *TimestampError.
func IsTimestampError(err error) bool {
	var te *TimestampError
	return errors.As(err, &te)
}
