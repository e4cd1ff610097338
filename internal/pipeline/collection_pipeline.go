package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sdnlabel/internal/accumulator"
	"sdnlabel/internal/alerts"
	"sdnlabel/internal/dataset"
	"sdnlabel/internal/labeler"
	"sdnlabel/internal/logger"
	"sdnlabel/internal/metrics"
	"sdnlabel/internal/poller"
	"sdnlabel/internal/transform/floodlight"
	"sdnlabel/pkg/models"
)

// alertDrainTimeout bounds alert collection after polling, including after
// an interrupt.
const alertDrainTimeout = 30 * time.Second

// Scenario is one collection run.
type Scenario struct {
	Name     string
	Warmup   time.Duration
	Duration time.Duration
	Alerts   alerts.EventSource
}

// Config holds the polling parameters shared by every scenario.
type Config struct {
	Interval    time.Duration
	PollTimeout time.Duration
	Duration    time.Duration
}

// TrailFactory opens the record trail for a scenario. It may return nil, nil
// to disable the trail.
type TrailFactory func(scenario string) (RecordWriter, error)

// CollectionPipeline polls the controller for each scenario in turn, labels
// what was collected against that scenario's alerts, and assembles one
// dataset from all scenarios.
type CollectionPipeline struct {
	fetch     poller.FetchFunc
	scenarios []Scenario
	labeler   *labeler.Labeler
	outputs   *Outputs
	trails    TrailFactory
	metrics   *metrics.Collector
	cfg       Config
	runID     string
	status    statusTracker
}

// NewCollectionPipeline creates a collection pipeline.
func NewCollectionPipeline(fetch poller.FetchFunc, scenarios []Scenario, lab *labeler.Labeler, outputs *Outputs, trails TrailFactory, m *metrics.Collector, cfg Config) *CollectionPipeline {
	if outputs == nil {
		outputs = &Outputs{}
	}
	p := &CollectionPipeline{
		fetch:     fetch,
		scenarios: scenarios,
		labeler:   lab,
		outputs:   outputs,
		trails:    trails,
		metrics:   m,
		cfg:       cfg,
		runID:     uuid.NewString(),
	}
	p.status.update(func(s *Status) {
		s.RunID = p.runID
		s.Phase = "idle"
	})
	return p
}

// RunID identifies this pipeline's dataset.
func (p *CollectionPipeline) RunID() string { return p.runID }

// Status returns the current progress.
func (p *CollectionPipeline) Status() Status { return p.status.get() }

// Run executes every scenario sequentially and publishes the assembled
// dataset. Cancelling ctx stops polling; whatever was accumulated is still
// labeled and published, and the remaining scenarios are skipped.
func (p *CollectionPipeline) Run(ctx context.Context) (*models.LabeledDataset, error) {
	logger.Infof("Collection pipeline started: run=%s scenarios=%d", p.runID, len(p.scenarios))
	p.status.update(func(s *Status) {
		s.Phase = "collecting"
		s.StartedAt = time.Now().UTC()
	})

	asm := dataset.NewAssembler(p.runID)
	for _, sc := range p.scenarios {
		if ctx.Err() != nil {
			logger.Warnf("Interrupted; skipping scenario %q", sc.Name)
			continue
		}
		stream, err := p.runScenario(ctx, sc)
		if err != nil {
			p.fail(err)
			p.metrics.ScenarioDone("error")
			return nil, fmt.Errorf("scenario %q: %w", sc.Name, err)
		}
		if err := asm.Add(stream); err != nil {
			p.fail(err)
			return nil, err
		}
		p.metrics.ScenarioDone("ok")
		p.status.update(func(s *Status) { s.Completed = append(s.Completed, sc.Name) })
	}

	p.status.update(func(s *Status) {
		s.Phase = "publishing"
		s.Scenario = ""
	})
	ds, err := asm.Build()
	if err != nil {
		p.fail(err)
		return nil, err
	}
	if err := p.outputs.Publish(ds); err != nil {
		p.fail(err)
		return nil, err
	}

	p.status.update(func(s *Status) { s.Phase = "done" })
	logger.Infof("Collection pipeline finished: run=%s records=%d attack=%d benign=%d",
		p.runID, ds.Summary.TotalRecords, ds.Summary.LabelCounts[models.LabelAttack], ds.Summary.LabelCounts[models.LabelBenign])
	return ds, nil
}

// Close releases pipeline resources.
func (p *CollectionPipeline) Close() error {
	closed := map[alerts.EventSource]bool{}
	for _, sc := range p.scenarios {
		if sc.Alerts == nil || closed[sc.Alerts] {
			continue
		}
		closed[sc.Alerts] = true
		if err := sc.Alerts.Close(); err != nil {
			logger.Errorf("Failed to close alert source for %q: %v", sc.Name, err)
		}
	}
	return p.outputs.Close()
}

func (p *CollectionPipeline) fail(err error) {
	p.status.update(func(s *Status) {
		s.Phase = "failed"
		s.LastError = err.Error()
	})
}

func (p *CollectionPipeline) runScenario(ctx context.Context, sc Scenario) (dataset.Stream, error) {
	log := logger.With("scenario:" + sc.Name)
	p.status.update(func(s *Status) { s.Scenario = sc.Name })

	if starter, ok := sc.Alerts.(alerts.Starter); ok {
		if err := starter.Start(ctx); err != nil {
			return dataset.Stream{}, fmt.Errorf("start alert source: %w", err)
		}
	}

	if sc.Warmup > 0 {
		log.Infof("warming up for %s", sc.Warmup)
		select {
		case <-ctx.Done():
		case <-time.After(sc.Warmup):
		}
	}

	duration := sc.Duration
	if duration <= 0 {
		duration = p.cfg.Duration
	}
	pl := poller.New(p.fetch, poller.Config{
		Interval: p.cfg.Interval,
		Timeout:  p.cfg.PollTimeout,
		Duration: duration,
		Decode:   floodlight.Parse,
		Scenario: sc.Name,
		Metrics:  p.metrics,
	})

	acc := accumulator.New(sc.Name)
	log.Infof("polling every %s for %s", p.cfg.Interval, duration)
	for snap := range pl.Snapshots(ctx) {
		if err := acc.Append(snap.Round, snap.TakenAt, snap.Records); err != nil {
			return dataset.Stream{}, err
		}
		p.metrics.AddRecords(sc.Name, len(snap.Records))
		n := acc.Len()
		p.status.update(func(s *Status) {
			s.Records += len(snap.Records)
			s.Snapshots++
		})
		log.Debugf("round %d: %d entries, %d buffered", snap.Round, len(snap.Records), n)
	}
	frozen := acc.Freeze()
	pstats := pl.Stats()
	p.status.update(func(s *Status) { s.Failures += pstats.Failures })
	if ctx.Err() != nil {
		log.Warnf("polling interrupted after %s; keeping %d records", pstats.Elapsed.Round(time.Millisecond), frozen.Len())
	}
	log.Infof("collected %d records over %d rounds (%d failed polls, %d packets, %d bytes)",
		frozen.Len(), frozen.Rounds(), pstats.Failures, frozen.Packets(), frozen.Bytes())

	records := frozen.Records()
	p.writeTrail(sc.Name, records)

	// Alert collection must finish even after an interrupt.
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), alertDrainTimeout)
	defer cancel()
	events, err := collectEvents(actx, sc.Alerts)
	if err != nil {
		return dataset.Stream{}, err
	}
	p.status.update(func(s *Status) { s.Alerts += len(events) })

	labeled, lstats, err := p.labeler.Label(records, events)
	if err != nil {
		return dataset.Stream{}, fmt.Errorf("label: %w", err)
	}
	p.recordAlerts(sc.Name, events, lstats.Earliest)
	p.metrics.AddLabels(sc.Name, lstats.Attack, lstats.Benign)
	log.Infof("labeled %d records against %d alerts: attack=%d benign=%d", lstats.Records, lstats.Events, lstats.Attack, lstats.Benign)

	return dataset.Stream{
		Scenario:     sc.Name,
		Fields:       models.FlowColumns(),
		Records:      labeled,
		PollFailures: pstats.Failures,
	}, nil
}

func (p *CollectionPipeline) writeTrail(scenario string, records []models.FlowRecord) {
	if p.trails == nil {
		return
	}
	w, err := p.trails(scenario)
	if err != nil {
		logger.Errorf("Failed to open record trail for %q: %v", scenario, err)
		return
	}
	if w == nil {
		return
	}
	defer w.Close()
	if err := w.WriteRecords(records); err != nil {
		logger.Errorf("Failed to write record trail for %q: %v", scenario, err)
	}
}

// recordAlerts persists resolved alerts and counts them by kind. With no
// records there is no anchor for time-of-day values, so alerts are written
// as received.
func (p *CollectionPipeline) recordAlerts(scenario string, events []models.AlertEvent, anchor time.Time) {
	out := events
	if !anchor.IsZero() {
		if resolved, err := p.labeler.ResolveEvents(events, anchor); err == nil {
			out = resolved
		}
	}
	for _, e := range out {
		p.metrics.AddAlert(scenario, string(e.Kind))
	}
	p.outputs.WriteAlerts(scenario, out)
}

func collectEvents(ctx context.Context, src alerts.EventSource) ([]models.AlertEvent, error) {
	if src == nil {
		return nil, nil
	}
	events, err := src.Events(ctx)
	if err != nil {
		if alerts.IsMissing(err) {
			return nil, fmt.Errorf("alert source unavailable, refusing to label everything benign: %w", err)
		}
		return nil, fmt.Errorf("collect alerts: %w", err)
	}
	return events, nil
}

// IsLabelingError reports whether err aborted labeling because of a bad
// timestamp.
func IsLabelingError(err error) bool {
	return labeler.IsTimestampError(err)
}

// IsSchemaError reports whether err is a dataset schema mismatch.
func IsSchemaError(err error) bool {
	var se *dataset.SchemaError
	return errors.As(err, &se)
}
