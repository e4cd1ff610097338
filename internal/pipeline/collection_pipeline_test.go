package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sdnlabel/internal/alerts"
	"sdnlabel/internal/labeler"
	"sdnlabel/internal/metrics"
	"sdnlabel/pkg/models"
)

const twoFlows = `{"00:00:00:00:00:00:00:01": [
	{"packetCount": 10, "byteCount": 980, "match": {"ipv4_src": "10.0.0.1", "ipv4_dst": "10.0.0.4", "ip_proto": 1}},
	{"packetCount": 4, "byteCount": 392, "match": {"ipv4_src": "10.0.0.2", "ipv4_dst": "10.0.0.3", "ip_proto": 1}}
]}`

type memDataset struct {
	mu      sync.Mutex
	written []*models.LabeledDataset
}

func (m *memDataset) WriteDataset(ds *models.LabeledDataset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.written = append(m.written, ds)
	return nil
}

func (m *memDataset) Close() error { return nil }

type memSummary struct{ summaries []models.Summary }

func (m *memSummary) WriteSummary(s models.Summary) error {
	m.summaries = append(m.summaries, s)
	return nil
}

func (m *memSummary) Close() error { return nil }

type memAlerts struct{ byScenario map[string][]models.AlertEvent }

func (m *memAlerts) WriteAlerts(scenario string, events []models.AlertEvent) error {
	if m.byScenario == nil {
		m.byScenario = map[string][]models.AlertEvent{}
	}
	m.byScenario[scenario] = append(m.byScenario[scenario], events...)
	return nil
}

func (m *memAlerts) Close() error { return nil }

type memTrail struct {
	records *[]models.FlowRecord
}

func (m memTrail) WriteRecords(records []models.FlowRecord) error {
	*m.records = append(*m.records, records...)
	return nil
}

func (m memTrail) Close() error { return nil }

func staticFetch(payload string) func(ctx context.Context) ([]byte, error) {
	return func(ctx context.Context) ([]byte, error) { return []byte(payload), nil }
}

func testConfig() Config {
	return Config{Interval: 10 * time.Millisecond, PollTimeout: 50 * time.Millisecond, Duration: 60 * time.Millisecond}
}

func TestRunLabelsEachScenarioAgainstItsAlerts(t *testing.T) {
	ds := &memDataset{}
	sum := &memSummary{}
	al := &memAlerts{}
	var trail []models.FlowRecord

	attackAlerts := alerts.NewStaticSource([]models.AlertEvent{
		{OccurredAt: time.Now().Add(200 * time.Millisecond), Kind: models.KindLinkFabrication, RawMessage: "Fake LLDP packet"},
	})
	scenarios := []Scenario{
		{Name: "normal", Alerts: alerts.NewStaticSource(nil)},
		{Name: "attack", Alerts: attackAlerts},
	}
	p := NewCollectionPipeline(staticFetch(twoFlows), scenarios,
		labeler.New(labeler.Config{HalfWidth: 10 * time.Second}),
		&Outputs{Datasets: []DatasetWriter{ds}, Summaries: []SummaryWriter{sum}, Alerts: al},
		func(string) (RecordWriter, error) { return memTrail{records: &trail}, nil },
		metrics.NewCollector(), testConfig())

	out, err := p.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, p.Close())

	require.Len(t, ds.written, 1)
	assert.Same(t, out, ds.written[0])
	require.Len(t, sum.summaries, 1)
	assert.Equal(t, p.RunID(), sum.summaries[0].RunID)
	assert.Equal(t, []string{"normal", "attack"}, out.Summary.Scenarios)

	require.NotEmpty(t, out.Records)
	assert.Len(t, trail, len(out.Records))
	for _, r := range out.Records {
		require.True(t, r.Labeled())
		switch r.Scenario {
		case "normal":
			assert.Equal(t, models.LabelBenign, *r.Label)
			assert.Equal(t, models.KindNone, r.AttackKind)
		case "attack":
			assert.Equal(t, models.LabelAttack, *r.Label)
			assert.Equal(t, models.KindLinkFabrication, r.AttackKind)
		default:
			t.Fatalf("unexpected scenario %q", r.Scenario)
		}
		assert.False(t, r.ObservedAt.IsZero())
	}
	assert.Len(t, al.byScenario["attack"], 1)
	assert.Empty(t, al.byScenario["normal"])

	st := p.Status()
	assert.Equal(t, "done", st.Phase)
	assert.Equal(t, []string{"normal", "attack"}, st.Completed)
	assert.Equal(t, len(out.Records), st.Records)
}

func TestRunCountsMalformedPollsWithoutAborting(t *testing.T) {
	var calls int32
	fetch := func(ctx context.Context) ([]byte, error) {
		if atomic.AddInt32(&calls, 1)%2 == 0 {
			return []byte(`[1,2,3]`), nil
		}
		return []byte(twoFlows), nil
	}
	p := NewCollectionPipeline(fetch, []Scenario{{Name: "normal"}},
		labeler.New(labeler.Config{}), nil, nil, nil, testConfig())

	out, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Positive(t, out.Summary.PollFailures["normal"])
	assert.Equal(t, 0, len(out.Records)%2, "malformed rounds contribute no records")
}

func TestRunInterruptedKeepsPartialData(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls int32
	fetch := func(ctx context.Context) ([]byte, error) {
		if atomic.AddInt32(&calls, 1) == 3 {
			cancel()
		}
		return []byte(twoFlows), nil
	}
	cfg := testConfig()
	cfg.Duration = time.Minute
	scenarios := []Scenario{{Name: "first"}, {Name: "second"}}
	p := NewCollectionPipeline(fetch, scenarios, labeler.New(labeler.Config{}), nil, nil, nil, cfg)

	start := time.Now()
	out, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.Equal(t, []string{"first"}, out.Summary.Scenarios)
	assert.Len(t, out.Records, 6)
}

func TestRunFailsOnUnparseableAlertTime(t *testing.T) {
	ds := &memDataset{}
	src := alerts.NewStaticSource([]models.AlertEvent{{RawTime: "half past four", Kind: models.KindHostHijack}})
	p := NewCollectionPipeline(staticFetch(twoFlows), []Scenario{{Name: "attack", Alerts: src}},
		labeler.New(labeler.Config{}), &Outputs{Datasets: []DatasetWriter{ds}}, nil, nil, testConfig())

	out, err := p.Run(context.Background())
	assert.Nil(t, out)
	require.Error(t, err)
	assert.True(t, IsLabelingError(err))
	assert.Empty(t, ds.written, "no artifact on labeling failure")
	assert.Equal(t, "failed", p.Status().Phase)
}

type failingSource struct{}

func (failingSource) Events(ctx context.Context) ([]models.AlertEvent, error) {
	return nil, errors.New("redis: connection refused")
}

func (failingSource) Close() error { return nil }

func TestRunFailsWhenAlertsUnavailable(t *testing.T) {
	p := NewCollectionPipeline(staticFetch(twoFlows), []Scenario{{Name: "attack", Alerts: failingSource{}}},
		labeler.New(labeler.Config{}), nil, nil, nil, testConfig())
	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
