package dataset

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"sdnlabel/pkg/models"
)

var (
	// ErrUnlabeled is returned when a stream contains a record without a label.
	ErrUnlabeled = errors.New("record is not labeled")
	// ErrEmpty is returned when Build is called with no streams.
	ErrEmpty = errors.New("no labeled streams to assemble")
)

// SchemaError reports a stream whose field set differs from the dataset's.
type SchemaError struct {
	Scenario string
	Missing  []string
	Extra    []string
}

func (e *SchemaError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ","))
	}
	if len(e.Extra) > 0 {
		parts = append(parts, "extra "+strings.Join(e.Extra, ","))
	}
	return fmt.Sprintf("scenario %q schema mismatch: %s", e.Scenario, strings.Join(parts, "; "))
}

// Stream is the labeled output of one collection run.
type Stream struct {
	Scenario     string
	Fields       []string
	Records      []models.FlowRecord
	PollFailures int
}

// Assembler concatenates labeled streams into one dataset. It takes
// ownership of the records handed to Add.
type Assembler struct {
	runID   string
	columns []string
	streams []Stream
	now     func() time.Time
}

// NewAssembler creates an assembler whose reference schema is the flow
// record column set.
func NewAssembler(runID string) *Assembler {
	return &Assembler{runID: runID, columns: models.FlowColumns(), now: time.Now}
}

// Add validates and queues one stream. A rejected stream leaves the
// assembler unchanged.
func (a *Assembler) Add(s Stream) error {
	if err := checkSchema(s.Scenario, a.columns, s.Fields); err != nil {
		return err
	}
	for i, r := range s.Records {
		if !r.Labeled() {
			return fmt.Errorf("%w: scenario %q record %d", ErrUnlabeled, s.Scenario, i)
		}
	}
	a.streams = append(a.streams, s)
	return nil
}

// Len returns the number of queued streams.
func (a *Assembler) Len() int { return len(a.streams) }

// Build concatenates the queued streams in the order they were added and
// computes the summary.
func (a *Assembler) Build() (*models.LabeledDataset, error) {
	if len(a.streams) == 0 {
		return nil, ErrEmpty
	}

	total := 0
	for _, s := range a.streams {
		total += len(s.Records)
	}

	summary := models.Summary{
		RunID:        a.runID,
		LabelCounts:  map[models.Label]int{models.LabelBenign: 0, models.LabelAttack: 0},
		KindCounts:   map[models.AttackKind]int{},
		ScenarioRows: map[string]int{},
		PollFailures: map[string]int{},
		CreatedAt:    a.now().UTC(),
	}
	records := make([]models.FlowRecord, 0, total)
	for _, s := range a.streams {
		summary.Scenarios = append(summary.Scenarios, s.Scenario)
		summary.ScenarioRows[s.Scenario] += len(s.Records)
		if s.PollFailures > 0 {
			summary.PollFailures[s.Scenario] += s.PollFailures
		}
		for _, r := range s.Records {
			summary.LabelCounts[*r.Label]++
			summary.KindCounts[r.AttackKind]++
			summary.TotalPackets += r.PacketCount
			summary.TotalBytes += r.ByteCount
			if summary.WindowStart.IsZero() || r.ObservedAt.Before(summary.WindowStart) {
				summary.WindowStart = r.ObservedAt
			}
			if r.ObservedAt.After(summary.WindowEnd) {
				summary.WindowEnd = r.ObservedAt
			}
		}
		records = append(records, s.Records...)
	}
	summary.TotalRecords = len(records)

	return &models.LabeledDataset{
		Columns: append([]string(nil), a.columns...),
		Records: records,
		Summary: summary,
	}, nil
}

// Assemble validates all streams and builds the dataset. Any invalid stream
// fails the whole call.
func Assemble(runID string, streams ...Stream) (*models.LabeledDataset, error) {
	a := NewAssembler(runID)
	for _, s := range streams {
		if err := a.Add(s); err != nil {
			return nil, err
		}
	}
	return a.Build()
}

// CheckFields compares a field set against the flow record columns.
func CheckFields(name string, fields []string) error {
	return checkSchema(name, models.FlowColumns(), fields)
}

func checkSchema(scenario string, want, got []string) error {
	have := make(map[string]bool, len(got))
	for _, f := range got {
		have[f] = true
	}
	expected := make(map[string]bool, len(want))
	var missing, extra []string
	for _, f := range want {
		expected[f] = true
		if !have[f] {
			missing = append(missing, f)
		}
	}
	for f := range have {
		if !expected[f] {
			extra = append(extra, f)
		}
	}
	if len(missing) == 0 && len(extra) == 0 {
		return nil
	}
	sort.Strings(extra)
	return &SchemaError{Scenario: scenario, Missing: missing, Extra: extra}
}
