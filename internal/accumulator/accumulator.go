package accumulator

import (
	"errors"
	"fmt"
	"time"

	"sdnlabel/pkg/models"
)

var (
	// ErrFrozen is returned when appending to a frozen buffer.
	ErrFrozen = errors.New("accumulator is frozen")
	// ErrRoundOrder is returned when a round number does not increase.
	ErrRoundOrder = errors.New("round number must increase")
)

// Accumulator is the append-only record buffer of one collection run.
// It has a single producer and is not safe for concurrent use.
type Accumulator struct {
	scenario  string
	records   []models.FlowRecord
	packets   uint64
	bytes     uint64
	rounds    int
	lastRound int
	frozen    bool
}

// New creates an empty accumulator that tags records with scenario.
func New(scenario string) *Accumulator {
	return &Accumulator{scenario: scenario, lastRound: -1}
}

// Append stamps records with round, capture time and scenario, then appends
// them. The caller's slice is not retained.
func (a *Accumulator) Append(round int, capturedAt time.Time, records []models.FlowRecord) error {
	if a.frozen {
		return ErrFrozen
	}
	if round < 0 || round <= a.lastRound {
		return fmt.Errorf("%w: got %d after %d", ErrRoundOrder, round, a.lastRound)
	}
	a.lastRound = round
	a.rounds++

	for _, r := range records {
		r.Round = round
		r.ObservedAt = capturedAt
		r.Scenario = a.scenario
		a.packets += r.PacketCount
		a.bytes += r.ByteCount
		a.records = append(a.records, r)
	}
	return nil
}

// Len returns the number of buffered records.
func (a *Accumulator) Len() int { return len(a.records) }

// Packets returns the running packet_count sum.
func (a *Accumulator) Packets() uint64 { return a.packets }

// Bytes returns the running byte_count sum.
func (a *Accumulator) Bytes() uint64 { return a.bytes }

// Rounds returns how many rounds were appended, including empty ones.
func (a *Accumulator) Rounds() int { return a.rounds }

// Freeze ends the run and hands the buffer off as an immutable view.
// Calling Freeze again returns an equivalent view.
func (a *Accumulator) Freeze() *Frozen {
	a.frozen = true
	return &Frozen{
		scenario: a.scenario,
		records:  a.records,
		packets:  a.packets,
		bytes:    a.bytes,
		rounds:   a.rounds,
	}
}

// Frozen is a read-only view of a finished run's records.
type Frozen struct {
	scenario string
	records  []models.FlowRecord
	packets  uint64
	bytes    uint64
	rounds   int
}

// Scenario returns the scenario tag.
func (f *Frozen) Scenario() string { return f.scenario }

// Len returns the record count.
func (f *Frozen) Len() int { return len(f.records) }

// Packets returns the packet sum captured during accumulation.
func (f *Frozen) Packets() uint64 { return f.packets }

// Bytes returns the byte sum captured during accumulation.
func (f *Frozen) Bytes() uint64 { return f.bytes }

// Rounds returns the number of appended rounds.
func (f *Frozen) Rounds() int { return f.rounds }

// At returns a copy of record i.
func (f *Frozen) At(i int) models.FlowRecord { return f.records[i] }

// Records returns a copy of all records in append order.
func (f *Frozen) Records() []models.FlowRecord {
	return append([]models.FlowRecord(nil), f.records...)
}
