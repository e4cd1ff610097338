package accumulator

import (
	"errors"
	"testing"
	"time"

	"sdnlabel/pkg/models"
)

func TestAppendStampsRoundTimeAndScenario(t *testing.T) {
	acc := New("normal")
	t0 := time.Date(2026, 1, 5, 17, 44, 22, 0, time.UTC)

	if err := acc.Append(0, t0, []models.FlowRecord{{SwitchID: "s1", PacketCount: 3, ByteCount: 300}}); err != nil {
		t.Fatalf("append round 0: %v", err)
	}
	if err := acc.Append(1, t0.Add(3*time.Second), nil); err != nil {
		t.Fatalf("append empty round: %v", err)
	}
	if err := acc.Append(2, t0.Add(6*time.Second), []models.FlowRecord{{SwitchID: "s1", PacketCount: 5, ByteCount: 500}, {SwitchID: "s2", PacketCount: 1, ByteCount: 64}}); err != nil {
		t.Fatalf("append round 2: %v", err)
	}

	frozen := acc.Freeze()
	if frozen.Len() != 3 || frozen.Rounds() != 3 {
		t.Fatalf("unexpected size: len=%d rounds=%d", frozen.Len(), frozen.Rounds())
	}
	last := frozen.At(2)
	if last.Round != 2 || !last.ObservedAt.Equal(t0.Add(6*time.Second)) || last.Scenario != "normal" {
		t.Fatalf("unexpected stamping: %+v", last)
	}
}

func TestStreamingSumsMatchRescan(t *testing.T) {
	acc := New("attack")
	now := time.Now()
	for round := 0; round < 50; round++ {
		batch := make([]models.FlowRecord, round%7)
		for i := range batch {
			batch[i] = models.FlowRecord{PacketCount: uint64(round*i + 1), ByteCount: uint64(round*i*64 + 60)}
		}
		if err := acc.Append(round, now.Add(time.Duration(round)*time.Second), batch); err != nil {
			t.Fatalf("append %d: %v", round, err)
		}
	}

	frozen := acc.Freeze()
	var packets, bytes uint64
	for _, r := range frozen.Records() {
		packets += r.PacketCount
		bytes += r.ByteCount
	}
	if packets != frozen.Packets() || bytes != frozen.Bytes() {
		t.Fatalf("streaming sums drifted: packets %d vs %d, bytes %d vs %d", frozen.Packets(), packets, frozen.Bytes(), bytes)
	}
	if acc.Packets() != packets || acc.Bytes() != bytes {
		t.Fatalf("accumulator sums drifted")
	}
}

func TestRoundsMustIncrease(t *testing.T) {
	acc := New("s")
	now := time.Now()
	if err := acc.Append(3, now, nil); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := acc.Append(3, now, nil); !errors.Is(err, ErrRoundOrder) {
		t.Fatalf("expected ErrRoundOrder for repeated round, got %v", err)
	}
	if err := acc.Append(1, now, nil); !errors.Is(err, ErrRoundOrder) {
		t.Fatalf("expected ErrRoundOrder for earlier round, got %v", err)
	}
}

func TestFrozenIsImmutable(t *testing.T) {
	acc := New("s")
	now := time.Now()
	if err := acc.Append(0, now, []models.FlowRecord{{SwitchID: "s1", PacketCount: 1}}); err != nil {
		t.Fatalf("append: %v", err)
	}
	frozen := acc.Freeze()

	if err := acc.Append(1, now, []models.FlowRecord{{SwitchID: "s2"}}); !errors.Is(err, ErrFrozen) {
		t.Fatalf("expected ErrFrozen, got %v", err)
	}

	out := frozen.Records()
	out[0].SwitchID = "mutated"
	if frozen.At(0).SwitchID != "s1" {
		t.Fatalf("frozen buffer was mutated through Records()")
	}
}
