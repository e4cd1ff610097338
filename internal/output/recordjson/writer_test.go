package recordjson

import (
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"sdnlabel/pkg/models"
)

func TestWriteAndLoadTrail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw", "normal.jsonl")
	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("writer: %v", err)
	}
	at := time.Date(2026, 1, 5, 17, 0, 0, 123456789, time.UTC)
	recs := []models.FlowRecord{
		{SwitchID: "s1", ObservedAt: at, Round: 0, Scenario: "normal", PacketCount: 3, Match: models.MatchFields{IPv4Src: "10.0.0.1", TpDst: 80}},
		{SwitchID: "s2", ObservedAt: at.Add(time.Second), Round: 1, Scenario: "normal"},
	}
	if err := w.WriteRecords(recs); err != nil {
		t.Fatalf("write: %v", err)
	}
	if w.Count() != 2 {
		t.Fatalf("unexpected count %d", w.Count())
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	trail, err := LoadTrail(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !slices.Equal(trail.Fields, models.FlowColumns()) {
		t.Fatalf("written trail should carry the flow columns, got %v", trail.Fields)
	}
	loaded := trail.Records
	if len(loaded) != 2 {
		t.Fatalf("expected 2 records, got %d", len(loaded))
	}
	if !loaded[0].ObservedAt.Equal(at) || loaded[0].Match.TpDst != 80 || loaded[1].Round != 1 {
		t.Fatalf("round trip lost data: %+v", loaded)
	}
	if loaded[0].Labeled() {
		t.Fatalf("trail records must load unlabeled")
	}
}

func TestReadTrailFailsFast(t *testing.T) {
	_, err := ReadTrail(strings.NewReader(`{"switch_id":"s1","observed_at":"2026-01-05T17:00:00Z"}
{"switch_id":"s1","observed_at":"yesterday"}
`))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("expected line 2 error, got %v", err)
	}

	_, err = ReadTrail(strings.NewReader(fullLine(`"switch_id":"s1"`, "")))
	if err == nil {
		t.Fatalf("expected missing observed_at error")
	}
}

// fullLine renders a trail line with every key the writer always emits,
// replacing the switch_id/observed_at pair with head.
func fullLine(head, tail string) string {
	return `{` + head + `,"round":0,"match":{},"packet_count":1,"byte_count":2,` +
		`"duration_seconds":0,"priority":0,"idle_timeout":0,"hard_timeout":0,"label":null` + tail + `}` + "\n"
}

func TestReadTrailReportsForeignFields(t *testing.T) {
	trail, err := ReadTrail(strings.NewReader(`{"dpid":"s2","observed_at":"2026-01-05T17:00:00Z","pkts":7,"extra_feature":1}` + "\n"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for _, want := range []string{"dpid", "extra_feature", "pkts"} {
		if !slices.Contains(trail.Fields, want) {
			t.Fatalf("field %q not reported: %v", want, trail.Fields)
		}
	}
	for _, absent := range []string{"switch_id", "packet_count", "in_port"} {
		if slices.Contains(trail.Fields, absent) {
			t.Fatalf("missing key %q reported as present: %v", absent, trail.Fields)
		}
	}
}

func TestReadTrailReportsUnknownMatchKeys(t *testing.T) {
	line := fullLine(`"switch_id":"s1","observed_at":"2026-01-05T17:00:00Z"`, "")
	line = strings.Replace(line, `"match":{}`, `"match":{"vlan":3}`, 1)
	trail, err := ReadTrail(strings.NewReader(line))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !slices.Contains(trail.Fields, "match.vlan") {
		t.Fatalf("unknown match key not reported: %v", trail.Fields)
	}
}

func TestReadTrailRejectsMixedFieldSets(t *testing.T) {
	good := fullLine(`"switch_id":"s1","observed_at":"2026-01-05T17:00:00Z"`, "")
	odd := fullLine(`"switch_id":"s1","observed_at":"2026-01-05T17:00:01Z"`, `,"extra_feature":1`)
	_, err := ReadTrail(strings.NewReader(good + odd))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("expected line 2 field set error, got %v", err)
	}
}
