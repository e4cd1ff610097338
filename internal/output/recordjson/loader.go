package recordjson

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strings"

	"sdnlabel/pkg/models"
)

// Trail is one loaded record trail with the field set its lines carry,
// named as dataset columns. Keys the trail has but a flow record does not
// are reported as-is; unknown match keys are prefixed with "match.".
type Trail struct {
	Source  string
	Fields  []string
	Records []models.FlowRecord
}

// Keys the writer always emits. The rest are omitempty and default to zero.
var requiredKeys = map[string]bool{
	"switch_id":        true,
	"observed_at":      true,
	"round":            true,
	"scenario":         false,
	"match":            true,
	"packet_count":     true,
	"byte_count":       true,
	"duration_seconds": true,
	"priority":         true,
	"idle_timeout":     true,
	"hard_timeout":     true,
	"actions":          false,
	"label":            true,
	"attack_kind":      false,
}

var matchKeys = map[string]bool{
	"in_port": true, "eth_src": true, "eth_dst": true,
	"ipv4_src": true, "ipv4_dst": true, "ip_proto": true,
	"tp_src": true, "tp_dst": true,
}

// LoadTrail reads a record trail file.
func LoadTrail(path string) (Trail, error) {
	f, err := os.Open(path)
	if err != nil {
		return Trail{}, fmt.Errorf("open records file: %w", err)
	}
	defer f.Close()
	t, err := ReadTrail(f)
	t.Source = path
	return t, err
}

// ReadTrail decodes JSONL records from r. Every line must carry the same
// field set as the first; a line that does not decode or lacks observed_at
// fails the whole load. Loaded records are unlabeled.
func ReadTrail(r io.Reader) (Trail, error) {
	var t Trail
	reader := bufio.NewReader(r)
	lineNo := 0
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			lineNo++
			if line = strings.TrimSpace(line); line != "" {
				if perr := t.addLine(lineNo, line); perr != nil {
					return Trail{}, perr
				}
			}
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return Trail{}, fmt.Errorf("read records file: %w", err)
		}
	}
	if t.Fields == nil {
		t.Fields = models.FlowColumns()
	}
	return t, nil
}

func (t *Trail) addLine(lineNo int, line string) error {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal([]byte(line), &keys); err != nil {
		return fmt.Errorf("parse line %d: %w", lineNo, err)
	}
	fields, err := lineFields(keys)
	if err != nil {
		return fmt.Errorf("parse line %d: %w", lineNo, err)
	}
	switch {
	case t.Fields == nil:
		t.Fields = fields
	case !slices.Equal(t.Fields, fields):
		return fmt.Errorf("line %d: fields %v differ from earlier lines %v", lineNo, fields, t.Fields)
	}

	var rec models.FlowRecord
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		return fmt.Errorf("parse line %d: %w", lineNo, err)
	}
	if rec.ObservedAt.IsZero() {
		return fmt.Errorf("line %d: missing observed_at", lineNo)
	}
	// A stale label must not leak into relabeling.
	rec.Label = nil
	rec.AttackKind = ""
	t.Records = append(t.Records, rec)
	return nil
}

// lineFields maps one line's keys onto dataset columns. Absent omitempty
// keys count as present; absent required keys are left out, and unknown
// keys are appended in sorted order.
func lineFields(keys map[string]json.RawMessage) ([]string, error) {
	var match map[string]json.RawMessage
	if raw, ok := keys["match"]; ok {
		if err := json.Unmarshal(raw, &match); err != nil {
			return nil, fmt.Errorf("match: %w", err)
		}
	}
	_, hasMatch := keys["match"]

	var fields []string
	for _, col := range models.FlowColumns() {
		if matchKeys[col] {
			if hasMatch {
				fields = append(fields, col)
			}
			continue
		}
		if _, ok := keys[col]; ok || !requiredKeys[col] {
			fields = append(fields, col)
		}
	}

	var extra []string
	for k := range keys {
		if _, known := requiredKeys[k]; !known {
			extra = append(extra, k)
		}
	}
	for k := range match {
		if !matchKeys[k] {
			extra = append(extra, "match."+k)
		}
	}
	sort.Strings(extra)
	return append(fields, extra...), nil
}
