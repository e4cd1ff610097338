package alerts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"sdnlabel/pkg/models"
)

var (
	// ErrNotAlert marks a payload that is valid but carries no security alert.
	ErrNotAlert = errors.New("payload is not a security alert")
	// ErrNoTimestamp marks an alert that cannot be placed on the timeline.
	// Sources must surface it instead of dropping the alert.
	ErrNoTimestamp = errors.New("alert has no timestamp")
)

// Decoder turns queue payloads into alert events. A payload is either a JSON
// object or one raw controller log line.
type Decoder struct {
	Logs       *LogParser
	Classifier Classifier
}

// NewDecoder creates a decoder sharing one classifier between JSON and log
// payloads.
func NewDecoder(c Classifier) *Decoder {
	if c == nil {
		c = NewPatternClassifier()
	}
	return &Decoder{Logs: NewLogParser(c), Classifier: c}
}

// Decode converts one payload.
func (d *Decoder) Decode(payload []byte) (models.AlertEvent, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return models.AlertEvent{}, ErrNotAlert
	}
	if trimmed[0] == '{' {
		return d.decodeJSON(trimmed)
	}
	event, ok, structured := d.Logs.ParseLine(string(trimmed))
	if !structured {
		return models.AlertEvent{}, fmt.Errorf("unrecognized alert payload %q", truncate(string(trimmed), 80))
	}
	if !ok {
		return models.AlertEvent{}, ErrNotAlert
	}
	return event, nil
}

func (d *Decoder) decodeJSON(payload []byte) (models.AlertEvent, error) {
	var raw map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return models.AlertEvent{}, fmt.Errorf("decode alert json: %w", err)
	}

	event := models.AlertEvent{
		RawTime:    firstString(raw, "raw_time", "timestamp", "time", "@timestamp"),
		Severity:   strings.ToLower(firstString(raw, "severity", "level")),
		Source:     firstString(raw, "source", "logger"),
		RawMessage: firstString(raw, "raw_message", "message", "msg"),
		Kind:       models.AttackKind(firstString(raw, "kind", "attack_kind", "attack_type")),
	}
	// Offset-bearing timestamps resolve here; others wait for the labeler's
	// run anchor, which rejects values it cannot parse.
	occurred := firstString(raw, "occurred_at")
	for _, v := range []string{occurred, event.RawTime} {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil && !t.IsZero() {
			event.OccurredAt = t
			break
		}
	}
	if event.OccurredAt.IsZero() && event.RawTime == "" {
		event.RawTime = occurred
	}
	if event.OccurredAt.IsZero() && event.RawTime == "" {
		return models.AlertEvent{}, fmt.Errorf("decode alert json: %w", ErrNoTimestamp)
	}
	event.Kind = classify(d.Classifier, event)
	return event, nil
}

func firstString(raw map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				return s
			}
		case json.Number:
			return t.String()
		case bool:
			return strconv.FormatBool(t)
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
