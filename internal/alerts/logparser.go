package alerts

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"sdnlabel/pkg/models"
)

// Floodlight logback layout: "HH:mm:ss.SSS LEVEL [Class:Thread] Message",
// optionally preceded by a date.
var logLineRegex = regexp.MustCompile(`^((?:\d{4}-\d{2}-\d{2}[ T])?\d{2}:\d{2}:\d{2}(?:[.,]\d{1,9})?)\s+(\w+)\s+\[(.*?)\]\s+(.*)$`)

// DefaultSources are the log components whose lines can carry alerts. The
// misspelling matches the TopoGuard class name.
var DefaultSources = []string{"TopoGuard", "TopoloyUpdateChecker"}

// DefaultKeywords mark a TopoGuard line as a security alert.
var DefaultKeywords = []string{"detected", "suspicious", "attack", "unauthorized", "fabrication", "hijacking", "poisoning"}

// LogParser extracts alert events from controller log text.
type LogParser struct {
	Classifier Classifier
	Sources    []string
	Keywords   []string
}

// ParseStats counts what the parser saw.
type ParseStats struct {
	Lines       int
	Structured  int
	FromSources int
	Alerts      int
}

// NewLogParser creates a parser with the default source and keyword filters.
func NewLogParser(c Classifier) *LogParser {
	if c == nil {
		c = NewPatternClassifier()
	}
	return &LogParser{Classifier: c, Sources: DefaultSources, Keywords: DefaultKeywords}
}

// Parse reads log text and returns alerts in log order. Timestamps are kept
// raw; the labeler resolves them against the collection window.
func (p *LogParser) Parse(r io.Reader) ([]models.AlertEvent, ParseStats, error) {
	var stats ParseStats
	var out []models.AlertEvent

	s := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	s.Buffer(buf, 4*1024*1024)
	for s.Scan() {
		stats.Lines++
		event, ok, structured := p.ParseLine(s.Text())
		if structured {
			stats.Structured++
		}
		if !ok {
			continue
		}
		stats.FromSources++
		out = append(out, event)
	}
	if err := s.Err(); err != nil {
		return nil, stats, fmt.Errorf("scan log: %w", err)
	}
	stats.Alerts = len(out)
	return out, stats, nil
}

// ParseLine converts one log line. ok is false for lines that are not
// TopoGuard security alerts; structured reports whether the line matched the
// log layout at all.
func (p *LogParser) ParseLine(line string) (event models.AlertEvent, ok bool, structured bool) {
	m := logLineRegex.FindStringSubmatch(strings.TrimRight(line, "\r"))
	if m == nil {
		return models.AlertEvent{}, false, false
	}
	rawTime, level, source, message := m[1], m[2], m[3], m[4]

	if !p.fromAlertSource(source) || !p.hasKeyword(message) {
		return models.AlertEvent{}, false, true
	}

	event = models.AlertEvent{
		RawTime:    rawTime,
		Severity:   strings.ToLower(level),
		Source:     source,
		RawMessage: message,
	}
	event.Kind = classify(p.Classifier, event)
	return event, true, true
}

func (p *LogParser) fromAlertSource(source string) bool {
	if len(p.Sources) == 0 {
		return true
	}
	for _, s := range p.Sources {
		if strings.Contains(source, s) {
			return true
		}
	}
	return false
}

func (p *LogParser) hasKeyword(message string) bool {
	if len(p.Keywords) == 0 {
		return true
	}
	lower := strings.ToLower(message)
	for _, kw := range p.Keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
