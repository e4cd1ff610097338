package alerts

import (
	"regexp"

	"sdnlabel/pkg/models"
)

// Classifier maps an alert to an attack kind. Implementations return
// models.KindUnknown when they cannot decide.
type Classifier interface {
	Classify(event models.AlertEvent) models.AttackKind
}

type kindPattern struct {
	kind    models.AttackKind
	pattern *regexp.Regexp
}

// PatternClassifier is the fixed TopoGuard message lookup. Patterns are tried
// in declaration order and the first match wins.
type PatternClassifier struct {
	patterns []kindPattern
}

// NewPatternClassifier returns the built-in TopoGuard classifier.
func NewPatternClassifier() *PatternClassifier {
	return &PatternClassifier{patterns: []kindPattern{
		{models.KindHostHijack, regexp.MustCompile(`(?i)host location hijacking detected|suspicious host migration|mac address conflict`)},
		{models.KindLinkFabrication, regexp.MustCompile(`(?i)link fabrication detected|fake lldp packet|topology poisoning`)},
		{models.KindPortMigration, regexp.MustCompile(`(?i)rapid port migration|port flapping detected`)},
		{models.KindUnauthorizedSwitch, regexp.MustCompile(`(?i)unauthorized switch connection|unknown switch dpid`)},
	}}
}

// Classify matches the raw message against the pattern table.
func (c *PatternClassifier) Classify(event models.AlertEvent) models.AttackKind {
	for _, p := range c.patterns {
		if p.pattern.MatchString(event.RawMessage) {
			return p.kind
		}
	}
	return models.KindUnknown
}

// Chain tries classifiers in order and returns the first decisive kind.
type Chain []Classifier

// Classify implements Classifier.
func (c Chain) Classify(event models.AlertEvent) models.AttackKind {
	for _, cl := range c {
		if cl == nil {
			continue
		}
		if kind := cl.Classify(event); kind != models.KindUnknown && kind != "" {
			return kind
		}
	}
	return models.KindUnknown
}

// classify keeps a kind already known to the taxonomy, otherwise asks c.
func classify(c Classifier, event models.AlertEvent) models.AttackKind {
	if event.Kind != "" {
		if kind := models.ParseAttackKind(string(event.Kind)); kind != models.KindUnknown {
			return kind
		}
	}
	if c == nil {
		return models.KindUnknown
	}
	return c.Classify(event)
}
