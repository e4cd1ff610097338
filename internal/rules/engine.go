package rules

import (
	"sdnlabel/internal/alerts"
	"sdnlabel/internal/logger"
)

var log = logger.With("rules")

// NewClassifier builds the alert classifier used by every event source.
// When a Sigma rule path is given, rule matches take precedence and the
// built-in TopoGuard patterns catch the rest.
func NewClassifier(sigmaEnabled bool, sigmaPath string) (alerts.Classifier, error) {
	patterns := alerts.NewPatternClassifier()
	if !sigmaEnabled || sigmaPath == "" {
		return patterns, nil
	}
	engine, stats, err := NewSigmaClassifier(sigmaPath)
	if err != nil {
		return nil, err
	}
	log.Infof("sigma rules loaded=%d files=%d skipped_datasource=%d skipped_complex=%d skipped_invalid=%d skipped_untagged=%d",
		stats.Loaded, stats.TotalFiles, stats.SkippedDatasource, stats.SkippedComplex, stats.SkippedInvalid, stats.SkippedUntagged)
	return alerts.Chain{engine, patterns}, nil
}
