package pipeline

import (
	"fmt"

	"sdnlabel/internal/logger"
	"sdnlabel/pkg/models"
)

// Outputs fans a finished dataset out to every configured sink.
type Outputs struct {
	// Datasets must all succeed; the first failure aborts publishing.
	Datasets []DatasetWriter
	// Artifact is the local dataset file. It is written after every sink in
	// Datasets accepted the dataset, so a failed publish leaves no file.
	Artifact DatasetWriter
	// Summaries are best effort once the datasets are written.
	Summaries []SummaryWriter
	Alerts    AlertWriter
}

// Publish writes ds to the dataset sinks, then the local artifact, then the
// summary sinks.
func (o *Outputs) Publish(ds *models.LabeledDataset) error {
	if ds == nil {
		return fmt.Errorf("nothing to publish")
	}
	for _, w := range o.Datasets {
		if err := w.WriteDataset(ds); err != nil {
			return fmt.Errorf("write dataset: %w", err)
		}
	}
	if o.Artifact != nil {
		if err := o.Artifact.WriteDataset(ds); err != nil {
			return fmt.Errorf("write dataset file: %w", err)
		}
	}
	for _, w := range o.Summaries {
		if err := w.WriteSummary(ds.Summary); err != nil {
			logger.Errorf("Failed to write summary: %v", err)
		}
	}
	return nil
}

// WriteAlerts records the alerts of one scenario if an alert sink exists.
func (o *Outputs) WriteAlerts(scenario string, alerts []models.AlertEvent) {
	if o == nil || o.Alerts == nil || len(alerts) == 0 {
		return
	}
	if err := o.Alerts.WriteAlerts(scenario, alerts); err != nil {
		logger.Errorf("Failed to write alerts: %v", err)
	}
}

// Close releases every sink.
func (o *Outputs) Close() error {
	if o == nil {
		return nil
	}
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	for _, w := range o.Datasets {
		keep(w.Close())
	}
	if o.Artifact != nil {
		keep(o.Artifact.Close())
	}
	for _, w := range o.Summaries {
		keep(w.Close())
	}
	if o.Alerts != nil {
		keep(o.Alerts.Close())
	}
	if first != nil {
		logger.Errorf("Failed to close outputs: %v", first)
	}
	return first
}
