package pipeline

import "sdnlabel/pkg/models"

// DatasetWriter persists a complete labeled dataset.
type DatasetWriter interface {
	WriteDataset(ds *models.LabeledDataset) error
	Close() error
}

// SummaryWriter publishes dataset provenance.
type SummaryWriter interface {
	WriteSummary(summary models.Summary) error
	Close() error
}

// AlertWriter persists the resolved alerts of a scenario.
type AlertWriter interface {
	WriteAlerts(scenario string, alerts []models.AlertEvent) error
	Close() error
}

// RecordWriter writes the unlabeled record trail of a scenario for replay.
type RecordWriter interface {
	WriteRecords(records []models.FlowRecord) error
	Close() error
}
