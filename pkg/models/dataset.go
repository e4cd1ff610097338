package models

import "time"

// Summary is the provenance metadata attached to a labeled dataset.
type Summary struct {
	RunID        string             `json:"run_id,omitempty"`
	Scenarios    []string           `json:"scenarios"`
	WindowStart  time.Time          `json:"window_start,omitempty"`
	WindowEnd    time.Time          `json:"window_end,omitempty"`
	TotalRecords int                `json:"total_records"`
	LabelCounts  map[Label]int      `json:"label_counts"`
	KindCounts   map[AttackKind]int `json:"kind_counts"`
	ScenarioRows map[string]int     `json:"scenario_rows"`
	TotalPackets uint64             `json:"total_packets"`
	TotalBytes   uint64             `json:"total_bytes"`
	PollFailures map[string]int     `json:"poll_failures,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
}

// LabeledDataset is the final artifact: every record carries a label.
type LabeledDataset struct {
	Columns []string     `json:"columns"`
	Records []FlowRecord `json:"records"`
	Summary Summary      `json:"summary"`
}
