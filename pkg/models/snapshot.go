package models

import "time"

// Snapshot is one raw flow-table dump fetched from the controller.
type Snapshot struct {
	Round   int
	TakenAt time.Time
	Payload []byte
	// Records holds the decoded entries when the poller was given a decoder.
	Records []FlowRecord
}
