package domain

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunRecord is the persisted audit trail of one ingestion run, so an external
// scheduler can poll what happened after the fact.
type RunRecord struct {
	ID              string
	Status          RunStatus
	AsOf            time.Time
	SymbolsTotal    int
	SymbolsFailed   int
	RecordsFetched  int
	RecordsInserted int
	RecordsUpdated  int
	Error           *string
	StartedAt       time.Time
	FinishedAt      *time.Time
}
