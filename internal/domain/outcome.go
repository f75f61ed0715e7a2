package domain

import "time"

type OutcomeStatus string

const (
	OutcomeOK        OutcomeStatus = "ok"
	OutcomeFailed    OutcomeStatus = "failed"
	OutcomeCancelled OutcomeStatus = "cancelled"
)

// Warning records a dropped or suspect record: which symbol and day, and why.
type Warning struct {
	Symbol Symbol `json:"symbol"`
	Day    string `json:"day,omitempty"`
	Reason string `json:"reason"`
}

// FetchOutcome is the result of one per-symbol ingestion attempt. It is
// reported to the caller and never persisted.
type FetchOutcome struct {
	Symbol    Symbol        `json:"symbol"`
	Status    OutcomeStatus `json:"status"`
	Fetched   int           `json:"fetched"`
	Inserted  int           `json:"inserted"`
	Updated   int           `json:"updated"`
	Unchanged int           `json:"unchanged"`
	Warnings  []Warning     `json:"warnings,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// RunSummary aggregates the per-symbol outcomes of one ingestion run.
type RunSummary struct {
	RunID     string         `json:"run_id"`
	AsOf      time.Time      `json:"as_of"`
	StartedAt time.Time      `json:"started_at"`
	Finished  time.Time      `json:"finished_at"`
	PerSymbol []FetchOutcome `json:"per_symbol"`
}

func (s RunSummary) Failed() int {
	n := 0
	for _, o := range s.PerSymbol {
		if o.Status != OutcomeOK {
			n++
		}
	}
	return n
}

func (s RunSummary) Fetched() int {
	n := 0
	for _, o := range s.PerSymbol {
		n += o.Fetched
	}
	return n
}

func (s RunSummary) Inserted() int {
	n := 0
	for _, o := range s.PerSymbol {
		n += o.Inserted
	}
	return n
}

func (s RunSummary) Updated() int {
	n := 0
	for _, o := range s.PerSymbol {
		n += o.Updated
	}
	return n
}
