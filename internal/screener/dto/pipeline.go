package dto

import "time"

// SymbolError records one symbol-level failure inside a run.
type SymbolError struct {
	Symbol string `json:"symbol"`
	Stage  string `json:"stage"`
	Error  string `json:"error"`
}

// PipelineResult is the in-memory outcome of one pipeline execution, before
// it is finalized into the run record.
type PipelineResult struct {
	RunID     int64     `json:"run_id"`
	RunDate   time.Time `json:"run_date"`
	StartedAt time.Time `json:"started_at"`

	SymbolsAttempted int `json:"symbols_attempted"`
	SymbolsSucceeded int `json:"symbols_succeeded"`
	SymbolsFailed    int `json:"symbols_failed"`
	CCPicks          int `json:"cc_picks"`
	CSPPicks         int `json:"csp_picks"`
	APICalls         int `json:"api_calls"`

	Errors []SymbolError `json:"errors"`

	FilterStats FilterStatistics `json:"filter_stats"`
}

// HealthStatus is the computed health snapshot served by the API and the
// check-health command.
type HealthStatus struct {
	Score      int        `json:"score"`
	Status     string     `json:"status"`
	LastRunAt  *time.Time `json:"last_run_at"`
	LastStatus string     `json:"last_status"`
	Deductions []string   `json:"deductions"`
	AlertCount int64      `json:"alert_count_24h"`
	CheckedAt  time.Time  `json:"checked_at"`
}
