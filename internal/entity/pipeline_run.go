package entity

import (
	"time"

	"gorm.io/datatypes"
)

// RunStatus is the lifecycle state of a pipeline run.
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusPartial RunStatus = "partial"
	RunStatusFailed  RunStatus = "failed"
)

// PipelineRun is the append-only execution record used as monitoring ground truth.
type PipelineRun struct {
	ID          int64      `json:"id"`
	RunDate     time.Time  `json:"run_date" gorm:"type:date"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	Status      RunStatus  `json:"status"`

	SymbolsAttempted int `json:"symbols_attempted"`
	SymbolsSucceeded int `json:"symbols_succeeded"`
	SymbolsFailed    int `json:"symbols_failed"`
	TotalPicks       int `json:"total_picks"`
	CCPicks          int `json:"cc_picks"`
	CSPPicks         int `json:"csp_picks"`
	APICalls         int `json:"api_calls"`

	DurationSeconds float64        `json:"duration_seconds"`
	ErrorMessage    string         `json:"error_message"`
	ErrorDetails    datatypes.JSON `json:"error_details" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PipelineRun) TableName() string {
	return "pipeline_runs"
}
