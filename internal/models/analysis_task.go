package models

// AnalysisTask tracks one batch run (mining or pairwise mesos)
type AnalysisTask struct {
	ID    int64  `json:"id" db:"id"`
	RunID string `json:"run_id" db:"run_id"` // UUID shared with the rows the run produced

	// Task identification
	SkillName string `json:"skill_name" db:"skill_name"` // mine, mesos
	Source    string `json:"source,omitempty" db:"source"`

	// Status
	Status          string  `json:"status" db:"status"` // pending, running, completed, failed
	ProgressPercent float64 `json:"progress_percent" db:"progress_percent"`

	// Execution info
	TotalItems     int64 `json:"total_items" db:"total_items"`
	ProcessedItems int64 `json:"processed_items" db:"processed_items"`
	FailedItems    int64 `json:"failed_items" db:"failed_items"`

	// Results
	ResultSummary string `json:"result_summary,omitempty" db:"result_summary"` // JSON object with summary statistics
	ErrorMessage  string `json:"error_message,omitempty" db:"error_message"`

	// Unix seconds
	CreatedAt   int64  `json:"created_at" db:"created_at"`
	StartedAt   *int64 `json:"started_at,omitempty" db:"started_at"`
	CompletedAt *int64 `json:"completed_at,omitempty" db:"completed_at"`
}

// Skill names
const (
	SkillMine  = "mine"
	SkillMesos = "mesos"
)

// TaskStatus constants
const (
	TaskStatusPending   = "pending"
	TaskStatusRunning   = "running"
	TaskStatusCompleted = "completed"
	TaskStatusFailed    = "failed"
)
