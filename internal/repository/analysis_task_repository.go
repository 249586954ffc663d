package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jengzang/mobility-backend-go/internal/models"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// AnalysisTaskRepository handles database operations for analysis tasks
type AnalysisTaskRepository struct {
	db *sql.DB
}

// NewAnalysisTaskRepository creates a new analysis task repository
func NewAnalysisTaskRepository(db *sql.DB) *AnalysisTaskRepository {
	return &AnalysisTaskRepository{db: db}
}

const taskColumns = `id, run_id, skill_name, source, status, progress_percent,
	total_items, processed_items, failed_items, result_summary, error_message,
	created_at, started_at, completed_at`

// Create creates a new analysis task
func (r *AnalysisTaskRepository) Create(task *models.AnalysisTask) error {
	if task.CreatedAt == 0 {
		task.CreatedAt = time.Now().Unix()
	}
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}

	query := `
		INSERT INTO analysis_tasks (
			run_id, skill_name, source, status, progress_percent,
			total_items, processed_items, failed_items, result_summary,
			error_message, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		task.RunID,
		task.SkillName,
		task.Source,
		task.Status,
		task.ProgressPercent,
		task.TotalItems,
		task.ProcessedItems,
		task.FailedItems,
		task.ResultSummary,
		task.ErrorMessage,
		task.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create analysis task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	task.ID = id
	return nil
}

func scanTask(row interface{ Scan(...any) error }) (*models.AnalysisTask, error) {
	task := &models.AnalysisTask{}
	err := row.Scan(
		&task.ID,
		&task.RunID,
		&task.SkillName,
		&task.Source,
		&task.Status,
		&task.ProgressPercent,
		&task.TotalItems,
		&task.ProcessedItems,
		&task.FailedItems,
		&task.ResultSummary,
		&task.ErrorMessage,
		&task.CreatedAt,
		&task.StartedAt,
		&task.CompletedAt,
	)
	return task, err
}

// GetByID retrieves an analysis task by ID
func (r *AnalysisTaskRepository) GetByID(id int64) (*models.AnalysisTask, error) {
	query := `SELECT ` + taskColumns + ` FROM analysis_tasks WHERE id = ?`

	task, err := scanTask(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("analysis task %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis task: %w", err)
	}

	return task, nil
}

// List retrieves analysis tasks with optional filters
func (r *AnalysisTaskRepository) List(skillName string, status string, limit int, offset int) ([]*models.AnalysisTask, error) {
	query := `SELECT ` + taskColumns + ` FROM analysis_tasks WHERE 1=1`

	args := []interface{}{}
	if skillName != "" {
		query += " AND skill_name = ?"
		args = append(args, skillName)
	}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list analysis tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.AnalysisTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis task: %w", err)
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

// UpdateProgress updates the progress of an analysis task
func (r *AnalysisTaskRepository) UpdateProgress(id int64, total, processed, failed int64) error {
	var percent float64
	if total > 0 {
		percent = float64(processed) / float64(total) * 100
	}

	query := `
		UPDATE analysis_tasks
		SET total_items = ?, processed_items = ?, failed_items = ?, progress_percent = ?
		WHERE id = ?
	`

	_, err := r.db.Exec(query, total, processed, failed, percent, id)
	if err != nil {
		return fmt.Errorf("failed to update task progress: %w", err)
	}

	return nil
}

// MarkAsRunning marks a task as running
func (r *AnalysisTaskRepository) MarkAsRunning(id int64) error {
	query := `UPDATE analysis_tasks SET status = ?, started_at = ? WHERE id = ?`

	_, err := r.db.Exec(query, models.TaskStatusRunning, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to mark task as running: %w", err)
	}

	return nil
}

// MarkAsCompleted marks a task as completed with result summary
func (r *AnalysisTaskRepository) MarkAsCompleted(id int64, resultSummary string) error {
	query := `
		UPDATE analysis_tasks
		SET status = ?, completed_at = ?, result_summary = ?, progress_percent = 100
		WHERE id = ?
	`

	_, err := r.db.Exec(query, models.TaskStatusCompleted, time.Now().Unix(), resultSummary, id)
	if err != nil {
		return fmt.Errorf("failed to mark task as completed: %w", err)
	}

	return nil
}

// MarkAsFailed marks a task as failed with an error message
func (r *AnalysisTaskRepository) MarkAsFailed(id int64, errorMessage string) error {
	query := `
		UPDATE analysis_tasks
		SET status = ?, completed_at = ?, error_message = ?
		WHERE id = ?
	`

	_, err := r.db.Exec(query, models.TaskStatusFailed, time.Now().Unix(), errorMessage, id)
	if err != nil {
		return fmt.Errorf("failed to mark task as failed: %w", err)
	}

	return nil
}
