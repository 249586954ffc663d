package repository

import (
	"database/sql"
	"fmt"

	"github.com/jengzang/mobility-backend-go/internal/models"
)

// FlowRepository handles database operations for flow features
type FlowRepository struct {
	db *sql.DB
}

// NewFlowRepository creates a new flow repository
func NewFlowRepository(db *sql.DB) *FlowRepository {
	return &FlowRepository{db: db}
}

// InsertBatch writes flow features inside tx
func (r *FlowRepository) InsertBatch(tx *sql.Tx, flows []models.FlowFeature) error {
	if len(flows) == 0 {
		return nil
	}

	stmt, err := tx.Prepare(`
		INSERT INTO flow_features (
			run_id, user_id, date, flow_id, length, unique_length, duration,
			distance, is_maximal, radius_of_gyration, rg_percentage_of_day,
			rg_delta, start_index, end_index
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare flow insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range flows {
		_, err := stmt.Exec(
			f.RunID, f.UserID, f.Date, f.FlowID, f.Length, f.UniqueLength, f.Duration,
			f.Distance, f.IsMaximal, f.RadiusOfGyration, f.RgPercentageOfDay,
			f.RgDelta, f.StartIndex, f.EndIndex,
		)
		if err != nil {
			return fmt.Errorf("failed to insert flow %d of user %d: %w", f.FlowID, f.UserID, err)
		}
	}
	return nil
}

// List retrieves flow features matching the filter, and the total match count
func (r *FlowRepository) List(filter models.FlowFilter) ([]models.FlowFeature, int64, error) {
	where := " WHERE 1=1"
	args := []interface{}{}

	if filter.UserID > 0 {
		where += " AND user_id = ?"
		args = append(args, filter.UserID)
	}
	if filter.Date > 0 {
		where += " AND date = ?"
		args = append(args, filter.Date)
	}
	if filter.MaximalOnly {
		where += " AND is_maximal = 1"
	}
	if filter.MinLength > 0 {
		where += " AND length >= ?"
		args = append(args, filter.MinLength)
	}

	var total int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM flow_features"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count flows: %w", err)
	}

	page, pageSize := filter.Paging()
	query := `
		SELECT id, run_id, user_id, date, flow_id, length, unique_length, duration,
			distance, is_maximal, radius_of_gyration, rg_percentage_of_day,
			rg_delta, start_index, end_index
		FROM flow_features` + where + ` ORDER BY user_id, date, flow_id LIMIT ? OFFSET ?`
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query flows: %w", err)
	}
	defer rows.Close()

	flows := []models.FlowFeature{}
	for rows.Next() {
		var f models.FlowFeature
		err := rows.Scan(
			&f.ID, &f.RunID, &f.UserID, &f.Date, &f.FlowID, &f.Length, &f.UniqueLength, &f.Duration,
			&f.Distance, &f.IsMaximal, &f.RadiusOfGyration, &f.RgPercentageOfDay,
			&f.RgDelta, &f.StartIndex, &f.EndIndex,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan flow: %w", err)
		}
		flows = append(flows, f)
	}

	return flows, total, rows.Err()
}
