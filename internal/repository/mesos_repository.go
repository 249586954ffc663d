package repository

import (
	"database/sql"
	"fmt"

	"github.com/jengzang/mobility-backend-go/internal/models"
)

// MesosRepository handles database operations for mesos results
type MesosRepository struct {
	db *sql.DB
}

// NewMesosRepository creates a new mesos repository
func NewMesosRepository(db *sql.DB) *MesosRepository {
	return &MesosRepository{db: db}
}

// InsertBatch writes mesos results inside tx
func (r *MesosRepository) InsertBatch(tx *sql.Tx, results []models.MesosResult) error {
	if len(results) == 0 {
		return nil
	}

	stmt, err := tx.Prepare(`
		INSERT INTO mesos_results (
			run_id, node_count, graph_id1, graph_id2, user_id1, user_id2,
			date1, date2, struct_dist, mesos
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare mesos insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range results {
		_, err := stmt.Exec(m.RunID, m.NodeCount, m.GraphID1, m.GraphID2, m.UserID1, m.UserID2,
			m.Date1, m.Date2, m.StructDist, m.Mesos)
		if err != nil {
			return fmt.Errorf("failed to insert mesos of graphs %d/%d: %w", m.GraphID1, m.GraphID2, err)
		}
	}
	return nil
}

// List retrieves mesos results matching the filter, and the total match count
func (r *MesosRepository) List(filter models.MesosFilter) ([]models.MesosResult, int64, error) {
	where := " WHERE 1=1"
	args := []interface{}{}

	if filter.NodeCount > 0 {
		where += " AND node_count = ?"
		args = append(args, filter.NodeCount)
	}
	if filter.UserID > 0 {
		where += " AND (user_id1 = ? OR user_id2 = ?)"
		args = append(args, filter.UserID, filter.UserID)
	}
	if filter.MaxDist > 0 {
		where += " AND struct_dist <= ?"
		args = append(args, filter.MaxDist)
	}

	var total int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM mesos_results"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count mesos results: %w", err)
	}

	page, pageSize := filter.Paging()
	query := `
		SELECT id, run_id, node_count, graph_id1, graph_id2, user_id1, user_id2,
			date1, date2, struct_dist, mesos
		FROM mesos_results` + where + ` ORDER BY id LIMIT ? OFFSET ?`
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query mesos results: %w", err)
	}
	defer rows.Close()

	results := []models.MesosResult{}
	for rows.Next() {
		var m models.MesosResult
		err := rows.Scan(&m.ID, &m.RunID, &m.NodeCount, &m.GraphID1, &m.GraphID2, &m.UserID1, &m.UserID2,
			&m.Date1, &m.Date2, &m.StructDist, &m.Mesos)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan mesos result: %w", err)
		}
		results = append(results, m)
	}
	return results, total, rows.Err()
}
