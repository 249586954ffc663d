package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jengzang/mobility-backend-go/internal/models"
)

// GraphRepository handles database operations for serialized mobility graphs
type GraphRepository struct {
	db *sql.DB
}

// NewGraphRepository creates a new graph repository
func NewGraphRepository(db *sql.DB) *GraphRepository {
	return &GraphRepository{db: db}
}

const graphColumns = `id, run_id, user_id, date, node_count, edge_count, circles, rg, travel, graph`

// InsertBatch writes graph records inside tx and fills in their ids
func (r *GraphRepository) InsertBatch(tx *sql.Tx, graphs []*models.MobilityGraphRecord) error {
	if len(graphs) == 0 {
		return nil
	}

	stmt, err := tx.Prepare(`
		INSERT INTO mobility_graphs (run_id, user_id, date, node_count, edge_count, circles, rg, travel, graph)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare graph insert: %w", err)
	}
	defer stmt.Close()

	for _, g := range graphs {
		res, err := stmt.Exec(g.RunID, g.UserID, g.Date, g.NodeCount, g.EdgeCount, g.Circles, g.Rg, g.Travel, g.Graph)
		if err != nil {
			return fmt.Errorf("failed to insert graph of user %d: %w", g.UserID, err)
		}
		if g.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
	}
	return nil
}

func scanGraph(row interface{ Scan(...any) error }) (models.MobilityGraphRecord, error) {
	var g models.MobilityGraphRecord
	err := row.Scan(&g.ID, &g.RunID, &g.UserID, &g.Date, &g.NodeCount, &g.EdgeCount, &g.Circles, &g.Rg, &g.Travel, &g.Graph)
	return g, err
}

// GetByID retrieves a graph record by ID
func (r *GraphRepository) GetByID(id int64) (*models.MobilityGraphRecord, error) {
	g, err := scanGraph(r.db.QueryRow(`SELECT `+graphColumns+` FROM mobility_graphs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("mobility graph %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mobility graph: %w", err)
	}
	return &g, nil
}

// ListByNodeCount returns every graph with n nodes in id order
func (r *GraphRepository) ListByNodeCount(n int) ([]models.MobilityGraphRecord, error) {
	rows, err := r.db.Query(`SELECT `+graphColumns+` FROM mobility_graphs WHERE node_count = ? ORDER BY id`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query graphs: %w", err)
	}
	defer rows.Close()

	var graphs []models.MobilityGraphRecord
	for rows.Next() {
		g, err := scanGraph(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan graph: %w", err)
		}
		graphs = append(graphs, g)
	}
	return graphs, rows.Err()
}

// NodeCounts returns the distinct node counts of stored graphs, ascending
func (r *GraphRepository) NodeCounts() ([]int, error) {
	rows, err := r.db.Query(`SELECT DISTINCT node_count FROM mobility_graphs ORDER BY node_count`)
	if err != nil {
		return nil, fmt.Errorf("failed to query node counts: %w", err)
	}
	defer rows.Close()

	var counts []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to scan node count: %w", err)
		}
		counts = append(counts, n)
	}
	return counts, rows.Err()
}

// List retrieves graph records matching the filter, and the total match count
func (r *GraphRepository) List(filter models.GraphFilter) ([]models.MobilityGraphRecord, int64, error) {
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
	if filter.NodeCount > 0 {
		where += " AND node_count = ?"
		args = append(args, filter.NodeCount)
	}

	var total int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM mobility_graphs"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count graphs: %w", err)
	}

	page, pageSize := filter.Paging()
	query := `SELECT ` + graphColumns + ` FROM mobility_graphs` + where + ` ORDER BY id LIMIT ? OFFSET ?`
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query graphs: %w", err)
	}
	defer rows.Close()

	graphs := []models.MobilityGraphRecord{}
	for rows.Next() {
		g, err := scanGraph(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan graph: %w", err)
		}
		graphs = append(graphs, g)
	}
	return graphs, total, rows.Err()
}
