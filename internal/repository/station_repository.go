package repository

import (
	"database/sql"
	"fmt"

	"github.com/jengzang/mobility-backend-go/internal/database"
	"github.com/jengzang/mobility-backend-go/internal/locmap"
	"github.com/jengzang/mobility-backend-go/internal/models"
	"github.com/jengzang/mobility-backend-go/internal/spatial"
)

// StationRepository stores the base station table behind the location map
type StationRepository struct {
	db *sql.DB
}

// NewStationRepository creates a new station repository
func NewStationRepository(db *sql.DB) *StationRepository {
	return &StationRepository{db: db}
}

// Upsert inserts or replaces stations in one transaction
func (r *StationRepository) Upsert(stations []models.BaseStation) error {
	return database.Transaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`INSERT OR REPLACE INTO base_stations (id, longitude, latitude) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare station insert: %w", err)
		}
		defer stmt.Close()

		for _, s := range stations {
			if _, err := stmt.Exec(s.ID, s.Longitude, s.Latitude); err != nil {
				return fmt.Errorf("failed to insert station %d: %w", s.ID, err)
			}
		}
		return nil
	})
}

// Count returns the number of stored stations
func (r *StationRepository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM base_stations`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count stations: %w", err)
	}
	return count, nil
}

// LoadMap reads the whole table into a location map. An empty table yields
// locmap.ErrNotLoaded.
func (r *StationRepository) LoadMap() (*locmap.Map, error) {
	rows, err := r.db.Query(`SELECT id, longitude, latitude FROM base_stations`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stations: %w", err)
	}
	defer rows.Close()

	entries := make(map[int64]spatial.Coordinate)
	for rows.Next() {
		var id int64
		var c spatial.Coordinate
		if err := rows.Scan(&id, &c.Lon, &c.Lat); err != nil {
			return nil, fmt.Errorf("failed to scan station: %w", err)
		}
		entries[id] = c
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	m := locmap.New(entries)
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
