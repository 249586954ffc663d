package repository

import (
	"database/sql"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/jengzang/mobility-backend-go/internal/database"
	"github.com/jengzang/mobility-backend-go/internal/models"
	"github.com/jengzang/mobility-backend-go/internal/roadnet"
)

// RoadRepository stores road polylines as GeoJSON geometries
type RoadRepository struct {
	db *sql.DB
}

// NewRoadRepository creates a new road repository
func NewRoadRepository(db *sql.DB) *RoadRepository {
	return &RoadRepository{db: db}
}

// Insert stores the line strings of a feature collection and returns how
// many segments were written. Features of other geometry types are skipped.
func (r *RoadRepository) Insert(fc *geojson.FeatureCollection) (int, error) {
	written := 0
	err := database.Transaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`INSERT INTO road_segments (name, geometry) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare road insert: %w", err)
		}
		defer stmt.Close()

		for _, f := range fc.Features {
			name := f.Properties.MustString("name", "")
			for _, ls := range roadnet.LineStrings(f.Geometry) {
				data, err := geojson.NewGeometry(ls).MarshalJSON()
				if err != nil {
					return fmt.Errorf("failed to encode road geometry: %w", err)
				}
				if _, err := stmt.Exec(name, string(data)); err != nil {
					return fmt.Errorf("failed to insert road segment: %w", err)
				}
				written++
			}
		}
		return nil
	})
	return written, err
}

// List returns all stored segments
func (r *RoadRepository) List() ([]models.RoadSegment, error) {
	rows, err := r.db.Query(`SELECT id, name, geometry FROM road_segments ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query road segments: %w", err)
	}
	defer rows.Close()

	var segments []models.RoadSegment
	for rows.Next() {
		var s models.RoadSegment
		if err := rows.Scan(&s.ID, &s.Name, &s.Geometry); err != nil {
			return nil, fmt.Errorf("failed to scan road segment: %w", err)
		}
		segments = append(segments, s)
	}
	return segments, rows.Err()
}

// LoadNetwork builds a road network from the stored segments
func (r *RoadRepository) LoadNetwork() (*roadnet.Network, error) {
	segments, err := r.List()
	if err != nil {
		return nil, err
	}

	lines := make([]orb.LineString, 0, len(segments))
	for _, s := range segments {
		g, err := geojson.UnmarshalGeometry([]byte(s.Geometry))
		if err != nil {
			return nil, fmt.Errorf("road segment %d: %w", s.ID, err)
		}
		lines = append(lines, roadnet.LineStrings(g.Geometry())...)
	}
	return roadnet.New(lines)
}
