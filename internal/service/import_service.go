package service

import (
	"database/sql"
	"fmt"
	"io"
	"slices"

	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/jengzang/mobility-backend-go/internal/locmap"
	"github.com/jengzang/mobility-backend-go/internal/models"
	"github.com/jengzang/mobility-backend-go/internal/repository"
)

// ImportService loads reference data: base stations and road polylines
type ImportService struct {
	stations *repository.StationRepository
	roads    *repository.RoadRepository
	logger   *zap.Logger
}

// NewImportService creates a new import service
func NewImportService(db *sql.DB, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{
		stations: repository.NewStationRepository(db),
		roads:    repository.NewRoadRepository(db),
		logger:   logger.Named("import"),
	}
}

// ImportStations reads "id,cell,lon,lat" lines and upserts them. It returns the
// number of stations written.
func (s *ImportService) ImportStations(r io.Reader) (int, error) {
	m, err := locmap.LoadCSV(r)
	if err != nil {
		return 0, fmt.Errorf("failed to read stations: %w", err)
	}

	entries := m.Entries()
	ids := make([]int64, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	stations := make([]models.BaseStation, 0, len(ids))
	for _, id := range ids {
		c := entries[id]
		stations = append(stations, models.BaseStation{ID: id, Longitude: c.Lon, Latitude: c.Lat})
	}
	if err := s.stations.Upsert(stations); err != nil {
		return 0, err
	}

	s.logger.Info("stations imported", zap.Int("count", len(stations)))
	return len(stations), nil
}

// ImportRoads stores the line strings of a GeoJSON FeatureCollection and
// returns the number of segments written
func (s *ImportService) ImportRoads(data []byte) (int, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return 0, fmt.Errorf("failed to parse road geojson: %w", err)
	}

	n, err := s.roads.Insert(fc)
	if err != nil {
		return 0, err
	}
	s.logger.Info("roads imported", zap.Int("features", len(fc.Features)), zap.Int("segments", n))
	return n, nil
}
