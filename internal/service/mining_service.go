package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jengzang/mobility-backend-go/internal/database"
	"github.com/jengzang/mobility-backend-go/internal/locmap"
	"github.com/jengzang/mobility-backend-go/internal/metrics"
	"github.com/jengzang/mobility-backend-go/internal/mobgraph"
	"github.com/jengzang/mobility-backend-go/internal/mobility"
	"github.com/jengzang/mobility-backend-go/internal/models"
	"github.com/jengzang/mobility-backend-go/internal/repository"
	"github.com/jengzang/mobility-backend-go/internal/roadnet"
)

// DefaultBatchSize is the number of person-days written per transaction
const DefaultBatchSize = 500

// MiningService turns observation streams into stored flow features and
// mobility graphs
type MiningService struct {
	db       *sql.DB
	tasks    *repository.AnalysisTaskRepository
	stations *repository.StationRepository
	roads    *repository.RoadRepository
	flows    *repository.FlowRepository
	graphs   *repository.GraphRepository
	window   mobility.WindowOptions
	metrics  *metrics.Collector
	logger   *zap.Logger

	// BatchSize overrides DefaultBatchSize when positive
	BatchSize int
	// UseRoads measures edges over the stored road network when it is not empty
	UseRoads bool
}

// NewMiningService creates a new mining service. collector may be nil.
func NewMiningService(db *sql.DB, window mobility.WindowOptions, collector *metrics.Collector, logger *zap.Logger) *MiningService {
	if logger == nil {
		logger = zap.NewNop()
	}
	window.Logger = logger
	return &MiningService{
		db:       db,
		tasks:    repository.NewAnalysisTaskRepository(db),
		stations: repository.NewStationRepository(db),
		roads:    repository.NewRoadRepository(db),
		flows:    repository.NewFlowRepository(db),
		graphs:   repository.NewGraphRepository(db),
		window:   window,
		metrics:  collector,
		logger:   logger.Named("miner"),
		UseRoads: true,
	}
}

// MiningSummary is stored as the result summary of a mining task
type MiningSummary struct {
	mobility.WindowStats
	Flows   int64 `json:"flows"`
	Graphs  int64 `json:"graphs"`
	Batches int64 `json:"batches"`
	Roads   bool  `json:"roads"`
}

// Run mines one observation stream. Progress is tracked in an analysis task
// which is returned even when the run fails. The run aborts when the location
// map is empty, or when a batch cannot be stored.
func (s *MiningService) Run(ctx context.Context, r io.Reader, source string) (*models.AnalysisTask, error) {
	task := &models.AnalysisTask{
		RunID:     uuid.NewString(),
		SkillName: models.SkillMine,
		Source:    source,
	}
	if err := s.tasks.Create(task); err != nil {
		return nil, err
	}
	if err := s.tasks.MarkAsRunning(task.ID); err != nil {
		return task, err
	}

	logger := s.logger.With(zap.String("run", task.RunID), zap.String("source", source))
	started := time.Now()

	summary, err := s.run(ctx, r, task, logger)
	if err != nil {
		logger.Error("mining failed", zap.Error(err))
		if markErr := s.tasks.MarkAsFailed(task.ID, err.Error()); markErr != nil {
			logger.Warn("failed to mark task as failed", zap.Error(markErr))
		}
		return task, err
	}

	data, _ := json.Marshal(summary)
	if err := s.tasks.MarkAsCompleted(task.ID, string(data)); err != nil {
		return task, err
	}
	if s.metrics != nil {
		s.metrics.MiningDuration.Observe(time.Since(started).Seconds())
	}

	logger.Info("mining completed",
		zap.Int64("read", summary.Read),
		zap.Int64("person_days", summary.Emitted),
		zap.Int64("flows", summary.Flows),
		zap.Duration("elapsed", time.Since(started)))

	return s.tasks.GetByID(task.ID)
}

func (s *MiningService) run(ctx context.Context, r io.Reader, task *models.AnalysisTask, logger *zap.Logger) (*MiningSummary, error) {
	locations, err := s.stations.LoadMap()
	if err != nil {
		return nil, fmt.Errorf("load location map: %w", err)
	}

	summary := &MiningSummary{}
	dist := s.distanceFunc(logger)
	summary.Roads = dist != nil

	batchSize := s.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var (
		flows  []models.FlowFeature
		graphs []*models.MobilityGraphRecord
		w      *mobility.Windower
	)

	flush := func() error {
		if len(graphs) == 0 {
			return nil
		}
		err := database.Transaction(s.db, func(tx *sql.Tx) error {
			if err := s.flows.InsertBatch(tx, flows); err != nil {
				return err
			}
			return s.graphs.InsertBatch(tx, graphs)
		})
		if err != nil {
			if s.metrics != nil {
				s.metrics.StoreBatchErrors.Inc()
			}
			return err
		}

		summary.Flows += int64(len(flows))
		summary.Graphs += int64(len(graphs))
		summary.Batches++
		flows, graphs = flows[:0], graphs[:0]

		stats := w.Stats()
		seen := stats.Read + stats.Malformed
		return s.tasks.UpdateProgress(task.ID, seen, seen, stats.Malformed+stats.Unknown+stats.OutOfArea)
	}

	w, err = mobility.NewWindower(locations, s.window, func(day *mobility.PersonDay) error {
		rec, dayFlows := s.process(day, dist, task.RunID)
		flows = append(flows, dayFlows...)
		graphs = append(graphs, rec)

		if len(graphs) >= batchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	readErr := mobility.ReadDays(ctx, r, w)
	summary.WindowStats = w.Stats()
	s.recordStats(summary.WindowStats)
	if readErr != nil {
		return summary, readErr
	}

	if err := flush(); err != nil {
		return summary, err
	}
	return summary, nil
}

// process derives the stored artifacts of one person-day
func (s *MiningService) process(day *mobility.PersonDay, dist mobgraph.DistanceFunc, runID string) (*models.MobilityGraphRecord, []models.FlowFeature) {
	flows := day.FlowFeatures()
	for i := range flows {
		flows[i].RunID = runID
	}

	g := mobgraph.Build(day, dist)
	rec := &models.MobilityGraphRecord{
		RunID:     runID,
		UserID:    day.UserID,
		Date:      day.DateID(),
		NodeCount: g.NodeCount(),
		EdgeCount: g.EdgeCount(),
		Circles:   len(day.Circles()),
		Rg:        day.RadiusOfGyration(),
		Travel:    day.TravelDistance(),
		Graph:     mobgraph.Marshal(g, false),
	}

	if s.metrics != nil {
		s.metrics.RecordPersonDay(rec.Circles)
	}
	return rec, flows
}

// distanceFunc returns the road network distance, or nil for great-circle
// distances when roads are disabled or none are stored
func (s *MiningService) distanceFunc(logger *zap.Logger) mobgraph.DistanceFunc {
	if !s.UseRoads {
		return nil
	}
	network, err := s.roads.LoadNetwork()
	if err != nil {
		if !errors.Is(err, roadnet.ErrEmptyNetwork) {
			logger.Warn("road network unavailable, using great-circle distances", zap.Error(err))
		}
		return nil
	}
	logger.Info("using road network distances",
		zap.Int("vertices", network.VertexCount()),
		zap.Int("edges", network.EdgeCount()))
	return network.ShortestPathDistance
}

func (s *MiningService) recordStats(stats mobility.WindowStats) {
	if s.metrics == nil {
		return
	}
	accepted := stats.Read - stats.Unknown - stats.OutOfArea
	s.metrics.RecordRecords("accepted", accepted)
	s.metrics.RecordRecords("malformed", stats.Malformed)
	s.metrics.RecordRecords("unknown_location", stats.Unknown)
	s.metrics.RecordRecords("out_of_area", stats.OutOfArea)
}

// LoadLocations returns the stored location map
func (s *MiningService) LoadLocations() (*locmap.Map, error) {
	return s.stations.LoadMap()
}

// MineSequence extracts the circles of an arbitrary token sequence
func (s *MiningService) MineSequence(seq []string) []mobility.Circle {
	return mobility.ExtractMetaflows(seq)
}

// ListFlows returns stored flow features
func (s *MiningService) ListFlows(filter models.FlowFilter) ([]models.FlowFeature, int64, error) {
	return s.flows.List(filter)
}

// ListGraphs returns stored mobility graphs
func (s *MiningService) ListGraphs(filter models.GraphFilter) ([]models.MobilityGraphRecord, int64, error) {
	return s.graphs.List(filter)
}
