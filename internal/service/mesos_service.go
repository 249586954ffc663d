package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/jengzang/mobility-backend-go/internal/database"
	"github.com/jengzang/mobility-backend-go/internal/mesos"
	"github.com/jengzang/mobility-backend-go/internal/metrics"
	"github.com/jengzang/mobility-backend-go/internal/mobgraph"
	"github.com/jengzang/mobility-backend-go/internal/models"
	"github.com/jengzang/mobility-backend-go/internal/repository"
)

// MesosService compares mobility graphs structurally
type MesosService struct {
	db      *sql.DB
	tasks   *repository.AnalysisTaskRepository
	graphs  *repository.GraphRepository
	results *repository.MesosRepository
	opts    mesos.Options
	metrics *metrics.Collector
	logger  *zap.Logger

	// BatchSize overrides DefaultBatchSize when positive
	BatchSize int
}

// NewMesosService creates a new mesos service. collector may be nil.
func NewMesosService(db *sql.DB, opts mesos.Options, collector *metrics.Collector, logger *zap.Logger) *MesosService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MesosService{
		db:      db,
		tasks:   repository.NewAnalysisTaskRepository(db),
		graphs:  repository.NewGraphRepository(db),
		results: repository.NewMesosRepository(db),
		opts:    opts,
		metrics: collector,
		logger:  logger.Named("mesos"),
	}
}

// Comparison is the outcome of comparing two graphs
type Comparison struct {
	StructDist float64         `json:"struct_dist"`
	Similarity float64         `json:"similarity"`
	Matching   []mesos.Pair    `json:"matching"`
	Mesos      string          `json:"mesos"`
	Nodes      []mobgraph.Node `json:"nodes"`
	Edges      []mobgraph.Edge `json:"edges"`
}

// Compare aligns two graphs in the serialized "<nodes>|<edges>" format
func (s *MesosService) Compare(a, b string) (*Comparison, error) {
	g1, err := mobgraph.Unmarshal(a)
	if err != nil {
		return nil, fmt.Errorf("first graph: %w", err)
	}
	g2, err := mobgraph.Unmarshal(b)
	if err != nil {
		return nil, fmt.Errorf("second graph: %w", err)
	}

	m := s.match(g1, g2)
	return &Comparison{
		StructDist: m.StructDist(),
		Similarity: m.Similarity(),
		Matching:   m.Matching(),
		Mesos:      mobgraph.Marshal(m.Graph(), false),
		Nodes:      m.Graph().Nodes(),
		Edges:      m.Graph().Edges(),
	}, nil
}

func (s *MesosService) match(g1, g2 *mobgraph.Graph) *mesos.Mesos {
	start := time.Now()
	m := mesos.Match(g1, g2, s.opts)
	if s.metrics != nil {
		s.metrics.RecordMesos(time.Since(start), m.StructDist())
	}
	return m
}

// PairwiseSummary is stored as the result summary of a pairwise task
type PairwiseSummary struct {
	Groups  int     `json:"groups"`
	Graphs  int     `json:"graphs"`
	Pairs   int     `json:"pairs"`
	Skipped int     `json:"skipped"`
	Mean    float64 `json:"mean_struct_dist"`
	StdDev  float64 `json:"std_struct_dist"`
	Median  float64 `json:"median_struct_dist"`
	P90     float64 `json:"p90_struct_dist"`
}

// CreatePairwiseTask registers a pending pairwise comparison run
func (s *MesosService) CreatePairwiseTask(nodeCount int) (*models.AnalysisTask, error) {
	source := "all"
	if nodeCount > 0 {
		source = fmt.Sprintf("nodes=%d", nodeCount)
	}
	task := &models.AnalysisTask{
		RunID:     uuid.NewString(),
		SkillName: models.SkillMesos,
		Source:    source,
	}
	if err := s.tasks.Create(task); err != nil {
		return nil, err
	}
	return task, nil
}

// Pairwise compares every pair of stored graphs with the same node count.
// nodeCount restricts the run to one group; 0 runs all groups.
func (s *MesosService) Pairwise(ctx context.Context, nodeCount int) (*models.AnalysisTask, error) {
	task, err := s.CreatePairwiseTask(nodeCount)
	if err != nil {
		return nil, err
	}
	if err := s.RunPairwise(ctx, task, nodeCount); err != nil {
		return task, err
	}
	return s.tasks.GetByID(task.ID)
}

// RunPairwise executes a task created by CreatePairwiseTask. Graphs that fail
// to parse are skipped and counted.
func (s *MesosService) RunPairwise(ctx context.Context, task *models.AnalysisTask, nodeCount int) error {
	logger := s.logger.With(zap.String("run", task.RunID))
	if err := s.tasks.MarkAsRunning(task.ID); err != nil {
		return err
	}

	summary, err := s.runPairwise(ctx, task, nodeCount, logger)
	if err != nil {
		logger.Error("pairwise mesos failed", zap.Error(err))
		if markErr := s.tasks.MarkAsFailed(task.ID, err.Error()); markErr != nil {
			logger.Warn("failed to mark task as failed", zap.Error(markErr))
		}
		return err
	}

	data, _ := json.Marshal(summary)
	logger.Info("pairwise mesos completed",
		zap.Int("groups", summary.Groups),
		zap.Int("pairs", summary.Pairs),
		zap.Float64("mean_struct_dist", summary.Mean))
	return s.tasks.MarkAsCompleted(task.ID, string(data))
}

type parsedGraph struct {
	rec   models.MobilityGraphRecord
	graph *mobgraph.Graph
}

func (s *MesosService) runPairwise(ctx context.Context, task *models.AnalysisTask, nodeCount int, logger *zap.Logger) (*PairwiseSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	counts := []int{nodeCount}
	if nodeCount <= 0 {
		var err error
		if counts, err = s.graphs.NodeCounts(); err != nil {
			return nil, err
		}
	}

	groups := make([][]parsedGraph, 0, len(counts))
	summary := &PairwiseSummary{}
	var total int64
	for _, n := range counts {
		records, err := s.graphs.ListByNodeCount(n)
		if err != nil {
			return nil, err
		}
		group := make([]parsedGraph, 0, len(records))
		for _, rec := range records {
			g, err := mobgraph.Unmarshal(rec.Graph)
			if err != nil {
				summary.Skipped++
				logger.Warn("skipping unreadable graph", zap.Int64("graph", rec.ID), zap.Error(err))
				continue
			}
			group = append(group, parsedGraph{rec: rec, graph: g})
		}
		groups = append(groups, group)
		summary.Graphs += len(group)
		total += int64(len(group) * (len(group) - 1) / 2)
	}

	batchSize := s.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var (
		batch     []models.MesosResult
		distances []float64
		done      int64
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := database.Transaction(s.db, func(tx *sql.Tx) error {
			return s.results.InsertBatch(tx, batch)
		})
		if err != nil {
			return err
		}
		batch = batch[:0]
		return s.tasks.UpdateProgress(task.ID, total, done, int64(summary.Skipped))
	}

	for _, group := range groups {
		if len(group) > 1 {
			summary.Groups++
		}
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				a, b := group[i], group[j]
				m := s.match(a.graph, b.graph)
				dist := m.StructDist()

				batch = append(batch, models.MesosResult{
					RunID:      task.RunID,
					NodeCount:  a.rec.NodeCount,
					GraphID1:   a.rec.ID,
					GraphID2:   b.rec.ID,
					UserID1:    a.rec.UserID,
					UserID2:    b.rec.UserID,
					Date1:      a.rec.Date,
					Date2:      b.rec.Date,
					StructDist: dist,
					Mesos:      mobgraph.Marshal(m.Graph(), false),
				})
				distances = append(distances, dist)
				done++

				if len(batch) >= batchSize {
					if err := flush(); err != nil {
						return nil, err
					}
				}
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	summary.Pairs = len(distances)
	if len(distances) > 0 {
		summary.Mean = stat.Mean(distances, nil)
		if len(distances) > 1 {
			summary.StdDev = stat.StdDev(distances, nil)
		}
		slices.Sort(distances)
		summary.Median = stat.Quantile(0.5, stat.Empirical, distances, nil)
		summary.P90 = stat.Quantile(0.9, stat.Empirical, distances, nil)
	}
	return summary, nil
}

// ListResults returns stored mesos results
func (s *MesosService) ListResults(filter models.MesosFilter) ([]models.MesosResult, int64, error) {
	return s.results.List(filter)
}
