package service

import (
	"database/sql"

	"go.uber.org/zap"

	"github.com/jengzang/mobility-backend-go/internal/mobgraph"
	"github.com/jengzang/mobility-backend-go/internal/motif"
	"github.com/jengzang/mobility-backend-go/internal/repository"
)

// MotifService groups stored mobility graphs into motifs
type MotifService struct {
	graphs *repository.GraphRepository
	logger *zap.Logger
}

// NewMotifService creates a new motif service
func NewMotifService(db *sql.DB, logger *zap.Logger) *MotifService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MotifService{
		graphs: repository.NewGraphRepository(db),
		logger: logger.Named("motif"),
	}
}

// Collect files every stored graph with nodeCount nodes, or every stored
// graph when nodeCount is 0, into a motif bucket. Unreadable graphs are
// logged and skipped.
func (s *MotifService) Collect(nodeCount int) (*motif.Bucket, error) {
	counts := []int{nodeCount}
	if nodeCount <= 0 {
		var err error
		if counts, err = s.graphs.NodeCounts(); err != nil {
			return nil, err
		}
	}

	bucket := motif.NewBucket(nodeCount)
	for _, n := range counts {
		records, err := s.graphs.ListByNodeCount(n)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			g, err := mobgraph.Unmarshal(rec.Graph)
			if err != nil {
				s.logger.Warn("skipping unreadable graph", zap.Int64("graph", rec.ID), zap.Error(err))
				continue
			}
			bucket.Add(g)
		}
	}
	return bucket, nil
}

// Stats returns the ranked motif statistics of the stored graphs
func (s *MotifService) Stats(nodeCount int) ([]motif.Stat, error) {
	bucket, err := s.Collect(nodeCount)
	if err != nil {
		return nil, err
	}
	return bucket.Stats(), nil
}
