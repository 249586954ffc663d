package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/jengzang/mobility-backend-go/internal/models"
	"github.com/jengzang/mobility-backend-go/internal/repository"
)

// AnalysisTaskService handles analysis task business logic
type AnalysisTaskService struct {
	ctx    context.Context
	repo   *repository.AnalysisTaskRepository
	mesos  *MesosService
	logger *zap.Logger

	wg sync.WaitGroup
}

// NewAnalysisTaskService creates a new analysis task service. mesos runs the
// background pairwise tasks; cancelling ctx stops them and marks them failed.
func NewAnalysisTaskService(ctx context.Context, repo *repository.AnalysisTaskRepository, mesos *MesosService, logger *zap.Logger) *AnalysisTaskService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalysisTaskService{ctx: ctx, repo: repo, mesos: mesos, logger: logger}
}

// StartPairwise creates a pairwise mesos task and runs it in the background
func (s *AnalysisTaskService) StartPairwise(nodeCount int) (*models.AnalysisTask, error) {
	if nodeCount < 0 {
		return nil, fmt.Errorf("invalid node count: %d", nodeCount)
	}
	if err := s.ctx.Err(); err != nil {
		return nil, fmt.Errorf("not accepting tasks: %w", err)
	}
	task, err := s.mesos.CreatePairwiseTask(nodeCount)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.mesos.RunPairwise(s.ctx, task, nodeCount); err != nil {
			s.logger.Error("background pairwise mesos failed", zap.Int64("task", task.ID), zap.Error(err))
		}
	}()
	return task, nil
}

// Wait blocks until every background task has returned
func (s *AnalysisTaskService) Wait() {
	s.wg.Wait()
}

// GetTask retrieves a task by ID
func (s *AnalysisTaskService) GetTask(id int64) (*models.AnalysisTask, error) {
	return s.repo.GetByID(id)
}

// ListTasks retrieves all tasks with optional filters
func (s *AnalysisTaskService) ListTasks(skillName string, status string, limit int, offset int) ([]*models.AnalysisTask, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	return s.repo.List(skillName, status, limit, offset)
}
