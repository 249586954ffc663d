package api

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jengzang/mobility-backend-go/internal/config"
	"github.com/jengzang/mobility-backend-go/internal/handler"
	"github.com/jengzang/mobility-backend-go/internal/metrics"
	"github.com/jengzang/mobility-backend-go/internal/middleware"
	"github.com/jengzang/mobility-backend-go/internal/repository"
	"github.com/jengzang/mobility-backend-go/internal/service"
)

// SetupRouter 设置路由
//
// Reads are public; uploads and task creation require a bearer token signed
// with cfg.JWTSecret, and answer 503 when no secret is set. collector may be
// nil, which also hides /metrics. Background tasks stop when ctx is cancelled;
// the returned wait function blocks until they have returned.
func SetupRouter(ctx context.Context, cfg *config.Config, db *sql.DB, collector *metrics.Collector, logger *zap.Logger) (*gin.Engine, func(), error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	window, err := service.WindowOptions(cfg)
	if err != nil {
		return nil, nil, err
	}
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET is not set, write endpoints are disabled")
	}

	miningService := service.NewMiningService(db, window, collector, logger)
	mesosService := service.NewMesosService(db, service.MesosOptions(cfg), collector, logger)
	motifService := service.NewMotifService(db, logger)
	importService := service.NewImportService(db, logger)
	taskService := service.NewAnalysisTaskService(ctx, repository.NewAnalysisTaskRepository(db), mesosService, logger)

	miningHandler := handler.NewMiningHandler(miningService)
	mesosHandler := handler.NewMesosHandler(mesosService, motifService)
	importHandler := handler.NewImportHandler(importService)
	taskHandler := handler.NewAnalysisTaskHandler(taskService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(logger, collector))

	// CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Mobility Backend API is running",
		})
	})
	if collector != nil {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// API 路由组
	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit(ctx, cfg.RateLimit, time.Minute))
	{
		api.POST("/circles", miningHandler.MineCircles)
		api.POST("/mesos", mesosHandler.Compare)

		api.GET("/flows", miningHandler.ListFlows)
		api.GET("/graphs", miningHandler.ListGraphs)
		api.GET("/mesos", mesosHandler.ListResults)
		api.GET("/motifs", mesosHandler.MotifStats)

		tasks := api.Group("/tasks")
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.GET("/:id", taskHandler.GetTask)
		}

		// 写入接口
		protected := api.Group("")
		protected.Use(middleware.Auth(cfg.JWTSecret))
		{
			protected.POST("/mine", miningHandler.Mine)
			protected.POST("/stations", importHandler.ImportStations)
			protected.POST("/roads", importHandler.ImportRoads)
			protected.POST("/tasks/mesos", taskHandler.StartPairwise)
		}
	}

	return r, taskService.Wait, nil
}
