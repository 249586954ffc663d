package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/mobility-backend-go/internal/locmap"
	"github.com/jengzang/mobility-backend-go/internal/models"
	"github.com/jengzang/mobility-backend-go/internal/service"
	"github.com/jengzang/mobility-backend-go/pkg/response"
)

// MiningHandler handles HTTP requests for circles, flows and mobility graphs
type MiningHandler struct {
	miningService *service.MiningService
}

// NewMiningHandler creates a new mining handler
func NewMiningHandler(miningService *service.MiningService) *MiningHandler {
	return &MiningHandler{miningService: miningService}
}

// CirclesRequest is a location sequence, as labels
type CirclesRequest struct {
	Sequence []string `json:"sequence" binding:"required"`
}

// MineCircles handles POST /api/v1/circles
func (h *MiningHandler) MineCircles(c *gin.Context) {
	var req CirclesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	circles := h.miningService.MineSequence(req.Sequence)
	response.Success(c, gin.H{
		"circles": circles,
		"count":   len(circles),
	})
}

// Mine handles POST /api/v1/mine. The body is an observation stream sorted by
// user and time; it is mined synchronously.
func (h *MiningHandler) Mine(c *gin.Context) {
	source := c.DefaultQuery("source", "upload")
	task, err := h.miningService.Run(c.Request.Context(), c.Request.Body, source)
	if errors.Is(err, locmap.ErrNotLoaded) {
		response.Error(c, http.StatusConflict, "No base stations loaded")
		return
	}
	if err != nil {
		c.Error(err)
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, task)
}

// ListFlows handles GET /api/v1/flows
func (h *MiningHandler) ListFlows(c *gin.Context) {
	var filter models.FlowFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	flows, total, err := h.miningService.ListFlows(filter)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	page, pageSize := filter.Paging()
	response.Success(c, gin.H{
		"data":     flows,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}

// ListGraphs handles GET /api/v1/graphs
func (h *MiningHandler) ListGraphs(c *gin.Context) {
	var filter models.GraphFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	graphs, total, err := h.miningService.ListGraphs(filter)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	page, pageSize := filter.Paging()
	response.Success(c, gin.H{
		"data":     graphs,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}
