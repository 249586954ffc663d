package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/mobility-backend-go/internal/models"
	"github.com/jengzang/mobility-backend-go/internal/service"
	"github.com/jengzang/mobility-backend-go/pkg/response"
)

// MesosHandler handles HTTP requests for structural graph comparison
type MesosHandler struct {
	mesosService *service.MesosService
	motifService *service.MotifService
}

// NewMesosHandler creates a new mesos handler
func NewMesosHandler(mesosService *service.MesosService, motifService *service.MotifService) *MesosHandler {
	return &MesosHandler{mesosService: mesosService, motifService: motifService}
}

// CompareRequest holds two graphs in the "<nodes>|<edges>" text format
type CompareRequest struct {
	Graph1 string `json:"graph1" binding:"required"`
	Graph2 string `json:"graph2" binding:"required"`
}

// Compare handles POST /api/v1/mesos
func (h *MesosHandler) Compare(c *gin.Context) {
	var req CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.mesosService.Compare(req.Graph1, req.Graph2)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	response.Success(c, result)
}

// ListResults handles GET /api/v1/mesos
func (h *MesosHandler) ListResults(c *gin.Context) {
	var filter models.MesosFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	results, total, err := h.mesosService.ListResults(filter)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	page, pageSize := filter.Paging()
	response.Success(c, gin.H{
		"data":     results,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}

// MotifStats handles GET /api/v1/motifs
func (h *MesosHandler) MotifStats(c *gin.Context) {
	nodes, err := strconv.Atoi(c.DefaultQuery("nodes", "0"))
	if err != nil || nodes < 0 {
		response.BadRequest(c, "Invalid nodes parameter")
		return
	}

	stats, err := h.motifService.Stats(nodes)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, gin.H{"motifs": stats})
}
