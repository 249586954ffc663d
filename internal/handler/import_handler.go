package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/mobility-backend-go/internal/service"
	"github.com/jengzang/mobility-backend-go/pkg/response"
)

// maxImportBytes bounds uploaded reference files
const maxImportBytes = 64 << 20

// ImportHandler handles uploads of base stations and road networks
type ImportHandler struct {
	importService *service.ImportService
}

// NewImportHandler creates a new import handler
func NewImportHandler(importService *service.ImportService) *ImportHandler {
	return &ImportHandler{importService: importService}
}

// ImportStations handles POST /api/v1/stations with a "id,cell,lon,lat" CSV body
func (h *ImportHandler) ImportStations(c *gin.Context) {
	n, err := h.importService.ImportStations(io.LimitReader(c.Request.Body, maxImportBytes))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.Success(c, gin.H{"imported": n})
}

// ImportRoads handles POST /api/v1/roads with a GeoJSON FeatureCollection body
func (h *ImportHandler) ImportRoads(c *gin.Context) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportBytes))
	if err != nil {
		response.BadRequest(c, "Failed to read request body")
		return
	}

	n, err := h.importService.ImportRoads(data)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.Success(c, gin.H{"segments": n})
}
