package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/kontak-api/internal/service"
	"github.com/noah-isme/kontak-api/pkg/response"
)

// ExportHandler streams rendered schedule documents.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Download godoc
// @Summary Download a person's schedule as CSV, PDF, or ICS
// @Tags Exports
// @Produce octet-stream
// @Param id path string true "Person ID"
// @Param format query string false "csv, pdf, or ics (default csv)"
// @Success 200 {file} binary
// @Router /persons/{id}/export [get]
func (h *ExportHandler) Download(c *gin.Context) {
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.exports.Generate(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Data)
}
