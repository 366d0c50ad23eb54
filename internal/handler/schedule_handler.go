package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/kontak-api/internal/models"
	"github.com/noah-isme/kontak-api/internal/service"
	appErrors "github.com/noah-isme/kontak-api/pkg/errors"
	"github.com/noah-isme/kontak-api/pkg/response"
)

// ScheduleHandler exposes a person's schedule endpoints.
type ScheduleHandler struct {
	schedules *service.ScheduleService
}

// NewScheduleHandler constructs ScheduleHandler.
func NewScheduleHandler(schedules *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules}
}

// List godoc
// @Summary List a person's events
// @Tags Schedules
// @Produce json
// @Param id path string true "Person ID"
// @Success 200 {object} response.Envelope
// @Router /persons/{id}/events [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	events, err := h.schedules.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, nil)
}

// Add godoc
// @Summary Add an event to a person's schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Person ID"
// @Param payload body models.EventEncoding true "Event payload"
// @Success 201 {object} response.Envelope
// @Router /persons/{id}/events [post]
func (h *ScheduleHandler) Add(c *gin.Context) {
	var enc models.EventEncoding
	if err := c.ShouldBindJSON(&enc); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	event, err := h.schedules.Add(c.Request.Context(), c.Param("id"), enc)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, event)
}

// Update godoc
// @Summary Update an event
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Person ID"
// @Param eventId path string true "Event ID"
// @Param payload body models.EventEncoding true "Event payload"
// @Success 200 {object} response.Envelope
// @Router /persons/{id}/events/{eventId} [put]
func (h *ScheduleHandler) Update(c *gin.Context) {
	var enc models.EventEncoding
	if err := c.ShouldBindJSON(&enc); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	event, err := h.schedules.Update(c.Request.Context(), c.Param("id"), c.Param("eventId"), enc)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}

// Delete godoc
// @Summary Remove an event
// @Tags Schedules
// @Param id path string true "Person ID"
// @Param eventId path string true "Event ID"
// @Success 204
// @Router /persons/{id}/events/{eventId} [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	if err := h.schedules.Delete(c.Request.Context(), c.Param("id"), c.Param("eventId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Clear godoc
// @Summary Remove every event from a person's schedule
// @Tags Schedules
// @Param id path string true "Person ID"
// @Success 204
// @Router /persons/{id}/events [delete]
func (h *ScheduleHandler) Clear(c *gin.Context) {
	if err := h.schedules.Clear(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Import godoc
// @Summary Replace a person's schedule with the supplied events
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Person ID"
// @Param payload body []models.EventEncoding true "Event payloads"
// @Success 200 {object} response.Envelope
// @Router /persons/{id}/events/import [post]
func (h *ScheduleHandler) Import(c *gin.Context) {
	var encs []models.EventEncoding
	if err := c.ShouldBindJSON(&encs); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	events, err := h.schedules.Import(c.Request.Context(), c.Param("id"), encs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, nil)
}

// Export godoc
// @Summary Export a person's schedule as raw event encodings
// @Tags Schedules
// @Produce json
// @Param id path string true "Person ID"
// @Success 200 {object} response.Envelope
// @Router /persons/{id}/events/export [get]
func (h *ScheduleHandler) Export(c *gin.Context) {
	encs, err := h.schedules.Export(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, encs, nil)
}
