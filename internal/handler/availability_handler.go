package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/kontak-api/internal/models"
	"github.com/noah-isme/kontak-api/internal/service"
	appErrors "github.com/noah-isme/kontak-api/pkg/errors"
	"github.com/noah-isme/kontak-api/pkg/response"
)

// AvailabilityHandler exposes busy/free query endpoints.
type AvailabilityHandler struct {
	availability *service.AvailabilityService
}

// NewAvailabilityHandler constructs AvailabilityHandler.
func NewAvailabilityHandler(availability *service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{availability: availability}
}

// FreeAt godoc
// @Summary Check whether a person is free at an instant
// @Tags Availability
// @Produce json
// @Param id path string true "Person ID"
// @Param date query string true "Date (yyyy-MM-dd)"
// @Param time query string true "Time of day (HH:mm)"
// @Success 200 {object} response.Envelope
// @Router /persons/{id}/availability/free-at [get]
func (h *AvailabilityHandler) FreeAt(c *gin.Context) {
	date, err := models.ParseDate(c.Query("date"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidDate.Code, http.StatusBadRequest, appErrors.ErrInvalidDate.Message))
		return
	}
	at, err := models.ParseTimeOfDay(c.Query("time"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidTime.Code, http.StatusBadRequest, appErrors.ErrInvalidTime.Message))
		return
	}

	result, err := h.availability.FreeAt(c.Request.Context(), c.Param("id"), date, at)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// FreeRanges godoc
// @Summary List a person's free half-hour ranges for a date
// @Tags Availability
// @Produce json
// @Param id path string true "Person ID"
// @Param date query string true "Date (yyyy-MM-dd)"
// @Success 200 {object} response.Envelope
// @Router /persons/{id}/availability/free-ranges [get]
func (h *AvailabilityHandler) FreeRanges(c *gin.Context) {
	date, err := models.ParseDate(c.Query("date"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidDate.Code, http.StatusBadRequest, appErrors.ErrInvalidDate.Message))
		return
	}

	result, err := h.availability.FreeRanges(c.Request.Context(), c.Param("id"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// CommonFree godoc
// @Summary List half-hour ranges where everyone matching the tag is free
// @Tags Availability
// @Produce json
// @Param date query string true "Date (yyyy-MM-dd)"
// @Param tag query string false "Restrict to persons carrying this tag"
// @Success 200 {object} response.Envelope
// @Router /availability/common [get]
func (h *AvailabilityHandler) CommonFree(c *gin.Context) {
	date, err := models.ParseDate(c.Query("date"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidDate.Code, http.StatusBadRequest, appErrors.ErrInvalidDate.Message))
		return
	}

	result, err := h.availability.CommonFree(c.Request.Context(), c.Query("tag"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
