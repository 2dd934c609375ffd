package handlers

import (
	"errors"
	"net/http"

	"pumpcontrol/internal/models"
	"pumpcontrol/internal/service"

	"github.com/gin-gonic/gin"
)

// Request DTO for submitting a schedule entry.
type scheduleRequest struct {
	StartTime       string  `json:"start_time" binding:"required"` // RFC3339 or HH:MM
	DurationMinutes float64 `json:"duration_minutes" binding:"required"`
	RepeatCount     int     `json:"repeat_count,omitempty"` // on/off cycles per firing, default 1
}

// ScheduleSubmitRequest is an exported model for Swagger docs of the schedule payload.
type ScheduleSubmitRequest struct {
	// Start time: RFC3339 instant, or HH:MM for the next occurrence of that wall-clock time
	StartTime string `json:"start_time" example:"06:30"`
	// Watering duration per cycle in minutes
	DurationMinutes float64 `json:"duration_minutes" example:"5"`
	// On/off cycles per firing (default 1)
	RepeatCount int `json:"repeat_count,omitempty" example:"2"`
}

// @Summary      Submit schedule entry
// @Description  Validates and persists the entry, then arms a single deferred timer for its next fire instant.
// @Tags         schedules
// @Accept       json
// @Produce      json
// @Param        body  body   ScheduleSubmitRequest  true  "Schedule payload"
// @Success      201   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/schedules [post]
// @Security     BearerAuth
func (h *Handler) submitSchedule(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	ctx := c.Request.Context()

	entry, err := h.services.Scheduler.Submit(ctx, models.ScheduleEntry{
		StartTime:       req.StartTime,
		DurationMinutes: req.DurationMinutes,
		RepeatCount:     req.RepeatCount,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidStartTime) || errors.Is(err, service.ErrInvalidDuration) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to persist schedule", "schedule_submit_failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"entry": entry})
}

// @Summary      List schedule entries
// @Tags         schedules
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, entries"
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/schedules [get]
// @Security     BearerAuth
func (h *Handler) listSchedules(c *gin.Context) {
	ctx := c.Request.Context()
	entries, err := h.services.Scheduler.List(ctx)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load schedules", "schedule_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":   len(entries),
		"entries": entries,
	})
}

// @Summary      Remove schedule entry
// @Description  Cancels any armed timer for the entry and deletes it from the store. Idempotent.
// @Tags         schedules
// @Produce      json
// @Param        id    path    string  true  "Entry id"
// @Success      204   "removed"
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/schedules/{id} [delete]
// @Security     BearerAuth
func (h *Handler) removeSchedule(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if err := h.services.Scheduler.Remove(ctx, id); err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to remove schedule", "schedule_remove_failed", err, "entry_id", id)
		return
	}
	c.Status(http.StatusNoContent)
}
