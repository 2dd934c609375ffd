package handlers

import (
	"errors"
	"net/http"

	"pumpcontrol/internal/service"

	"github.com/gin-gonic/gin"
)

// @Summary      Ingest telemetry
// @Description  Accepts a flat JSON object with any recognized sensor fields (synonyms like "moisture", "temp", "hum" are normalized). Absent sensor groups are left untouched.
// @Tags         telemetry
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/telemetry [post]
// @Security     BearerAuth
func (h *Handler) postTelemetry(c *gin.Context) {
	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	ctx := c.Request.Context()

	snap, err := h.services.Telemetry.Ingest(ctx, fields)
	if err != nil {
		if errors.Is(err, service.ErrNoSensorFields) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to store telemetry", "telemetry_ingest_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK, "sensors": snap})
}

// @Summary      Get sensor snapshot
// @Tags         telemetry
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/telemetry [get]
// @Security     BearerAuth
func (h *Handler) getTelemetry(c *gin.Context) {
	ctx := c.Request.Context()
	snap, err := h.services.Telemetry.Snapshot(ctx)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load telemetry", "telemetry_get_failed", err)
		return
	}
	c.JSON(http.StatusOK, snap)
}
