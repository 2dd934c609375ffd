package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK      = "ok"
	statusStarted = "started"
	statusStopped = "stopped"

	actionStart = "start"
	actionStop  = "stop"

	commandOn  = "on"
	commandOff = "off"

	errStartPump       = "failed to start pump"
	errStopPump        = "failed to stop pump"
	errGetState        = "failed to load state"
	errUnknownAction   = "unknown action: must be \"start\" or \"stop\""
	errInvalidBodyPref = "invalid body: "
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// Request DTO for manual pump commands.
type commandRequest struct {
	Action string `json:"action" binding:"required"` // start | stop
}

// PumpCommandRequest is an exported model for Swagger docs of the command payload.
type PumpCommandRequest struct {
	// Action to apply. Allowed: start, stop
	Action string `json:"action" example:"start"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Manual pump command
// @Description  Applies a start or stop transition; both are idempotent. Unknown actions are rejected with no state change.
// @Tags         pump
// @Accept       json
// @Produce      json
// @Param        body  body   PumpCommandRequest  true  "Command payload"
// @Success      200   {object}  map[string]interface{}  "status, state"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/pump/command [post]
// @Security     BearerAuth
func (h *Handler) pumpCommand(c *gin.Context) {
	var req commandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	ctx := c.Request.Context()

	switch req.Action {
	case actionStart:
		if _, err := h.services.Pump.Start(ctx); err != nil {
			h.logAndJSONError(c, http.StatusInternalServerError, errStartPump, "pump_start_failed", err)
			return
		}
		h.respondWithStatusAndState(c, statusStarted)
	case actionStop:
		elapsed, err := h.services.Pump.Stop(ctx)
		if err != nil {
			h.logAndJSONError(c, http.StatusInternalServerError, errStopPump, "pump_stop_failed", err)
			return
		}
		h.respondWithStatusAndState(c, statusStopped, "elapsed_minutes", elapsed)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": errUnknownAction})
	}
}

// Respond with a status and include current state if available (best-effort).
func (h *Handler) respondWithStatusAndState(c *gin.Context, status string, kv ...any) {
	ctx := c.Request.Context()
	resp := gin.H{"status": status}
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			resp[k] = kv[i+1]
		}
	}
	if st, err := h.services.Pump.Read(ctx); err == nil {
		resp["state"] = st
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary      Get pump state
// @Tags         pump
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/pump/state [get]
// @Security     BearerAuth
func (h *Handler) getPumpState(c *gin.Context) {
	ctx := c.Request.Context()
	st, err := h.services.Pump.Read(ctx)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetState, "pump_get_state_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Device poll
// @Description  Returns the current pump command as "on"/"off" for devices that poll instead of subscribing.
// @Tags         pump
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/device/pump [get]
// @Security     BearerAuth
func (h *Handler) devicePoll(c *gin.Context) {
	ctx := c.Request.Context()
	st, err := h.services.Pump.Read(ctx)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetState, "device_poll_failed", err)
		return
	}
	cmd := commandOff
	if st.Running {
		cmd = commandOn
	}
	c.JSON(http.StatusOK, gin.H{"command": cmd})
}
