package rest

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type relayResponse struct {
	Status string `json:"status"`
}

func slotParam(c *gin.Context) (int, bool) {
	raw := c.Param("slot")
	slot, err := strconv.Atoi(raw)
	if err != nil {
		respondBadRequest(c, "INVALID_SLOT", "Slot must be an integer", raw)
		return 0, false
	}
	return slot, true
}

// GET /:rack/:slot/relay/status
func (s *Server) relayStatus(c *gin.Context) {
	slot, ok := slotParam(c)
	if !ok {
		return
	}

	status, err := s.lm.RelayControl().GetStatus(c.Request.Context(), slot)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, relayResponse{Status: string(status)})
}

// POST /:rack/:slot/relay/:operation
func (s *Server) relayOperation(c *gin.Context) {
	if strings.EqualFold(c.Param("operation"), "timed") {
		s.relayTimed(c)
		return
	}

	slot, ok := slotParam(c)
	if !ok {
		return
	}

	status, err := s.lm.RelayControl().SetState(c.Request.Context(), slot, c.Param("operation"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, relayResponse{Status: string(status)})
}

// POST /:rack/:slot/relay/timed?duration=N
func (s *Server) relayTimed(c *gin.Context) {
	slot, ok := slotParam(c)
	if !ok {
		return
	}

	duration := c.DefaultQuery("duration", "0")
	seconds, err := strconv.Atoi(duration)
	if err != nil || seconds < 0 {
		respondBadRequest(c, "INVALID_DURATION", fmt.Sprintf("Duration %s is not a valid integer.", duration), nil)
		return
	}

	if err := s.lm.RelayControl().Pulse(c.Request.Context(), slot, seconds); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusOK)
}
