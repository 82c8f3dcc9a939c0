package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GET /health
// Always 200; the envelope carries the verdict.
func (s *Server) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, s.lm.HealthChecker().Report(c.Request.Context()))
}
