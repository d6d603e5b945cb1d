package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleHealth reports liveness plus whether the diarization model is warm.
// A cold model is not an error; the first diarization request loads it.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"model_loaded": s.warm(),
	})
}
