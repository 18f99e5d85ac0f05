package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListJobs returns the scheduled jobs.
func (h *Handler) ListJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "jobs": h.engine.GetScheduler().GetJobs()})
}

// RunJob triggers a job immediately.
func (h *Handler) RunJob(c *gin.Context) {
	if err := h.engine.GetScheduler().RunJobNow(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Job triggered"})
}

// SetJobEnabled enables or disables a job.
func (h *Handler) SetJobEnabled(c *gin.Context) {
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		badRequest(c, "Invalid request format")
		return
	}
	if err := h.engine.GetScheduler().SetJobEnabled(c.Param("id"), *req.Enabled); err != nil {
		respondError(c, err)
		return
	}
	job, _ := h.engine.GetScheduler().GetJob(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"success": true, "job": job})
}
