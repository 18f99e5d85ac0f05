package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SyncStatus returns the derived dashboard views including the sync state.
func (h *Handler) SyncStatus(c *gin.Context) {
	views, err := h.engine.Coordinator().Views(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "views": views})
}

// SyncNow pushes local data and mirrors files, returning a report of every failure.
func (h *Handler) SyncNow(c *gin.Context) {
	report, err := h.engine.Coordinator().SyncNow(c.Request.Context())
	if err != nil {
		c.JSON(statusFor(err), gin.H{"success": false, "error": err.Error(), "report": report})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Data synced", "report": report})
}

// RetrySync reconnects to the remote document store.
func (h *Handler) RetrySync(c *gin.Context) {
	if err := h.engine.Coordinator().Retry(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Cloud sync enabled"})
}

// SyncTasks returns the mirror task journal. failed=true limits it to failed tasks.
func (h *Handler) SyncTasks(c *gin.Context) {
	journal := h.engine.Coordinator().Journal()
	tasks := journal.Tasks()
	if c.Query("failed") == "true" {
		tasks = journal.Failed()
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "tasks": tasks})
}

// GetAutoSave returns the auto-save state.
func (h *Handler) GetAutoSave(c *gin.Context) {
	state, err := h.engine.Repositories().AutoSave.Get(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "autoSave": state})
}

// SetAutoSave toggles automatic backups.
func (h *Handler) SetAutoSave(c *gin.Context) {
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		badRequest(c, "Invalid request format")
		return
	}
	state, err := h.engine.Repositories().AutoSave.SetEnabled(c.Request.Context(), *req.Enabled)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "autoSave": state})
}

// Status returns the dashboard views together with cache statistics and jobs.
func (h *Handler) Status(c *gin.Context) {
	ctx := c.Request.Context()
	views, err := h.engine.Coordinator().Views(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	autoSave, err := h.engine.Repositories().AutoSave.Get(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"views":    views,
		"autoSave": autoSave,
		"cache":    h.engine.CacheStats(),
		"jobs":     h.engine.GetScheduler().GetJobs(),
		"remote":   h.engine.Config().Remote.Type,
	})
}
