package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jon4hz/loaderdesk/internal/archive"
)

// ListBackups returns the backups, newest first.
func (h *Handler) ListBackups(c *gin.Context) {
	backups, err := h.engine.Repositories().Backups.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "backups": backups})
}

// CreateBackup takes a manual backup.
func (h *Handler) CreateBackup(c *gin.Context) {
	backup, err := h.engine.Repositories().TriggerManualBackup(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Backup created", "backup": backup})
}

// GetBackup returns a single backup.
func (h *Handler) GetBackup(c *gin.Context) {
	backup, err := h.engine.Repositories().Backups.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "backup": backup})
}

// DeleteBackup removes a backup.
func (h *Handler) DeleteBackup(c *gin.Context) {
	if err := h.engine.Repositories().Backups.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Backup deleted"})
}

// RestoreBackup replaces projects and users with the backup contents.
func (h *Handler) RestoreBackup(c *gin.Context) {
	backup, err := h.engine.Repositories().RestoreBackup(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Backup restored", "backup": backup})
}

// Export downloads every collection as a json or yaml archive.
func (h *Handler) Export(c *gin.Context) {
	format, err := archive.ParseFormat(c.DefaultQuery("format", string(archive.FormatJSON)))
	if err != nil {
		respondError(c, err)
		return
	}

	a, err := archive.Export(c.Request.Context(), h.engine.Repositories())
	if err != nil {
		respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := a.Encode(&buf, format); err != nil {
		respondError(c, err)
		return
	}

	contentType := "application/json"
	if format == archive.FormatYAML {
		contentType = "application/yaml"
	}
	filename := fmt.Sprintf("loaderdesk-backup-%s.%s", time.Now().Format("2006-01-02"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// Import replaces every collection with the uploaded archive. It requires confirm=true.
func (h *Handler) Import(c *gin.Context) {
	if c.Query("confirm") != "true" {
		badRequest(c, "Importing replaces all data, confirm with ?confirm=true")
		return
	}
	format, err := archive.ParseFormat(c.DefaultQuery("format", string(archive.FormatJSON)))
	if err != nil {
		respondError(c, err)
		return
	}

	a, err := archive.Decode(c.Request.Body, format)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := archive.Import(c.Request.Context(), h.engine.Repositories(), a); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Data imported",
		"projects": len(a.Projects),
		"users":    len(a.Users),
		"backups":  len(a.Backups),
	})
}
