package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jon4hz/loaderdesk/internal/models"
)

// GetSettings returns the locally stored settings. The mirror token is never returned.
func (h *Handler) GetSettings(c *gin.Context) {
	ctx := c.Request.Context()
	settings := h.engine.Repositories().Settings

	mirrorSettings, err := settings.MirrorSettings(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	loaderURL, err := settings.LoaderServerURL(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	apiURL, err := settings.APIBaseURL(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	botFiles, err := settings.DiscordBotFiles(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	userKey, err := settings.UserKey(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"mirror": gin.H{
			"owner":      mirrorSettings.Owner,
			"repo":       mirrorSettings.Repository,
			"branch":     mirrorSettings.Branch,
			"configured": mirrorSettings.Configured(),
		},
		"loaderServerUrl": loaderURL,
		"apiBaseUrl":      apiURL,
		"discordBotFiles": botFiles,
		"userKey":         userKey,
	})
}

// UpdateMirrorSettings stores new mirror credentials and swaps the active mirror.
func (h *Handler) UpdateMirrorSettings(c *gin.Context) {
	var req models.MirrorSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format")
		return
	}
	if err := h.engine.UpdateMirrorSettings(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Mirror settings saved"})
}

// UpdateURLs stores the loader server and api base URLs. Omitted fields are left untouched.
func (h *Handler) UpdateURLs(c *gin.Context) {
	var req struct {
		LoaderServerURL *string `json:"loaderServerUrl"`
		APIBaseURL      *string `json:"apiBaseUrl"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format")
		return
	}
	ctx := c.Request.Context()
	settings := h.engine.Repositories().Settings
	if req.LoaderServerURL != nil {
		if err := settings.SetLoaderServerURL(ctx, *req.LoaderServerURL); err != nil {
			respondError(c, err)
			return
		}
	}
	if req.APIBaseURL != nil {
		if err := settings.SetAPIBaseURL(ctx, *req.APIBaseURL); err != nil {
			respondError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "URLs saved"})
}

// UpdateDiscordBotFiles replaces the discord bot files.
func (h *Handler) UpdateDiscordBotFiles(c *gin.Context) {
	var req struct {
		Files []models.File `json:"files"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format")
		return
	}
	if err := h.engine.Repositories().Settings.SetDiscordBotFiles(c.Request.Context(), req.Files); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Bot files saved"})
}

// UpdateUserKey stores the key of the dashboard user.
func (h *Handler) UpdateUserKey(c *gin.Context) {
	var req struct {
		Key string `json:"key"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format")
		return
	}
	if err := h.engine.Repositories().Settings.SetUserKey(c.Request.Context(), req.Key); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "User key saved"})
}
