package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jon4hz/loaderdesk/internal/models"
)

// GetProfile returns the public profile.
func (h *Handler) GetProfile(c *gin.Context) {
	p, err := h.engine.Profile().Load(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "profile": p})
}

// SaveProfile updates username, bio and location.
func (h *Handler) SaveProfile(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Bio      string `json:"bio"`
		Location string `json:"location"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format")
		return
	}
	p, err := h.engine.Profile().SaveInfo(c.Request.Context(), req.Username, req.Bio, req.Location)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Profile saved", "profile": p})
}

// AddSocialLink appends a social link.
func (h *Handler) AddSocialLink(c *gin.Context) {
	var link models.SocialLink
	if err := c.ShouldBindJSON(&link); err != nil {
		badRequest(c, "Invalid request format")
		return
	}
	p, err := h.engine.Profile().AddSocialLink(c.Request.Context(), link)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Link added", "profile": p})
}

// DeleteSocialLink removes the social link at the given index.
func (h *Handler) DeleteSocialLink(c *gin.Context) {
	index, ok := indexParam(c)
	if !ok {
		return
	}
	p, err := h.engine.Profile().DeleteSocialLink(c.Request.Context(), index)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Link removed", "profile": p})
}

// GetAnalytics returns the profile view counters.
func (h *Handler) GetAnalytics(c *gin.Context) {
	stats, err := h.engine.Profile().Analytics(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "views": stats})
}

// RecordProfileView counts a visit of the public profile page.
func (h *Handler) RecordProfileView(c *gin.Context) {
	stats, err := h.engine.Profile().RecordView(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "views": stats})
}
