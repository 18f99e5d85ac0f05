package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jon4hz/loaderdesk/internal/models"
)

// ListUsers returns every license key.
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.engine.Repositories().Users.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "users": users})
}

type addUserRequest struct {
	Days      *int   `json:"days"`
	Note      string `json:"note"`
	DiscordID string `json:"discordId"`
	AntiCheat bool   `json:"antiCheat"`
}

// AddUser generates a new license key.
func (h *Handler) AddUser(c *gin.Context) {
	var req addUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format")
		return
	}

	user, err := h.engine.Repositories().Users.Add(c.Request.Context(), models.User{
		Days:      req.Days,
		Note:      req.Note,
		DiscordID: req.DiscordID,
		AntiCheat: req.AntiCheat,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "user": user})
}

// GetUser returns a single license key.
func (h *Handler) GetUser(c *gin.Context) {
	user, err := h.engine.Repositories().Users.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

func (h *Handler) respondUser(c *gin.Context, user *models.User, err error, message string) {
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message, "user": user})
}

// SetUserStatus sets the status of a key.
func (h *Handler) SetUserStatus(c *gin.Context) {
	var req struct {
		Status models.UserStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format")
		return
	}
	user, err := h.engine.Repositories().Users.SetStatus(c.Request.Context(), c.Param("key"), req.Status)
	h.respondUser(c, user, err, "Status updated")
}

// BanUser bans a key with an optional reason.
func (h *Handler) BanUser(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	// the reason is optional, an empty body is fine
	_ = c.ShouldBindJSON(&req)
	user, err := h.engine.Repositories().Users.Ban(c.Request.Context(), c.Param("key"), req.Reason)
	h.respondUser(c, user, err, "User banned")
}

// UnbanUser lifts a ban.
func (h *Handler) UnbanUser(c *gin.Context) {
	user, err := h.engine.Repositories().Users.Unban(c.Request.Context(), c.Param("key"))
	h.respondUser(c, user, err, "User unbanned")
}

// UpdateUserNote replaces the note of a key.
func (h *Handler) UpdateUserNote(c *gin.Context) {
	var req struct {
		Note string `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format")
		return
	}
	user, err := h.engine.Repositories().Users.UpdateNote(c.Request.Context(), c.Param("key"), req.Note)
	h.respondUser(c, user, err, "Note updated")
}

// SetUserDays changes the duration of a key. A null days value makes it unlimited.
func (h *Handler) SetUserDays(c *gin.Context) {
	var req struct {
		Days *int `json:"days"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format")
		return
	}
	user, err := h.engine.Repositories().Users.SetDays(c.Request.Context(), c.Param("key"), req.Days)
	h.respondUser(c, user, err, "Days updated")
}

// SetUserAntiCheat toggles the anti-cheat flag and optionally links a discord id.
func (h *Handler) SetUserAntiCheat(c *gin.Context) {
	var req struct {
		Enabled   bool    `json:"enabled"`
		DiscordID *string `json:"discordId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format")
		return
	}
	ctx := c.Request.Context()
	users := h.engine.Repositories().Users
	user, err := users.SetAntiCheat(ctx, c.Param("key"), req.Enabled)
	if err == nil && req.DiscordID != nil {
		user, err = users.SetDiscordID(ctx, c.Param("key"), *req.DiscordID)
	}
	h.respondUser(c, user, err, "Anti-cheat updated")
}

// ResetUserHWID resets the hardware id binding of a key.
func (h *Handler) ResetUserHWID(c *gin.Context) {
	user, err := h.engine.Repositories().Users.ResetHWID(c.Request.Context(), c.Param("key"))
	h.respondUser(c, user, err, "HWID reset")
}

// RecordUserExecution counts a loader execution.
func (h *Handler) RecordUserExecution(c *gin.Context) {
	user, err := h.engine.Repositories().Users.RecordExecution(c.Request.Context(), c.Param("key"))
	h.respondUser(c, user, err, "Execution recorded")
}
