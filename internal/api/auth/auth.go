package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/jon4hz/loaderdesk/internal/config"
	"github.com/jon4hz/loaderdesk/internal/repository"
)

const (
	// APIKeyHeader carries the admin key for non-browser clients.
	APIKeyHeader = "X-API-Key"

	sessionAuthenticated = "authenticated"
	sessionDiscordID     = "discord_id"
)

// Provider authenticates the single admin with a discord id and a shared key.
type Provider struct {
	discordID string
	key       string
	settings  *repository.Settings
}

// New creates a new Provider.
func New(cfg *config.AdminConfig, settings *repository.Settings) *Provider {
	return &Provider{
		discordID: cfg.DiscordID,
		key:       cfg.Key,
		settings:  settings,
	}
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

type loginRequest struct {
	DiscordID string `json:"discordId"`
	Key       string `json:"key"`
}

// Login checks the credentials and starts a session.
func (p *Provider) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.DiscordID == "" || req.Key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Please enter both Discord ID and security key"})
		return
	}

	idOK := equal(req.DiscordID, p.discordID)
	keyOK := equal(req.Key, p.key)
	switch {
	case !idOK && !keyOK:
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid Discord ID and security key"})
		return
	case !idOK:
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid Discord ID"})
		return
	case !keyOK:
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid security key"})
		return
	}

	session := sessions.Default(c)
	session.Set(sessionAuthenticated, true)
	session.Set(sessionDiscordID, req.DiscordID)
	if err := session.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to save session"})
		return
	}
	if err := p.settings.SetAuthenticated(c.Request.Context(), true); err != nil {
		log.Warn("Failed to store login state", "error", err)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged in"})
}

// Logout ends the session.
func (p *Provider) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to save session"})
		return
	}
	if err := p.settings.SetAuthenticated(c.Request.Context(), false); err != nil {
		log.Warn("Failed to store logout state", "error", err)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out"})
}

// RequireAuth accepts a logged in session or the admin key in the X-API-Key header.
func (p *Provider) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey := c.GetHeader(APIKeyHeader); apiKey != "" {
			if !equal(apiKey, p.key) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
				c.Abort()
				return
			}
			c.Set("user_id", p.discordID)
			c.Next()
			return
		}

		session := sessions.Default(c)
		if ok, _ := session.Get(sessionAuthenticated).(bool); !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			c.Abort()
			return
		}
		c.Set("user_id", session.Get(sessionDiscordID))
		c.Next()
	}
}
