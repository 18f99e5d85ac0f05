package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/jon4hz/loaderdesk/internal/api/auth"
	"github.com/jon4hz/loaderdesk/internal/api/handler"
	"github.com/jon4hz/loaderdesk/internal/config"
	"github.com/jon4hz/loaderdesk/internal/engine"
)

const sessionName = "loaderdesk_session"

// Server is the admin HTTP API.
type Server struct {
	cfg       *config.Config
	ginEngine *gin.Engine
	engine    *engine.Engine
	auth      *auth.Provider
}

// New creates a new Server with all routes registered.
func New(_ context.Context, cfg *config.Config, e *engine.Engine, debug bool) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if e == nil {
		return nil, fmt.Errorf("engine is required")
	}

	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:       cfg,
		ginEngine: gin.New(),
		engine:    e,
		auth:      auth.New(cfg.Admin, e.Repositories().Settings),
	}
	s.ginEngine.Use(gin.Recovery())
	if debug {
		s.ginEngine.Use(gin.Logger())
	}
	s.ginEngine.Use(gzip.Gzip(gzip.DefaultCompression))

	s.setupSession()
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupSession() {
	store := cookie.NewStore([]byte(s.cfg.SessionKey))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   s.cfg.SessionMaxAge,
		HttpOnly: true,
		Secure:   false,
		SameSite: http.SameSiteLaxMode,
	})
	s.ginEngine.Use(sessions.Sessions(sessionName, store))
}

func (s *Server) setupRoutes() {
	h := handler.New(s.engine)

	s.ginEngine.GET("/health", h.Health)

	public := s.ginEngine.Group("/api")
	public.POST("/login", s.auth.Login)
	public.POST("/logout", s.auth.Logout)
	public.POST("/profile/views", h.RecordProfileView)

	api := s.ginEngine.Group("/api")
	api.Use(s.auth.RequireAuth())

	api.GET("/status", h.Status)

	users := api.Group("/users")
	users.GET("", h.ListUsers)
	users.POST("", h.AddUser)
	users.GET("/:key", h.GetUser)
	users.PUT("/:key/status", h.SetUserStatus)
	users.POST("/:key/ban", h.BanUser)
	users.POST("/:key/unban", h.UnbanUser)
	users.PUT("/:key/note", h.UpdateUserNote)
	users.PUT("/:key/days", h.SetUserDays)
	users.PUT("/:key/anti-cheat", h.SetUserAntiCheat)
	users.POST("/:key/hwid-reset", h.ResetUserHWID)
	users.POST("/:key/executions", h.RecordUserExecution)

	projects := api.Group("/projects")
	projects.GET("", h.ListProjects)
	projects.POST("", h.AddProject)
	projects.GET("/:id", h.GetProject)
	projects.PUT("/:id", h.RenameProject)
	projects.PATCH("/:id/settings", h.UpdateProjectSettings)
	projects.DELETE("/:id", h.DeleteProject)
	projects.POST("/:id/files", h.AddProjectFile)
	projects.PUT("/:id/files/:index", h.EditProjectFile)
	projects.DELETE("/:id/files/:index", h.DeleteProjectFile)

	backups := api.Group("/backups")
	backups.GET("", h.ListBackups)
	backups.POST("", h.CreateBackup)
	backups.GET("/:id", h.GetBackup)
	backups.DELETE("/:id", h.DeleteBackup)
	backups.POST("/:id/restore", h.RestoreBackup)

	api.GET("/export", h.Export)
	api.POST("/import", h.Import)

	api.GET("/autosave", h.GetAutoSave)
	api.PUT("/autosave", h.SetAutoSave)

	sync := api.Group("/sync")
	sync.GET("", h.SyncStatus)
	sync.POST("", h.SyncNow)
	sync.POST("/retry", h.RetrySync)
	sync.GET("/tasks", h.SyncTasks)

	api.GET("/profile", h.GetProfile)
	api.PUT("/profile", h.SaveProfile)
	api.POST("/profile/social-links", h.AddSocialLink)
	api.DELETE("/profile/social-links/:index", h.DeleteSocialLink)
	api.GET("/analytics", h.GetAnalytics)

	settings := api.Group("/settings")
	settings.GET("", h.GetSettings)
	settings.PUT("/mirror", h.UpdateMirrorSettings)
	settings.PUT("/urls", h.UpdateURLs)
	settings.PUT("/discord-bot-files", h.UpdateDiscordBotFiles)
	settings.PUT("/user-key", h.UpdateUserKey)

	jobs := api.Group("/jobs")
	jobs.GET("", h.ListJobs)
	jobs.POST("/:id/run", h.RunJob)
	jobs.PUT("/:id", h.SetJobEnabled)
}

// Handler returns the http.Handler of the server.
func (s *Server) Handler() http.Handler {
	return s.ginEngine
}

// Run starts serving on the configured listen address.
func (s *Server) Run() error {
	return s.ginEngine.Run(s.cfg.Listen)
}
