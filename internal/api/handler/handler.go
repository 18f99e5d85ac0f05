package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/jon4hz/loaderdesk/internal/coordinator"
	"github.com/jon4hz/loaderdesk/internal/docstore"
	"github.com/jon4hz/loaderdesk/internal/engine"
	"github.com/jon4hz/loaderdesk/internal/models"
	"github.com/jon4hz/loaderdesk/internal/scheduler"
)

// Handler serves the admin API.
type Handler struct {
	engine *engine.Engine
}

// New creates a new Handler.
func New(e *engine.Engine) *Handler {
	return &Handler{engine: e}
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case models.IsValidationError(err):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound), errors.Is(err, scheduler.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, coordinator.ErrSyncInProgress):
		return http.StatusConflict
	case errors.Is(err, docstore.ErrUnavailable):
		return http.StatusServiceUnavailable
	case docstore.IsConnectionError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error("Request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msg})
}

func indexParam(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		badRequest(c, "Invalid index")
		return 0, false
	}
	return index, true
}

// Health is a liveness probe.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
