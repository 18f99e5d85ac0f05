package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jon4hz/loaderdesk/internal/models"
)

// ListProjects returns every project.
func (h *Handler) ListProjects(c *gin.Context) {
	projects, err := h.engine.Repositories().Projects.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "projects": projects})
}

type projectRequest struct {
	Name string `json:"name"`
	models.ProjectSettings
}

// AddProject creates a project.
func (h *Handler) AddProject(c *gin.Context) {
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format")
		return
	}

	project, err := h.engine.Repositories().Projects.Add(c.Request.Context(), models.Project{
		Name:              req.Name,
		Webhooks:          req.Webhooks,
		HWIDResetAllowed:  req.HWIDResetAllowed,
		AutoDeleteExpired: req.AutoDeleteExpired,
		CloneAllowed:      req.CloneAllowed,
		Cooldown:          req.Cooldown,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "project": project})
}

// GetProject returns a project by id.
func (h *Handler) GetProject(c *gin.Context) {
	project, err := h.engine.Repositories().Projects.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "project": project})
}

func (h *Handler) respondProject(c *gin.Context, project *models.Project, err error, message string) {
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message, "project": project})
}

// RenameProject changes the name of a project.
func (h *Handler) RenameProject(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format")
		return
	}
	project, err := h.engine.Repositories().Projects.Rename(c.Request.Context(), c.Param("id"), req.Name)
	h.respondProject(c, project, err, "Project renamed")
}

// UpdateProjectSettings applies a partial settings update.
func (h *Handler) UpdateProjectSettings(c *gin.Context) {
	var req models.ProjectSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format")
		return
	}
	project, err := h.engine.Repositories().Projects.UpdateSettings(c.Request.Context(), c.Param("id"), req)
	h.respondProject(c, project, err, "Settings updated")
}

// DeleteProject removes a project and its files.
func (h *Handler) DeleteProject(c *gin.Context) {
	if err := h.engine.Repositories().Projects.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Project deleted"})
}

// AddProjectFile appends a file to a project.
func (h *Handler) AddProjectFile(c *gin.Context) {
	var file models.File
	if err := c.ShouldBindJSON(&file); err != nil {
		badRequest(c, "Invalid request format")
		return
	}
	project, err := h.engine.Repositories().Projects.AddFile(c.Request.Context(), c.Param("id"), file)
	h.respondProject(c, project, err, "File added")
}

// EditProjectFile replaces the file at the given index.
func (h *Handler) EditProjectFile(c *gin.Context) {
	index, ok := indexParam(c)
	if !ok {
		return
	}
	var file models.File
	if err := c.ShouldBindJSON(&file); err != nil {
		badRequest(c, "Invalid request format")
		return
	}
	project, err := h.engine.Repositories().Projects.EditFile(c.Request.Context(), c.Param("id"), index, file)
	h.respondProject(c, project, err, "File saved")
}

// DeleteProjectFile removes the file at the given index.
func (h *Handler) DeleteProjectFile(c *gin.Context) {
	index, ok := indexParam(c)
	if !ok {
		return
	}
	project, err := h.engine.Repositories().Projects.DeleteFile(c.Request.Context(), c.Param("id"), index)
	h.respondProject(c, project, err, "File deleted")
}
