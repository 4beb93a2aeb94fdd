package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/faceid/internal/domain"
	"github.com/your-org/faceid/internal/models"
	"github.com/your-org/faceid/pkg/dto"
)

type WorkspaceHandler struct {
	svc *domain.Service
}

func NewWorkspaceHandler(svc *domain.Service) *WorkspaceHandler {
	return &WorkspaceHandler{svc: svc}
}

func workspaceResponse(ws *models.Workspace) dto.WorkspaceResponse {
	return dto.WorkspaceResponse{
		ID:        ws.ID,
		Title:     ws.Title,
		Config:    ws.Config,
		CreatedAt: ws.CreatedAt.Format(time.RFC3339),
	}
}

func (h *WorkspaceHandler) Create(c *gin.Context) {
	var req dto.CreateWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ws, err := h.svc.CreateWorkspace(c.Request.Context(), req.Title, req.Config)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, workspaceResponse(ws))
}

func (h *WorkspaceHandler) List(c *gin.Context) {
	workspaces, err := h.svc.Store().ListWorkspaces(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.WorkspaceResponse, 0, len(workspaces))
	for i := range workspaces {
		resp = append(resp, workspaceResponse(&workspaces[i]))
	}
	c.JSON(http.StatusOK, gin.H{"workspaces": resp, "total": len(resp)})
}

func (h *WorkspaceHandler) Get(c *gin.Context) {
	ws, ok := workspaceOf(c, h.svc)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, workspaceResponse(ws))
}

func (h *WorkspaceHandler) PatchConfig(c *gin.Context) {
	ws, ok := workspaceOf(c, h.svc)
	if !ok {
		return
	}

	var req dto.PatchWorkspaceConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.svc.PatchWorkspaceConfig(c.Request.Context(), ws.ID, req.Config)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, workspaceResponse(updated))
}
