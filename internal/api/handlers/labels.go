package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/faceid/internal/domain"
	"github.com/your-org/faceid/internal/models"
	"github.com/your-org/faceid/pkg/dto"
)

type LabelHandler struct {
	svc *domain.Service
}

func NewLabelHandler(svc *domain.Service) *LabelHandler {
	return &LabelHandler{svc: svc}
}

func labelResponse(l *models.Label) dto.LabelResponse {
	return dto.LabelResponse{
		ID:        l.ID,
		Title:     l.Title,
		Type:      string(l.Type),
		IsActive:  l.IsActive,
		CreatedAt: l.CreatedAt.Format(time.RFC3339),
	}
}

func validLabelType(t string) bool {
	switch models.LabelType(t) {
	case models.LabelTypeLocation, models.LabelTypeProfileGroup, models.LabelTypeAreaType:
		return true
	}
	return false
}

func (h *LabelHandler) Create(c *gin.Context) {
	ws, ok := workspaceOf(c, h.svc)
	if !ok {
		return
	}

	var req dto.CreateLabelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !validLabelType(req.Type) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown label type"})
		return
	}

	label := &models.Label{
		ID:          uuid.New(),
		WorkspaceID: ws.ID,
		Title:       req.Title,
		Type:        models.LabelType(req.Type),
		IsActive:    true,
	}
	if err := h.svc.Store().CreateLabel(c.Request.Context(), label); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, labelResponse(label))
}

func (h *LabelHandler) List(c *gin.Context) {
	ws, ok := workspaceOf(c, h.svc)
	if !ok {
		return
	}

	labelType := models.LabelType(c.Query("type"))
	activeOnly := c.DefaultQuery("active", "true") == "true"

	labels, err := h.svc.Store().ListLabels(c.Request.Context(), ws.ID, labelType, activeOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.LabelResponse, 0, len(labels))
	for i := range labels {
		resp = append(resp, labelResponse(&labels[i]))
	}
	c.JSON(http.StatusOK, gin.H{"labels": resp, "total": len(resp)})
}

// Deactivate soft-deletes a label. Profiles keep their membership rows; an
// inactive group simply stops validating for new assignments.
func (h *LabelHandler) Deactivate(c *gin.Context) {
	ws, ok := workspaceOf(c, h.svc)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Store().DeactivateLabel(c.Request.Context(), ws.ID, id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deactivated"})
}
