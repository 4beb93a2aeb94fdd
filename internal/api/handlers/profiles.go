package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/faceid/internal/bsm"
	"github.com/your-org/faceid/internal/domain"
	"github.com/your-org/faceid/internal/models"
	"github.com/your-org/faceid/pkg/dto"
)

type ProfileHandler struct {
	svc *domain.Service
}

func NewProfileHandler(svc *domain.Service) *ProfileHandler {
	return &ProfileHandler{svc: svc}
}

func profileResponse(p *models.Profile) dto.ProfileResponse {
	groups := p.GroupIDs
	if groups == nil {
		groups = []uuid.UUID{}
	}
	return dto.ProfileResponse{
		ID:        p.ID,
		PersonID:  p.PersonID,
		Info:      p.Info,
		GroupIDs:  groups,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
}

// Create accepts a multipart form: an image file plus optional JSON fields
// "info" and "group_ids".
func (h *ProfileHandler) Create(c *gin.Context) {
	ws, ok := workspaceOf(c, h.svc)
	if !ok {
		return
	}
	image, ok := readImageFile(c)
	if !ok {
		return
	}

	params := domain.CreateProfileParams{Image: image}

	if raw := c.PostForm("info"); raw != "" {
		var info bsm.Document
		if err := json.Unmarshal([]byte(raw), &info); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid info json"})
			return
		}
		params.Info = info
	}
	if raw := c.PostForm("group_ids"); raw != "" {
		var ids []uuid.UUID
		if err := json.Unmarshal([]byte(raw), &ids); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group_ids json"})
			return
		}
		params.GroupIDs = ids
	}

	profile, err := h.svc.CreateProfile(c.Request.Context(), ws, params)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, profileResponse(profile))
}

func (h *ProfileHandler) List(c *gin.Context) {
	ws, ok := workspaceOf(c, h.svc)
	if !ok {
		return
	}
	limit, offset := pagination(c)

	profiles, err := h.svc.Store().ListProfiles(c.Request.Context(), ws.ID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.ProfileResponse, 0, len(profiles))
	for i := range profiles {
		resp = append(resp, profileResponse(&profiles[i]))
	}
	c.JSON(http.StatusOK, gin.H{"profiles": resp, "total": len(resp)})
}

func (h *ProfileHandler) Get(c *gin.Context) {
	ws, ok := workspaceOf(c, h.svc)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	profile, err := h.svc.Store().GetProfile(c.Request.Context(), ws.ID, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if profile == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	c.JSON(http.StatusOK, profileResponse(profile))
}

func (h *ProfileHandler) UpdateInfo(c *gin.Context) {
	ws, ok := workspaceOf(c, h.svc)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateProfileInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := h.svc.UpdateProfileInfo(c.Request.Context(), ws, id, req.Info)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, profileResponse(profile))
}

// SetGroups replaces the profile's group membership and propagates the net
// change to the identity index.
func (h *ProfileHandler) SetGroups(c *gin.Context) {
	ws, ok := workspaceOf(c, h.svc)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req dto.SetProfileGroupsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := h.svc.SetProfileGroups(c.Request.Context(), ws, id, req.GroupIDs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, profileResponse(profile))
}

func (h *ProfileHandler) Delete(c *gin.Context) {
	ws, ok := workspaceOf(c, h.svc)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteProfile(c.Request.Context(), ws, id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// EnrollPersonSample adds a quality-gated sample to an existing person.
func (h *ProfileHandler) EnrollPersonSample(c *gin.Context) {
	ws, ok := workspaceOf(c, h.svc)
	if !ok {
		return
	}
	personID, ok := pathID(c, "id")
	if !ok {
		return
	}
	image, ok := readImageFile(c)
	if !ok {
		return
	}

	sample, quality, err := h.svc.EnrollPersonSample(c.Request.Context(), ws, personID, image)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.EnrollmentResponse{
		Sample:  sampleResponse(sample),
		Quality: quality,
	})
}
