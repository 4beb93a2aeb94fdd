package handlers

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/faceid/internal/domain"
	"github.com/your-org/faceid/internal/models"
	"github.com/your-org/faceid/pkg/dto"
)

type SampleHandler struct {
	svc *domain.Service
}

func NewSampleHandler(svc *domain.Service) *SampleHandler {
	return &SampleHandler{svc: svc}
}

func sampleResponse(s *models.Sample) dto.SampleResponse {
	return dto.SampleResponse{
		ID:          s.ID,
		WorkspaceID: s.WorkspaceID,
		Meta:        s.Meta,
		Quality:     s.Quality,
		CreatedAt:   s.CreatedAt.Format(time.RFC3339),
	}
}

func readImageFile(c *gin.Context) ([]byte, bool) {
	file, _, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file required"})
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "read image failed"})
		return nil, false
	}
	return data, true
}

func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	return limit, offset
}

// Create accepts a multipart image and creates one sample per face retained
// by the workspace multi-face policy.
func (h *SampleHandler) Create(c *gin.Context) {
	ws, ok := workspaceOf(c, h.svc)
	if !ok {
		return
	}
	image, ok := readImageFile(c)
	if !ok {
		return
	}

	samples, err := h.svc.CreateSamples(c.Request.Context(), ws, image)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]dto.SampleResponse, 0, len(samples))
	for i := range samples {
		resp = append(resp, sampleResponse(&samples[i]))
	}
	c.JSON(http.StatusCreated, gin.H{"samples": resp, "total": len(resp)})
}

// Enroll runs the quality-gated single-face enrollment.
func (h *SampleHandler) Enroll(c *gin.Context) {
	ws, ok := workspaceOf(c, h.svc)
	if !ok {
		return
	}
	image, ok := readImageFile(c)
	if !ok {
		return
	}

	sample, quality, err := h.svc.EnrollSample(c.Request.Context(), ws, image)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.EnrollmentResponse{
		Sample:  sampleResponse(sample),
		Quality: quality,
	})
}

func (h *SampleHandler) List(c *gin.Context) {
	ws, ok := workspaceOf(c, h.svc)
	if !ok {
		return
	}
	limit, offset := pagination(c)

	samples, err := h.svc.Store().ListSamples(c.Request.Context(), ws.ID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.SampleResponse, 0, len(samples))
	for i := range samples {
		resp = append(resp, sampleResponse(&samples[i]))
	}
	c.JSON(http.StatusOK, gin.H{"samples": resp, "total": len(resp)})
}

func (h *SampleHandler) Get(c *gin.Context) {
	ws, ok := workspaceOf(c, h.svc)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	sample, err := h.svc.Store().GetSample(c.Request.Context(), ws.ID, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if sample == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "sample not found"})
		return
	}
	c.JSON(http.StatusOK, sampleResponse(sample))
}

func (h *SampleHandler) Delete(c *gin.Context) {
	ws, ok := workspaceOf(c, h.svc)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteSample(c.Request.Context(), ws, id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// Blob streams a stored blob payload.
func (h *SampleHandler) Blob(c *gin.Context) {
	ws, ok := workspaceOf(c, h.svc)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	data, err := h.svc.Store().GetBlobPayload(c.Request.Context(), ws.ID, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if data == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "blob not found"})
		return
	}
	c.Data(http.StatusOK, "application/octet-stream", data)
}
