package handlers

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/faceid/internal/domain"
	"github.com/your-org/faceid/pkg/dto"
)

type SearchHandler struct {
	svc *domain.Service
}

func NewSearchHandler(svc *domain.Service) *SearchHandler {
	return &SearchHandler{svc: svc}
}

func templateSource(req dto.TemplateSourceRequest) (domain.TemplateSource, error) {
	src := domain.TemplateSource{
		SampleIDs:  req.SampleIDs,
		SampleData: req.SampleData,
	}
	if req.Image != "" {
		image, err := base64.StdEncoding.DecodeString(req.Image)
		if err != nil {
			return src, domain.NewError(domain.CodeBadDocument, "decode image: "+err.Error())
		}
		src.Image = image
	}
	return src, nil
}

// ResolveTemplates returns comparable templates from one source mode.
func (h *SearchHandler) ResolveTemplates(c *gin.Context) {
	ws, ok := workspaceOf(c, h.svc)
	if !ok {
		return
	}

	var req dto.ResolveTemplatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	src, err := templateSource(req.Source)
	if err != nil {
		writeError(c, err)
		return
	}
	version := req.Version
	if version == "" {
		version = h.svc.TemplateVersion()
	}

	templates, err := h.svc.ResolveTemplates(c.Request.Context(), ws, src, version)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]dto.TemplateResponse, 0, len(templates))
	for _, t := range templates {
		tr := dto.TemplateResponse{Raw: t.Raw}
		if t.BlobID != uuid.Nil {
			id := t.BlobID
			tr.BlobID = &id
		}
		if t.Data != nil {
			tr.Data = base64.StdEncoding.EncodeToString(t.Data)
		}
		resp = append(resp, tr)
	}
	c.JSON(http.StatusOK, gin.H{"templates": resp, "total": len(resp)})
}

// Search runs a template similarity search over the workspace.
func (h *SearchHandler) Search(c *gin.Context) {
	ws, ok := workspaceOf(c, h.svc)
	if !ok {
		return
	}

	var req dto.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	src, err := templateSource(req.Source)
	if err != nil {
		writeError(c, err)
		return
	}

	matches, err := h.svc.Search(c.Request.Context(), ws, domain.SearchParams{
		Source:     src,
		Threshold:  req.Threshold,
		Candidates: req.Candidates,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]dto.MatchResponse, 0, len(matches))
	for _, m := range matches {
		resp = append(resp, dto.MatchResponse{
			SampleID:  m.SampleID,
			ProfileID: m.ProfileID,
			Score:     m.Score,
		})
	}
	c.JSON(http.StatusOK, gin.H{"matches": resp, "total": len(resp)})
}

// Verify compares two template sources and returns their similarity.
func (h *SearchHandler) Verify(c *gin.Context) {
	ws, ok := workspaceOf(c, h.svc)
	if !ok {
		return
	}

	var req dto.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	first, err := templateSource(req.First)
	if err != nil {
		writeError(c, err)
		return
	}
	second, err := templateSource(req.Second)
	if err != nil {
		writeError(c, err)
		return
	}

	score, err := h.svc.Verify(c.Request.Context(), ws, first, second)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.VerifyResponse{Score: score})
}
