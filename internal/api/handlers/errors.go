package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/faceid/internal/domain"
	"github.com/your-org/faceid/internal/models"
)

// writeError translates a domain error into an HTTP response carrying the
// opaque error code; anything else becomes an internal error.
func writeError(c *gin.Context, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	status := http.StatusBadRequest
	switch de.Code {
	case domain.CodeNotFound:
		status = http.StatusNotFound
	case domain.CodeMultiface, domain.CodeNoFace, domain.CodeQualityGate:
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{"error": de.Message, "code": de.Code})
}

// workspaceOf resolves the :ws path parameter to a workspace, writing the
// error response itself when resolution fails.
func workspaceOf(c *gin.Context, svc *domain.Service) (*models.Workspace, bool) {
	id, err := uuid.Parse(c.Param("ws"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid workspace id"})
		return nil, false
	}
	ws, err := svc.Workspace(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return ws, true
}

func pathID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + param})
		return uuid.Nil, false
	}
	return id, true
}
