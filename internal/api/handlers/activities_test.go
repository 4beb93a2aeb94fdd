package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/faceid/internal/models"
)

type fakePublisher struct {
	workspaceID string
	event       models.ActivityEvent
	err         error
}

func (f *fakePublisher) PublishActivity(ctx context.Context, workspaceID string, data interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.workspaceID = workspaceID
	f.event = data.(models.ActivityEvent)
	return nil
}

func newIngestRouter(pub ActivityPublisher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewActivityHandler(nil, pub)
	r.POST("/workspaces/:ws/activities", h.Ingest)
	return r
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIngest_PublishesUnderWorkspaceSubject(t *testing.T) {
	pub := &fakePublisher{}
	r := newIngestRouter(pub)

	wsID := uuid.New()
	personID := uuid.New()
	w := postJSON(r, "/workspaces/"+wsID.String()+"/activities",
		`{"person_id":"`+personID.String()+`","data":{"camera":"entrance"}}`)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, wsID.String(), pub.workspaceID)
	assert.Equal(t, wsID, pub.event.WorkspaceID)
	assert.Equal(t, personID, pub.event.PersonID)
	assert.Equal(t, "entrance", pub.event.Data["camera"])
	assert.False(t, pub.event.Timestamp.IsZero(), "missing timestamp defaults to now")
}

func TestIngest_InvalidWorkspaceID(t *testing.T) {
	r := newIngestRouter(&fakePublisher{})

	w := postJSON(r, "/workspaces/not-a-uuid/activities", `{"person_id":"`+uuid.NewString()+`"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIngest_MissingPersonID(t *testing.T) {
	pub := &fakePublisher{}
	r := newIngestRouter(pub)

	w := postJSON(r, "/workspaces/"+uuid.NewString()+"/activities", `{"data":{}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, pub.workspaceID, "nothing published for a rejected event")
}

func TestIngest_PublisherUnavailable(t *testing.T) {
	r := newIngestRouter(&fakePublisher{err: context.DeadlineExceeded})

	w := postJSON(r, "/workspaces/"+uuid.NewString()+"/activities",
		`{"person_id":"`+uuid.NewString()+`"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
