package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

type fakeQueue struct {
	pingErr  error
	depth    uint64
	depthErr error
}

func (f fakeQueue) Ping() error { return f.pingErr }

func (f fakeQueue) QueueDepth(ctx context.Context) (uint64, error) { return f.depth, f.depthErr }

func readyz(db, minio ReadinessPinger, queue QueueStatus) (*httptest.ResponseRecorder, map[string]any) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/readyz", NewSystemHandler(db, minio, queue).Readyz)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	var body map[string]any
	json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestReadyz_ReportsQueueDepth(t *testing.T) {
	w, body := readyz(fakePinger{}, fakePinger{}, fakeQueue{depth: 42})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ready", body["status"])
	assert.Equal(t, 42.0, body["queue_depth"])
}

func TestReadyz_PostgresDown(t *testing.T) {
	w, body := readyz(fakePinger{err: errors.New("pool closed")}, fakePinger{}, fakeQueue{})

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "not ready", body["status"])
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "pool closed", checks["postgres"])
}

func TestReadyz_DepthLookupFailureStaysReady(t *testing.T) {
	w, body := readyz(fakePinger{}, fakePinger{}, fakeQueue{depthErr: errors.New("stream gone")})

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, body, "queue_depth")
}

func TestReadyz_QueueDisconnected(t *testing.T) {
	w, body := readyz(fakePinger{}, fakePinger{}, fakeQueue{pingErr: errors.New("nats not connected")})

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "nats not connected", checks["nats"])
	assert.NotContains(t, body, "queue_depth")
}
