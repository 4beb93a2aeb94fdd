package engine_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/faceid/internal/config"
	"github.com/your-org/faceid/internal/engine"
)

func newTestClient(url string) *engine.Client {
	return engine.NewClient(config.EngineConfig{
		BaseURL:  url,
		Timeout:  5 * time.Second,
		Capturer: "face-detector",
	})
}

func TestProcess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/process", r.URL.Path)

		require.NoError(t, r.ParseMultipartForm(1 << 20))
		assert.Equal(t, "template17v1", r.FormValue("template_version"))

		file, _, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"objects@face-detector": []any{
				map[string]any{"class": "face", "quality": map[string]any{"total_score": 0.91}},
			},
		})
	}))
	defer srv.Close()

	result, err := newTestClient(srv.URL).Process(context.Background(), []byte("jpeg"), "template17v1", nil)
	require.NoError(t, err)
	assert.Equal(t, "face-detector", result.Capturer)
	require.Len(t, result.Objects, 1)
	assert.Equal(t, "face", engine.Class(result.Objects[0]))
	assert.Equal(t, 0.91, engine.QualityScore(result.Objects[0]))
}

func TestProcess_SendsPupils(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1 << 20))

		var pupils engine.Pupils
		require.NoError(t, json.Unmarshal([]byte(r.FormValue("pupils")), &pupils))
		assert.Equal(t, 10.0, pupils.LeftX)
		assert.Equal(t, 40.0, pupils.RightY)

		json.NewEncoder(w).Encode(map[string]any{"objects@face-detector": []any{}})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Process(context.Background(), []byte("jpeg"), "template17v1",
		&engine.Pupils{LeftX: 10, LeftY: 20, RightX: 30, RightY: 40})
	require.NoError(t, err)
}

func TestProcess_EngineError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad image", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Process(context.Background(), []byte("jpeg"), "template17v1", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
	assert.Contains(t, err.Error(), "bad image")
}

func TestProcess_CapturerMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"objects@other-detector": []any{}})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Process(context.Background(), []byte("jpeg"), "template17v1", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "other-detector")
}

func TestProcess_NoObjectsKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Process(context.Background(), []byte("jpeg"), "template17v1", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no objects@ key")
}

func TestQuality(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quality", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var in struct {
			Sample          map[string]any `json:"sample"`
			TemplateVersion string         `json:"template_version"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "template17v1", in.TemplateVersion)
		assert.Equal(t, "face", in.Sample["class"])

		json.NewEncoder(w).Encode(map[string]any{"score": 0.87})
	}))
	defer srv.Close()

	score, err := newTestClient(srv.URL).Quality(context.Background(),
		map[string]any{"class": "face"}, "template17v1")
	require.NoError(t, err)
	assert.Equal(t, 0.87, score)
}

func TestQuality_EngineError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no face in sample", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Quality(context.Background(), map[string]any{}, "template17v1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no face in sample")
}

func TestQualityScore_MissingQuality(t *testing.T) {
	assert.Equal(t, 0.0, engine.QualityScore(engine.Object{"class": "face"}))
}

func TestClass_Default(t *testing.T) {
	assert.Equal(t, "face", engine.Class(engine.Object{}))
	assert.Equal(t, "car", engine.Class(engine.Object{"class": "car"}))
}
