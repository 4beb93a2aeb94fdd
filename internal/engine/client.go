// Package engine is the HTTP client for the external processing engine
// that performs face detection, quality estimation and template extraction.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/your-org/faceid/internal/bsm"
	"github.com/your-org/faceid/internal/config"
	"github.com/your-org/faceid/internal/observability"
)

// Object is one detected-object record from a processing result. Binary
// payloads arrive inline under sentinel-prefixed keys and are persisted as
// blobs by the caller.
type Object = bsm.Document

// Result is a parsed processing response: a document keyed
// "objects@<capturer>" holding a list of detected objects.
type Result struct {
	Capturer string
	Objects  []Object
}

// Pupils are optional eye coordinates passed along with the image.
type Pupils struct {
	LeftX  float64 `json:"left_x"`
	LeftY  float64 `json:"left_y"`
	RightX float64 `json:"right_x"`
	RightY float64 `json:"right_y"`
}

type Client struct {
	baseURL  string
	capturer string
	http     *http.Client
}

func NewClient(cfg config.EngineConfig) *Client {
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		capturer: cfg.Capturer,
		http:     &http.Client{Timeout: cfg.Timeout},
	}
}

// Process submits an image plus a template-version string and returns the
// detected objects.
func (c *Client) Process(ctx context.Context, image []byte, templateVersion string, pupils *Pupils) (*Result, error) {
	start := time.Now()
	defer func() {
		observability.EngineRequestDuration.WithLabelValues("process").Observe(time.Since(start).Seconds())
	}()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("image", "image")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := fw.Write(image); err != nil {
		return nil, fmt.Errorf("write image part: %w", err)
	}
	if err := mw.WriteField("template_version", templateVersion); err != nil {
		return nil, fmt.Errorf("write version field: %w", err)
	}
	if pupils != nil {
		raw, err := json.Marshal(pupils)
		if err != nil {
			return nil, fmt.Errorf("marshal pupils: %w", err)
		}
		if err := mw.WriteField("pupils", string(raw)); err != nil {
			return nil, fmt.Errorf("write pupils field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/process", &body)
	if err != nil {
		return nil, fmt.Errorf("build process request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("process image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("process image: engine returned %d: %s", resp.StatusCode, msg)
	}

	var doc bsm.Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode process response: %w", err)
	}

	result, err := parseResult(doc)
	if err != nil {
		return nil, err
	}
	if c.capturer != "" && result.Capturer != c.capturer {
		return nil, fmt.Errorf("process image: engine answered as %q, configured capturer is %q",
			result.Capturer, c.capturer)
	}
	return result, nil
}

// Quality re-evaluates the biometric quality score of a persisted sample
// meta document against the requested template version.
func (c *Client) Quality(ctx context.Context, sampleMeta bsm.Document, templateVersion string) (float64, error) {
	start := time.Now()
	defer func() {
		observability.EngineRequestDuration.WithLabelValues("quality").Observe(time.Since(start).Seconds())
	}()

	payload, err := json.Marshal(map[string]any{
		"sample":           sampleMeta,
		"template_version": templateVersion,
	})
	if err != nil {
		return 0, fmt.Errorf("marshal quality request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/quality", bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("build quality request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("estimate quality: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, fmt.Errorf("estimate quality: engine returned %d: %s", resp.StatusCode, msg)
	}

	var out struct {
		Score float64 `json:"score"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode quality response: %w", err)
	}
	return out.Score, nil
}

func parseResult(doc bsm.Document) (*Result, error) {
	for key, val := range doc {
		if !strings.HasPrefix(key, "objects@") {
			continue
		}
		list, ok := val.([]any)
		if !ok {
			return nil, fmt.Errorf("parse process response: %s is not a list", key)
		}
		objects := make([]Object, 0, len(list))
		for _, item := range list {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("parse process response: object entry is not a map")
			}
			objects = append(objects, obj)
		}
		return &Result{Capturer: strings.TrimPrefix(key, "objects@"), Objects: objects}, nil
	}
	return nil, fmt.Errorf("parse process response: no objects@ key")
}

// QualityScore reads the quality sub-document's total score of an object.
func QualityScore(obj Object) float64 {
	q, ok := obj["quality"].(map[string]any)
	if !ok {
		return 0
	}
	score, _ := q["total_score"].(float64)
	return score
}

// Class reads the detected-object class, defaulting to face.
func Class(obj Object) string {
	if c, ok := obj["class"].(string); ok {
		return c
	}
	return "face"
}
