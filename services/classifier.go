package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

type SignResult struct {
	ClassID     int     `json:"class_id"`
	Name        string  `json:"class_name"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

// SignClassifier is the opaque road-sign scoring function. The model lives
// behind a separate inference service; this side only ships bytes and reads
// the verdict.
type SignClassifier interface {
	Classify(ctx context.Context, image []byte, filename string) (SignResult, error)
}

type HTTPClassifier struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClassifier(baseURL string) *HTTPClassifier {
	return &HTTPClassifier{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClassifier) Classify(ctx context.Context, image []byte, filename string) (SignResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return SignResult{}, err
	}
	if _, err := part.Write(image); err != nil {
		return SignResult{}, err
	}
	if err := mw.Close(); err != nil {
		return SignResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", &body)
	if err != nil {
		return SignResult{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return SignResult{}, fmt.Errorf("inference request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return SignResult{}, fmt.Errorf("inference service returned %d: %s", resp.StatusCode, b)
	}

	var result SignResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return SignResult{}, fmt.Errorf("decode inference response: %w", err)
	}
	return result, nil
}
