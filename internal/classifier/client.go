package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"agroai-backend/internal/model"
)

// Failure classes surfaced to the detection handler: an unreachable model
// service becomes 503, an upstream 400 (bad or corrupted image) becomes 400.
var (
	ErrUnavailable = errors.New("model service unavailable")
	ErrRejected    = errors.New("model service rejected the image")
)

// PredictResponse mirrors the model service's /predict payload.
type PredictResponse struct {
	Success        bool               `json:"success"`
	Predictions    []model.Prediction `json:"predictions"`
	ModelInfo      model.ModelInfo    `json:"model_info"`
	ProcessingTime float64            `json:"processing_time"`
}

// RecommendRequest is the payload for /get-recommendations.
type RecommendRequest struct {
	Disease    string  `json:"disease"`
	Confidence float64 `json:"confidence"`
	PlantType  string  `json:"plant_type"`
}

type recommendResponse struct {
	Success         bool                 `json:"success"`
	Recommendation  model.Recommendation `json:"recommendation"`
	ConfidenceLevel string               `json:"confidence_level"`
}

// Client talks to the external plant-disease model service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Predict streams the image to /predict as multipart form field "image".
func (c *Client) Predict(ctx context.Context, filename string, r io.Reader) (*PredictResponse, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return nil, fmt.Errorf("build multipart form failed: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("copy image into form failed: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart form failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", &body)
	if err != nil {
		return nil, fmt.Errorf("build predict request failed: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportErr(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read predict response failed: %w", err)
	}
	if resp.StatusCode == http.StatusBadRequest {
		return nil, fmt.Errorf("%w: %s", ErrRejected, string(raw))
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("predict status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed PredictResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse predict json failed: %w", err)
	}
	if !parsed.Success {
		return nil, fmt.Errorf("model prediction failed")
	}
	return &parsed, nil
}

// Recommend fetches treatment advice for the top prediction.
func (c *Client) Recommend(ctx context.Context, input RecommendRequest) (*model.Recommendation, error) {
	bodyBytes, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("marshal recommend request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/get-recommendations", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build recommend request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportErr(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read recommend response failed: %w", err)
	}
	if resp.StatusCode == http.StatusBadRequest {
		return nil, fmt.Errorf("%w: %s", ErrRejected, string(raw))
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("recommend status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed recommendResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse recommend json failed: %w", err)
	}
	return &parsed.Recommendation, nil
}

// classifyTransportErr maps connection refusals to ErrUnavailable. Timeouts
// stay generic: a slow service is not reported as down.
func classifyTransportErr(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("model service request timed out: %w", err)
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return fmt.Errorf("model service request failed: %w", err)
}
