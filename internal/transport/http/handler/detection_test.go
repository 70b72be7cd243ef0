package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agroai-backend/internal/app"
	"agroai-backend/internal/classifier"
	"agroai-backend/internal/model"
	"agroai-backend/internal/repository"
	"agroai-backend/internal/transport/http/response"
	"agroai-backend/internal/upload"
)

type scriptedModelService struct {
	predictResp   *classifier.PredictResponse
	predictErr    error
	recommendResp *model.Recommendation
	recommendErr  error
}

func (s *scriptedModelService) Predict(_ context.Context, _ string, r io.Reader) (*classifier.PredictResponse, error) {
	_, _ = io.Copy(io.Discard, r)
	return s.predictResp, s.predictErr
}

func (s *scriptedModelService) Recommend(context.Context, classifier.RecommendRequest) (*model.Recommendation, error) {
	return s.recommendResp, s.recommendErr
}

func detectionRouter(t *testing.T, models app.ModelService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newHandlerDB(t)
	service := app.NewDetectionService(
		repository.NewDetectionRepository(db),
		models,
		upload.NewStore(t.TempDir(), 10),
		nil,
	)
	h := NewDetectionHandler(service, false)

	router := gin.New()
	router.POST("/api/processing", h.Process)
	router.GET("/api/processing/history/:userId", h.History)
	router.GET("/api/processing/detection/:detectionId", h.Details)
	router.GET("/api/processing/stats/:userId", h.Stats)
	return router
}

func postImage(t *testing.T, router *gin.Engine, userID, filename string) (*httptest.ResponseRecorder, response.Envelope) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if userID != "" {
		require.NoError(t, writer.WriteField("userId", userID))
	}
	if filename != "" {
		part, err := writer.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte("fake-image-bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/processing", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return w, envelope
}

func scriptedHealthyModels() *scriptedModelService {
	return &scriptedModelService{
		predictResp: &classifier.PredictResponse{
			Success: true,
			Predictions: []model.Prediction{
				{Disease: "Tomato - Early blight", Confidence: 92.4, ClassID: 7},
			},
			ModelInfo: model.ModelInfo{Classes: 38, ModelVersion: "2.1.0"},
		},
		recommendResp: &model.Recommendation{Treatment: "Apply copper fungicide."},
	}
}

func TestProcessEndpoint_Success(t *testing.T) {
	router := detectionRouter(t, scriptedHealthyModels())

	w, envelope := postImage(t, router, "1", "leaf.jpg")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, envelope.Success)
	assert.Equal(t, "Disease detection completed successfully", envelope.Message)

	data := envelope.Data.(map[string]interface{})
	top := data["topPrediction"].(map[string]interface{})
	assert.Equal(t, "Tomato - Early blight", top["disease"])
	rec := data["aiRecommendation"].(map[string]interface{})
	assert.Equal(t, "Apply copper fungicide.", rec["treatment"])
}

func TestProcessEndpoint_ErrorMapping(t *testing.T) {
	t.Run("missing user id", func(t *testing.T) {
		router := detectionRouter(t, scriptedHealthyModels())
		w, envelope := postImage(t, router, "", "leaf.jpg")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "User ID is required", envelope.Message)
	})

	t.Run("missing image", func(t *testing.T) {
		router := detectionRouter(t, scriptedHealthyModels())
		w, envelope := postImage(t, router, "1", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "No image file provided", envelope.Message)
	})

	t.Run("bad file type", func(t *testing.T) {
		router := detectionRouter(t, scriptedHealthyModels())
		w, envelope := postImage(t, router, "1", "notes.txt")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid file type. Only JPEG, PNG, and WebP images are allowed.", envelope.Message)
	})

	t.Run("model service unreachable", func(t *testing.T) {
		router := detectionRouter(t, &scriptedModelService{predictErr: classifier.ErrUnavailable})
		w, envelope := postImage(t, router, "1", "leaf.jpg")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, response.CodeServiceUnavailable, envelope.Error)
	})

	t.Run("image rejected upstream", func(t *testing.T) {
		router := detectionRouter(t, &scriptedModelService{predictErr: classifier.ErrRejected})
		w, envelope := postImage(t, router, "1", "leaf.jpg")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, response.CodeInvalidImage, envelope.Error)
		assert.Equal(t, "Invalid image format or corrupted file", envelope.Message)
	})
}

func TestDetectionHistoryAndStatsEndpoints(t *testing.T) {
	router := detectionRouter(t, scriptedHealthyModels())

	_, created := postImage(t, router, "1", "leaf.jpg")
	require.True(t, created.Success)

	t.Run("history", func(t *testing.T) {
		w, envelope := getJSON(t, router, "/api/processing/history/1")
		assert.Equal(t, http.StatusOK, w.Code)

		data := envelope.Data.(map[string]interface{})
		records := data["records"].([]interface{})
		require.Len(t, records, 1)
	})

	t.Run("history for unknown user is empty", func(t *testing.T) {
		w, envelope := getJSON(t, router, "/api/processing/history/42")
		assert.Equal(t, http.StatusOK, w.Code)

		data := envelope.Data.(map[string]interface{})
		records := data["records"].([]interface{})
		assert.Empty(t, records)
	})

	t.Run("stats", func(t *testing.T) {
		w, envelope := getJSON(t, router, "/api/processing/stats/1")
		assert.Equal(t, http.StatusOK, w.Code)

		data := envelope.Data.(map[string]interface{})
		assert.Equal(t, float64(1), data["totalDetections"])
		assert.Equal(t, float64(100), data["successRate"])
	})

	t.Run("details requires userId query", func(t *testing.T) {
		w, envelope := getJSON(t, router, "/api/processing/detection/1")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "User ID is required", envelope.Message)
	})

	t.Run("details", func(t *testing.T) {
		w, envelope := getJSON(t, router, "/api/processing/detection/1?userId=1")
		assert.Equal(t, http.StatusOK, w.Code)

		data := envelope.Data.(map[string]interface{})
		assert.Equal(t, "leaf.jpg", data["originalFilename"])
	})
}
