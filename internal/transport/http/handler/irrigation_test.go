package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"agroai-backend/internal/ai"
	"agroai-backend/internal/app"
	"agroai-backend/internal/model"
	"agroai-backend/internal/repository"
	"agroai-backend/internal/transport/http/middleware"
	"agroai-backend/internal/transport/http/response"
)

type scriptedCompleter struct {
	response string
	err      error
}

func (s *scriptedCompleter) Complete(context.Context, ai.ChatConfig, []ai.ChatMessage) (string, error) {
	return s.response, s.err
}

func newHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.IrrigationAdvice{}, &model.DiseaseDetection{}))
	return db
}

func irrigationRouter(t *testing.T, completer app.Completer, apiKey string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newHandlerDB(t)
	service := app.NewIrrigationService(
		repository.NewIrrigationRepository(db),
		completer,
		nil,
		nil,
		ai.ChatConfig{APIKey: apiKey, Model: "gpt-3.5-turbo"},
	)
	h := NewIrrigationHandler(service, false)

	router := gin.New()
	asUser := func(userID uint) gin.HandlerFunc {
		return func(c *gin.Context) {
			c.Set(middleware.ContextUserIDKey, userID)
		}
	}
	router.POST("/api/irrigation", asUser(1), h.GenerateAdvice)
	router.GET("/api/irrigation/history", asUser(1), h.History)
	router.GET("/api/irrigation/details/:irrigationId", asUser(1), h.Details)
	router.GET("/api/irrigation/stats", asUser(1), h.Stats)
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, payload interface{}) (*httptest.ResponseRecorder, response.Envelope) {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return w, envelope
}

func getJSON(t *testing.T, router *gin.Engine, path string) (*httptest.ResponseRecorder, response.Envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return w, envelope
}

func validAdvicePayload() map[string]interface{} {
	return map[string]interface{}{
		"location": "Pune",
		"cropType": "Wheat",
		"soilType": "Loam",
		"weatherData": map[string]interface{}{
			"temp":      31.5,
			"humidity":  60,
			"condition": "Clear",
		},
	}
}

func TestGenerateAdviceEndpoint_Success(t *testing.T) {
	completer := &scriptedCompleter{
		response: "**Irrigation Recommendation: Water every 4 days.**" +
			"**Fertilization Advice: Urea at tillering.**" +
			"**Pest & Disease Control: Scout weekly.**" +
			"**Additional Tips: Mulch rows.**",
	}
	router := irrigationRouter(t, completer, "sk-test")

	w, envelope := postJSON(t, router, "/api/irrigation", validAdvicePayload())

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, envelope.Success)
	assert.Equal(t, "Irrigation advice generated successfully", envelope.Message)

	data := envelope.Data.(map[string]interface{})
	advice := data["advice"].(map[string]interface{})
	assert.Equal(t, "Water every 4 days.", advice["irrigation"])
	assert.Equal(t, "Urea at tillering.", advice["fertilization"])
}

func TestGenerateAdviceEndpoint_ErrorMapping(t *testing.T) {
	t.Run("validation failure", func(t *testing.T) {
		router := irrigationRouter(t, &scriptedCompleter{}, "sk-test")
		payload := validAdvicePayload()
		payload["soilType"] = "Muddy"

		w, envelope := postJSON(t, router, "/api/irrigation", payload)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.False(t, envelope.Success)
		assert.Equal(t, "Invalid input data", envelope.Message)
		assert.Contains(t, envelope.Errors, "soil type must be one of Loam, Clay, Sandy, Silt")
	})

	t.Run("missing api key", func(t *testing.T) {
		router := irrigationRouter(t, &scriptedCompleter{}, "")

		w, envelope := postJSON(t, router, "/api/irrigation", validAdvicePayload())

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "OpenAI API key is not configured", envelope.Message)
	})

	t.Run("rejected api key", func(t *testing.T) {
		router := irrigationRouter(t, &scriptedCompleter{err: ai.ErrAuth}, "sk-test")

		w, envelope := postJSON(t, router, "/api/irrigation", validAdvicePayload())

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Invalid OpenAI API key", envelope.Message)
	})

	t.Run("rate limited", func(t *testing.T) {
		router := irrigationRouter(t, &scriptedCompleter{err: ai.ErrRateLimited}, "sk-test")

		w, envelope := postJSON(t, router, "/api/irrigation", validAdvicePayload())

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "Rate limit exceeded. Please try again later.", envelope.Message)
	})
}

func TestIrrigationHistoryEndpoint(t *testing.T) {
	completer := &scriptedCompleter{response: "**Irrigation Recommendation: Water daily.**"}
	router := irrigationRouter(t, completer, "sk-test")

	_, created := postJSON(t, router, "/api/irrigation", validAdvicePayload())
	require.True(t, created.Success)

	w, envelope := getJSON(t, router, "/api/irrigation/history?page=1&limit=10")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, envelope.Success)

	data := envelope.Data.(map[string]interface{})
	records := data["records"].([]interface{})
	require.Len(t, records, 1)
	pagination := data["pagination"].(map[string]interface{})
	assert.Equal(t, float64(1), pagination["totalRecords"])
}

func TestIrrigationDetailsEndpoint_NotFound(t *testing.T) {
	router := irrigationRouter(t, &scriptedCompleter{}, "sk-test")

	w, envelope := getJSON(t, router, "/api/irrigation/details/999")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Irrigation record not found", envelope.Message)
}
