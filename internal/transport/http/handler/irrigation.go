package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"agroai-backend/internal/ai"
	"agroai-backend/internal/app"
	"agroai-backend/internal/model"
	"agroai-backend/internal/transport/http/middleware"
	"agroai-backend/internal/transport/http/response"
)

type IrrigationHandler struct {
	service    *app.IrrigationService
	production bool
}

func NewIrrigationHandler(service *app.IrrigationService, production bool) *IrrigationHandler {
	return &IrrigationHandler{service: service, production: production}
}

type weatherRequest struct {
	Temp      *float64 `json:"temp"`
	Humidity  *float64 `json:"humidity"`
	Wind      *float64 `json:"wind"`
	Precip    *float64 `json:"precip"`
	Condition string   `json:"condition"`
	City      string   `json:"city"`
}

type adviceRequest struct {
	Location       string          `json:"location"`
	CropType       string          `json:"cropType"`
	SoilType       string          `json:"soilType"`
	PlantingDate   string          `json:"plantingDate"`
	LastIrrigation string          `json:"lastIrrigation"`
	WeatherData    *weatherRequest `json:"weatherData"`
}

// GenerateAdvice handles POST /api/irrigation.
func (h *IrrigationHandler) GenerateAdvice(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Fail(c, http.StatusBadRequest, "User ID is required")
		return
	}

	var req adviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid request payload")
		return
	}

	var weather *model.WeatherSnapshot
	if req.WeatherData != nil {
		weather = &model.WeatherSnapshot{
			Temp:      req.WeatherData.Temp,
			Humidity:  req.WeatherData.Humidity,
			Wind:      req.WeatherData.Wind,
			Precip:    req.WeatherData.Precip,
			Condition: req.WeatherData.Condition,
			City:      req.WeatherData.City,
		}
	}

	record, err := h.service.GenerateAdvice(c.Request.Context(), app.GenerateAdviceInput{
		UserID:         userID,
		Location:       req.Location,
		CropType:       req.CropType,
		SoilType:       req.SoilType,
		PlantingDate:   req.PlantingDate,
		LastIrrigation: req.LastIrrigation,
		Weather:        weather,
	})
	if err != nil {
		h.mapAdviceError(c, err)
		return
	}

	response.OK(c, "Irrigation advice generated successfully", gin.H{
		"id":             record.ID,
		"location":       record.Location,
		"cropType":       record.CropType,
		"soilType":       record.SoilType,
		"advice":         record.Advice(),
		"processingTime": record.ProcessingTimeMs,
		"generatedAt":    record.CreatedAt,
		"weatherData":    record.WeatherSnapshot(),
	})
}

func (h *IrrigationHandler) mapAdviceError(c *gin.Context, err error) {
	if ve, ok := app.AsValidationError(err); ok {
		response.FailValidation(c, "Invalid input data", ve.Fields)
		return
	}
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Fail(c, http.StatusBadRequest, "User ID is required")
	case errors.Is(err, app.ErrAPIKeyMissing):
		response.Fail(c, http.StatusInternalServerError, "OpenAI API key is not configured")
	case errors.Is(err, ai.ErrAuth):
		response.Fail(c, http.StatusUnauthorized, "Invalid OpenAI API key")
	case errors.Is(err, ai.ErrRateLimited):
		response.Fail(c, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
	default:
		response.Fail(c, http.StatusInternalServerError, h.internalMessage(err, "Failed to generate irrigation advice"))
	}
}

// internalMessage hides raw upstream errors in production.
func (h *IrrigationHandler) internalMessage(err error, generic string) string {
	if h.production {
		return generic
	}
	return err.Error()
}

// History handles GET /api/irrigation/history?page&limit.
func (h *IrrigationHandler) History(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Fail(c, http.StatusBadRequest, "User ID is required")
		return
	}

	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 10)

	result, err := h.service.History(c.Request.Context(), userID, page, limit)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, h.internalMessage(err, "Failed to retrieve irrigation history"))
		return
	}

	response.OK(c, "Irrigation history retrieved successfully", gin.H{
		"records":    historySummaries(result.Records),
		"pagination": result.Pagination,
	})
}

type irrigationSummary struct {
	ID             uint               `json:"id"`
	Location       string             `json:"location"`
	CropType       string             `json:"cropType"`
	SoilType       string             `json:"soilType"`
	Status         string             `json:"status"`
	Advice         model.AdviceFields `json:"advice"`
	ProcessingTime int64              `json:"processingTime"`
	CreatedAt      time.Time          `json:"createdAt"`
}

func historySummaries(records []model.IrrigationAdvice) []irrigationSummary {
	summaries := make([]irrigationSummary, 0, len(records))
	for _, r := range records {
		summaries = append(summaries, irrigationSummary{
			ID:             r.ID,
			Location:       r.Location,
			CropType:       r.CropType,
			SoilType:       r.SoilType,
			Status:         r.Status,
			Advice:         r.Advice(),
			ProcessingTime: r.ProcessingTimeMs,
			CreatedAt:      r.CreatedAt,
		})
	}
	return summaries
}

// Details handles GET /api/irrigation/details/:irrigationId.
func (h *IrrigationHandler) Details(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Fail(c, http.StatusBadRequest, "User ID is required")
		return
	}

	recordID64, err := strconv.ParseUint(c.Param("irrigationId"), 10, 64)
	if err != nil || recordID64 == 0 {
		response.Fail(c, http.StatusBadRequest, "invalid irrigation id")
		return
	}

	record, err := h.service.Details(userID, uint(recordID64))
	if err != nil {
		if errors.Is(err, app.ErrRecordNotFound) {
			response.Fail(c, http.StatusNotFound, "Irrigation record not found")
			return
		}
		response.Fail(c, http.StatusInternalServerError, h.internalMessage(err, "Failed to retrieve irrigation details"))
		return
	}

	response.OK(c, "Irrigation details retrieved successfully", gin.H{
		"id":             record.ID,
		"location":       record.Location,
		"cropType":       record.CropType,
		"soilType":       record.SoilType,
		"plantingDate":   record.PlantingDate,
		"lastIrrigation": record.LastIrrigation,
		"weatherData":    record.WeatherSnapshot(),
		"advice":         record.Advice(),
		"status":         record.Status,
		"processingTime": record.ProcessingTimeMs,
		"createdAt":      record.CreatedAt,
	})
}

// Stats handles GET /api/irrigation/stats.
func (h *IrrigationHandler) Stats(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Fail(c, http.StatusBadRequest, "User ID is required")
		return
	}

	stats, err := h.service.Stats(userID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, h.internalMessage(err, "Failed to retrieve irrigation statistics"))
		return
	}

	response.OK(c, "Irrigation statistics retrieved successfully", stats)
}

func getUserIDFromContext(c *gin.Context) (uint, bool) {
	userIDAny, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}
	userID, ok := userIDAny.(uint)
	return userID, ok && userID != 0
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
