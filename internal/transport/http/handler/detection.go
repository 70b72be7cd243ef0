package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"agroai-backend/internal/app"
	"agroai-backend/internal/classifier"
	"agroai-backend/internal/model"
	"agroai-backend/internal/transport/http/response"
	"agroai-backend/internal/upload"
)

type DetectionHandler struct {
	service    *app.DetectionService
	production bool
}

func NewDetectionHandler(service *app.DetectionService, production bool) *DetectionHandler {
	return &DetectionHandler{service: service, production: production}
}

// Process handles POST /api/processing: multipart form with "image" and
// "userId".
func (h *DetectionHandler) Process(c *gin.Context) {
	userID := formUint(c, "userId")
	if userID == 0 {
		response.Fail(c, http.StatusBadRequest, "User ID is required")
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "No image file provided")
		return
	}

	record, err := h.service.ProcessImage(c.Request.Context(), app.ProcessImageInput{
		UserID: userID,
		File:   file,
	})
	if err != nil {
		h.mapProcessError(c, err)
		return
	}

	response.OK(c, "Disease detection completed successfully", gin.H{
		"id":               record.ID,
		"predictions":      record.Predictions(),
		"topPrediction":    record.TopPrediction(),
		"aiRecommendation": record.Recommendation(),
		"processingTime":   record.ProcessingTimeMs,
		"modelInfo":        record.ModelInfo(),
		"createdAt":        record.CreatedAt,
	})
}

func (h *DetectionHandler) mapProcessError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, upload.ErrMissingFile):
		response.Fail(c, http.StatusBadRequest, "No image file provided")
	case errors.Is(err, upload.ErrTooLarge):
		response.Fail(c, http.StatusBadRequest, "Image too large (max 10MB)")
	case errors.Is(err, upload.ErrBadType):
		response.Fail(c, http.StatusBadRequest, "Invalid file type. Only JPEG, PNG, and WebP images are allowed.")
	case errors.Is(err, classifier.ErrUnavailable):
		response.FailWithCode(c, http.StatusServiceUnavailable,
			"AI model service is currently unavailable. Please try again later.",
			response.CodeServiceUnavailable)
	case errors.Is(err, classifier.ErrRejected):
		response.FailWithCode(c, http.StatusBadRequest,
			"Invalid image format or corrupted file",
			response.CodeInvalidImage)
	default:
		code := response.CodeInternalError
		if !h.production {
			code = err.Error()
		}
		response.FailWithCode(c, http.StatusInternalServerError,
			"An error occurred while processing your image", code)
	}
}

// History handles GET /api/processing/history/:userId?page&limit&status.
func (h *DetectionHandler) History(c *gin.Context) {
	userID := paramUint(c, "userId")
	if userID == 0 {
		response.Fail(c, http.StatusBadRequest, "User ID is required")
		return
	}

	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 10)
	status := c.Query("status")

	result, err := h.service.History(userID, page, limit, status)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "Failed to fetch detection history")
		return
	}

	response.OK(c, "Detection history retrieved successfully", gin.H{
		"records":    detectionSummaries(result.Records),
		"pagination": result.Pagination,
	})
}

type detectionSummary struct {
	ID               uint                  `json:"id"`
	TopPrediction    *model.Prediction     `json:"topPrediction,omitempty"`
	AIRecommendation *model.Recommendation `json:"aiRecommendation,omitempty"`
	Status           string                `json:"status"`
	OriginalFilename string                `json:"originalFilename"`
	ProcessingTime   int64                 `json:"processingTime"`
	CreatedAt        interface{}           `json:"createdAt"`
}

func detectionSummaries(records []model.DiseaseDetection) []detectionSummary {
	summaries := make([]detectionSummary, 0, len(records))
	for _, r := range records {
		summaries = append(summaries, detectionSummary{
			ID:               r.ID,
			TopPrediction:    r.TopPrediction(),
			AIRecommendation: r.Recommendation(),
			Status:           r.Status,
			OriginalFilename: r.OriginalFilename,
			ProcessingTime:   r.ProcessingTimeMs,
			CreatedAt:        r.CreatedAt,
		})
	}
	return summaries
}

// Details handles GET /api/processing/detection/:detectionId?userId=.
func (h *DetectionHandler) Details(c *gin.Context) {
	userID := queryUint(c, "userId")
	if userID == 0 {
		response.Fail(c, http.StatusBadRequest, "User ID is required")
		return
	}

	recordID64, err := strconv.ParseUint(c.Param("detectionId"), 10, 64)
	if err != nil || recordID64 == 0 {
		response.Fail(c, http.StatusBadRequest, "invalid detection id")
		return
	}

	record, err := h.service.Details(userID, uint(recordID64))
	if err != nil {
		if errors.Is(err, app.ErrRecordNotFound) {
			response.Fail(c, http.StatusNotFound, "Detection record not found")
			return
		}
		response.Fail(c, http.StatusInternalServerError, "Failed to fetch detection details")
		return
	}

	response.OK(c, "Detection details retrieved successfully", gin.H{
		"id":               record.ID,
		"originalFilename": record.OriginalFilename,
		"predictions":      record.Predictions(),
		"topPrediction":    record.TopPrediction(),
		"aiRecommendation": record.Recommendation(),
		"modelInfo":        record.ModelInfo(),
		"status":           record.Status,
		"processingTime":   record.ProcessingTimeMs,
		"createdAt":        record.CreatedAt,
	})
}

// Stats handles GET /api/processing/stats/:userId.
func (h *DetectionHandler) Stats(c *gin.Context) {
	userID := paramUint(c, "userId")
	if userID == 0 {
		response.Fail(c, http.StatusBadRequest, "User ID is required")
		return
	}

	stats, err := h.service.Stats(userID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "Failed to fetch user statistics")
		return
	}

	response.OK(c, "User statistics retrieved successfully", gin.H{
		"totalDetections":      stats.TotalDetections,
		"successfulDetections": stats.SuccessfulDetections,
		"successRate":          stats.SuccessRate,
		"averageConfidence":    stats.AverageConfidence,
		"recentPredictions":    detectionSummaries(stats.RecentPredictions),
	})
}

func formUint(c *gin.Context, key string) uint {
	parsed, err := strconv.ParseUint(c.PostForm(key), 10, 64)
	if err != nil {
		return 0
	}
	return uint(parsed)
}

func paramUint(c *gin.Context, key string) uint {
	parsed, err := strconv.ParseUint(c.Param(key), 10, 64)
	if err != nil {
		return 0
	}
	return uint(parsed)
}

func queryUint(c *gin.Context, key string) uint {
	parsed, err := strconv.ParseUint(c.Query(key), 10, 64)
	if err != nil {
		return 0
	}
	return uint(parsed)
}
