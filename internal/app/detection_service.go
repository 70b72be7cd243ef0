package app

import (
	"context"
	"io"
	"log"
	"math"
	"mime/multipart"
	"os"
	"time"

	"agroai-backend/internal/advice"
	"agroai-backend/internal/classifier"
	"agroai-backend/internal/model"
	"agroai-backend/internal/repository"
	"agroai-backend/internal/upload"
)

// ModelService is the external classifier the detection flow depends on;
// tests substitute a fake.
type ModelService interface {
	Predict(ctx context.Context, filename string, r io.Reader) (*classifier.PredictResponse, error)
	Recommend(ctx context.Context, input classifier.RecommendRequest) (*model.Recommendation, error)
}

type DetectionService struct {
	repo      *repository.DetectionRepository
	models    ModelService
	store     *upload.Store
	publisher AuditPublisher
}

func NewDetectionService(
	repo *repository.DetectionRepository,
	models ModelService,
	store *upload.Store,
	publisher AuditPublisher,
) *DetectionService {
	return &DetectionService{
		repo:      repo,
		models:    models,
		store:     store,
		publisher: publisher,
	}
}

type ProcessImageInput struct {
	UserID uint
	File   *multipart.FileHeader
}

// ProcessImage runs the detection flow: store the upload, create a
// processing record, classify, derive the plant type, fetch the
// recommendation, mark completed. The record is created before any external
// call so orphaned uploads stay traceable; on failure the record is marked
// failed and the stored file is deleted.
func (s *DetectionService) ProcessImage(ctx context.Context, input ProcessImageInput) (*model.DiseaseDetection, error) {
	start := time.Now()

	if input.UserID == 0 {
		return nil, ErrInvalidInput
	}
	if input.File == nil {
		return nil, upload.ErrMissingFile
	}

	path, err := s.store.Save(input.File)
	if err != nil {
		return nil, err
	}

	record := &model.DiseaseDetection{
		UserID:           input.UserID,
		ImagePath:        path,
		OriginalFilename: input.File.Filename,
		Status:           model.StatusProcessing,
	}
	if err := s.repo.Create(record); err != nil {
		_ = s.store.Remove(path)
		return nil, err
	}

	result, err := s.classify(ctx, record)
	if err != nil {
		s.markFailed(ctx, record, start)
		return nil, err
	}

	record.SetPredictions(result.predictions)
	record.SetTopPrediction(result.top)
	record.SetRecommendation(result.recommendation)
	record.SetModelInfo(&result.modelInfo)
	record.Status = model.StatusCompleted
	record.ProcessingTimeMs = time.Since(start).Milliseconds()
	if err := s.repo.Update(record); err != nil {
		s.markFailed(ctx, record, start)
		return nil, err
	}

	s.publishAudit(ctx, record)
	return record, nil
}

type classifyResult struct {
	predictions    []model.Prediction
	top            model.Prediction
	recommendation *model.Recommendation
	modelInfo      model.ModelInfo
}

func (s *DetectionService) classify(ctx context.Context, record *model.DiseaseDetection) (*classifyResult, error) {
	f, err := os.Open(record.ImagePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	predicted, err := s.models.Predict(ctx, record.OriginalFilename, f)
	if err != nil {
		return nil, err
	}
	if len(predicted.Predictions) == 0 {
		return nil, ErrNoPredictions
	}

	// First prediction is the highest confidence one.
	top := predicted.Predictions[0]

	recommendation, err := s.models.Recommend(ctx, classifier.RecommendRequest{
		Disease:    top.Disease,
		Confidence: top.Confidence,
		PlantType:  advice.ExtractPlantType(top.Disease),
	})
	if err != nil {
		return nil, err
	}

	return &classifyResult{
		predictions:    predicted.Predictions,
		top:            top,
		recommendation: recommendation,
		modelInfo:      predicted.ModelInfo,
	}, nil
}

// markFailed is the detection flow's log-and-ignore site: the original error
// decides the response, secondary save/cleanup failures are only logged. The
// stored file is removed because failed records keep no usable payload.
func (s *DetectionService) markFailed(ctx context.Context, record *model.DiseaseDetection, start time.Time) {
	record.Status = model.StatusFailed
	record.ProcessingTimeMs = time.Since(start).Milliseconds()
	if err := s.repo.Update(record); err != nil {
		log.Printf("save failed detection record %d: %v", record.ID, err)
	}
	if err := s.store.Remove(record.ImagePath); err != nil {
		log.Printf("cleanup uploaded file %s: %v", record.ImagePath, err)
	}
	s.publishAudit(ctx, record)
}

func (s *DetectionService) publishAudit(ctx context.Context, record *model.DiseaseDetection) {
	if s.publisher == nil {
		return
	}
	event := model.AuditEvent{
		UserID:   record.UserID,
		Feature:  model.FeatureDetection,
		RecordID: record.ID,
		Status:   record.Status,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Printf("publish detection audit event failed: %v", err)
	}
}

// DetectionHistoryPage is one page of detection history.
type DetectionHistoryPage struct {
	Records    []model.DiseaseDetection `json:"records"`
	Pagination repository.Pagination    `json:"pagination"`
}

func (s *DetectionService) History(userID uint, page, limit int, status string) (*DetectionHistoryPage, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	records, pagination, err := s.repo.ListByUserID(userID, page, limit, status)
	if err != nil {
		return nil, err
	}
	return &DetectionHistoryPage{Records: records, Pagination: pagination}, nil
}

func (s *DetectionService) Details(userID, recordID uint) (*model.DiseaseDetection, error) {
	if userID == 0 || recordID == 0 {
		return nil, ErrInvalidInput
	}
	record, err := s.repo.GetByIDAndUserID(recordID, userID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrRecordNotFound
	}
	return record, nil
}

// DetectionStats summarizes the owner's detection history.
type DetectionStats struct {
	TotalDetections      int64                    `json:"totalDetections"`
	SuccessfulDetections int64                    `json:"successfulDetections"`
	SuccessRate          float64                  `json:"successRate"`
	AverageConfidence    float64                  `json:"averageConfidence"`
	RecentPredictions    []model.DiseaseDetection `json:"recentPredictions"`
}

func (s *DetectionService) Stats(userID uint) (*DetectionStats, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}

	buckets, err := s.repo.StatusStats(userID)
	if err != nil {
		return nil, err
	}
	recent, err := s.repo.RecentByUserID(userID, 5)
	if err != nil {
		return nil, err
	}

	stats := &DetectionStats{RecentPredictions: recent}
	for _, bucket := range buckets {
		stats.TotalDetections += bucket.Count
		if bucket.Status == model.StatusCompleted {
			stats.SuccessfulDetections = bucket.Count
			stats.AverageConfidence = round1(bucket.AvgConfidence)
		}
	}
	if stats.TotalDetections > 0 {
		stats.SuccessRate = round1(float64(stats.SuccessfulDetections) / float64(stats.TotalDetections) * 100)
	}
	return stats, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
