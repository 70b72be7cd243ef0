package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-playground/validator/v10"

	"agroai-backend/internal/advice"
	"agroai-backend/internal/ai"
	"agroai-backend/internal/model"
	"agroai-backend/internal/repository"
)

// Completer is the LLM call the service depends on; tests substitute a fake.
type Completer interface {
	Complete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage) (string, error)
}

// AuditPublisher pushes terminal transitions to the audit queue. Best-effort:
// a publish failure never fails the request.
type AuditPublisher interface {
	Publish(ctx context.Context, event model.AuditEvent) error
}

// HistoryPageCache is the Redis-backed page cache; nil disables caching.
type HistoryPageCache interface {
	GetPage(ctx context.Context, userID uint, page, limit int, out interface{}) (bool, error)
	SetPage(ctx context.Context, userID uint, page, limit int, payload interface{}) error
	DeletePages(ctx context.Context, userID uint) error
	MarkDirty(ctx context.Context, userID uint) error
	IsDirty(ctx context.Context, userID uint) (bool, error)
}

type IrrigationService struct {
	repo         *repository.IrrigationRepository
	completer    Completer
	publisher    AuditPublisher
	historyCache HistoryPageCache
	llm          ai.ChatConfig
	validate     *validator.Validate
}

func NewIrrigationService(
	repo *repository.IrrigationRepository,
	completer Completer,
	publisher AuditPublisher,
	historyCache HistoryPageCache,
	llm ai.ChatConfig,
) *IrrigationService {
	return &IrrigationService{
		repo:         repo,
		completer:    completer,
		publisher:    publisher,
		historyCache: historyCache,
		llm:          llm,
		validate:     validator.New(),
	}
}

// GenerateAdviceInput is the full request field set; optional fields default
// to empty and are substituted with placeholders at prompt time.
type GenerateAdviceInput struct {
	UserID         uint
	Location       string
	CropType       string
	SoilType       string
	PlantingDate   string
	LastIrrigation string
	Weather        *model.WeatherSnapshot
}

type irrigationSchema struct {
	Location string `validate:"required,min=1"`
	CropType string `validate:"required,min=1"`
	SoilType string `validate:"required,oneof=Loam Clay Sandy Silt"`
}

// GenerateAdvice runs the full irrigation flow: validate, create a pending
// record, render the prompt, call the model, parse, mark completed. Failures
// after record creation leave the record failed, never pending.
func (s *IrrigationService) GenerateAdvice(ctx context.Context, input GenerateAdviceInput) (*model.IrrigationAdvice, error) {
	start := time.Now()

	if input.UserID == 0 {
		return nil, ErrInvalidInput
	}
	if err := s.validateInput(input); err != nil {
		return nil, err
	}
	// Configuration precondition, not a per-request failure: checked before
	// any record exists.
	if s.llm.APIKey == "" {
		return nil, ErrAPIKeyMissing
	}

	record := &model.IrrigationAdvice{
		UserID:         input.UserID,
		Location:       input.Location,
		CropType:       input.CropType,
		SoilType:       input.SoilType,
		PlantingDate:   input.PlantingDate,
		LastIrrigation: input.LastIrrigation,
		Status:         model.StatusPending,
	}
	record.SetWeather(input.Weather)
	if err := s.repo.Create(record); err != nil {
		return nil, err
	}

	prompt := advice.RenderPrompt(advice.PromptInput{
		Location:       input.Location,
		CropType:       input.CropType,
		SoilType:       input.SoilType,
		PlantingDate:   input.PlantingDate,
		LastIrrigation: input.LastIrrigation,
		Weather:        input.Weather,
	})

	raw, err := s.completer.Complete(ctx, s.llm, []ai.ChatMessage{
		{Role: "user", Content: prompt},
	})
	if err != nil {
		s.markFailed(ctx, record, start)
		return nil, err
	}

	record.SetAdvice(advice.ParseResponse(raw))
	record.Status = model.StatusCompleted
	record.ProcessingTimeMs = time.Since(start).Milliseconds()
	if err := s.repo.Update(record); err != nil {
		s.markFailed(ctx, record, start)
		return nil, err
	}

	s.afterWrite(ctx, record)
	return record, nil
}

func (s *IrrigationService) validateInput(input GenerateAdviceInput) error {
	err := s.validate.Struct(irrigationSchema{
		Location: input.Location,
		CropType: input.CropType,
		SoilType: input.SoilType,
	})
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("validate irrigation input failed: %w", err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Field() {
		case "Location":
			fields = append(fields, "location is required")
		case "CropType":
			fields = append(fields, "crop type is required")
		case "SoilType":
			fields = append(fields, "soil type must be one of Loam, Clay, Sandy, Silt")
		default:
			fields = append(fields, fe.Field()+" is invalid")
		}
	}
	return &ValidationError{Fields: fields}
}

// markFailed is the one intentional log-and-ignore site: a secondary failure
// while saving the failure state must not mask the original error.
func (s *IrrigationService) markFailed(ctx context.Context, record *model.IrrigationAdvice, start time.Time) {
	record.Status = model.StatusFailed
	record.ProcessingTimeMs = time.Since(start).Milliseconds()
	if err := s.repo.Update(record); err != nil {
		log.Printf("save failed irrigation record %d: %v", record.ID, err)
	}
	s.afterWrite(ctx, record)
}

func (s *IrrigationService) afterWrite(ctx context.Context, record *model.IrrigationAdvice) {
	if s.publisher != nil {
		event := model.AuditEvent{
			UserID:   record.UserID,
			Feature:  model.FeatureIrrigation,
			RecordID: record.ID,
			Status:   record.Status,
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			log.Printf("publish irrigation audit event failed: %v", err)
		}
	}
	if s.historyCache != nil {
		if err := s.historyCache.DeletePages(ctx, record.UserID); err != nil {
			log.Printf("delete cached irrigation history failed: %v", err)
		}
		if err := s.historyCache.MarkDirty(ctx, record.UserID); err != nil {
			log.Printf("mark irrigation history dirty failed: %v", err)
		}
	}
}

// HistoryPage is one page of irrigation history.
type HistoryPage struct {
	Records    []model.IrrigationAdvice `json:"records"`
	Pagination repository.Pagination    `json:"pagination"`
}

// cachedHistoryRecord is the cache payload shape. The model keeps its advice
// and weather columns out of JSON responses (json:"-"), so caching the model
// directly would drop them on the round trip; this DTO serializes every field
// a cache hit must reproduce.
type cachedHistoryRecord struct {
	ID               uint                   `json:"id"`
	UserID           uint                   `json:"user_id"`
	Location         string                 `json:"location"`
	CropType         string                 `json:"crop_type"`
	SoilType         string                 `json:"soil_type"`
	PlantingDate     string                 `json:"planting_date,omitempty"`
	LastIrrigation   string                 `json:"last_irrigation,omitempty"`
	Weather          *model.WeatherSnapshot `json:"weather,omitempty"`
	Advice           model.AdviceFields     `json:"advice"`
	Status           string                 `json:"status"`
	ProcessingTimeMs int64                  `json:"processing_time_ms"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

type cachedHistoryPage struct {
	Records    []cachedHistoryRecord `json:"records"`
	Pagination repository.Pagination `json:"pagination"`
}

func toCachedPage(page *HistoryPage) *cachedHistoryPage {
	records := make([]cachedHistoryRecord, 0, len(page.Records))
	for _, r := range page.Records {
		records = append(records, cachedHistoryRecord{
			ID:               r.ID,
			UserID:           r.UserID,
			Location:         r.Location,
			CropType:         r.CropType,
			SoilType:         r.SoilType,
			PlantingDate:     r.PlantingDate,
			LastIrrigation:   r.LastIrrigation,
			Weather:          r.WeatherSnapshot(),
			Advice:           r.Advice(),
			Status:           r.Status,
			ProcessingTimeMs: r.ProcessingTimeMs,
			CreatedAt:        r.CreatedAt,
			UpdatedAt:        r.UpdatedAt,
		})
	}
	return &cachedHistoryPage{Records: records, Pagination: page.Pagination}
}

func fromCachedPage(page *cachedHistoryPage) *HistoryPage {
	records := make([]model.IrrigationAdvice, 0, len(page.Records))
	for _, c := range page.Records {
		record := model.IrrigationAdvice{
			ID:               c.ID,
			UserID:           c.UserID,
			Location:         c.Location,
			CropType:         c.CropType,
			SoilType:         c.SoilType,
			PlantingDate:     c.PlantingDate,
			LastIrrigation:   c.LastIrrigation,
			Status:           c.Status,
			ProcessingTimeMs: c.ProcessingTimeMs,
			CreatedAt:        c.CreatedAt,
			UpdatedAt:        c.UpdatedAt,
		}
		record.SetWeather(c.Weather)
		record.SetAdvice(c.Advice)
		records = append(records, record)
	}
	return &HistoryPage{Records: records, Pagination: page.Pagination}
}

func (s *IrrigationService) History(ctx context.Context, userID uint, page, limit int) (*HistoryPage, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}

	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, userID)
		if err == nil && !dirty {
			var cached cachedHistoryPage
			if hit, cacheErr := s.historyCache.GetPage(ctx, userID, page, limit, &cached); cacheErr == nil && hit {
				return fromCachedPage(&cached), nil
			}
		}
	}

	records, pagination, err := s.repo.ListByUserID(userID, page, limit)
	if err != nil {
		return nil, err
	}
	result := &HistoryPage{Records: records, Pagination: pagination}

	if s.historyCache != nil {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, userID); dirtyErr == nil && !dirty {
			_ = s.historyCache.SetPage(ctx, userID, page, limit, toCachedPage(result))
		}
	}
	return result, nil
}

func (s *IrrigationService) Details(userID, recordID uint) (*model.IrrigationAdvice, error) {
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

func (s *IrrigationService) Stats(userID uint) (*repository.IrrigationStats, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.repo.Stats(userID)
}
