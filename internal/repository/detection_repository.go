package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"agroai-backend/internal/model"
)

type DetectionRepository struct {
	db *gorm.DB
}

func NewDetectionRepository(db *gorm.DB) *DetectionRepository {
	return &DetectionRepository{db: db}
}

func (r *DetectionRepository) Create(record *model.DiseaseDetection) error {
	if err := r.db.Create(record).Error; err != nil {
		return fmt.Errorf("create detection record failed: %w", err)
	}
	return nil
}

func (r *DetectionRepository) Update(record *model.DiseaseDetection) error {
	if err := r.db.Save(record).Error; err != nil {
		return fmt.Errorf("update detection record failed: %w", err)
	}
	return nil
}

func (r *DetectionRepository) GetByIDAndUserID(recordID, userID uint) (*model.DiseaseDetection, error) {
	var record model.DiseaseDetection
	if err := r.db.Where("id = ? AND user_id = ?", recordID, userID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get detection record failed: %w", err)
	}
	return &record, nil
}

// ListByUserID returns one page of the owner's detections, newest first,
// optionally filtered by status.
func (r *DetectionRepository) ListByUserID(userID uint, page, limit int, status string) ([]model.DiseaseDetection, Pagination, error) {
	page, limit = normalizePage(page, limit)

	query := r.db.Model(&model.DiseaseDetection{}).Where("user_id = ?", userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, Pagination{}, fmt.Errorf("count detection records failed: %w", err)
	}

	var records []model.DiseaseDetection
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, Pagination{}, fmt.Errorf("list detection records failed: %w", err)
	}

	return records, buildPagination(page, limit, total), nil
}

// StatusCount is one per-status bucket of the owner's detection history.
type StatusCount struct {
	Status        string  `json:"status"`
	Count         int64   `json:"count"`
	AvgConfidence float64 `json:"avgConfidence"`
}

func (r *DetectionRepository) StatusStats(userID uint) ([]StatusCount, error) {
	var buckets []StatusCount
	err := r.db.Model(&model.DiseaseDetection{}).
		Where("user_id = ?", userID).
		Select("status, COUNT(*) AS count, COALESCE(AVG(top_confidence), 0) AS avg_confidence").
		Group("status").
		Scan(&buckets).Error
	if err != nil {
		return nil, fmt.Errorf("aggregate detection stats failed: %w", err)
	}
	return buckets, nil
}

func (r *DetectionRepository) RecentByUserID(userID uint, limit int) ([]model.DiseaseDetection, error) {
	if limit <= 0 || limit > MaxPageSize {
		limit = DefaultPageSize
	}
	var records []model.DiseaseDetection
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list recent detections failed: %w", err)
	}
	return records, nil
}
