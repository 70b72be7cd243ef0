package repository

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	"agroai-backend/internal/model"
)

type IrrigationRepository struct {
	db *gorm.DB
}

func NewIrrigationRepository(db *gorm.DB) *IrrigationRepository {
	return &IrrigationRepository{db: db}
}

func (r *IrrigationRepository) Create(record *model.IrrigationAdvice) error {
	if err := r.db.Create(record).Error; err != nil {
		return fmt.Errorf("create irrigation record failed: %w", err)
	}
	return nil
}

func (r *IrrigationRepository) Update(record *model.IrrigationAdvice) error {
	if err := r.db.Save(record).Error; err != nil {
		return fmt.Errorf("update irrigation record failed: %w", err)
	}
	return nil
}

func (r *IrrigationRepository) GetByIDAndUserID(recordID, userID uint) (*model.IrrigationAdvice, error) {
	var record model.IrrigationAdvice
	if err := r.db.Where("id = ? AND user_id = ?", recordID, userID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get irrigation record failed: %w", err)
	}
	return &record, nil
}

// ListByUserID returns one page of the owner's records, newest first.
func (r *IrrigationRepository) ListByUserID(userID uint, page, limit int) ([]model.IrrigationAdvice, Pagination, error) {
	page, limit = normalizePage(page, limit)

	var total int64
	if err := r.db.Model(&model.IrrigationAdvice{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, Pagination{}, fmt.Errorf("count irrigation records failed: %w", err)
	}

	var records []model.IrrigationAdvice
	if err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, Pagination{}, fmt.Errorf("list irrigation records failed: %w", err)
	}

	return records, buildPagination(page, limit, total), nil
}

type IrrigationStats struct {
	TotalRequests     int64      `json:"totalRequests"`
	AvgProcessingTime float64    `json:"avgProcessingTime"`
	MostCommonCrop    string     `json:"mostCommonCrop,omitempty"`
	MostCommonSoil    string     `json:"mostCommonSoil,omitempty"`
	LastRequest       *time.Time `json:"lastRequest,omitempty"`
}

// Stats aggregates the owner's request history. Zero-value stats (no error)
// when the owner has no records.
func (r *IrrigationRepository) Stats(userID uint) (*IrrigationStats, error) {
	var stats IrrigationStats

	row := r.db.Model(&model.IrrigationAdvice{}).
		Where("user_id = ?", userID).
		Select("COUNT(*) AS total, COALESCE(AVG(processing_time_ms), 0) AS avg_ms").
		Row()

	var avgMs float64
	if err := row.Scan(&stats.TotalRequests, &avgMs); err != nil {
		return nil, fmt.Errorf("aggregate irrigation stats failed: %w", err)
	}
	if stats.TotalRequests == 0 {
		return &stats, nil
	}
	stats.AvgProcessingTime = math.Round(avgMs*100) / 100

	var newest model.IrrigationAdvice
	if err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&newest).Error; err != nil {
		return nil, fmt.Errorf("load latest irrigation record failed: %w", err)
	}
	stats.LastRequest = &newest.CreatedAt

	crop, err := r.mostCommon(userID, "crop_type")
	if err != nil {
		return nil, err
	}
	stats.MostCommonCrop = crop

	soil, err := r.mostCommon(userID, "soil_type")
	if err != nil {
		return nil, err
	}
	stats.MostCommonSoil = soil

	return &stats, nil
}

func (r *IrrigationRepository) mostCommon(userID uint, column string) (string, error) {
	var value string
	err := r.db.Model(&model.IrrigationAdvice{}).
		Where("user_id = ?", userID).
		Select(column).
		Group(column).
		Order("COUNT(*) DESC").
		Limit(1).
		Scan(&value).Error
	if err != nil {
		return "", fmt.Errorf("aggregate most common %s failed: %w", column, err)
	}
	return value, nil
}
