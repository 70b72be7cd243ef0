package model

import (
	"encoding/json"
	"time"
)

// Advice record statuses. A record is created as pending before the model
// call and moves to exactly one terminal state; it never returns to pending.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// WeatherSnapshot is the caller-supplied weather at request time. All fields
// are optional; zero values mean "not available".
type WeatherSnapshot struct {
	Temp      *float64 `json:"temp,omitempty"`
	Humidity  *float64 `json:"humidity,omitempty"`
	Wind      *float64 `json:"wind,omitempty"`
	Precip    *float64 `json:"precip,omitempty"`
	Condition string   `json:"condition,omitempty"`
	City      string   `json:"city,omitempty"`
}

// AdviceFields is the structured output of one completed irrigation request.
type AdviceFields struct {
	Irrigation     string `json:"irrigation"`
	Fertilization  string `json:"fertilization"`
	PestControl    string `json:"pest_control"`
	AdditionalTips string `json:"additional_tips"`
}

// IrrigationAdvice captures one irrigation-advice request: input payload,
// lifecycle status and, once completed, the four parsed advice sections.
type IrrigationAdvice struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	UserID         uint   `gorm:"not null;index:idx_irrigation_user_created" json:"user_id"`
	Location       string `gorm:"size:128;not null" json:"location"`
	CropType       string `gorm:"size:64;not null;index" json:"crop_type"`
	SoilType       string `gorm:"size:16;not null" json:"soil_type"`
	PlantingDate   string `gorm:"size:32" json:"planting_date,omitempty"`
	LastIrrigation string `gorm:"size:32" json:"last_irrigation,omitempty"`

	// Weather is stored as a JSON blob for portability (same convention as
	// the prediction payloads on DiseaseDetection).
	Weather string `gorm:"type:text" json:"-"`

	AdviceIrrigation     string `gorm:"type:text" json:"-"`
	AdviceFertilization  string `gorm:"type:text" json:"-"`
	AdvicePestControl    string `gorm:"type:text" json:"-"`
	AdviceAdditionalTips string `gorm:"type:text" json:"-"`

	Status           string    `gorm:"size:16;not null;index;default:pending" json:"status"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	CreatedAt        time.Time `gorm:"index:idx_irrigation_user_created" json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// WeatherSnapshot returns the parsed weather blob; nil when none was supplied.
func (a *IrrigationAdvice) WeatherSnapshot() *WeatherSnapshot {
	if a.Weather == "" {
		return nil
	}
	var w WeatherSnapshot
	if err := json.Unmarshal([]byte(a.Weather), &w); err != nil {
		return nil
	}
	return &w
}

// SetWeather stores the snapshot as JSON; a nil snapshot clears the column.
func (a *IrrigationAdvice) SetWeather(w *WeatherSnapshot) {
	if w == nil {
		a.Weather = ""
		return
	}
	b, _ := json.Marshal(w)
	a.Weather = string(b)
}

// Advice returns the four parsed sections. Only meaningful when the record
// is completed.
func (a *IrrigationAdvice) Advice() AdviceFields {
	return AdviceFields{
		Irrigation:     a.AdviceIrrigation,
		Fertilization:  a.AdviceFertilization,
		PestControl:    a.AdvicePestControl,
		AdditionalTips: a.AdviceAdditionalTips,
	}
}

func (a *IrrigationAdvice) SetAdvice(f AdviceFields) {
	a.AdviceIrrigation = f.Irrigation
	a.AdviceFertilization = f.Fertilization
	a.AdvicePestControl = f.PestControl
	a.AdviceAdditionalTips = f.AdditionalTips
}
