package model

import (
	"encoding/json"
	"time"
)

// StatusProcessing is the initial detection state; detections skip "pending"
// because the uploaded file is already on disk when the record is created.
const StatusProcessing = "processing"

// Prediction is one classifier result for an uploaded image.
type Prediction struct {
	Disease    string  `json:"disease"`
	Confidence float64 `json:"confidence"`
	ClassID    int     `json:"class_id"`
}

// Recommendation is the advice the model service generates for the top
// prediction.
type Recommendation struct {
	Treatment        string   `json:"treatment"`
	Prevention       string   `json:"prevention"`
	Fertilizers      []string `json:"fertilizers"`
	WateringSchedule string   `json:"watering_schedule"`
	GeneralCare      string   `json:"general_care"`
}

// ModelInfo describes the classifier model that produced a detection.
type ModelInfo struct {
	Classes      int    `json:"classes"`
	InputSize    string `json:"input_size"`
	ModelVersion string `json:"model_version"`
}

// DiseaseDetection captures one disease-detection request. The full
// prediction list, recommendation and model metadata are stored as JSON
// blobs; the top prediction is flattened into columns so stats can aggregate
// over confidence without decoding JSON.
type DiseaseDetection struct {
	ID                 uint    `gorm:"primaryKey" json:"id"`
	UserID             uint    `gorm:"not null;index:idx_detection_user_created" json:"user_id"`
	ImagePath          string  `gorm:"size:512;not null" json:"image_path"`
	OriginalFilename   string  `gorm:"size:256;not null" json:"original_filename"`
	PredictionsJSON    string  `gorm:"column:predictions;type:text" json:"-"`
	TopDisease         string  `gorm:"size:128" json:"top_disease,omitempty"`
	TopConfidence      float64 `json:"top_confidence,omitempty"`
	TopClassID         int     `json:"top_class_id,omitempty"`
	RecommendationJSON string  `gorm:"column:recommendation;type:text" json:"-"`
	ModelInfoJSON      string  `gorm:"column:model_info;type:text" json:"-"`

	Status           string    `gorm:"size:16;not null;index;default:processing" json:"status"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	CreatedAt        time.Time `gorm:"index:idx_detection_user_created" json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (d *DiseaseDetection) Predictions() []Prediction {
	if d.PredictionsJSON == "" {
		return nil
	}
	var preds []Prediction
	if err := json.Unmarshal([]byte(d.PredictionsJSON), &preds); err != nil {
		return nil
	}
	return preds
}

func (d *DiseaseDetection) SetPredictions(preds []Prediction) {
	if len(preds) == 0 {
		d.PredictionsJSON = "[]"
		return
	}
	b, _ := json.Marshal(preds)
	d.PredictionsJSON = string(b)
}

// TopPrediction returns the flattened top prediction; nil before completion.
func (d *DiseaseDetection) TopPrediction() *Prediction {
	if d.TopDisease == "" {
		return nil
	}
	return &Prediction{
		Disease:    d.TopDisease,
		Confidence: d.TopConfidence,
		ClassID:    d.TopClassID,
	}
}

func (d *DiseaseDetection) SetTopPrediction(p Prediction) {
	d.TopDisease = p.Disease
	d.TopConfidence = p.Confidence
	d.TopClassID = p.ClassID
}

func (d *DiseaseDetection) Recommendation() *Recommendation {
	if d.RecommendationJSON == "" {
		return nil
	}
	var rec Recommendation
	if err := json.Unmarshal([]byte(d.RecommendationJSON), &rec); err != nil {
		return nil
	}
	return &rec
}

func (d *DiseaseDetection) SetRecommendation(rec *Recommendation) {
	if rec == nil {
		d.RecommendationJSON = ""
		return
	}
	b, _ := json.Marshal(rec)
	d.RecommendationJSON = string(b)
}

func (d *DiseaseDetection) ModelInfo() *ModelInfo {
	if d.ModelInfoJSON == "" {
		return nil
	}
	var info ModelInfo
	if err := json.Unmarshal([]byte(d.ModelInfoJSON), &info); err != nil {
		return nil
	}
	return &info
}

func (d *DiseaseDetection) SetModelInfo(info *ModelInfo) {
	if info == nil {
		d.ModelInfoJSON = ""
		return
	}
	if info.ModelVersion == "" {
		info.ModelVersion = "1.0.0"
	}
	b, _ := json.Marshal(info)
	d.ModelInfoJSON = string(b)
}
