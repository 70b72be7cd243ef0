package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"agroai-backend/internal/classifier"
	"agroai-backend/internal/model"
	"agroai-backend/internal/repository"
	"agroai-backend/internal/upload"
)

type fakeModelService struct {
	predictResp   *classifier.PredictResponse
	predictErr    error
	recommendResp *model.Recommendation
	recommendErr  error
	recommendReqs []classifier.RecommendRequest
}

func (f *fakeModelService) Predict(_ context.Context, _ string, r io.Reader) (*classifier.PredictResponse, error) {
	_, _ = io.Copy(io.Discard, r)
	return f.predictResp, f.predictErr
}

func (f *fakeModelService) Recommend(_ context.Context, input classifier.RecommendRequest) (*model.Recommendation, error) {
	f.recommendReqs = append(f.recommendReqs, input)
	return f.recommendResp, f.recommendErr
}

func uploadedFile(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["image"][0]
}

func newDetectionService(t *testing.T, models ModelService, publisher AuditPublisher) (*DetectionService, *gorm.DB) {
	t.Helper()
	db := newServiceDB(t)
	repo := repository.NewDetectionRepository(db)
	store := upload.NewStore(t.TempDir(), 10)
	return NewDetectionService(repo, models, store, publisher), db
}

func healthyPredictResponse() *classifier.PredictResponse {
	return &classifier.PredictResponse{
		Success: true,
		Predictions: []model.Prediction{
			{Disease: "Tomato - Early blight", Confidence: 92.4, ClassID: 7},
			{Disease: "Tomato - Late blight", Confidence: 4.1, ClassID: 8},
		},
		ModelInfo: model.ModelInfo{Classes: 38, InputSize: "224x224", ModelVersion: "2.1.0"},
	}
}

func TestProcessImage_Success(t *testing.T) {
	models := &fakeModelService{
		predictResp:   healthyPredictResponse(),
		recommendResp: &model.Recommendation{Treatment: "Apply copper fungicide."},
	}
	publisher := &fakePublisher{}
	service, _ := newDetectionService(t, models, publisher)

	record, err := service.ProcessImage(context.Background(), ProcessImageInput{
		UserID: 1,
		File:   uploadedFile(t, "leaf.jpg", []byte("fake-image")),
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusCompleted, record.Status)
	assert.Equal(t, "Tomato - Early blight", record.TopDisease)
	assert.Equal(t, 92.4, record.TopConfidence)
	assert.Len(t, record.Predictions(), 2)
	require.NotNil(t, record.Recommendation())
	assert.Equal(t, "Apply copper fungicide.", record.Recommendation().Treatment)
	assert.FileExists(t, record.ImagePath)

	require.Len(t, models.recommendReqs, 1)
	assert.Equal(t, "Tomato", models.recommendReqs[0].PlantType)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, model.FeatureDetection, publisher.events[0].Feature)
	assert.Equal(t, model.StatusCompleted, publisher.events[0].Status)
}

func TestProcessImage_RejectsBadInput(t *testing.T) {
	service, db := newDetectionService(t, &fakeModelService{}, nil)

	t.Run("missing user id", func(t *testing.T) {
		_, err := service.ProcessImage(context.Background(), ProcessImageInput{
			File: uploadedFile(t, "leaf.jpg", []byte("x")),
		})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := service.ProcessImage(context.Background(), ProcessImageInput{UserID: 1})
		assert.ErrorIs(t, err, upload.ErrMissingFile)
	})

	t.Run("wrong extension", func(t *testing.T) {
		_, err := service.ProcessImage(context.Background(), ProcessImageInput{
			UserID: 1,
			File:   uploadedFile(t, "report.pdf", []byte("x")),
		})
		assert.ErrorIs(t, err, upload.ErrBadType)
	})

	var count int64
	require.NoError(t, db.Model(&model.DiseaseDetection{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestProcessImage_ClassifierFailureMarksRecordFailed(t *testing.T) {
	models := &fakeModelService{predictErr: classifier.ErrUnavailable}
	publisher := &fakePublisher{}
	service, db := newDetectionService(t, models, publisher)

	_, err := service.ProcessImage(context.Background(), ProcessImageInput{
		UserID: 1,
		File:   uploadedFile(t, "leaf.png", []byte("fake-image")),
	})
	assert.ErrorIs(t, err, classifier.ErrUnavailable)

	var record model.DiseaseDetection
	require.NoError(t, db.First(&record).Error)
	assert.Equal(t, model.StatusFailed, record.Status)

	// Failed detections keep no usable payload, the upload is cleaned up.
	_, statErr := os.Stat(record.ImagePath)
	assert.True(t, os.IsNotExist(statErr))

	require.Len(t, publisher.events, 1)
	assert.Equal(t, model.StatusFailed, publisher.events[0].Status)
}

func TestProcessImage_EmptyPredictions(t *testing.T) {
	models := &fakeModelService{predictResp: &classifier.PredictResponse{Success: true}}
	service, db := newDetectionService(t, models, nil)

	_, err := service.ProcessImage(context.Background(), ProcessImageInput{
		UserID: 1,
		File:   uploadedFile(t, "leaf.jpg", []byte("fake-image")),
	})
	assert.ErrorIs(t, err, ErrNoPredictions)

	var record model.DiseaseDetection
	require.NoError(t, db.First(&record).Error)
	assert.Equal(t, model.StatusFailed, record.Status)
}

func TestDetectionStats(t *testing.T) {
	models := &fakeModelService{
		predictResp:   healthyPredictResponse(),
		recommendResp: &model.Recommendation{},
	}
	service, _ := newDetectionService(t, models, nil)

	for i := 0; i < 2; i++ {
		_, err := service.ProcessImage(context.Background(), ProcessImageInput{
			UserID: 1,
			File:   uploadedFile(t, "leaf.jpg", []byte("fake-image")),
		})
		require.NoError(t, err)
	}
	models.predictErr = errors.New("boom")
	_, err := service.ProcessImage(context.Background(), ProcessImageInput{
		UserID: 1,
		File:   uploadedFile(t, "leaf.jpg", []byte("fake-image")),
	})
	require.Error(t, err)

	stats, err := service.Stats(1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalDetections)
	assert.Equal(t, int64(2), stats.SuccessfulDetections)
	assert.Equal(t, 66.7, stats.SuccessRate)
	assert.Equal(t, 92.4, stats.AverageConfidence)
	assert.Len(t, stats.RecentPredictions, 3)
}
