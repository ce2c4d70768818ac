package mocks

import (
	"context"
	"mime/multipart"
	"time"

	"leafscan/internal/models"

	"github.com/stretchr/testify/mock"
)

// Shared MockPredictionRepository
type MockPredictionRepository struct {
	mock.Mock
}

func (m *MockPredictionRepository) Create(ctx context.Context, prediction *models.Prediction) error {
	args := m.Called(ctx, prediction)
	return args.Error(0)
}

func (m *MockPredictionRepository) ListByUserID(ctx context.Context, userID uint) ([]models.Prediction, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Prediction), args.Error(1)
}

func (m *MockPredictionRepository) GetByID(ctx context.Context, userID, id uint) (*models.Prediction, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Prediction), args.Error(1)
}

func (m *MockPredictionRepository) DeleteByIDs(ctx context.Context, userID uint, ids []uint) (int64, error) {
	args := m.Called(ctx, userID, ids)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPredictionRepository) CountByDisease(ctx context.Context, userID uint) ([]models.DiseaseCount, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DiseaseCount), args.Error(1)
}

func (m *MockPredictionRepository) DailyCounts(ctx context.Context, userID uint, start, end time.Time) ([]models.DailyActivity, error) {
	args := m.Called(ctx, userID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DailyActivity), args.Error(1)
}

type MockClassifier struct {
	mock.Mock
}

func (m *MockClassifier) Classify(ctx context.Context, imagePath string) (string, error) {
	args := m.Called(ctx, imagePath)
	return args.String(0), args.Error(1)
}

type MockTextGenerator struct {
	mock.Mock
}

func (m *MockTextGenerator) Generate(ctx context.Context, prompt string, structured bool) (string, bool) {
	args := m.Called(ctx, prompt, structured)
	return args.String(0), args.Bool(1)
}

type MockRemedyResolver struct {
	mock.Mock
}

func (m *MockRemedyResolver) SimpleRemedy(ctx context.Context, diseaseName string) string {
	args := m.Called(ctx, diseaseName)
	return args.String(0)
}

func (m *MockRemedyResolver) DetailedRemedy(ctx context.Context, diseaseName string) (*models.RemedyPlan, error) {
	args := m.Called(ctx, diseaseName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RemedyPlan), args.Error(1)
}

type MockEventSink struct {
	mock.Mock
}

func (m *MockEventSink) Enqueue(event models.PredictionEvent) bool {
	args := m.Called(event)
	return args.Bool(0)
}

type MockPredictionPipeline struct {
	mock.Mock
}

func (m *MockPredictionPipeline) Predict(ctx context.Context, userID uint, imagePath string) (*models.Prediction, error) {
	args := m.Called(ctx, userID, imagePath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Prediction), args.Error(1)
}

type MockActivityReporter struct {
	mock.Mock
}

func (m *MockActivityReporter) BuildWeeklyReport(ctx context.Context, userID uint) ([]models.DailyActivity, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DailyActivity), args.Error(1)
}

type MockUploadStore struct {
	mock.Mock
}

func (m *MockUploadStore) Save(ctx context.Context, file *multipart.FileHeader) (string, error) {
	args := m.Called(ctx, file)
	return args.String(0), args.Error(1)
}

func (m *MockUploadStore) Remove(relPath string) error {
	args := m.Called(relPath)
	return args.Error(0)
}
