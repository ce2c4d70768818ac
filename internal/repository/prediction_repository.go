package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"leafscan/internal/models"
)

var ErrPredictionNotFound = errors.New("prediction not found")

// StoreError wraps any persistence failure with the operation that failed.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("prediction store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// PredictionRepository is scoped by owner on every read and delete.
type PredictionRepository interface {
	Create(ctx context.Context, prediction *models.Prediction) error
	ListByUserID(ctx context.Context, userID uint) ([]models.Prediction, error)
	GetByID(ctx context.Context, userID, id uint) (*models.Prediction, error)
	DeleteByIDs(ctx context.Context, userID uint, ids []uint) (int64, error)
	CountByDisease(ctx context.Context, userID uint) ([]models.DiseaseCount, error)
	DailyCounts(ctx context.Context, userID uint, start, end time.Time) ([]models.DailyActivity, error)
}

type predictionRepository struct {
	db *gorm.DB
}

func NewPredictionRepository(db *gorm.DB) PredictionRepository {
	return &predictionRepository{db}
}

func storeError(op string, err error) error {
	log.Printf("[repository] %s failed: %v", op, err)
	return &StoreError{Op: op, Err: err}
}

func (r *predictionRepository) Create(ctx context.Context, prediction *models.Prediction) error {
	if prediction.CreatedAt.IsZero() {
		prediction.CreatedAt = time.Now()
	}
	// stored in UTC so range queries compare consistently on every driver
	prediction.CreatedAt = prediction.CreatedAt.UTC()

	if err := r.db.WithContext(ctx).Create(prediction).Error; err != nil {
		return storeError("create", err)
	}
	return nil
}

func (r *predictionRepository) ListByUserID(ctx context.Context, userID uint) ([]models.Prediction, error) {
	predictions := []models.Prediction{}
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&predictions).Error
	if err != nil {
		return nil, storeError("list", err)
	}
	return predictions, nil
}

func (r *predictionRepository) GetByID(ctx context.Context, userID, id uint) (*models.Prediction, error) {
	var prediction models.Prediction
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, id).
		First(&prediction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPredictionNotFound
		}
		return nil, storeError("get", err)
	}
	return &prediction, nil
}

func (r *predictionRepository) DeleteByIDs(ctx context.Context, userID uint, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	result := r.db.WithContext(ctx).
		Where("user_id = ? AND id IN ?", userID, ids).
		Delete(&models.Prediction{})
	if result.Error != nil {
		return 0, storeError("delete", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *predictionRepository) CountByDisease(ctx context.Context, userID uint) ([]models.DiseaseCount, error) {
	counts := []models.DiseaseCount{}
	err := r.db.WithContext(ctx).
		Model(&models.Prediction{}).
		Select("disease_name AS disease, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("disease_name").
		Order("COUNT(*) DESC").
		Order("disease_name ASC").
		Scan(&counts).Error
	if err != nil {
		return nil, storeError("count by disease", err)
	}
	return counts, nil
}

type dailyRow struct {
	DiseaseName string
	CreatedAt   time.Time
}

// DailyCounts buckets records in [start, end] by calendar day in
// start.Location(). Days without records are not returned.
func (r *predictionRepository) DailyCounts(ctx context.Context, userID uint, start, end time.Time) ([]models.DailyActivity, error) {
	var rows []dailyRow
	err := r.db.WithContext(ctx).
		Model(&models.Prediction{}).
		Select("disease_name, created_at").
		Where("user_id = ? AND created_at BETWEEN ? AND ?", userID, start.UTC(), end.UTC()).
		Order("created_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, storeError("daily counts", err)
	}

	loc := start.Location()
	activity := []models.DailyActivity{}
	index := make(map[string]int)
	for _, row := range rows {
		date := row.CreatedAt.In(loc).Format("2006-01-02")
		i, ok := index[date]
		if !ok {
			i = len(activity)
			index[date] = i
			activity = append(activity, models.DailyActivity{Date: date})
		}
		if models.IsHealthyLabel(row.DiseaseName) {
			activity[i].Healthy++
		} else {
			activity[i].Diseased++
		}
	}
	return activity, nil
}
