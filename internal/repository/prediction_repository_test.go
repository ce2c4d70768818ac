package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"leafscan/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.Prediction{}))
	return db
}

func seed(t *testing.T, repo PredictionRepository, userID uint, disease string, at time.Time) *models.Prediction {
	t.Helper()
	p := &models.Prediction{
		UserID:      userID,
		DiseaseName: disease,
		ImagePath:   "uploads/" + disease + ".jpg",
		Remedy:      "Apply fungicide weekly.",
		CreatedAt:   at,
	}
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func TestCreate_AssignsIDAndTimestamp(t *testing.T) {
	repo := NewPredictionRepository(setupTestDB(t))

	p := &models.Prediction{UserID: 1, DiseaseName: "Tomato_healthy", ImagePath: "uploads/a.jpg"}
	require.NoError(t, repo.Create(context.Background(), p))

	assert.NotZero(t, p.ID)
	assert.False(t, p.CreatedAt.IsZero())
	assert.WithinDuration(t, time.Now(), p.CreatedAt, 5*time.Second)
}

func TestListByUserID_NewestFirstAndScoped(t *testing.T) {
	repo := NewPredictionRepository(setupTestDB(t))
	base := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	seed(t, repo, 1, "Tomato_Early_blight", base)
	seed(t, repo, 1, "Tomato_healthy", base.Add(2*time.Hour))
	seed(t, repo, 2, "Potato_Late_blight", base.Add(time.Hour))
	seed(t, repo, 1, "Potato_Late_blight", base.Add(time.Hour))

	list, err := repo.ListByUserID(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "Tomato_healthy", list[0].DiseaseName)
	assert.Equal(t, "Potato_Late_blight", list[1].DiseaseName)
	assert.Equal(t, "Tomato_Early_blight", list[2].DiseaseName)
	for _, p := range list {
		assert.Equal(t, uint(1), p.UserID)
	}

	empty, err := repo.ListByUserID(context.Background(), 99)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestGetByID_OwnerScoped(t *testing.T) {
	repo := NewPredictionRepository(setupTestDB(t))
	p := seed(t, repo, 1, "Tomato_healthy", time.Now())

	got, err := repo.GetByID(context.Background(), 1, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	_, err = repo.GetByID(context.Background(), 2, p.ID)
	assert.ErrorIs(t, err, ErrPredictionNotFound)
}

func TestDeleteByIDs_NeverCrossesOwners(t *testing.T) {
	repo := NewPredictionRepository(setupTestDB(t))
	ctx := context.Background()
	now := time.Now()

	a1 := seed(t, repo, 1, "Tomato_healthy", now)
	a2 := seed(t, repo, 1, "Tomato_Early_blight", now)
	b1 := seed(t, repo, 2, "Potato_Late_blight", now)

	deleted, err := repo.DeleteByIDs(ctx, 1, []uint{a1.ID, b1.ID, 9999})
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.GetByID(ctx, 2, b1.ID)
	assert.NoError(t, err)
	_, err = repo.GetByID(ctx, 1, a2.ID)
	assert.NoError(t, err)
	_, err = repo.GetByID(ctx, 1, a1.ID)
	assert.ErrorIs(t, err, ErrPredictionNotFound)

	deleted, err = repo.DeleteByIDs(ctx, 1, nil)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestCountByDisease_SortedAndComplete(t *testing.T) {
	repo := NewPredictionRepository(setupTestDB(t))
	now := time.Now()

	for _, d := range []string{
		"Tomato_Early_blight", "Tomato_Early_blight", "Tomato_Early_blight",
		"Tomato_healthy",
		"Potato_Late_blight", "Potato_Late_blight",
		"tomato_early_blight",
	} {
		seed(t, repo, 1, d, now)
	}
	seed(t, repo, 2, "Tomato_healthy", now)

	counts, err := repo.CountByDisease(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, counts, 4)

	assert.Equal(t, models.DiseaseCount{Disease: "Tomato_Early_blight", Count: 3}, counts[0])
	assert.Equal(t, models.DiseaseCount{Disease: "Potato_Late_blight", Count: 2}, counts[1])

	var total int64
	for i, c := range counts {
		total += c.Count
		if i > 0 {
			assert.LessOrEqual(t, c.Count, counts[i-1].Count)
		}
	}
	list, err := repo.ListByUserID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(len(list)), total)
}

func TestDailyCounts_BucketsByDayInLocation(t *testing.T) {
	repo := NewPredictionRepository(setupTestDB(t))
	jakarta := time.FixedZone("WIB", 7*60*60)

	start := time.Date(2024, 3, 4, 0, 0, 0, 0, jakarta)
	end := time.Date(2024, 3, 10, 23, 59, 59, 0, jakarta)

	// 2024-03-05 20:00 UTC is already 2024-03-06 in UTC+7
	seed(t, repo, 1, "Tomato_healthy", time.Date(2024, 3, 5, 20, 0, 0, 0, time.UTC))
	seed(t, repo, 1, "Tomato_Early_blight", time.Date(2024, 3, 6, 1, 0, 0, 0, jakarta))
	seed(t, repo, 1, "Apple_HEALTHY_leaf", time.Date(2024, 3, 8, 9, 0, 0, 0, jakarta))
	seed(t, repo, 1, "Potato_Late_blight", time.Date(2024, 3, 8, 10, 0, 0, 0, jakarta))
	// outside the window
	seed(t, repo, 1, "Potato_Late_blight", time.Date(2024, 3, 3, 23, 0, 0, 0, jakarta))
	seed(t, repo, 1, "Potato_Late_blight", time.Date(2024, 3, 11, 0, 30, 0, 0, jakarta))
	// other owner
	seed(t, repo, 2, "Potato_Late_blight", time.Date(2024, 3, 6, 1, 0, 0, 0, jakarta))

	got, err := repo.DailyCounts(context.Background(), 1, start, end)
	require.NoError(t, err)

	assert.Equal(t, []models.DailyActivity{
		{Date: "2024-03-06", Healthy: 1, Diseased: 1},
		{Date: "2024-03-08", Healthy: 1, Diseased: 1},
	}, got)
}

func TestStoreError(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPredictionRepository(db)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = repo.ListByUserID(context.Background(), 1)

	var storeErr *StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "list", storeErr.Op)
	assert.Contains(t, storeErr.Error(), "prediction store list")
}
