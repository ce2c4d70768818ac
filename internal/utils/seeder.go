package utils

import (
	"context"
	"fmt"
	"log"
	mathrand "math/rand"
	"time"

	"github.com/google/uuid"

	"leafscan/internal/models"
	"leafscan/internal/repository"
)

const (
	DefaultSeedDays   = 7
	DefaultSeedPerDay = 3
)

// SampleLabels are classifier labels used for demo data. They follow the
// PlantVillage naming the model emits.
var SampleLabels = []string{
	"Tomato_Early_blight",
	"Tomato_Late_blight",
	"Tomato_Leaf_Mold",
	"Tomato_healthy",
	"Potato___Early_blight",
	"Potato___Late_blight",
	"Potato___healthy",
	"Pepper__bell___Bacterial_spot",
	"Pepper__bell___healthy",
}

type SeedOptions struct {
	UserID   uint
	Days     int
	PerDay   int
	Now      time.Time
	Location *time.Location
	Rand     *mathrand.Rand
}

func (o *SeedOptions) normalize() error {
	if o.UserID == 0 {
		return fmt.Errorf("user id is required")
	}
	if o.Days <= 0 {
		o.Days = DefaultSeedDays
	}
	if o.PerDay <= 0 {
		o.PerDay = DefaultSeedPerDay
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
	if o.Rand == nil {
		o.Rand = mathrand.New(mathrand.NewSource(time.Now().UnixNano()))
	}
	return nil
}

// SeedPredictions stores PerDay predictions for each of the last Days
// calendar days (today included) for one user. Times fall between 08:00 and
// 18:00 local time and never after Now.
func SeedPredictions(ctx context.Context, repo repository.PredictionRepository, opts SeedOptions) (int, error) {
	if err := opts.normalize(); err != nil {
		return 0, err
	}

	now := opts.Now.In(opts.Location)
	created := 0

	for d := opts.Days - 1; d >= 0; d-- {
		dayStart := time.Date(now.Year(), now.Month(), now.Day()-d, 0, 0, 0, 0, opts.Location)

		for i := 0; i < opts.PerDay; i++ {
			label := SampleLabels[opts.Rand.Intn(len(SampleLabels))]
			at := dayStart.Add(8*time.Hour + time.Duration(opts.Rand.Intn(10*60))*time.Minute)
			if at.After(now) {
				at = now
			}

			prediction := &models.Prediction{
				UserID:      opts.UserID,
				DiseaseName: label,
				ImagePath:   "uploads/seed-" + uuid.NewString() + ".jpg",
				Remedy:      "Sample remedy for " + models.DisplayName(label) + ".",
				CreatedAt:   at,
			}
			if err := repo.Create(ctx, prediction); err != nil {
				return created, fmt.Errorf("failed to seed prediction: %w", err)
			}
			created++
		}
	}

	log.Printf("Seeded %d predictions for user %d over %d days", created, opts.UserID, opts.Days)
	return created, nil
}

// ClearPredictions removes every prediction owned by userID.
func ClearPredictions(ctx context.Context, repo repository.PredictionRepository, userID uint) (int64, error) {
	predictions, err := repo.ListByUserID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if len(predictions) == 0 {
		return 0, nil
	}

	ids := make([]uint, len(predictions))
	for i, p := range predictions {
		ids[i] = p.ID
	}

	deleted, err := repo.DeleteByIDs(ctx, userID, ids)
	if err != nil {
		return 0, err
	}
	log.Printf("Deleted %d predictions for user %d", deleted, userID)
	return deleted, nil
}
