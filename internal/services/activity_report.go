package services

import (
	"context"
	"fmt"
	"time"

	"leafscan/internal/models"
	"leafscan/internal/repository"
)

const reportDays = 7

type ActivityReportBuilder struct {
	repo repository.PredictionRepository
	loc  *time.Location
	now  func() time.Time
}

// NewActivityReportBuilder buckets days in loc, UTC when loc is nil.
func NewActivityReportBuilder(repo repository.PredictionRepository, loc *time.Location) *ActivityReportBuilder {
	if loc == nil {
		loc = time.UTC
	}
	return &ActivityReportBuilder{
		repo: repo,
		loc:  loc,
		now:  time.Now,
	}
}

// BuildWeeklyReport returns exactly seven days, oldest first, ending today.
// Days without predictions are zero filled.
func (b *ActivityReportBuilder) BuildWeeklyReport(ctx context.Context, userID uint) ([]models.DailyActivity, error) {
	today := b.now().In(b.loc)
	y, m, d := today.Date()
	start := time.Date(y, m, d-(reportDays-1), 0, 0, 0, 0, b.loc)
	end := time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), b.loc)

	weekly := make(map[string]*models.DailyActivity, reportDays)
	days := make([]time.Time, 0, reportDays)
	for i := 0; i < reportDays; i++ {
		day := time.Date(y, m, d-(reportDays-1)+i, 0, 0, 0, 0, b.loc)
		days = append(days, day)
		weekly[day.Format("2006-01-02")] = &models.DailyActivity{}
	}

	counts, err := b.repo.DailyCounts(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load weekly activity: %w", err)
	}
	for _, c := range counts {
		if entry, ok := weekly[c.Date]; ok {
			entry.Healthy += c.Healthy
			entry.Diseased += c.Diseased
		}
	}

	report := make([]models.DailyActivity, 0, reportDays)
	for _, day := range days {
		date := day.Format("2006-01-02")
		entry := weekly[date]
		report = append(report, models.DailyActivity{
			Date:     date,
			Day:      day.Format("Mon"),
			Healthy:  entry.Healthy,
			Diseased: entry.Diseased,
		})
	}
	return report, nil
}
