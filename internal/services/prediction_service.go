package services

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"leafscan/internal/metrics"
	"leafscan/internal/ml"
	"leafscan/internal/models"
	"leafscan/internal/repository"
)

type RemedySource interface {
	SimpleRemedy(ctx context.Context, diseaseName string) string
}

// EventSink accepts events without blocking. It reports false when the
// event was dropped.
type EventSink interface {
	Enqueue(event models.PredictionEvent) bool
}

type PredictionService struct {
	classifier ml.Classifier
	remedies   RemedySource
	repo       repository.PredictionRepository
	events     EventSink
	metrics    *metrics.Metrics
	timeout    time.Duration
	now        func() time.Time
}

// NewPredictionService wires the pipeline. events and m may be nil.
func NewPredictionService(
	classifier ml.Classifier,
	remedies RemedySource,
	repo repository.PredictionRepository,
	events EventSink,
	m *metrics.Metrics,
) *PredictionService {
	return &PredictionService{
		classifier: classifier,
		remedies:   remedies,
		repo:       repo,
		events:     events,
		metrics:    m,
		now:        time.Now,
	}
}

// WithTimeout bounds every Predict call, including the wait for a
// classifier slot. Zero means only the caller's context applies.
func (s *PredictionService) WithTimeout(d time.Duration) *PredictionService {
	s.timeout = d
	return s
}

// Predict classifies the image at imagePath, resolves a summary remedy and
// stores exactly one record. Nothing is stored when classification fails or
// when ctx ends before the record is written.
func (s *PredictionService) Predict(ctx context.Context, userID uint, imagePath string) (*models.Prediction, error) {
	if strings.TrimSpace(imagePath) == "" {
		s.metrics.ObservePrediction("no_file")
		return nil, ErrNoFile
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	label, err := s.classifier.Classify(ctx, imagePath)
	if err != nil {
		log.Printf("[prediction] classification failed for user %d: %v", userID, err)
		s.metrics.ObservePrediction("classifier_error")
		return nil, fmt.Errorf("failed to classify image: %w", err)
	}

	remedy := s.remedies.SimpleRemedy(ctx, label)

	// no record for a request the caller has already abandoned
	if err := ctx.Err(); err != nil {
		log.Printf("[prediction] request for user %d ended before saving: %v", userID, err)
		s.metrics.ObservePrediction("timeout")
		return nil, fmt.Errorf("prediction abandoned before saving: %w", err)
	}

	prediction := &models.Prediction{
		UserID:      userID,
		DiseaseName: label,
		ImagePath:   normalizeImagePath(imagePath),
		Remedy:      remedy,
		CreatedAt:   s.now(),
	}
	if err := s.repo.Create(ctx, prediction); err != nil {
		s.metrics.ObservePrediction("store_error")
		return nil, fmt.Errorf("failed to save prediction: %w", err)
	}

	s.metrics.ObservePrediction("success")
	s.publish(prediction)
	return prediction, nil
}

func (s *PredictionService) publish(p *models.Prediction) {
	if s.events == nil {
		return
	}
	event := models.PredictionEvent{
		EventID:      uuid.NewString(),
		Type:         models.EventPredictionCreated,
		PredictionID: p.ID,
		UserID:       p.UserID,
		DiseaseName:  p.DiseaseName,
		Healthy:      p.IsHealthy(),
		OccurredAt:   p.CreatedAt,
	}
	if !s.events.Enqueue(event) {
		log.Printf("[prediction] event for prediction %d was dropped", p.ID)
	}
}

func normalizeImagePath(p string) string {
	p = filepath.ToSlash(filepath.Clean(p))
	return strings.TrimPrefix(p, "./")
}
