package ml

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

type limitedClassifier struct {
	next Classifier
	sem  *semaphore.Weighted
}

// NewLimited caps the number of concurrent Classify calls reaching next.
// Callers beyond the cap wait for a slot or for their context to end.
func NewLimited(next Classifier, maxConcurrent int64) Classifier {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &limitedClassifier{
		next: next,
		sem:  semaphore.NewWeighted(maxConcurrent),
	}
}

func (l *limitedClassifier) Classify(ctx context.Context, imagePath string) (string, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return "", &ClassifierError{
			Reason: ReasonStartFailed,
			Code:   -1,
			Err:    fmt.Errorf("waiting for classifier slot: %w", err),
		}
	}
	defer l.sem.Release(1)

	return l.next.Classify(ctx, imagePath)
}
