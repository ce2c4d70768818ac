package remedy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"leafscan/internal/metrics"
	"leafscan/internal/models"
)

// FallbackSummary is stored as the remedy when no summary could be generated.
const FallbackSummary = "No summary found. Click 'View Treatment Plan' for details."

const (
	ReasonUnavailable = "unavailable"
	ReasonMalformed   = "malformed"
)

// TextGenerator is satisfied by *gemini.Client.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, structured bool) (string, bool)
}

// PlanCache stores treatment plans by disease key.
type PlanCache interface {
	GetPlan(ctx context.Context, key string) (*models.RemedyPlan, bool, error)
	SetPlan(ctx context.Context, key string, plan *models.RemedyPlan) error
}

// DetailError means no treatment plan could be produced. It never carries a
// partial plan.
type DetailError struct {
	Reason string
	Err    error
}

func (e *DetailError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("treatment plan %s: %v", e.Reason, e.Err)
	}
	return "treatment plan " + e.Reason
}

func (e *DetailError) Unwrap() error {
	return e.Err
}

type Resolver struct {
	generator TextGenerator
	cache     PlanCache
	metrics   *metrics.Metrics
}

// NewResolver builds a resolver. cache may be nil.
func NewResolver(generator TextGenerator, cache PlanCache, m *metrics.Metrics) *Resolver {
	return &Resolver{
		generator: generator,
		cache:     cache,
		metrics:   m,
	}
}

// SimpleRemedy returns a one sentence remedy or FallbackSummary. It never fails.
func (r *Resolver) SimpleRemedy(ctx context.Context, diseaseName string) string {
	name := models.DisplayName(diseaseName)
	prompt := fmt.Sprintf(
		"Give a one-sentence remedy for the plant disease %q. Reply with the sentence only.", name)

	text, ok := r.generator.Generate(ctx, prompt, false)
	if !ok {
		log.Printf("[remedy] no summary generated for %q, using fallback", diseaseName)
		r.metrics.ObserveRemedyFallback("simple")
		return FallbackSummary
	}
	return text
}

// DetailedRemedy asks for a structured plan with medicineName, howToUse and
// steps. A missing or unparsable answer is a *DetailError.
func (r *Resolver) DetailedRemedy(ctx context.Context, diseaseName string) (*models.RemedyPlan, error) {
	key := cacheKey(diseaseName)
	if plan, ok := r.cachedPlan(ctx, key); ok {
		return plan, nil
	}

	name := models.DisplayName(diseaseName)
	prompt := fmt.Sprintf(`Provide a treatment plan for the plant disease %q.
Respond with a JSON object that has exactly these keys:
"medicineName": the name of a recommended medicine or treatment (string),
"howToUse": how to apply it (string),
"steps": 3 to 4 short steps to follow (array of strings).`, name)

	text, ok := r.generator.Generate(ctx, prompt, true)
	if !ok {
		r.metrics.ObserveRemedyFallback("detailed")
		return nil, &DetailError{Reason: ReasonUnavailable}
	}

	plan, err := parsePlan(text)
	if err != nil {
		log.Printf("[remedy] malformed treatment plan for %q: %v", diseaseName, err)
		r.metrics.ObserveRemedyFallback("detailed")
		return nil, &DetailError{Reason: ReasonMalformed, Err: err}
	}

	if r.cache != nil {
		if err := r.cache.SetPlan(ctx, key, plan); err != nil {
			log.Printf("[remedy] failed to cache plan for %q: %v", key, err)
		}
	}
	return plan, nil
}

func (r *Resolver) cachedPlan(ctx context.Context, key string) (*models.RemedyPlan, bool) {
	if r.cache == nil {
		return nil, false
	}
	plan, ok, err := r.cache.GetPlan(ctx, key)
	if err != nil {
		log.Printf("[remedy] plan cache lookup for %q failed: %v", key, err)
		return nil, false
	}
	r.metrics.ObserveRemedyCache(ok)
	return plan, ok
}

var errIncompletePlan = errors.New("plan is missing required fields")

func parsePlan(text string) (*models.RemedyPlan, error) {
	text = stripCodeFence(text)

	var plan models.RemedyPlan
	if err := json.Unmarshal([]byte(text), &plan); err != nil {
		return nil, fmt.Errorf("failed to decode plan: %w", err)
	}

	plan.MedicineName = strings.TrimSpace(plan.MedicineName)
	plan.HowToUse = strings.TrimSpace(plan.HowToUse)
	steps := plan.Steps[:0]
	for _, s := range plan.Steps {
		if s = strings.TrimSpace(s); s != "" {
			steps = append(steps, s)
		}
	}
	plan.Steps = steps

	if plan.MedicineName == "" || plan.HowToUse == "" || len(plan.Steps) == 0 {
		return nil, errIncompletePlan
	}
	return &plan, nil
}

// stripCodeFence removes a ```json ... ``` wrapper some model versions add
// even in JSON mode.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimPrefix(text, "json")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

func cacheKey(diseaseName string) string {
	return strings.ToLower(models.DisplayName(diseaseName))
}
