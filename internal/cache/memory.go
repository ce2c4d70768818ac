package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"leafscan/internal/models"
)

// MemoryPlanCache keeps plans in process. Used when no Redis is configured.
type MemoryPlanCache struct {
	store *gocache.Cache
}

func NewMemoryPlanCache(ttl time.Duration) *MemoryPlanCache {
	return &MemoryPlanCache{
		store: gocache.New(ttl, 2*ttl),
	}
}

func (m *MemoryPlanCache) SetPlan(_ context.Context, key string, plan *models.RemedyPlan) error {
	stored := *plan
	stored.Steps = append([]string(nil), plan.Steps...)
	m.store.SetDefault(key, &stored)
	return nil
}

func (m *MemoryPlanCache) GetPlan(_ context.Context, key string) (*models.RemedyPlan, bool, error) {
	v, ok := m.store.Get(key)
	if !ok {
		return nil, false, nil
	}
	plan := *v.(*models.RemedyPlan)
	plan.Steps = append([]string(nil), plan.Steps...)
	return &plan, true, nil
}

func (m *MemoryPlanCache) Status(context.Context) map[string]interface{} {
	return map[string]interface{}{
		"backend": "memory",
		"items":   m.store.ItemCount(),
	}
}
