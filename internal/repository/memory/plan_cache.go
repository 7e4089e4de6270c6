package memory

import (
	"time"

	"planhub-be/internal/entity"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// PlanCache keeps published plan details in process memory.
// Entries are evicted on update and after each completed sale.
type PlanCache struct {
	cache *cache.Cache
}

func NewPlanCache(ttl time.Duration) *PlanCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PlanCache{
		cache: cache.New(ttl, 2*ttl),
	}
}

func (c *PlanCache) Set(plan *entity.Plan) {
	c.cache.Set(plan.Id.String(), plan, cache.DefaultExpiration)
}

func (c *PlanCache) Get(planID uuid.UUID) (*entity.Plan, bool) {
	if x, found := c.cache.Get(planID.String()); found {
		return x.(*entity.Plan), true
	}
	return nil, false
}

func (c *PlanCache) Invalidate(planID uuid.UUID) {
	c.cache.Delete(planID.String())
}
