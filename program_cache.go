package draftsync

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// ProgramCache stores compiled expression programs keyed by expression strings.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

type goProgramCache struct {
	cache *gocache.Cache
	ttl   time.Duration
}

// NewProgramCache returns a ProgramCache backed by go-cache. A zero ttl keeps
// programs for the life of the process.
func NewProgramCache(ttl time.Duration) ProgramCache {
	if ttl <= 0 {
		return &goProgramCache{cache: gocache.New(gocache.NoExpiration, 0), ttl: gocache.NoExpiration}
	}
	return &goProgramCache{cache: gocache.New(ttl, 2*ttl), ttl: ttl}
}

func (c *goProgramCache) Get(key string) (any, bool) {
	return c.cache.Get(key)
}

func (c *goProgramCache) Set(key string, value any) {
	c.cache.Set(key, value, c.ttl)
}
