package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/citeguard/citeguard/internal/model"
	"github.com/citeguard/citeguard/internal/provider"
)

// Durable is the verified-index tier behind the memory tier. Implemented
// by the sqlite store; nil-able for memory-only operation.
type Durable interface {
	Get(ctx context.Context, key, orderID string) (*model.VerificationVerdict, bool, error)
	Put(ctx context.Context, key, orderID string, v *model.VerificationVerdict, ttl time.Duration) error
	Delete(ctx context.Context, key, orderID string) error
}

// VerdictCache layers the ephemeral memory tier over the durable verified
// index. TTLs depend on the wrapped status: VERIFIED results live longest,
// REJECTED/BLOCKED shortest, since rejections may reflect transient
// upstream errors.
type VerdictCache struct {
	cfg     model.CacheConfig
	memory  *gocache.Cache
	durable Durable
}

// NewVerdictCache builds the two-tier cache. durable may be nil.
func NewVerdictCache(cfg model.CacheConfig, durable Durable) *VerdictCache {
	memTTL := time.Duration(cfg.MemoryTTLMin) * time.Minute
	if memTTL == 0 {
		memTTL = 15 * time.Minute
	}
	return &VerdictCache{
		cfg:     cfg,
		memory:  gocache.New(memTTL, 10*time.Minute),
		durable: durable,
	}
}

// TTLFor maps a composite status to its cache lifetime.
func (c *VerdictCache) TTLFor(status model.VerdictStatus) time.Duration {
	days := func(n, fallback int) time.Duration {
		if n <= 0 {
			n = fallback
		}
		return time.Duration(n) * 24 * time.Hour
	}
	switch status {
	case model.VerdictVerified:
		return days(c.cfg.VerifiedDays, 30)
	case model.VerdictFlagged:
		return days(c.cfg.FlaggedDays, 7)
	default:
		hours := c.cfg.RejectedHours
		if hours <= 0 {
			hours = 1
		}
		return time.Duration(hours) * time.Hour
	}
}

// Get checks the memory tier, then the durable tier, promoting durable
// hits into memory. Keys are scoped by order so tenants never share
// entries.
func (c *VerdictCache) Get(ctx context.Context, key, orderID string) (*model.VerificationVerdict, bool) {
	if c.cfg.Disabled {
		return nil, false
	}
	memKey := orderID + "|" + key

	if val, found := c.memory.Get(memKey); found {
		return val.(*model.VerificationVerdict), true
	}

	if c.durable != nil {
		if v, found, err := c.durable.Get(ctx, key, orderID); err == nil && found {
			c.memory.Set(memKey, v, gocache.DefaultExpiration)
			return v, true
		}
	}
	return nil, false
}

// Put stores a verdict in both tiers with a status-dependent TTL. Durable
// write failures are ignored: the cache is an optimization, never a
// correctness dependency.
func (c *VerdictCache) Put(ctx context.Context, key, orderID string, v *model.VerificationVerdict) {
	if c.cfg.Disabled {
		return
	}
	ttl := c.TTLFor(v.Status)

	memTTL := ttl
	if memTTL > time.Duration(c.cfg.MemoryTTLMin)*time.Minute && c.cfg.MemoryTTLMin > 0 {
		memTTL = time.Duration(c.cfg.MemoryTTLMin) * time.Minute
	}
	c.memory.Set(orderID+"|"+key, v, memTTL)

	if c.durable != nil {
		_ = c.durable.Put(ctx, key, orderID, v, ttl)
	}
}

// Invalidate removes an entry from both tiers.
func (c *VerdictCache) Invalidate(ctx context.Context, key, orderID string) {
	c.memory.Delete(orderID + "|" + key)
	if c.durable != nil {
		_ = c.durable.Delete(ctx, key, orderID)
	}
}

// ExistenceCache holds existence lookups in memory with asymmetric TTLs:
// found results are stable (14 days), misses expire quickly (1 hour) since
// a miss may reflect a lagging upstream index.
type ExistenceCache struct {
	memory *gocache.Cache
}

// NewExistenceCache creates the existence tier.
func NewExistenceCache() *ExistenceCache {
	return &ExistenceCache{memory: gocache.New(14*24*time.Hour, time.Hour)}
}

// Get returns a cached existence record.
func (c *ExistenceCache) Get(normalizedCitation string) (*provider.ExistenceRecord, bool) {
	if val, found := c.memory.Get(ExistenceKey(normalizedCitation)); found {
		return val.(*provider.ExistenceRecord), true
	}
	return nil, false
}

// Put stores an existence record with a found-dependent TTL.
func (c *ExistenceCache) Put(normalizedCitation string, rec *provider.ExistenceRecord) {
	ttl := 14 * 24 * time.Hour
	if !rec.Found {
		ttl = time.Hour
	}
	c.memory.Set(ExistenceKey(normalizedCitation), rec, ttl)
}
