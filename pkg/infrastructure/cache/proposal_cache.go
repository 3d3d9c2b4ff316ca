package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/vsinha/blend/pkg/application/dto"
	"github.com/vsinha/blend/pkg/domain/entities"
)

const keyPrefix = "blend:proposal:"

// ProposalCache stores optimization results by target fingerprint. Every
// fiscal year carries a generation counter that is bumped whenever its pool
// changes; the generation is part of the key, so stale proposals are never
// served after a commit, delete or hold change.
type ProposalCache struct {
	store Store
	ttl   time.Duration
}

func NewProposalCache(store Store, ttl time.Duration) *ProposalCache {
	return &ProposalCache{store: store, ttl: ttl}
}

// Key returns the cache key for spec under the fiscal year's current
// generation. Callers take the key before reading the pool and store under
// the same key, so a result computed from a pool that changed meanwhile is
// filed under a generation no later lookup uses.
func (c *ProposalCache) Key(ctx context.Context, spec entities.TargetSpecification) (string, error) {
	gen := int64(0)
	raw, ok, err := c.store.Get(ctx, generationKey(spec.FiscalYear))
	if err != nil {
		return "", err
	}
	if ok {
		if gen, err = strconv.ParseInt(string(raw), 10, 64); err != nil {
			return "", fmt.Errorf("corrupt proposal generation for %d: %w", spec.FiscalYear, err)
		}
	}
	fp, err := Fingerprint(spec)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%d:%d:%s", keyPrefix, spec.FiscalYear, gen, fp), nil
}

// Get returns the result cached under key, if any
func (c *ProposalCache) Get(ctx context.Context, key string) (*dto.OptimizationResult, bool, error) {
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	var result dto.OptimizationResult
	if err := json.Unmarshal(raw, &result); err != nil {
		// Unreadable entries are treated as misses and overwritten later
		return nil, false, nil
	}
	return &result, true, nil
}

// Put caches result under key
func (c *ProposalCache) Put(ctx context.Context, key string, result dto.OptimizationResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode proposal: %w", err)
	}
	return c.store.Set(ctx, key, raw, c.ttl)
}

// Invalidate drops every proposal of a fiscal year
func (c *ProposalCache) Invalidate(ctx context.Context, fiscalYear int) error {
	_, err := c.store.Incr(ctx, generationKey(fiscalYear))
	return err
}

// Fingerprint is a stable hash of every field that influences an optimization
func Fingerprint(spec entities.TargetSpecification) (string, error) {
	raw, err := json.Marshal(spec)
	if err != nil {
		return "", fmt.Errorf("fingerprint target: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

func generationKey(fiscalYear int) string {
	return fmt.Sprintf("%sgen:%d", keyPrefix, fiscalYear)
}
