// Package cache provides a size-bounded LRU cache with per-entry expiry and
// a janitor that purges expired entries in the background.
package cache

import (
	"context"
	"time"

	"finsight/internal/log"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	SetWithTTL(key string, data T, ttl time.Duration)
	Delete(key string)
	Size() int
}

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically cleans a set of caches.
type Janitor struct {
	caches []Cleaner
	logger *log.Logger
}

func NewJanitor(logger *log.Logger, caches ...Cleaner) *Janitor {
	return &Janitor{caches: caches, logger: logger}
}

// Run cleans every interval until ctx is done. It always returns nil so it
// can be handed to an errgroup directly.
func (j *Janitor) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := j.CleanOnce(); n > 0 && j.logger != nil {
				j.logger.Debug("Expired cache entries removed", log.FieldCount, n)
			}
		}
	}
}

// CleanOnce runs a single pass and returns the number of entries removed.
func (j *Janitor) CleanOnce() int {
	total := 0
	for _, c := range j.caches {
		total += c.CleanExpired()
	}
	return total
}
