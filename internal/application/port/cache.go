package port

import "context"

// Cache abstracts the caching layer for assembled assessments.
type Cache interface {
	// Get retrieves a cached value into dest; returns an error on miss
	Get(ctx context.Context, key string, dest interface{}) error

	// Set stores a value with the cache's configured TTL
	Set(ctx context.Context, key string, value interface{}) error

	// Close closes the cache connection
	Close() error
}
