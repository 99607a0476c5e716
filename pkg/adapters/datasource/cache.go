package datasource

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/codeoncesoftware/grizzly-core/pkg/logging"
	"github.com/codeoncesoftware/grizzly-core/pkg/models"
)

// Unavailable is the shared sentinel handle returned when a client build
// fails. Callers treat a down datasource as degraded, not fatal.
var Unavailable ClientHandle = unavailableHandle{}

type unavailableHandle struct{}

func (unavailableHandle) Ping(context.Context) error { return fmt.Errorf("datasource unavailable") }
func (unavailableHandle) Close() error               { return nil }
func (unavailableHandle) Provider() models.Provider  { return "" }

// IsUnavailable reports whether a handle is the unavailable sentinel.
func IsUnavailable(h ClientHandle) bool {
	return h == Unavailable
}

// CacheConfig holds the settings the cache needs to build clients.
type CacheConfig struct {
	Timeouts Timeouts
	// SharedClusters maps a provider to the endpoint of its multi-tenant
	// cluster, used for pooled-mode records.
	SharedClusters map[models.Provider]string
}

// ConnectionCache maps a datasource identity to a live, pooled client
// handle. Handles are built lazily through the provider registry, shared by
// all callers, and rebuilt on credential change. It is the only shared
// mutable state crossing request boundaries, so all operations are safe for
// concurrent use; build locks are per-key, a blocking driver handshake for
// one datasource never stalls lookups for another.
type ConnectionCache struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*cacheEntry

	sideMu sync.RWMutex
	side   map[sideKey]any

	cfg    CacheConfig
	logger *zap.Logger
}

type cacheEntry struct {
	mu     sync.Mutex
	built  bool
	handle ClientHandle
}

type sideKey struct {
	id    uuid.UUID
	extra string
}

// NewConnectionCache creates the cache. Constructed once at process start
// and passed by reference to all callers; lifecycle is explicit.
func NewConnectionCache(cfg CacheConfig, logger *zap.Logger) *ConnectionCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeouts.ServerSelection <= 0 {
		cfg.Timeouts.ServerSelection = DefaultTimeouts().ServerSelection
	}
	if cfg.Timeouts.Connect <= 0 {
		cfg.Timeouts.Connect = DefaultTimeouts().Connect
	}
	return &ConnectionCache{
		entries: make(map[uuid.UUID]*cacheEntry),
		side:    make(map[sideKey]any),
		cfg:     cfg,
		logger:  logger,
	}
}

// GetClient returns the cached handle for the record's identity, building it
// on first use. The record must already be decrypted. A failed build is
// cached as the Unavailable sentinel until Refresh or Evict; duplicate
// concurrent calls for a never-before-seen identity converge to exactly one
// build attempt.
func (c *ConnectionCache) GetClient(ctx context.Context, record *models.DatasourceRecord) ClientHandle {
	entry := c.entry(record.ID)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.built {
		return entry.handle
	}

	entry.handle = c.build(ctx, record)
	entry.built = true
	return entry.handle
}

// Refresh forcibly rebuilds and replaces the cached handle. Used after
// credential or host edits.
func (c *ConnectionCache) Refresh(ctx context.Context, record *models.DatasourceRecord) ClientHandle {
	entry := c.entry(record.ID)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.built && !IsUnavailable(entry.handle) {
		if err := entry.handle.Close(); err != nil {
			c.logger.Warn("closing stale handle",
				zap.String("datasource_id", record.ID.String()),
				zap.String("error", logging.SanitizeError(err)),
			)
		}
	}

	entry.handle = c.build(ctx, record)
	entry.built = true
	return entry.handle
}

// Evict removes and closes the handle and any secondary artifacts for the
// identity. Used on datasource deletion or explicit cleanup.
func (c *ConnectionCache) Evict(id uuid.UUID) {
	c.mu.Lock()
	entry, ok := c.entries[id]
	delete(c.entries, id)
	c.mu.Unlock()

	c.sideMu.Lock()
	for key := range c.side {
		if key.id == id {
			delete(c.side, key)
		}
	}
	c.sideMu.Unlock()

	if !ok {
		return
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.built && !IsUnavailable(entry.handle) {
		if err := entry.handle.Close(); err != nil {
			c.logger.Warn("closing evicted handle",
				zap.String("datasource_id", id.String()),
				zap.String("error", logging.SanitizeError(err)),
			)
		}
	}
	entry.built = false
	entry.handle = nil
}

// Size returns the number of cached identities.
func (c *ConnectionCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// GetExtra returns a secondary cached artifact keyed by (identity, extra).
func (c *ConnectionCache) GetExtra(id uuid.UUID, extra string) (any, bool) {
	c.sideMu.RLock()
	defer c.sideMu.RUnlock()
	v, ok := c.side[sideKey{id: id, extra: extra}]
	return v, ok
}

// PutExtra stores a secondary artifact keyed by (identity, extra).
func (c *ConnectionCache) PutExtra(id uuid.UUID, extra string, value any) {
	c.sideMu.Lock()
	defer c.sideMu.Unlock()
	c.side[sideKey{id: id, extra: extra}] = value
}

// EvictExtra removes one secondary artifact.
func (c *ConnectionCache) EvictExtra(id uuid.UUID, extra string) {
	c.sideMu.Lock()
	defer c.sideMu.Unlock()
	delete(c.side, sideKey{id: id, extra: extra})
}

// entry returns the per-identity entry, creating it under the map lock. The
// map lock is never held while building: the entry's own mutex serializes
// builds for one key without blocking other keys.
func (c *ConnectionCache) entry(id uuid.UUID) *cacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[id]
	if !ok {
		entry = &cacheEntry{}
		c.entries[id] = entry
	}
	return entry
}

func (c *ConnectionCache) build(ctx context.Context, record *models.DatasourceRecord) ClientHandle {
	adapter := Get(record.Provider)
	if adapter == nil {
		c.logger.Error("no adapter registered for provider",
			zap.String("provider", string(record.Provider)),
			zap.String("datasource_id", record.ID.String()),
		)
		return Unavailable
	}

	buildCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeouts.Connect)
	defer cancel()

	handle, err := adapter.BuildClient(buildCtx, record, BuildOptions{
		Timeouts:         c.cfg.Timeouts,
		SharedClusterURI: c.cfg.SharedClusters[record.Provider],
	})
	if err != nil {
		c.logger.Warn("client build failed",
			zap.String("datasource_id", record.ID.String()),
			zap.String("provider", string(record.Provider)),
			zap.String("mode", string(record.ConnectionMode)),
			zap.String("error", logging.SanitizeError(err)),
		)
		return Unavailable
	}

	c.logger.Info("built client handle",
		zap.String("datasource_id", record.ID.String()),
		zap.String("provider", string(record.Provider)),
		zap.String("mode", string(record.ConnectionMode)),
	)
	return handle
}
