// Package keyring resolves public keys for federated identities. Keys for
// remote identities are fetched from the owning host's directory endpoint and
// cached; keys for local identities come straight from registration storage.
package keyring

import (
	"context"
	"crypto/ed25519"
	"sync"

	"fedchat/internal/entity"
	"fedchat/pkg/fault"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"go.uber.org/zap"
)

const DefaultCacheSize = 1024

// Resolver obtains a public key for an identity, possibly over the network.
type Resolver interface {
	Resolve(ctx context.Context, id entity.Identity) (ed25519.PublicKey, error)
}

// Directory is the per-process key cache. Reads take the shared lock;
// insertion takes the exclusive lock only for the instant of the insert.
// Concurrent misses for the same identity may both fetch; both converge to
// the same cached value, so no single-flight is attempted. Entries are never
// invalidated, so a rotated key stays stale until evicted by size pressure.
type Directory struct {
	localHost string
	local     Resolver
	remote    Resolver
	logger    *zap.Logger

	mu    sync.RWMutex
	cache *simplelru.LRU[entity.Identity, ed25519.PublicKey]
}

func NewDirectory(localHost string, local, remote Resolver, cacheSize int, logger *zap.Logger) (*Directory, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := simplelru.NewLRU[entity.Identity, ed25519.PublicKey](cacheSize, nil)
	if err != nil {
		return nil, err
	}
	return &Directory{
		localHost: localHost,
		local:     local,
		remote:    remote,
		logger:    logger,
		cache:     cache,
	}, nil
}

// Resolve returns the public key for id, fetching and caching it on a miss.
// A key that cannot be obtained is an IDENTITY_UNRESOLVED failure; callers
// must not verify signatures without a key.
func (d *Directory) Resolve(ctx context.Context, id entity.Identity) (ed25519.PublicKey, error) {
	// The struct itself is the cache key: a "@" join would let a crafted name
	// collide with another identity's (name, host) pair.
	// Peek rather than Get: hits stay under the read lock and do not touch
	// recency, so eviction order is set by insertion.
	d.mu.RLock()
	pub, ok := d.cache.Peek(id)
	d.mu.RUnlock()
	if ok {
		return pub, nil
	}

	resolver := d.remote
	if id.Host == d.localHost {
		resolver = d.local
	}

	pub, err := resolver.Resolve(ctx, id)
	if err != nil {
		return nil, fault.IdentityUnresolved("no public key for "+id.String(), err)
	}

	d.mu.Lock()
	d.cache.Add(id, pub)
	d.mu.Unlock()

	d.logger.Debug("cached public key", zap.String("identity", id.String()))
	return pub, nil
}

// CachedKeys reports how many keys are currently cached.
func (d *Directory) CachedKeys() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cache.Len()
}
