package parlamentar

import (
	"sync"
	"time"

	"github.com/coolbeans/emenda/pkg/emenda"
)

// DefaultCacheTTL is how long a fetched legislator list stays fresh.
const DefaultCacheTTL = 12 * time.Hour

type cacheEntry struct {
	parlamentares []emenda.Parlamentar
	expiresAt     time.Time
}

// listaCache keeps legislator lists per legislative house. Entries expire
// lazily on access.
type listaCache struct {
	mu         sync.RWMutex
	entries    map[string]cacheEntry
	defaultTTL time.Duration
	now        func() time.Time
}

func newListaCache(defaultTTL time.Duration) *listaCache {
	return &listaCache{
		entries:    make(map[string]cacheEntry),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

func (cache *listaCache) get(casa string) ([]emenda.Parlamentar, bool) {
	cache.mu.RLock()
	entry, exists := cache.entries[casa]
	cache.mu.RUnlock()

	if !exists {
		return nil, false
	}
	if cache.now().After(entry.expiresAt) {
		cache.mu.Lock()
		if current, stillExists := cache.entries[casa]; stillExists && cache.now().After(current.expiresAt) {
			delete(cache.entries, casa)
		}
		cache.mu.Unlock()
		return nil, false
	}
	return append([]emenda.Parlamentar(nil), entry.parlamentares...), true
}

func (cache *listaCache) set(casa string, parlamentares []emenda.Parlamentar) {
	cache.mu.Lock()
	cache.entries[casa] = cacheEntry{
		parlamentares: append([]emenda.Parlamentar(nil), parlamentares...),
		expiresAt:     cache.now().Add(cache.defaultTTL),
	}
	cache.mu.Unlock()
}

func (cache *listaCache) invalidate() {
	cache.mu.Lock()
	cache.entries = make(map[string]cacheEntry)
	cache.mu.Unlock()
}
