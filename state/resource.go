package state

import (
	"reflect"
	"sync"

	"github.com/cespare/xxhash/v2"
)

const resourceShardCount = 16

// ResourceManager is the process-wide, type-id-keyed, sharded store of
// shared singletons (schema, counters, user-registered services) spec.md
// §5 describes. Each shard is guarded by a sync.RWMutex: reads take the
// shard's read lock, so they are shared among readers but not lock-free,
// and writes take its write lock. Sharding by the stored value's
// reflect.Type mirrors pool's own
// bucket-sharding idiom (pool.shardIndex), reusing the same xxhash already
// wired in for schema's automaton memoization rather than adding a second
// hashing dependency for an identical concern.
type ResourceManager struct {
	shards [resourceShardCount]resourceShard
}

type resourceShard struct {
	mu    sync.RWMutex
	items map[reflect.Type]interface{}
}

// NewResourceManager returns an empty manager.
func NewResourceManager() *ResourceManager {
	rm := &ResourceManager{}
	for i := range rm.shards {
		rm.shards[i].items = make(map[reflect.Type]interface{})
	}
	return rm
}

func (rm *ResourceManager) shardFor(t reflect.Type) *resourceShard {
	h := xxhash.Sum64String(t.String())
	return &rm.shards[h%resourceShardCount]
}

// Register installs value as the process-wide singleton for its dynamic
// type, replacing any value previously registered under that type.
func Register[T any](rm *ResourceManager, value T) {
	t := reflect.TypeOf(value)
	shard := rm.shardFor(t)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	shard.items[t] = value
}

// Resource looks up the process-wide singleton registered for type T.
func Resource[T any](rm *ResourceManager) (T, bool) {
	var zero T
	t := reflect.TypeOf(zero)
	shard := rm.shardFor(t)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	v, ok := shard.items[t]
	if !ok {
		return zero, false
	}
	return v.(T), true
}
