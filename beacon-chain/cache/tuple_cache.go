package cache

import (
	"encoding/hex"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	state "github.com/prysmaticlabs/prysm/beacon-chain/state"
	"k8s.io/client-go/tools/cache"
)

// maxTupleCacheSize bounds the tuple-details cache at 256 entries. Beyond that, the oldest
// entry by insertion order is evicted, never the least-recently-read one: a cache hit must
// not change an entry's eviction order.
const maxTupleCacheSize = 256

var (
	tupleCacheHit = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tuple_cache_hit",
		Help: "The number of tuple-details cache lookups that were present in the cache.",
	})
	tupleCacheMiss = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tuple_cache_miss",
		Help: "The number of tuple-details cache lookups that were absent from the cache.",
	})
	tupleCacheSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tuple_cache_size",
		Help: "The number of entries currently held in the tuple-details cache.",
	})
	tupleCacheEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tuple_cache_evicted_total",
		Help: "The number of tuple-details cache entries evicted for exceeding the size bound.",
	})
)

// TupleCache holds the most recently seen BeaconTupleDetails, keyed by block root, bounded at
// maxTupleCacheSize entries and evicted oldest-in-first-out. It exists so the head tracker can
// avoid a storage round trip for a tuple it has already built this run.
type TupleCache struct {
	cache *cache.FIFO
}

// NewTupleCache returns an empty TupleCache.
func NewTupleCache() *TupleCache {
	return &TupleCache{cache: cache.NewFIFO(tupleWrapperKey)}
}

type tupleWrapper struct {
	root    [32]byte
	details *state.BeaconTupleDetails
}

func tupleWrapperKey(obj interface{}) (string, error) {
	w, ok := obj.(*tupleWrapper)
	if !ok || w == nil {
		return "", errors.New("tuple cache: unexpected object type")
	}
	return hex.EncodeToString(w.root[:]), nil
}

// Put records details for root, evicting the oldest entry if the cache is at capacity.
func (c *TupleCache) Put(root [32]byte, details *state.BeaconTupleDetails) error {
	if err := c.cache.Update(&tupleWrapper{root: root, details: details}); err != nil {
		return err
	}
	trim(c.cache, maxTupleCacheSize)
	tupleCacheSize.Set(float64(len(c.cache.ListKeys())))
	return nil
}

// Get returns the cached details for root, if any.
func (c *TupleCache) Get(root [32]byte) (*state.BeaconTupleDetails, bool) {
	key := hex.EncodeToString(root[:])
	item, exists, err := c.cache.GetByKey(key)
	if err != nil || !exists {
		tupleCacheMiss.Inc()
		return nil, false
	}
	tupleCacheHit.Inc()
	return item.(*tupleWrapper).details, true
}

// trim evicts the oldest entries of c until it holds at most max, by insertion order.
func trim(c *cache.FIFO, max int) {
	for len(c.ListKeys()) > max {
		if _, err := c.Pop(func(obj interface{}) error { return nil }); err != nil {
			return
		}
		tupleCacheEvicted.Inc()
	}
}
