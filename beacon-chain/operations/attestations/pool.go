package attestations

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prysmaticlabs/prysm/shared/params"
	"go.opencensus.io/trace"
)

var (
	poolBufferSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "attestation_pool_buffer_size",
		Help: "The number of unaggregated attestations currently buffered, awaiting drain.",
	})
	poolLatestCacheSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "attestation_pool_latest_cache_size",
		Help: "The number of (pubkey, slot) latest-attestation entries currently cached.",
	})
	poolPurgedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attestation_pool_purged_total",
		Help: "The number of latest-attestation entries purged for falling below the retention threshold.",
	})
	poolForgottenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attestation_pool_forgotten_total",
		Help: "The number of latest-attestation entries explicitly forgotten.",
	})
)

type latestKey struct {
	pubkey ValidatorPubkey
	slot   uint64
}

// Pool is the Attestation Pool: an unaggregated-attestation buffer plus a per-(pubkey, slot)
// latest-attestation cache. It has no opinion on where attestations come from or how
// participants are resolved; those are supplied by its caller (the periodic aggregation job)
// and the external SpecHelper.
type Pool struct {
	mu     sync.Mutex
	buffer []Attestation
	latest map[latestKey]Attestation
}

// NewPool returns an empty Pool.
func NewPool() *Pool {
	return &Pool{latest: make(map[latestKey]Attestation)}
}

// Offer appends att to the unaggregated buffer. Offer never blocks and never rejects an
// attestation on capacity grounds; the buffer is drained, not bounded.
func (p *Pool) Offer(ctx context.Context, att Attestation) {
	_, span := trace.StartSpan(ctx, "attestations.Offer")
	defer span.End()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.buffer = append(p.buffer, att)
	poolBufferSize.Set(float64(len(p.buffer)))
}

// DrainUpTo removes and returns every buffered attestation whose Data().Slot is less than or
// equal to slot, in the order they were offered. Attestations for a later slot are left in
// the buffer for a future drain.
func (p *Pool) DrainUpTo(ctx context.Context, slot uint64) []Attestation {
	_, span := trace.StartSpan(ctx, "attestations.DrainUpTo")
	defer span.End()

	p.mu.Lock()
	defer p.mu.Unlock()

	var drained []Attestation
	var remaining []Attestation
	for _, att := range p.buffer {
		if att.Data().Slot <= slot {
			drained = append(drained, att)
		} else {
			remaining = append(remaining, att)
		}
	}
	p.buffer = remaining
	poolBufferSize.Set(float64(len(p.buffer)))
	return drained
}

// IngestLatest records att as the latest attestation seen from pubkey at att.Data().Slot.
// It overwrites any previous attestation already cached for the same (pubkey, slot) pair.
func (p *Pool) IngestLatest(ctx context.Context, pubkey ValidatorPubkey, att Attestation) {
	_, span := trace.StartSpan(ctx, "attestations.IngestLatest")
	defer span.End()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.latest[latestKey{pubkey: pubkey, slot: att.Data().Slot}] = att
	poolLatestCacheSize.Set(float64(len(p.latest)))
}

// Forget removes the cached latest attestation for (pubkey, slot), if any.
func (p *Pool) Forget(pubkey ValidatorPubkey, slot uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := latestKey{pubkey: pubkey, slot: slot}
	if _, ok := p.latest[key]; ok {
		delete(p.latest, key)
		poolForgottenTotal.Inc()
		poolLatestCacheSize.Set(float64(len(p.latest)))
	}
}

// Purge removes every cached latest attestation whose slot is at or below the retention
// threshold for newSlot: threshold = newSlot - SLOTS_PER_EPOCH - MIN_ATTESTATION_INCLUSION_DELAY.
// The comparison is inclusive (an entry exactly at the threshold is purged), matching the
// window a block at newSlot can still include. If newSlot has not yet advanced far enough
// for the threshold to be non-negative, Purge is a no-op.
func (p *Pool) Purge(ctx context.Context, newSlot uint64) {
	_, span := trace.StartSpan(ctx, "attestations.Purge")
	defer span.End()

	cfg := params.BeaconConfig()
	window := cfg.SlotsPerEpoch + cfg.MinAttestationInclusionDelay
	if newSlot < window {
		return
	}
	threshold := newSlot - window

	p.mu.Lock()
	defer p.mu.Unlock()
	for key := range p.latest {
		if key.slot <= threshold {
			delete(p.latest, key)
			poolPurgedTotal.Inc()
		}
	}
	poolLatestCacheSize.Set(float64(len(p.latest)))
}

// SnapshotByPubkey returns an immutable snapshot of the pool's current latest-attestation
// cache, grouped by validator public key, for publication alongside an observable state.
func (p *Pool) SnapshotByPubkey() *Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	grouped := make(map[ValidatorPubkey][]Attestation, len(p.latest))
	for key, att := range p.latest {
		grouped[key.pubkey] = append(grouped[key.pubkey], att)
	}
	return &Snapshot{byPubkey: grouped}
}
