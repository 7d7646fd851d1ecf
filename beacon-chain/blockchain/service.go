// Package blockchain implements the Observable State Processor: it consumes slot ticks,
// gossiped attestations and imported block tuples, and publishes the current fork-choice
// head, the observable beacon state, and the pending-operations snapshot to subscribers.
package blockchain

import (
	"context"
	"sync"

	"github.com/prysmaticlabs/prysm/beacon-chain/cache"
	"github.com/prysmaticlabs/prysm/beacon-chain/operations/attestations"
	bstate "github.com/prysmaticlabs/prysm/beacon-chain/state"
	"github.com/prysmaticlabs/prysm/shared/event"
	handler "github.com/prysmaticlabs/prysm/shared/messagehandler"
)

// Config wires the Service to its external collaborators and input streams. Every field
// bridges this subsystem to functionality that lives outside it: fork choice, state
// transitions, storage, and the beacon-chain spec.
type Config struct {
	SlotTicks    <-chan uint64
	Attestations <-chan attestations.Attestation
	BlockTuples  <-chan *bstate.BeaconTupleDetails

	HeadFunc             HeadFunc
	PerSlotTransition    PerSlotTransitionFunc
	PerEpochTransition   PerEpochTransitionFunc
	IsEpochEnd           IsEpochEndFunc
	TupleStorage         TupleStorage
	IncludedAttestations IncludedAttestationsFunc

	// AttestingIndices and PubkeysForIndices are the external spec collaborators the
	// periodic aggregation job uses to expand a drained attestation to the validators who
	// produced it. See attestations.SpecHelper.
	AttestingIndices  func(state interface{}, data attestations.AttestationData, bits []byte) ([]uint64, error)
	PubkeysForIndices func(state interface{}, indices []uint64) ([]attestations.ValidatorPubkey, error)
}

// Service is the Event Router plus Observable-State Publisher: it owns the three input
// subscriptions, dispatches work to the aggregation job and the continuous executor, and
// publishes to the three output feeds.
type Service struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	cfg *Config

	pool       *attestations.Pool
	tupleCache *cache.TupleCache
	aggregator *attestations.AggregationService

	headFunc           HeadFunc
	perSlotTransition  PerSlotTransitionFunc
	perEpochTransition PerEpochTransitionFunc
	isEpochEnd         IsEpochEndFunc
	tupleStorage       TupleStorage
	includedAtts       IncludedAttestationsFunc

	mu          sync.RWMutex
	head        *bstate.BeaconTupleDetails
	latestState *bstate.BeaconStateEx

	headFeed  *event.Feed
	stateFeed *event.Feed
	opsFeed   *event.Feed
}

// NewService constructs a Service. Start must be called to begin processing.
func NewService(ctx context.Context, cfg *Config) *Service {
	ctx, cancel := context.WithCancel(ctx)
	pool := attestations.NewPool()
	s := &Service{
		ctx:                ctx,
		cancel:             cancel,
		cfg:                cfg,
		pool:               pool,
		tupleCache:         cache.NewTupleCache(),
		headFunc:           cfg.HeadFunc,
		perSlotTransition:  cfg.PerSlotTransition,
		perEpochTransition: cfg.PerEpochTransition,
		isEpochEnd:         cfg.IsEpochEnd,
		tupleStorage:       cfg.TupleStorage,
		includedAtts:       cfg.IncludedAttestations,
		headFeed:           event.NewFeed("head"),
		stateFeed:          event.NewFeed("observable_state"),
		opsFeed:            event.NewFeed("pending_operations"),
	}
	s.aggregator = attestations.NewAggregationService(pool, specHelperAdapter{s}, func() (interface{}, uint64, bool) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		if s.latestState == nil {
			return nil, 0, false
		}
		return s.latestState.State, s.latestState.SlotNumber, true
	})
	return s
}

// Start wires the three input subscriptions and schedules the aggregation job. Start is not
// idempotent: a second call launches a second aggregation loop and duplicate consumer
// goroutines. Call it exactly once per Service.
func (s *Service) Start() {
	s.aggregator.Start()

	s.wg.Add(1)
	go s.consumeAttestations()

	s.wg.Add(1)
	go s.continuousExecutor()
}

// Stop shuts down the aggregation job, the attestation consumer and the continuous executor,
// and waits for them to exit. It does not close the output feeds: subscriptions still
// attached stay open and receive no further values.
func (s *Service) Stop() error {
	s.cancel()
	if err := s.aggregator.Stop(); err != nil {
		return err
	}
	s.wg.Wait()
	return nil
}

// consumeAttestations is the trivial input-reception handler for the attestations stream: it
// only ever buffers a value, per the concurrency model's rule that input-reception handlers
// do no real work.
func (s *Service) consumeAttestations() {
	defer s.wg.Done()
	for {
		select {
		case att, ok := <-s.cfg.Attestations:
			if !ok {
				return
			}
			s.pool.Offer(s.ctx, att)
		case <-s.ctx.Done():
			return
		}
	}
}

// continuousExecutor is the single-threaded daemon running slot-tick-driven purge-and-publish
// work and block-import-driven cache-clean-and-head-update work. Both kinds of input are
// handled on this one goroutine so head and latest-state updates are linearly ordered without
// a cross-component lock.
func (s *Service) continuousExecutor() {
	defer s.wg.Done()
	for {
		select {
		case slot, ok := <-s.cfg.SlotTicks:
			if !ok {
				return
			}
			handler.SafelyHandleMessage(s.ctx, func(ctx context.Context) error {
				return s.onNewSlot(ctx, slot)
			})
		case tuple, ok := <-s.cfg.BlockTuples:
			if !ok {
				return
			}
			handler.SafelyHandleMessage(s.ctx, func(ctx context.Context) error {
				return s.onBlockTuple(ctx, tuple)
			})
		case <-s.ctx.Done():
			return
		}
	}
}

// onBlockTuple handles one imported block tuple: caches it, forgets the attestations its
// post-state already accounts for, then runs a head update.
func (s *Service) onBlockTuple(ctx context.Context, details *bstate.BeaconTupleDetails) error {
	root := details.Block.Root()
	if err := s.tupleCache.Put(root, details); err != nil {
		return err
	}

	if s.includedAtts != nil {
		included, err := s.includedAtts(ctx, details)
		if err != nil {
			return err
		}
		for _, inc := range included {
			s.pool.Forget(inc.Pubkey, inc.Slot)
		}
	}

	return s.updateHead(ctx)
}

// HeadFeed returns the replay-last broadcast of BeaconChainHead values.
func (s *Service) HeadFeed() *event.Feed { return s.headFeed }

// StateFeed returns the replay-last broadcast of ObservableBeaconState values.
func (s *Service) StateFeed() *event.Feed { return s.stateFeed }

// PendingOpsFeed returns the replay-last broadcast of pending-operations Snapshot values.
func (s *Service) PendingOpsFeed() *event.Feed { return s.opsFeed }

// specHelperAdapter adapts Config's spec-collaborator function fields into the
// attestations.SpecHelper interface the aggregation job needs, without requiring that
// package to depend on blockchain's richer Config.
type specHelperAdapter struct {
	s *Service
}

func (a specHelperAdapter) AttestingIndices(state interface{}, data attestations.AttestationData, bits []byte) ([]uint64, error) {
	return a.s.cfg.AttestingIndices(state, data, bits)
}

func (a specHelperAdapter) PubkeysForIndices(state interface{}, indices []uint64) ([]attestations.ValidatorPubkey, error) {
	return a.s.cfg.PubkeysForIndices(state, indices)
}
