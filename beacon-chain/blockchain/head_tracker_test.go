package blockchain

import (
	"context"
	"testing"

	"github.com/prysmaticlabs/prysm/beacon-chain/cache"
	"github.com/prysmaticlabs/prysm/beacon-chain/operations/attestations"
	bstate "github.com/prysmaticlabs/prysm/beacon-chain/state"
	"github.com/prysmaticlabs/prysm/shared/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTupleStorage struct {
	tuples map[[32]byte]*bstate.BeaconTuple
}

func (f *fakeTupleStorage) Get(ctx context.Context, root [32]byte) (*bstate.BeaconTuple, error) {
	return f.tuples[root], nil
}

func newHeadTrackerTestService(headFunc HeadFunc, storage TupleStorage) *Service {
	return &Service{
		pool:               attestations.NewPool(),
		tupleCache:         cache.NewTupleCache(),
		headFunc:           headFunc,
		tupleStorage:       storage,
		perSlotTransition:  slotTransitionAdd1,
		perEpochTransition: epochTransitionAdd100,
		isEpochEnd:         isEpochEndEvery8,
		headFeed:           event.NewFeed("head"),
		stateFeed:          event.NewFeed("observable_state"),
		opsFeed:            event.NewFeed("pending_operations"),
	}
}

func TestUpdateHead_ColdStartFromCache(t *testing.T) {
	block := blockAt(0, 1)
	details := &bstate.BeaconTupleDetails{BeaconTuple: bstate.BeaconTuple{Block: block, FinalState: &bstate.BeaconStateEx{State: fakeState(0), SlotNumber: 0}}}

	headFunc := func(ctx context.Context, resolver AttestationResolver) (bstate.BeaconBlock, error) {
		return block, nil
	}
	s := newHeadTrackerTestService(headFunc, &fakeTupleStorage{tuples: map[[32]byte]*bstate.BeaconTuple{}})
	require.NoError(t, s.tupleCache.Put(block.Root(), details))

	require.NoError(t, s.updateHead(context.Background()))
	assert.Equal(t, details, s.CurrentHead())
}

func TestUpdateHead_NoopWhenUnchanged(t *testing.T) {
	block := blockAt(0, 1)
	details := &bstate.BeaconTupleDetails{BeaconTuple: bstate.BeaconTuple{Block: block, FinalState: &bstate.BeaconStateEx{State: fakeState(0), SlotNumber: 0}}}

	headFunc := func(ctx context.Context, resolver AttestationResolver) (bstate.BeaconBlock, error) {
		return block, nil
	}
	s := newHeadTrackerTestService(headFunc, &fakeTupleStorage{tuples: map[[32]byte]*bstate.BeaconTuple{}})
	require.NoError(t, s.tupleCache.Put(block.Root(), details))
	require.NoError(t, s.updateHead(context.Background()))

	sub := s.headFeed.Subscribe()
	defer sub.Unsubscribe()
	<-sub.C() // drain the replay of the first head

	require.NoError(t, s.updateHead(context.Background()))
	select {
	case <-sub.C():
		t.Fatal("expected no second head emission when head is unchanged")
	default:
	}
}

func TestUpdateHead_FallsBackToStorageOnCacheMiss(t *testing.T) {
	block := blockAt(3, 7)
	tuple := &bstate.BeaconTuple{Block: block, FinalState: &bstate.BeaconStateEx{State: fakeState(0), SlotNumber: 3}}

	headFunc := func(ctx context.Context, resolver AttestationResolver) (bstate.BeaconBlock, error) {
		return block, nil
	}
	storage := &fakeTupleStorage{tuples: map[[32]byte]*bstate.BeaconTuple{block.Root(): tuple}}
	s := newHeadTrackerTestService(headFunc, storage)

	require.NoError(t, s.updateHead(context.Background()))
	require.NotNil(t, s.CurrentHead())
	assert.Equal(t, block.Root(), s.CurrentHead().Block.Root())
}

// TestUpdateHead_EmitsNewHeadOnBlockChange covers scenario 4: once the fork-choice function
// returns a different block than the current head, updateHead emits a new head event and
// CurrentHead reflects the new tuple.
func TestUpdateHead_EmitsNewHeadOnBlockChange(t *testing.T) {
	oldBlock := blockAt(1, 1)
	newBlock := blockAt(2, 2)
	oldDetails := &bstate.BeaconTupleDetails{BeaconTuple: bstate.BeaconTuple{Block: oldBlock, FinalState: &bstate.BeaconStateEx{State: fakeState(0), SlotNumber: 1}}}
	newDetails := &bstate.BeaconTupleDetails{BeaconTuple: bstate.BeaconTuple{Block: newBlock, FinalState: &bstate.BeaconStateEx{State: fakeState(0), SlotNumber: 2}}}

	var currentHead bstate.BeaconBlock = oldBlock
	headFunc := func(ctx context.Context, resolver AttestationResolver) (bstate.BeaconBlock, error) {
		return currentHead, nil
	}
	s := newHeadTrackerTestService(headFunc, &fakeTupleStorage{tuples: map[[32]byte]*bstate.BeaconTuple{}})
	require.NoError(t, s.tupleCache.Put(oldBlock.Root(), oldDetails))
	require.NoError(t, s.tupleCache.Put(newBlock.Root(), newDetails))

	require.NoError(t, s.updateHead(context.Background()))
	assert.Equal(t, oldBlock.Root(), s.CurrentHead().Block.Root())

	sub := s.headFeed.Subscribe()
	defer sub.Unsubscribe()
	<-sub.C() // drain the replay of the old head

	currentHead = newBlock
	require.NoError(t, s.updateHead(context.Background()))
	assert.Equal(t, newBlock.Root(), s.CurrentHead().Block.Root())

	emitted := (<-sub.C()).(*bstate.BeaconChainHead)
	assert.Equal(t, newBlock.Root(), emitted.Tuple.Block.Root())
}

func TestUpdateHead_ErrorOnTotalMiss(t *testing.T) {
	block := blockAt(3, 9)
	headFunc := func(ctx context.Context, resolver AttestationResolver) (bstate.BeaconBlock, error) {
		return block, nil
	}
	s := newHeadTrackerTestService(headFunc, &fakeTupleStorage{tuples: map[[32]byte]*bstate.BeaconTuple{}})

	err := s.updateHead(context.Background())
	assert.ErrorIs(t, err, ErrHeadTupleMissing)
}
