package blockchain

import (
	"context"
	"testing"
	"time"

	"github.com/prysmaticlabs/prysm/beacon-chain/operations/attestations"
	bstate "github.com/prysmaticlabs/prysm/beacon-chain/state"
	"github.com/prysmaticlabs/prysm/shared/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type e2eAttestation struct {
	data attestations.AttestationData
	bits []byte
}

func (a *e2eAttestation) Data() attestations.AttestationData { return a.data }
func (a *e2eAttestation) AggregationBits() []byte             { return a.bits }

// e2eSpec is a trivial spec collaborator: attestation bits directly encode the one
// participating validator index, and indices map to pubkeys by simple cast.
type e2eSpec struct{}

func (e2eSpec) indicesFor(bits []byte) []uint64 {
	out := make([]uint64, len(bits))
	for i, b := range bits {
		out[i] = uint64(b)
	}
	return out
}

func newE2EConfig(t *testing.T, slotTicks chan uint64, atts chan attestations.Attestation, tuples chan *bstate.BeaconTupleDetails, headFunc HeadFunc) *Config {
	params.SetupTestConfigCleanup(t)
	cfg := params.MainnetConfig().Copy()
	cfg.SlotsPerEpoch = 8
	cfg.MinAttestationInclusionDelay = 1
	cfg.AggregateAttPeriod = 5 * time.Millisecond
	params.OverrideBeaconConfig(cfg)

	return &Config{
		SlotTicks:          slotTicks,
		Attestations:       atts,
		BlockTuples:        tuples,
		HeadFunc:           headFunc,
		PerSlotTransition:  slotTransitionAdd1,
		PerEpochTransition: epochTransitionAdd100,
		IsEpochEnd:         func(slot uint64) bool { return slot%cfg.SlotsPerEpoch == cfg.SlotsPerEpoch-1 },
		TupleStorage:       &fakeTupleStorage{tuples: map[[32]byte]*bstate.BeaconTuple{}},
		AttestingIndices: func(state interface{}, data attestations.AttestationData, bits []byte) ([]uint64, error) {
			return e2eSpec{}.indicesFor(bits), nil
		},
		PubkeysForIndices: func(state interface{}, indices []uint64) ([]attestations.ValidatorPubkey, error) {
			out := make([]attestations.ValidatorPubkey, len(indices))
			for i, idx := range indices {
				out[i][0] = byte(idx)
			}
			return out, nil
		},
	}
}

// TestE2E_ColdStartThenFirstTick covers scenario 1: genesis tuple then a tick at slot 1
// produces exactly one head emission and one observable-state emission at slot 1.
func TestE2E_ColdStartThenFirstTick(t *testing.T) {
	slotTicks := make(chan uint64, 1)
	atts := make(chan attestations.Attestation, 1)
	tuples := make(chan *bstate.BeaconTupleDetails, 1)

	genesis := blockAt(0, 1)
	genesisTuple := &bstate.BeaconTupleDetails{BeaconTuple: bstate.BeaconTuple{
		Block:      genesis,
		FinalState: &bstate.BeaconStateEx{State: fakeState(0), SlotNumber: 0},
	}}

	var currentHead bstate.BeaconBlock = genesis
	headFunc := func(ctx context.Context, resolver AttestationResolver) (bstate.BeaconBlock, error) {
		return currentHead, nil
	}

	cfg := newE2EConfig(t, slotTicks, atts, tuples, headFunc)
	s := NewService(context.Background(), cfg)
	s.Start()
	defer s.Stop()

	headSub := s.HeadFeed().Subscribe()
	defer headSub.Unsubscribe()
	stateSub := s.StateFeed().Subscribe()
	defer stateSub.Unsubscribe()

	tuples <- genesisTuple
	requireValue(t, headSub.C(), 2*time.Second)

	slotTicks <- 1
	stateVal := requireValue(t, stateSub.C(), 2*time.Second).(*ObservableBeaconState)
	assert.Equal(t, uint64(1), stateVal.State.SlotNumber)
	assert.Equal(t, genesis.Root(), stateVal.Head.Root())
}

// TestE2E_AttestationPurgeAtExactThreshold covers scenario 2.
func TestE2E_AttestationPurgeAtExactThreshold(t *testing.T) {
	slotTicks := make(chan uint64, 1)
	atts := make(chan attestations.Attestation, 1)
	tuples := make(chan *bstate.BeaconTupleDetails, 1)

	genesis := blockAt(0, 1)
	genesisTuple := &bstate.BeaconTupleDetails{BeaconTuple: bstate.BeaconTuple{
		Block:      genesis,
		FinalState: &bstate.BeaconStateEx{State: fakeState(0), SlotNumber: 0},
	}}
	headFunc := func(ctx context.Context, resolver AttestationResolver) (bstate.BeaconBlock, error) {
		return genesis, nil
	}

	cfg := newE2EConfig(t, slotTicks, atts, tuples, headFunc)
	s := NewService(context.Background(), cfg)

	var p0, p1, p2 attestations.ValidatorPubkey
	p0[0], p1[0], p2[0] = 0, 1, 2
	s.pool.IngestLatest(context.Background(), p0, &e2eAttestation{data: attestations.AttestationData{Slot: 0}})
	s.pool.IngestLatest(context.Background(), p1, &e2eAttestation{data: attestations.AttestationData{Slot: 1}})
	s.pool.IngestLatest(context.Background(), p2, &e2eAttestation{data: attestations.AttestationData{Slot: 2}})

	s.Start()
	defer s.Stop()

	tuples <- genesisTuple
	time.Sleep(50 * time.Millisecond)
	slotTicks <- 10 // threshold = 10 - 8 - 1 = 1
	time.Sleep(50 * time.Millisecond)

	snap := s.pool.SnapshotByPubkey()
	_, ok0 := snap.LatestAttestation(p0)
	_, ok1 := snap.LatestAttestation(p1)
	_, ok2 := snap.LatestAttestation(p2)
	assert.False(t, ok0, "slot 0 entry should be purged")
	assert.False(t, ok1, "slot 1 entry should be purged (inclusive threshold)")
	assert.True(t, ok2, "slot 2 entry should survive")
}

// TestE2E_Backpressure covers scenario 6: a subscriber that never drains is torn down with a
// back-pressure error, while other subscribers keep receiving emissions.
func TestE2E_Backpressure(t *testing.T) {
	slotTicks := make(chan uint64, 4)
	atts := make(chan attestations.Attestation, 1)
	tuples := make(chan *bstate.BeaconTupleDetails, 1)

	genesis := blockAt(0, 1)
	genesisTuple := &bstate.BeaconTupleDetails{BeaconTuple: bstate.BeaconTuple{
		Block:      genesis,
		FinalState: &bstate.BeaconStateEx{State: fakeState(0), SlotNumber: 0},
	}}
	headFunc := func(ctx context.Context, resolver AttestationResolver) (bstate.BeaconBlock, error) {
		return genesis, nil
	}

	cfg := newE2EConfig(t, slotTicks, atts, tuples, headFunc)
	s := NewService(context.Background(), cfg)
	s.Start()
	defer s.Stop()

	slowSub := s.StateFeed().Subscribe()
	attentiveSub := s.StateFeed().Subscribe()
	defer attentiveSub.Unsubscribe()

	tuples <- genesisTuple
	time.Sleep(50 * time.Millisecond) // let the head update land before the first tick

	slotTicks <- 1
	// Drain the attentive subscriber but never the slow one, so the slow one's buffered
	// channel is already full by the time the next value arrives.
	requireNonNil(t, attentiveSub.C(), 2*time.Second)

	slotTicks <- 2
	select {
	case err := <-slowSub.Err():
		assert.NotNil(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("expected slow subscriber to be torn down with a back-pressure error")
	}

	requireNonNil(t, attentiveSub.C(), 2*time.Second)
}

func requireValue(t *testing.T, c <-chan interface{}, timeout time.Duration) interface{} {
	t.Helper()
	select {
	case v := <-c:
		return v
	case <-time.After(timeout):
		t.Fatal("timed out waiting for value")
		return nil
	}
}

func requireNonNil(t *testing.T, c <-chan interface{}, timeout time.Duration) {
	t.Helper()
	v := requireValue(t, c, timeout)
	require.NotNil(t, v)
}
