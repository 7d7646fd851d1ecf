package blockchain

import (
	"context"

	"github.com/prysmaticlabs/prysm/beacon-chain/operations/attestations"
	bstate "github.com/prysmaticlabs/prysm/beacon-chain/state"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/trace"
)

// onNewSlot is the continuous executor's slot-tick handler: it purges the attestation pool's
// latest-attestation cache for newSlot, then republishes the observable state for the current
// head at newSlot. It is a no-op before any head has ever been published (invariant 4).
func (s *Service) onNewSlot(ctx context.Context, newSlot uint64) error {
	ctx, span := trace.StartSpan(ctx, "blockchain.OnNewSlot")
	defer span.End()

	s.mu.RLock()
	head := s.head
	s.mu.RUnlock()
	if head == nil {
		return nil
	}
	if head.Block.Slot() > newSlot {
		return nil
	}

	s.pool.Purge(ctx, newSlot)
	snapshot := s.pool.SnapshotByPubkey()
	s.opsFeed.Send(snapshot)
	return s.publish(ctx, head, newSlot, snapshot)
}

// publish implements the observable-state emission rules for a single (head, slot) pair. All
// observable-state emissions it produces share the single snapshot passed in, so a
// multi-emission tick (e.g. an epoch boundary) is internally consistent.
func (s *Service) publish(ctx context.Context, head *bstate.BeaconTupleDetails, slot uint64, snapshot *attestations.Snapshot) error {
	ctx, span := trace.StartSpan(ctx, "blockchain.Publish")
	defer span.End()

	headSlot := head.Block.Slot()

	switch {
	case slot > headSlot:
		projected, err := s.project(ctx, head.FinalState, slot)
		if err != nil {
			return err
		}
		s.setLatestState(projected)
		s.emitObservableState(head.Block, projected, snapshot)

		postEpoch, err := s.projectEpochIfNeeded(ctx, projected, slot)
		if err != nil {
			return err
		}
		if postEpoch != nil {
			s.setLatestState(postEpoch)
			s.emitObservableState(head.Block, postEpoch, snapshot)
		}

	case slot == headSlot:
		emitted := false
		for _, candidate := range []*bstate.BeaconStateEx{head.PostSlot, head.PostBlock, head.PostEpoch} {
			if candidate == nil {
				continue
			}
			s.setLatestState(candidate)
			s.emitObservableState(head.Block, candidate, snapshot)
			emitted = true
		}
		if !emitted {
			s.setLatestState(head.FinalState)
			s.emitObservableState(head.Block, head.FinalState, snapshot)
		}

	default:
		// slot < headSlot is impossible by invariant 5; callers filter before reaching here.
	}

	return nil
}

func (s *Service) setLatestState(st *bstate.BeaconStateEx) {
	s.mu.Lock()
	s.latestState = st
	s.mu.Unlock()
}

func (s *Service) emitObservableState(head bstate.BeaconBlock, st *bstate.BeaconStateEx, snapshot *attestations.Snapshot) {
	log.WithFields(logrus.Fields{
		"slot":           st.SlotNumber,
		"transitionType": st.Transition,
		"headRoot":       shortRoot(head.Root()),
	}).Debug("Publishing observable state")
	s.stateFeed.Send(&ObservableBeaconState{Head: head, State: st, PendingOps: snapshot})
}
