package blockchain

import (
	bstate "github.com/prysmaticlabs/prysm/beacon-chain/state"
)

// HeadFetcher defines a common interface for methods that retrieve the currently published
// head tuple.
type HeadFetcher interface {
	CurrentHead() *bstate.BeaconTupleDetails
	HeadSlot() uint64
}

// StateFetcher defines a common interface for methods that retrieve the currently published
// observable state.
type StateFetcher interface {
	CurrentState() *bstate.BeaconStateEx
	StateSlot() uint64
}

// CurrentHead returns the currently published head tuple, or nil before the first head has
// been resolved.
func (s *Service) CurrentHead() *bstate.BeaconTupleDetails {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.head
}

// HeadSlot returns the slot of the currently published head block, or 0 before any head has
// been resolved.
func (s *Service) HeadSlot() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.head == nil || s.head.Block == nil {
		return 0
	}
	return s.head.Block.Slot()
}

// CurrentState returns the most recently projected observable state, or nil before the first
// one has been published.
func (s *Service) CurrentState() *bstate.BeaconStateEx {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latestState
}

// StateSlot returns the slot of the most recently projected observable state, or 0 before any
// state has been published.
func (s *Service) StateSlot() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latestState.Slot()
}
