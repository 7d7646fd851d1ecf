// Package state defines the small set of data types the Observable State Processor shares
// across its components. The beacon block and the consensus state itself are owned
// externally (by the state-transition and storage collaborators); this package only defines
// the shapes the OSP needs to hold references to them and reason about their slots.
package state

// BeaconBlock is an opaque, externally-owned block reference. The OSP never inspects a
// block's contents beyond its slot and content root; it uses the root as a map/cache key.
type BeaconBlock interface {
	Slot() uint64
	Root() [32]byte
}

// TransitionType tags how a BeaconStateEx came to be, so subscribers and tests can tell a
// just-ticked-forward state from a just-epoch-transitioned one without recomputing it.
type TransitionType int

const (
	// TransitionInitial marks a state as-received, before any OSP-driven transition ran.
	TransitionInitial TransitionType = iota
	// TransitionSlot marks a state produced by one or more per-slot transitions.
	TransitionSlot
	// TransitionBlock marks a state produced by a per-block transition (i.e. a tuple's
	// final state, or a precomputed intermediate carried by a BeaconTupleDetails).
	TransitionBlock
	// TransitionEpoch marks a state produced by a per-epoch transition.
	TransitionEpoch
)

func (t TransitionType) String() string {
	switch t {
	case TransitionInitial:
		return "INITIAL"
	case TransitionSlot:
		return "SLOT"
	case TransitionBlock:
		return "BLOCK"
	case TransitionEpoch:
		return "EPOCH"
	default:
		return "UNKNOWN"
	}
}

// BeaconStateEx is the consensus state plus the transition that produced it. The
// underlying consensus state is opaque to the OSP (State), which only ever passes it back
// to the external per-slot/per-epoch transition collaborators.
type BeaconStateEx struct {
	State      interface{}
	SlotNumber uint64
	Transition TransitionType
}

// Slot returns the slot this state represents.
func (b *BeaconStateEx) Slot() uint64 {
	if b == nil {
		return 0
	}
	return b.SlotNumber
}

// BeaconTuple is a (block, post-block state) pair as loaded from storage by block root.
type BeaconTuple struct {
	Block      BeaconBlock
	FinalState *BeaconStateEx
}

// BeaconTupleDetails augments a BeaconTuple with up to three intermediate states the
// importer may have already computed while processing the block: the state immediately
// after the per-slot transition at the block's own slot (PostSlot), the state after the
// block transition (PostBlock, which is always equal in value to FinalState), and the state
// after the epoch transition if the block's slot was an epoch boundary (PostEpoch). Any of
// the three may be nil.
type BeaconTupleDetails struct {
	BeaconTuple
	PostSlot  *BeaconStateEx
	PostBlock *BeaconStateEx
	PostEpoch *BeaconStateEx
}

// BeaconChainHead wraps the current fork-choice head tuple.
type BeaconChainHead struct {
	Tuple *BeaconTupleDetails
}
