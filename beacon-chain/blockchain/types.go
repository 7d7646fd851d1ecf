package blockchain

import (
	"context"

	"github.com/prysmaticlabs/prysm/beacon-chain/operations/attestations"
	bstate "github.com/prysmaticlabs/prysm/beacon-chain/state"
)

// ObservableBeaconState is the triple published on the observable-state output stream: the
// head block the state was projected from, the projected state itself, and the
// pending-operations snapshot in effect when it was produced.
type ObservableBeaconState struct {
	Head       bstate.BeaconBlock
	State      *bstate.BeaconStateEx
	PendingOps *attestations.Snapshot
}

// AttestationResolver is handed to the external head function so it can ask, for a given
// validator, what the latest cached attestation mentioning it is.
type AttestationResolver func(pubkey attestations.ValidatorPubkey) (attestations.Attestation, bool)

// HeadFunc is the external fork-choice collaborator: given a resolver over the current
// pending-operations snapshot, it returns the winning block. The OSP never implements
// fork-choice scoring itself.
type HeadFunc func(ctx context.Context, resolver AttestationResolver) (bstate.BeaconBlock, error)

// PerSlotTransitionFunc advances state by exactly one empty slot.
type PerSlotTransitionFunc func(ctx context.Context, s interface{}) (interface{}, error)

// PerEpochTransitionFunc applies the heavier epoch transition. Callers only invoke this at
// epoch boundaries.
type PerEpochTransitionFunc func(ctx context.Context, s interface{}) (interface{}, error)

// IsEpochEndFunc reports whether slot is the last slot of an epoch.
type IsEpochEndFunc func(slot uint64) bool

// TupleStorage is the durable store the head tracker falls back to on a tuple-cache miss.
type TupleStorage interface {
	// Get returns the tuple stored for root, or (nil, nil) on a clean miss.
	Get(ctx context.Context, root [32]byte) (*bstate.BeaconTuple, error)
}

// IncludedAttestation identifies a (validator, slot) pair the spec reports as already
// present in a freshly imported block's post-state, and therefore safe to drop from the
// pending-attestation cache.
type IncludedAttestation struct {
	Pubkey attestations.ValidatorPubkey
	Slot   uint64
}

// IncludedAttestationsFunc asks the external spec collaborator which (validator, slot) pairs
// a freshly imported block's post-state already accounts for.
type IncludedAttestationsFunc func(ctx context.Context, details *bstate.BeaconTupleDetails) ([]IncludedAttestation, error)
