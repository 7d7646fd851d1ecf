// Package attestations implements the Attestation Pool: the OSP component that buffers
// unaggregated attestations off the wire and tracks, per validator, the single latest
// attestation seen for it. Everything here is owned by this package; the pool never reaches
// into the state-transition or storage collaborators itself, it is only ever handed what it
// needs through the small interfaces below.
package attestations

// ValidatorPubkey is a raw BLS12-381 public key, used as the attestation pool's per-validator
// cache key. It is a plain array rather than a slice so it can be used directly as a map key.
type ValidatorPubkey = [48]byte

// AttestationData is the subset of an attestation's data the pool reasons about directly. The
// rest of an attestation's content is opaque to the pool.
type AttestationData struct {
	Slot uint64
}

// Attestation is an opaque, externally-owned attestation reference. The pool groups and
// purges by Data().Slot and hands the aggregation bits to the external spec collaborator to
// resolve participants; it never inspects signatures or committee content itself.
type Attestation interface {
	Data() AttestationData
	AggregationBits() []byte
}

// SpecHelper is the external beacon-chain spec collaborator the aggregation job calls out to
// in order to turn a raw attestation into the set of validators who produced it.
type SpecHelper interface {
	// AttestingIndices returns the validator indices that participated in att, given the
	// beacon state the attestation's committees were computed against.
	AttestingIndices(state interface{}, data AttestationData, bits []byte) ([]uint64, error)
	// PubkeysForIndices maps validator indices to their public keys, given a beacon state.
	PubkeysForIndices(state interface{}, indices []uint64) ([]ValidatorPubkey, error)
}

// The following are nominal, content-free pending-operation kinds the pool's Snapshot exposes
// alongside attestations so a block-production collaborator can compile against one uniform
// "pending operations" surface. The pool never populates any of them: proposer/attester
// slashings, deposits, exits and transfers are out of this component's scope.
type (
	ProposerSlashing struct{}
	AttesterSlashing struct{}
	Deposit          struct{}
	VoluntaryExit    struct{}
	Transfer         struct{}
)
