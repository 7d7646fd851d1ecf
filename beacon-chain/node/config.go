package node

import (
	"github.com/prysmaticlabs/prysm/beacon-chain/blockchain"
	"github.com/prysmaticlabs/prysm/beacon-chain/operations/attestations"
	bstate "github.com/prysmaticlabs/prysm/beacon-chain/state"
)

// Config bundles every external collaborator the Observable State Processor needs: the
// fork-choice function, the state-transition functions, storage, and the spec helpers the
// attestation aggregation job calls out to. None of these are implemented by this module;
// they are supplied by the surrounding beacon-chain client.
type Config struct {
	HeadFunc             blockchain.HeadFunc
	PerSlotTransition    blockchain.PerSlotTransitionFunc
	PerEpochTransition   blockchain.PerEpochTransitionFunc
	IsEpochEnd           blockchain.IsEpochEndFunc
	TupleStorage         blockchain.TupleStorage
	IncludedAttestations blockchain.IncludedAttestationsFunc
	AttestingIndices     func(state interface{}, data attestations.AttestationData, bits []byte) ([]uint64, error)
	PubkeysForIndices    func(state interface{}, indices []uint64) ([]attestations.ValidatorPubkey, error)

	// SlotTicks, Attestations and BlockTuples are the three external input streams. Each is
	// typically backed by a slotutil.SlotTicker, a gossip subscription, and a block-import
	// pipeline, respectively.
	SlotTicks    <-chan uint64
	Attestations <-chan attestations.Attestation
	BlockTuples  <-chan *bstate.BeaconTupleDetails
}

func (c *Config) blockchainConfig() *blockchain.Config {
	return &blockchain.Config{
		SlotTicks:            c.SlotTicks,
		Attestations:         c.Attestations,
		BlockTuples:          c.BlockTuples,
		HeadFunc:             c.HeadFunc,
		PerSlotTransition:    c.PerSlotTransition,
		PerEpochTransition:   c.PerEpochTransition,
		IsEpochEnd:           c.IsEpochEnd,
		TupleStorage:         c.TupleStorage,
		IncludedAttestations: c.IncludedAttestations,
		AttestingIndices:     c.AttestingIndices,
		PubkeysForIndices:    c.PubkeysForIndices,
	}
}
