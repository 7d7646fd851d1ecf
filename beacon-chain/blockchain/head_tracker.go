package blockchain

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/pkg/errors"
	"github.com/prysmaticlabs/prysm/beacon-chain/operations/attestations"
	bstate "github.com/prysmaticlabs/prysm/beacon-chain/state"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/trace"
)

// ErrHeadTupleMissing is returned when the head function names a block that is present in
// neither the tuple-details cache nor tuple storage. Per the error-handling model this is a
// consistency violation of the surrounding system, never an expected outcome, and the
// current tick's head update aborts without publishing.
var ErrHeadTupleMissing = errors.New("blockchain: tuple missing for block returned by head function")

// updateHead runs one head-update pass: ask the external head function for the
// fork-choice winner, and if it differs from the currently published head, resolve and
// publish its tuple.
func (s *Service) updateHead(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "blockchain.UpdateHead")
	defer span.End()

	snapshot := s.pool.SnapshotByPubkey()
	s.opsFeed.Send(snapshot)
	resolver := AttestationResolver(func(pubkey attestations.ValidatorPubkey) (attestations.Attestation, bool) {
		return snapshot.LatestAttestation(pubkey)
	})

	block, err := s.headFunc(ctx, resolver)
	if err != nil {
		return errors.Wrap(err, "head function failed")
	}

	s.mu.RLock()
	currentHead := s.head
	s.mu.RUnlock()

	if currentHead != nil && currentHead.Block != nil && currentHead.Block.Root() == block.Root() {
		log.WithFields(logrus.Fields{
			"slot": block.Slot(),
			"root": shortRoot(block.Root()),
		}).Debug("Head unchanged")
		return nil
	}

	root := block.Root()
	details, ok := s.tupleCache.Get(root)
	if !ok {
		tuple, err := s.tupleStorage.Get(ctx, root)
		if err != nil {
			return errors.Wrap(err, "tuple storage lookup failed")
		}
		if tuple == nil {
			return ErrHeadTupleMissing
		}
		details = &bstate.BeaconTupleDetails{BeaconTuple: *tuple}
	}

	s.mu.Lock()
	s.head = details
	latestState := s.latestState
	s.mu.Unlock()

	log.WithFields(logrus.Fields{
		"slot": details.Block.Slot(),
		"root": shortRoot(details.Block.Root()),
	}).Info("New head")

	s.headFeed.Send(&bstate.BeaconChainHead{Tuple: details})

	if latestState != nil && details.Block.Slot() <= latestState.SlotNumber {
		return s.publish(ctx, details, latestState.SlotNumber, snapshot)
	}
	return nil
}

// shortRoot formats a content root the same truncated-hex way the rest of the client logs
// roots, so a log line stays readable without dumping the full 32 bytes.
func shortRoot(root [32]byte) string {
	return fmt.Sprintf("0x%s...", hex.EncodeToString(root[:])[:8])
}
