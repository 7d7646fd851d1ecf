package blockchain

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	bstate "github.com/prysmaticlabs/prysm/beacon-chain/state"
	"go.opencensus.io/trace"
)

var stateProjectorSlotsAdvanced = promauto.NewCounter(prometheus.CounterOpts{
	Name: "state_projector_slots_advanced_total",
	Help: "The cumulative number of per-slot transitions the state projector has applied.",
})

// project advances source forward to targetSlot one empty slot at a time, applying the
// per-epoch transition at every epoch-boundary slot strictly before targetSlot. It never
// applies the epoch transition at targetSlot itself; projectEpochIfNeeded handles that case
// separately so callers can observe the pre- and post-epoch-transition states as two distinct
// emissions.
func (s *Service) project(ctx context.Context, source *bstate.BeaconStateEx, targetSlot uint64) (*bstate.BeaconStateEx, error) {
	ctx, span := trace.StartSpan(ctx, "state_projector.Project")
	defer span.End()

	if source.SlotNumber >= targetSlot {
		return source, nil
	}

	current := source.State
	slot := source.SlotNumber
	for slot < targetSlot {
		next, err := s.perSlotTransition(ctx, current)
		if err != nil {
			return nil, err
		}
		current = next
		slot++
		stateProjectorSlotsAdvanced.Inc()

		if slot != targetSlot && s.isEpochEnd(slot) {
			current, err = s.perEpochTransition(ctx, current)
			if err != nil {
				return nil, err
			}
		}
	}

	return &bstate.BeaconStateEx{State: current, SlotNumber: slot, Transition: bstate.TransitionSlot}, nil
}

// projectEpochIfNeeded applies the epoch transition at source's own slot, if that slot is an
// epoch boundary and source.SlotNumber == targetSlot. It returns (nil, nil) when no epoch
// transition is due.
func (s *Service) projectEpochIfNeeded(ctx context.Context, source *bstate.BeaconStateEx, targetSlot uint64) (*bstate.BeaconStateEx, error) {
	ctx, span := trace.StartSpan(ctx, "state_projector.ProjectEpochIfNeeded")
	defer span.End()

	if source.SlotNumber != targetSlot || !s.isEpochEnd(targetSlot) {
		return nil, nil
	}

	next, err := s.perEpochTransition(ctx, source.State)
	if err != nil {
		return nil, err
	}
	return &bstate.BeaconStateEx{State: next, SlotNumber: targetSlot, Transition: bstate.TransitionEpoch}, nil
}
