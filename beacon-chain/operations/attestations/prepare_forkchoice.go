package attestations

import (
	"context"
	"time"

	"github.com/prysmaticlabs/prysm/shared/params"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/trace"
)

var log = logrus.WithField("prefix", "attestations")

// StateProvider supplies the aggregation job with the slot of the most recently projected
// observable state, if one exists yet. ok is false before the first state has been produced.
type StateProvider func() (stateValue interface{}, slot uint64, ok bool)

// AggregationService runs the periodic aggregation job: on a fixed tick, it drains every
// buffered attestation that is no longer in the future relative to the latest projected
// state, resolves each one's participants through the external spec collaborator, and
// ingests one IngestLatest call per (validator, attestation) pair.
type AggregationService struct {
	pool  *Pool
	spec  SpecHelper
	state StateProvider

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewAggregationService constructs an AggregationService. Start must be called to begin
// ticking.
func NewAggregationService(pool *Pool, spec SpecHelper, state StateProvider) *AggregationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &AggregationService{
		pool:   pool,
		spec:   spec,
		state:  state,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Start launches the aggregation job's single-threaded tick loop in its own goroutine.
func (s *AggregationService) Start() {
	go s.run()
}

// Stop signals the tick loop to exit and waits for it to do so.
func (s *AggregationService) Stop() error {
	s.cancel()
	<-s.done
	return nil
}

func (s *AggregationService) run() {
	defer close(s.done)
	ticker := time.NewTicker(params.BeaconConfig().AggregateAttPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.aggregateOnce(s.ctx); err != nil {
				log.WithError(err).Error("Could not run attestation aggregation pass")
			}
		case <-s.ctx.Done():
			log.Debug("Context closed, exiting attestation aggregation loop")
			return
		}
	}
}

// aggregateOnce runs a single aggregation pass: drain, resolve, ingest.
func (s *AggregationService) aggregateOnce(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "attestations.aggregateOnce")
	defer span.End()

	st, slot, ok := s.state()
	if !ok {
		return nil
	}

	drained := s.pool.DrainUpTo(ctx, slot)
	for _, att := range drained {
		indices, err := s.spec.AttestingIndices(st, att.Data(), att.AggregationBits())
		if err != nil {
			log.WithError(err).Warn("Could not resolve attesting indices, dropping attestation")
			continue
		}
		pubkeys, err := s.spec.PubkeysForIndices(st, indices)
		if err != nil {
			log.WithError(err).Warn("Could not resolve validator pubkeys, dropping attestation")
			continue
		}
		for _, pubkey := range pubkeys {
			s.pool.IngestLatest(ctx, pubkey, att)
		}
	}
	return nil
}
