package attestations

// Snapshot is an immutable view of the pool's latest-attestation cache at the moment it was
// taken. It is safe to read concurrently and to hold onto after the pool that produced it has
// moved on; it never changes.
type Snapshot struct {
	byPubkey map[ValidatorPubkey][]Attestation
}

// LatestAttestation returns the highest-slot attestation cached for pubkey at snapshot time,
// if any.
func (s *Snapshot) LatestAttestation(pubkey ValidatorPubkey) (Attestation, bool) {
	atts := s.byPubkey[pubkey]
	if len(atts) == 0 {
		return nil, false
	}
	best := atts[0]
	for _, att := range atts[1:] {
		if att.Data().Slot > best.Data().Slot {
			best = att
		}
	}
	return best, true
}

// PeekProposerSlashings returns the pending proposer slashings known to the snapshot. The
// pool never populates these; it always returns an empty slice.
func (s *Snapshot) PeekProposerSlashings() []ProposerSlashing { return nil }

// PeekAttesterSlashings returns the pending attester slashings known to the snapshot. The
// pool never populates these; it always returns an empty slice.
func (s *Snapshot) PeekAttesterSlashings() []AttesterSlashing { return nil }

// PeekDeposits returns the pending deposits known to the snapshot. The pool never populates
// these; it always returns an empty slice.
func (s *Snapshot) PeekDeposits() []Deposit { return nil }

// PeekVoluntaryExits returns the pending voluntary exits known to the snapshot. The pool
// never populates these; it always returns an empty slice.
func (s *Snapshot) PeekVoluntaryExits() []VoluntaryExit { return nil }

// PeekTransfers returns the pending transfers known to the snapshot. The pool never
// populates these; it always returns an empty slice.
func (s *Snapshot) PeekTransfers() []Transfer { return nil }
