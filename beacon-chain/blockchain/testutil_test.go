package blockchain

// fakeBlock is a minimal bstate.BeaconBlock for tests: identity is entirely the root.
type fakeBlock struct {
	slot uint64
	root [32]byte
}

func (b *fakeBlock) Slot() uint64   { return b.slot }
func (b *fakeBlock) Root() [32]byte { return b.root }

func blockAt(slot uint64, rootByte byte) *fakeBlock {
	var root [32]byte
	root[0] = rootByte
	return &fakeBlock{slot: slot, root: root}
}
