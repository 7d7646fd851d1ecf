// Package params defines important constants that are essential to the beacon chain.
package params

import "time"

// BeaconChainConfig contains constant genesis values of the beacon chain as defined in the
// Ethereum Serenity specification. This config is a singleton, accessed via BeaconConfig()
// and overridable in tests via OverrideBeaconConfig.
type BeaconChainConfig struct {
	// Time parameters.
	SecondsPerSlot              uint64 // SecondsPerSlot is how many seconds are in a single slot.
	SlotsPerEpoch                uint64 // SlotsPerEpoch is the number of slots in an epoch.
	MinAttestationInclusionDelay uint64 // MinAttestationInclusionDelay is the minimum number of slots that must pass before an attestation may be included in a block.

	// Attestation pool tuning.
	AggregateAttPeriod time.Duration // AggregateAttPeriod is how often the attestation pool expands buffered attestations into the latest-attestation cache.

	// Bounded-cache tuning.
	MaxTupleCacheSize int // MaxTupleCacheSize records the tuple-details cache bound; the cache package uses its own fixed 256-entry limit and does not read this field.

	// Channel/feed tuning.
	DefaultBufferSize int // DefaultBufferSize is a buffer depth for input channels feeding the event router; no package in this module reads it, since callers create and size those channels.
}

// Copy returns a copy of the config object.
func (c *BeaconChainConfig) Copy() *BeaconChainConfig {
	config := *c
	return &config
}

var beaconConfig = MainnetConfig()

// MainnetConfig returns the configuration to be used for the main network.
func MainnetConfig() *BeaconChainConfig {
	return &BeaconChainConfig{
		SecondsPerSlot:               12,
		SlotsPerEpoch:                32,
		MinAttestationInclusionDelay: 1,
		AggregateAttPeriod:           500 * time.Millisecond,
		MaxTupleCacheSize:            256,
		DefaultBufferSize:            256,
	}
}

// BeaconConfig retrieves beacon chain config.
func BeaconConfig() *BeaconChainConfig {
	return beaconConfig
}

// OverrideBeaconConfig overrides the beacon chain config with the provided config, useful
// for testnets and for tests that need non-mainnet timing constants.
func OverrideBeaconConfig(c *BeaconChainConfig) {
	beaconConfig = c
}

// testConfigCleanup is the interface subset of *testing.T that SetupTestConfigCleanup needs.
type testConfigCleanup interface {
	Cleanup(func())
}

// SetupTestConfigCleanup sets up a test to automatically restore the default mainnet config
// after the test completes, so overrides in one test never leak into the next.
func SetupTestConfigCleanup(t testConfigCleanup) {
	prev := beaconConfig
	t.Cleanup(func() {
		beaconConfig = prev
	})
}
