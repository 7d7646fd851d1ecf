// Package node wires the Observable State Processor's external collaborators into a running
// blockchain.Service and owns its process life cycle.
package node

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prysmaticlabs/prysm/beacon-chain/blockchain"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "node")

// BeaconNode owns the Observable State Processor's blockchain.Service for the lifetime of the
// process.
type BeaconNode struct {
	lock    sync.RWMutex
	service *blockchain.Service
	stop    chan struct{}
}

// New constructs a BeaconNode and its underlying blockchain.Service from cfg. The service is
// not started until Start is called.
func New(ctx context.Context, cfg *Config) *BeaconNode {
	return &BeaconNode{
		service: blockchain.NewService(ctx, cfg.blockchainConfig()),
		stop:    make(chan struct{}),
	}
}

// Service exposes the underlying blockchain.Service, e.g. so a caller can subscribe to its
// output feeds before calling Start.
func (b *BeaconNode) Service() *blockchain.Service {
	return b.service
}

// Start launches the Observable State Processor and blocks until the process receives
// SIGINT or SIGTERM, at which point it shuts the service down.
func (b *BeaconNode) Start() {
	b.lock.Lock()
	log.Info("Starting beacon node")
	b.service.Start()
	stop := b.stop
	b.lock.Unlock()

	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigc)
		<-sigc
		log.Info("Got interrupt, shutting down...")
		go b.Close()
		for i := 10; i > 0; i-- {
			<-sigc
			if i > 1 {
				log.WithField("times", i-1).Info("Already shutting down, interrupt more to panic")
			}
		}
		panic("Panic closing the beacon node")
	}()

	<-stop
}

// Close shuts the Observable State Processor down and unblocks Start.
func (b *BeaconNode) Close() {
	b.lock.Lock()
	defer b.lock.Unlock()

	if err := b.service.Stop(); err != nil {
		log.WithError(err).Error("Could not stop blockchain service")
	}
	log.Info("Stopping beacon node")
	close(b.stop)
}
