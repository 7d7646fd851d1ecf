// Package slotutil provides the wall-clock-to-slot ticker that feeds the OSP's slot_ticks
// input stream.
package slotutil

import "time"

// SlotTicker ticks at the start of each slot. The first value is the first slot that begins
// after construction (slot 0 at genesis if constructed before genesis). It is the reference implementation of the
// slot_ticks external input stream described in the OSP's consumed-interfaces contract; any
// producer with the same "one value per wall-clock slot, monotonic" contract is substitutable.
type SlotTicker struct {
	c    chan uint64
	done chan struct{}
}

// NewSlotTicker constructs and starts a SlotTicker counting slots of length secondsPerSlot
// since genesisTime.
func NewSlotTicker(genesisTime time.Time, secondsPerSlot uint64) *SlotTicker {
	ticker := &SlotTicker{
		c:    make(chan uint64),
		done: make(chan struct{}),
	}
	ticker.start(genesisTime, secondsPerSlot, time.Since, time.Until, time.After)
	return ticker
}

// C returns the channel the ticker emits slot numbers on.
func (s *SlotTicker) C() <-chan uint64 {
	return s.c
}

// Done shuts down the ticker's goroutine. Safe to call more than once.
func (s *SlotTicker) Done() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

func (s *SlotTicker) start(
	genesisTime time.Time,
	secondsPerSlot uint64,
	since, until func(time.Time) time.Duration,
	after func(time.Duration) <-chan time.Time,
) {
	d := time.Duration(secondsPerSlot) * time.Second

	go func() {
		sinceGenesis := since(genesisTime)

		var nextTickTime time.Time
		var slot uint64
		if sinceGenesis < 0 {
			// Genesis has not happened yet; the first tick fires at genesis, slot 0.
			nextTickTime = genesisTime
			slot = 0
		} else {
			slot = uint64(sinceGenesis / d)
			nextTick := time.Duration(slot+1) * d
			nextTickTime = genesisTime.Add(nextTick)
			slot++
		}

		t := after(until(nextTickTime))
		for {
			select {
			case <-t:
				select {
				case s.c <- slot:
				case <-s.done:
					return
				}
				slot++
				nextTickTime = nextTickTime.Add(d)
				t = after(until(nextTickTime))
			case <-s.done:
				return
			}
		}
	}()
}
