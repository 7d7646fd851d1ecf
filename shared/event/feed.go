// Package event implements a replay-last, error-on-backpressure broadcast primitive used to
// publish the OSP's outputs to subscribers without blocking the producer.
//
// It deliberately mirrors the shape of go-ethereum's event.Feed (Subscribe/Send/Unsubscribe),
// the subscription style already used throughout this client, but adds the two properties
// a plain event.Feed does not provide: a late subscriber replays the most recent value, and a
// subscriber that falls behind is torn down with an error rather than stalling the sender.
package event

import (
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var feedBackpressureTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "osp_feed_backpressure_total",
	Help: "The number of subscribers torn down for falling behind a replay-last feed.",
}, []string{"feed"})

// Feed is a one-to-many value broadcaster with replay-last semantics. The zero value is not
// usable; construct with NewFeed. A Feed is safe for concurrent use by multiple goroutines.
type Feed struct {
	name string
	mu   sync.Mutex
	subs map[uuid.UUID]*Subscription
	last interface{}
	has  bool
}

// NewFeed returns a ready-to-use Feed. name labels the osp_feed_backpressure_total metric
// emitted whenever a subscriber of this feed is torn down for falling behind; pass "" if the
// feed does not need distinguishing in metrics.
func NewFeed(name string) *Feed {
	return &Feed{name: name, subs: make(map[uuid.UUID]*Subscription)}
}

// Subscription is a single subscriber's handle on a Feed. Values arrive on C(); if the
// subscriber does not drain C() quickly enough, the Feed closes C() and records the
// back-pressure error returned by Err().
type Subscription struct {
	id     uuid.UUID
	feed   *Feed
	c      chan interface{}
	errc   chan error
	closed bool
}

// C returns the channel values are delivered on. It is closed when the subscription ends,
// whether via Unsubscribe or a back-pressure error; callers should check Err() afterward.
func (s *Subscription) C() <-chan interface{} {
	return s.c
}

// Err returns a channel that receives a single value when the subscription terminates:
// ErrBackpressure if the subscriber could not keep up, or nil on a clean Unsubscribe.
func (s *Subscription) Err() <-chan error {
	return s.errc
}

// Unsubscribe detaches the subscription from its Feed. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.feed.remove(s, nil)
}

// ErrBackpressure is delivered on Subscription.Err() when a slow subscriber is torn down
// instead of being allowed to block the publisher.
var ErrBackpressure = &backpressureError{}

type backpressureError struct{}

func (*backpressureError) Error() string { return "event: subscriber back-pressure, subscription closed" }

// Subscribe registers a new subscriber and immediately replays the last published value (if
// any) on its channel before any subsequent live values.
func (f *Feed) Subscribe() *Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()

	sub := &Subscription{
		id:   uuid.New(),
		feed: f,
		// Buffer of 1 so the replay never has to choose between blocking the caller of
		// Subscribe and dropping the value. A live Send that finds this slot still
		// undrained tears the subscription down.
		c:    make(chan interface{}, 1),
		errc: make(chan error, 1),
	}
	f.subs[sub.id] = sub
	if f.has {
		sub.c <- f.last
	}
	return sub
}

// Send publishes a value to every current subscriber. A subscriber whose channel is still
// full from a previous Send (i.e. it has not drained the prior value) is considered too slow
// and is unsubscribed with ErrBackpressure; Send itself never blocks.
func (f *Feed) Send(value interface{}) {
	f.mu.Lock()
	f.last = value
	f.has = true
	subs := make([]*Subscription, 0, len(f.subs))
	for _, sub := range f.subs {
		subs = append(subs, sub)
	}
	f.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub.c <- value:
		default:
			f.remove(sub, ErrBackpressure)
		}
	}
}

func (f *Feed) remove(sub *Subscription, err error) {
	f.mu.Lock()
	if _, ok := f.subs[sub.id]; !ok {
		f.mu.Unlock()
		return
	}
	delete(f.subs, sub.id)
	f.mu.Unlock()

	if sub.closed {
		return
	}
	sub.closed = true
	if err != nil {
		if err == ErrBackpressure {
			feedBackpressureTotal.WithLabelValues(f.name).Inc()
		}
		sub.errc <- err
	} else {
		sub.errc <- nil
	}
	close(sub.c)
	close(sub.errc)
}

// SubscriberCount returns the number of currently attached subscriptions; useful for metrics
// and tests.
func (f *Feed) SubscriberCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
