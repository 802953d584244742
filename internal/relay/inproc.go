package relay

import (
	"sync"

	"fedchat/pkg/fault"

	"go.uber.org/zap"
)

// subscriberBuffer bounds how far a consumer may lag before it counts as
// dead. A full buffer on publish cancels the subscription.
const subscriberBuffer = 64

// InprocBroker is the single-process Broker: a subscriber registry per topic
// under a read/write lock. Publish snapshots the subscriber set under the
// read lock and delivers outside it.
type InprocBroker struct {
	logger *zap.Logger

	mu     sync.RWMutex
	topics map[string]map[*Subscription]struct{}
	closed bool
}

func NewInprocBroker(logger *zap.Logger) *InprocBroker {
	return &InprocBroker{
		logger: logger,
		topics: make(map[string]map[*Subscription]struct{}),
	}
}

func (b *InprocBroker) Subscribe(topic string) (*Subscription, error) {
	var sub *Subscription
	sub = newSubscription(topic, subscriberBuffer, func() {
		b.remove(topic, sub)
	})

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, fault.Transport("relay is closed", nil)
	}
	subs, ok := b.topics[topic]
	if !ok {
		subs = make(map[*Subscription]struct{})
		b.topics[topic] = subs
	}
	subs[sub] = struct{}{}
	return sub, nil
}

func (b *InprocBroker) Publish(topic string, payload []byte) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return fault.Transport("relay is closed", nil)
	}
	var targets []*Subscription
	for sub := range b.topics[topic] {
		targets = append(targets, sub)
	}
	b.mu.RUnlock()

	// Deliver outside the lock; cancelling re-acquires it.
	var dead []*Subscription
	for _, sub := range targets {
		select {
		case <-sub.done:
			dead = append(dead, sub)
			continue
		default:
		}
		select {
		case sub.ch <- payload:
		default:
			// Consumer is not draining. Cut it loose rather than block or
			// retry; it resubscribes if it comes back.
			dead = append(dead, sub)
		}
	}
	for _, sub := range dead {
		sub.cancelWith(fault.Disconnected("subscriber on " + sub.Topic() + " stopped draining"))
		b.logger.Debug("dropped dead subscriber", zap.String("topic", sub.Topic()))
	}
	return nil
}

func (b *InprocBroker) remove(topic string, sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if subs, ok := b.topics[topic]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(b.topics, topic)
		}
	}
}

func (b *InprocBroker) Close() error {
	b.mu.Lock()
	b.closed = true
	var all []*Subscription
	for _, subs := range b.topics {
		for sub := range subs {
			all = append(all, sub)
		}
	}
	b.topics = make(map[string]map[*Subscription]struct{})
	b.mu.Unlock()

	for _, sub := range all {
		sub.Cancel()
	}
	return nil
}
