// Package relay is the live fanout layer: topic based publish/subscribe with
// no persistence and no replay. Durability is the store's job; a subscriber
// that joins after a publish never sees it.
package relay

import "sync"

// ChannelTopic names the message topic for a channel.
func ChannelTopic(channelID string) string {
	return "channel:" + channelID
}

// GroupPresenceTopic names the presence topic for a group.
func GroupPresenceTopic(groupID string) string {
	return "group-presence:" + groupID
}

// Broker fans published payloads out to every current subscriber of a topic.
// Implementations must be safe for concurrent use and must actively cancel a
// subscriber that cannot take delivery instead of retrying it.
type Broker interface {
	Publish(topic string, payload []byte) error
	Subscribe(topic string) (*Subscription, error)
	Close() error
}

// Subscription yields payloads for one topic until cancelled. Consumers read
// Payloads and watch Done; after Done is closed no further payloads arrive
// (buffered ones may still be drained).
type Subscription struct {
	topic string
	ch    chan []byte
	done  chan struct{}

	once     sync.Once
	err      error
	onCancel func()
}

func newSubscription(topic string, buffer int, onCancel func()) *Subscription {
	return &Subscription{
		topic:    topic,
		ch:       make(chan []byte, buffer),
		done:     make(chan struct{}),
		onCancel: onCancel,
	}
}

func (s *Subscription) Topic() string { return s.topic }

func (s *Subscription) Payloads() <-chan []byte { return s.ch }

// Done is closed when the subscription ends, whether by Cancel or by the
// broker dropping a dead consumer.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Err reports why the subscription ended. Nil for a consumer-initiated
// Cancel; a CONSUMER_DISCONNECTED coded error when the broker dropped the
// consumer. Only meaningful after Done is closed.
func (s *Subscription) Err() error { return s.err }

// Cancel ends the subscription and releases broker resources. Idempotent.
func (s *Subscription) Cancel() {
	s.cancelWith(nil)
}

func (s *Subscription) cancelWith(err error) {
	s.once.Do(func() {
		s.err = err
		close(s.done)
		if s.onCancel != nil {
			s.onCancel()
		}
	})
}
