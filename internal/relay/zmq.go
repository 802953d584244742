package relay

import (
	"fmt"
	"sync"
	"time"

	"fedchat/pkg/fault"

	zmq "github.com/pebbe/zmq4"
	"go.uber.org/zap"
)

// ZmqBroker is a Broker over a ZeroMQ PUB socket. Payloads travel as
// multipart [topic, payload] frames; subscriptions are SUB sockets with a
// prefix filter on the topic frame. Endpoints can be inproc for a single
// process or tcp to fan out to sidecar consumers.
type ZmqBroker struct {
	ctx      *zmq.Context
	endpoint string
	logger   *zap.Logger

	pubMu sync.Mutex // PUB sockets are not safe for concurrent sends
	pub   *zmq.Socket

	closeMu sync.Mutex
	closed  bool
}

func NewZmqBroker(endpoint string, logger *zap.Logger) (*ZmqBroker, error) {
	ctx, err := zmq.NewContext()
	if err != nil {
		return nil, fmt.Errorf("creating zmq context: %w", err)
	}
	pub, err := ctx.NewSocket(zmq.PUB)
	if err != nil {
		return nil, fmt.Errorf("creating PUB socket: %w", err)
	}
	if err := pub.Bind(endpoint); err != nil {
		pub.Close()
		return nil, fmt.Errorf("binding PUB socket on %s: %w", endpoint, err)
	}
	return &ZmqBroker{
		ctx:      ctx,
		endpoint: endpoint,
		logger:   logger,
		pub:      pub,
	}, nil
}

func (b *ZmqBroker) Publish(topic string, payload []byte) error {
	b.pubMu.Lock()
	defer b.pubMu.Unlock()
	if b.pub == nil {
		return fault.Transport("relay is closed", nil)
	}
	if _, err := b.pub.SendMessage(topic, payload); err != nil {
		return fault.Transport("publishing on "+topic, err)
	}
	return nil
}

func (b *ZmqBroker) Subscribe(topic string) (*Subscription, error) {
	sock, err := b.ctx.NewSocket(zmq.SUB)
	if err != nil {
		return nil, fault.Transport("creating SUB socket", err)
	}
	if err := sock.Connect(b.endpoint); err != nil {
		sock.Close()
		return nil, fault.Transport("connecting SUB socket to "+b.endpoint, err)
	}
	if err := sock.SetSubscribe(topic); err != nil {
		sock.Close()
		return nil, fault.Transport("subscribing to "+topic, err)
	}

	sub := newSubscription(topic, subscriberBuffer, nil)
	go b.pump(sock, sub)
	return sub, nil
}

// pump moves frames from the SUB socket into the subscription channel. The
// socket lives and dies inside this goroutine; zmq sockets must not be
// shared across goroutines.
func (b *ZmqBroker) pump(sock *zmq.Socket, sub *Subscription) {
	defer sock.Close()

	poller := zmq.NewPoller()
	poller.Add(sock, zmq.POLLIN)

	for {
		select {
		case <-sub.done:
			return
		default:
		}

		polled, err := poller.Poll(200 * time.Millisecond)
		if err != nil {
			b.logger.Warn("poll failed, cancelling subscription",
				zap.String("topic", sub.topic), zap.Error(err))
			sub.Cancel()
			return
		}
		if len(polled) == 0 {
			continue
		}

		frames, err := sock.RecvMessageBytes(0)
		if err != nil {
			b.logger.Warn("recv failed, cancelling subscription",
				zap.String("topic", sub.topic), zap.Error(err))
			sub.Cancel()
			return
		}
		if len(frames) != 2 {
			continue
		}

		select {
		case sub.ch <- frames[1]:
		case <-sub.done:
			return
		default:
			// Consumer stopped draining; treat as a dead subscriber.
			sub.cancelWith(fault.Disconnected("subscriber on " + sub.topic + " stopped draining"))
			return
		}
	}
}

func (b *ZmqBroker) Close() error {
	b.closeMu.Lock()
	defer b.closeMu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	b.pubMu.Lock()
	if b.pub != nil {
		b.pub.Close()
		b.pub = nil
	}
	b.pubMu.Unlock()
	return b.ctx.Term()
}
