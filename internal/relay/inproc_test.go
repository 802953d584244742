package relay

import (
	"testing"
	"time"

	"fedchat/pkg/fault"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func recvOne(t *testing.T, sub *Subscription) []byte {
	t.Helper()
	select {
	case p := <-sub.Payloads():
		return p
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for payload")
		return nil
	}
}

func TestPublishFansOutToAllSubscribers(t *testing.T) {
	b := NewInprocBroker(zap.NewNop())
	defer b.Close()

	s1, err := b.Subscribe(ChannelTopic("c1"))
	require.NoError(t, err)
	s2, err := b.Subscribe(ChannelTopic("c1"))
	require.NoError(t, err)
	assert.Equal(t, ChannelTopic("c1"), s1.Topic())

	require.NoError(t, b.Publish(ChannelTopic("c1"), []byte("hello")))

	assert.Equal(t, []byte("hello"), recvOne(t, s1))
	assert.Equal(t, []byte("hello"), recvOne(t, s2))
}

func TestPublishIsScopedToTopic(t *testing.T) {
	b := NewInprocBroker(zap.NewNop())
	defer b.Close()

	other, err := b.Subscribe(ChannelTopic("c2"))
	require.NoError(t, err)

	require.NoError(t, b.Publish(ChannelTopic("c1"), []byte("hello")))

	select {
	case <-other.Payloads():
		t.Fatal("payload leaked across topics")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNoReplayForLateSubscribers(t *testing.T) {
	b := NewInprocBroker(zap.NewNop())
	defer b.Close()

	require.NoError(t, b.Publish(ChannelTopic("c1"), []byte("early")))

	late, err := b.Subscribe(ChannelTopic("c1"))
	require.NoError(t, err)

	select {
	case <-late.Payloads():
		t.Fatal("late subscriber must not see earlier publishes")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	b := NewInprocBroker(zap.NewNop())
	defer b.Close()

	sub, err := b.Subscribe(ChannelTopic("c1"))
	require.NoError(t, err)

	sub.Cancel()
	<-sub.Done()
	sub.Cancel() // idempotent
	assert.NoError(t, sub.Err())

	require.NoError(t, b.Publish(ChannelTopic("c1"), []byte("after")))
	select {
	case <-sub.Payloads():
		t.Fatal("cancelled subscription still received a payload")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDeadSubscriberIsCancelledNotRetried(t *testing.T) {
	b := NewInprocBroker(zap.NewNop())
	defer b.Close()

	sub, err := b.Subscribe(ChannelTopic("c1"))
	require.NoError(t, err)

	// Never drain: the buffer fills, then one more publish kills it.
	for i := 0; i <= subscriberBuffer; i++ {
		require.NoError(t, b.Publish(ChannelTopic("c1"), []byte("x")))
	}

	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("lagging subscriber was not cancelled")
	}
	assert.Equal(t, fault.CodeConsumerDisconnected, fault.CodeOf(sub.Err()))
}

func TestCloseCancelsEverything(t *testing.T) {
	b := NewInprocBroker(zap.NewNop())

	sub, err := b.Subscribe(ChannelTopic("c1"))
	require.NoError(t, err)

	require.NoError(t, b.Close())
	<-sub.Done()

	err = b.Publish(ChannelTopic("c1"), []byte("x"))
	assert.Error(t, err)

	_, err = b.Subscribe(ChannelTopic("c1"))
	assert.Error(t, err)
}
