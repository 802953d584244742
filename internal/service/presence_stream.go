package service

import (
	"sync"

	"fedchat/internal/entity"
	"fedchat/internal/relay"
)

// PresenceStream delivers the group's current statuses first, then live
// updates. Consumers must treat the feed as unordered by identity and keep
// only the latest record per identity.
type PresenceStream struct {
	snapshot []*entity.PresenceRecord
	sub      *relay.Subscription

	once    sync.Once
	onClose func()
}

func newPresenceStream(snapshot []*entity.PresenceRecord, sub *relay.Subscription, onClose func()) *PresenceStream {
	return &PresenceStream{
		snapshot: snapshot,
		sub:      sub,
		onClose:  onClose,
	}
}

// Snapshot is the current status of every identity that ever posted to the
// group, one record each, as of stream start.
func (p *PresenceStream) Snapshot() []*entity.PresenceRecord { return p.snapshot }

// Live yields JSON-encoded presence records published after stream start.
func (p *PresenceStream) Live() <-chan []byte { return p.sub.Payloads() }

// Done is closed when the underlying subscription ends for any reason.
func (p *PresenceStream) Done() <-chan struct{} { return p.sub.Done() }

// Close cancels the subscription and records the consumer's departure.
// Idempotent; also the right call when delivery to the consumer fails.
func (p *PresenceStream) Close() {
	p.once.Do(func() {
		p.sub.Cancel()
		if p.onClose != nil {
			p.onClose()
		}
	})
}
