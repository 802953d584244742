package entity

import (
	"strconv"
	"time"
)

// Message is immutable once persisted. The id is assigned by the store at
// append time and is never reused; (SentAt, ID) defines the canonical
// pagination order.
type Message struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Body        string    `gorm:"not null" json:"body"`
	SenderName  string    `gorm:"not null;index:message_sender" json:"sender-name"`
	SenderHost  string    `gorm:"not null;index:message_sender" json:"sender-host"`
	ChannelUUID string    `gorm:"not null;index" json:"channel-id"`
	SentAt      time.Time `gorm:"not null;index" json:"sent-at"`
}

func (m *Message) Sender() Identity {
	return Identity{Name: m.SenderName, Host: m.SenderHost}
}

// SigningParts returns the byte sequences a sender signs and a host verifies,
// in their fixed order. The id is excluded: it does not exist before the
// message is persisted. Signer and verifier must agree bit for bit, so the
// timestamp is rendered as decimal unix milliseconds rather than a
// locale-dependent encoding.
func (m *Message) SigningParts() [][]byte {
	return [][]byte{
		[]byte(m.Body),
		[]byte(m.SenderName),
		[]byte(m.SenderHost),
		[]byte(strconv.FormatInt(m.SentAt.UnixMilli(), 10)),
		[]byte(m.ChannelUUID),
	}
}
