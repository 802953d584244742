package entity

import "time"

type PresenceState string

const (
	PresenceOnline       PresenceState = "online"
	PresenceAway         PresenceState = "away"
	PresenceDoNotDisturb PresenceState = "dnd"
	// PresenceOffline is reserved: the system records it when a presence
	// stream disconnects, users cannot set it themselves.
	PresenceOffline PresenceState = "offline"
)

func (s PresenceState) UserSettable() bool {
	switch s {
	case PresenceOnline, PresenceAway, PresenceDoNotDisturb:
		return true
	}
	return false
}

// PresenceRecord is one append-only status entry. Later records supersede
// earlier ones per (user, group); history is kept. Either State or Custom is
// set, never both.
type PresenceRecord struct {
	ID         uint64        `gorm:"primaryKey;autoIncrement" json:"id"`
	UserName   string        `gorm:"not null;index:presence_user" json:"user-name"`
	UserHost   string        `gorm:"not null;index:presence_user" json:"user-host"`
	GroupUUID  string        `gorm:"not null;index" json:"group-id"`
	State      PresenceState `json:"state,omitempty"`
	Custom     string        `json:"custom,omitempty"`
	RecordedAt time.Time     `gorm:"not null" json:"recorded-at"`
}

func (p *PresenceRecord) User() Identity {
	return Identity{Name: p.UserName, Host: p.UserHost}
}
