package entity

import "time"

type Channel struct {
	UUID      string    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null;index" json:"name"`
	GroupUUID string    `gorm:"not null;index" json:"group-id"`
	CreatedAt time.Time `gorm:"not null" json:"created-at"`
}

// DefaultChannelName is the channel every group starts with.
const DefaultChannelName = "general"
