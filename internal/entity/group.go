package entity

import "time"

type Group struct {
	UUID      string    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `gorm:"not null;index" json:"created-at"`

	Channels []Channel `gorm:"foreignKey:GroupUUID;references:UUID" json:"channels,omitempty"`
}
