package entity

import "time"

// RegisteredUser holds the credentials of a user that signed up on this host.
// The keypair is stored server side so the same account works from any client.
type RegisteredUser struct {
	Name       string    `gorm:"primaryKey" json:"name"`
	Hash       string    `gorm:"not null" json:"-"`
	PublicKey  []byte    `gorm:"not null" json:"public-key"`
	PrivateKey []byte    `gorm:"not null" json:"-"`
	CreatedAt  time.Time `gorm:"not null" json:"created-at"`
}
