package entity

import "time"

// User is an identity as first seen by this host, with its local surrogate id.
type User struct {
	UUID      string    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex:identity_name_host;not null" json:"name"`
	Host      string    `gorm:"uniqueIndex:identity_name_host;not null" json:"host"`
	CreatedAt time.Time `gorm:"not null" json:"created-at"`
}

func (u *User) Identity() Identity {
	return Identity{Name: u.Name, Host: u.Host}
}
