package repository

import (
	"fedchat/internal/entity"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Storage gathers every repository of the durable store behind one handle.
type Storage struct {
	db *gorm.DB

	users       UserRepository
	groups      GroupRepository
	messages    MessageRepository
	presence    PresenceRepository
	credentials CredentialRepository
}

// Open opens (creating if needed) the sqlite database at path and migrates
// the schema.
func Open(path string) (*Storage, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	return NewStorage(db)
}

func NewStorage(db *gorm.DB) (*Storage, error) {
	err := db.AutoMigrate(
		&entity.User{},
		&entity.RegisteredUser{},
		&entity.Group{},
		&entity.Channel{},
		&entity.Message{},
		&entity.PresenceRecord{},
	)
	if err != nil {
		return nil, err
	}

	return &Storage{
		db:          db,
		users:       NewSQLiteUserRepository(db),
		groups:      NewSQLiteGroupRepository(db),
		messages:    NewSQLiteMessageRepository(db),
		presence:    NewSQLitePresenceRepository(db),
		credentials: NewSQLiteCredentialRepository(db),
	}, nil
}

func (s *Storage) Users() UserRepository             { return s.users }
func (s *Storage) Groups() GroupRepository           { return s.groups }
func (s *Storage) Messages() MessageRepository       { return s.messages }
func (s *Storage) Presence() PresenceRepository      { return s.presence }
func (s *Storage) Credentials() CredentialRepository { return s.credentials }
