package repository

import (
	"time"

	"fedchat/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository interface {
	// GetOrCreate returns the identity's local record, allocating a surrogate
	// id the first time this host sees (name, host). Safe under concurrent
	// calls for the same pair: at most one surrogate id is ever allocated.
	GetOrCreate(name, host string) (*entity.User, error)

	GetByIdentity(name, host string) (*entity.User, error)
}

type SQLiteUserRepository struct {
	db *gorm.DB
}

func NewSQLiteUserRepository(db *gorm.DB) UserRepository {
	return &SQLiteUserRepository{db}
}

func (repo *SQLiteUserRepository) GetOrCreate(name, host string) (*entity.User, error) {
	candidate := &entity.User{
		UUID:      uuid.New().String(),
		Name:      name,
		Host:      host,
		CreatedAt: time.Now(),
	}

	// The unique (name, host) index arbitrates races: a concurrent insert
	// wins, ours becomes a no-op, and the reread below returns the winner's
	// surrogate id.
	err := repo.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}, {Name: "host"}},
		DoNothing: true,
	}).Create(candidate).Error
	if err != nil {
		return nil, err
	}

	return repo.GetByIdentity(name, host)
}

func (repo *SQLiteUserRepository) GetByIdentity(name, host string) (*entity.User, error) {
	var user entity.User
	if err := repo.db.Where("name = ? AND host = ?", name, host).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
