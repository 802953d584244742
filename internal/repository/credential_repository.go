package repository

import (
	"errors"

	"fedchat/internal/entity"

	"gorm.io/gorm"
)

// CredentialRepository stores locally registered accounts. Password hashing
// happens in the auth service; this layer only persists.
type CredentialRepository interface {
	Create(user *entity.RegisteredUser) error
	GetByName(name string) (*entity.RegisteredUser, error)
	PublicKeyFor(name string) ([]byte, error)
}

var ErrNameTaken = errors.New("name already registered")

type SQLiteCredentialRepository struct {
	db *gorm.DB
}

func NewSQLiteCredentialRepository(db *gorm.DB) CredentialRepository {
	return &SQLiteCredentialRepository{db}
}

func (repo *SQLiteCredentialRepository) Create(user *entity.RegisteredUser) error {
	err := repo.db.Create(user).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrNameTaken
	}
	return err
}

func (repo *SQLiteCredentialRepository) GetByName(name string) (*entity.RegisteredUser, error) {
	var user entity.RegisteredUser
	if err := repo.db.Where("name = ?", name).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (repo *SQLiteCredentialRepository) PublicKeyFor(name string) ([]byte, error) {
	user, err := repo.GetByName(name)
	if err != nil {
		return nil, err
	}
	return user.PublicKey, nil
}
