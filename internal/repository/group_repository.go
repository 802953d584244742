package repository

import (
	"time"

	"fedchat/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GroupRepository interface {
	// Create makes a group with its default channel in one transaction.
	Create(name string) (*entity.Group, error)
	// AddChannel appends a channel to an existing group. Channels are never
	// removed.
	AddChannel(groupUUID, name string) (*entity.Channel, error)

	GetByName(name string) (*entity.Group, error)
	GetByUUID(groupUUID string) (*entity.Group, error)
	Channels(groupUUID string) ([]*entity.Channel, error)
	ChannelByUUID(channelUUID string) (*entity.Channel, error)
}

type SQLiteGroupRepository struct {
	db *gorm.DB
}

func NewSQLiteGroupRepository(db *gorm.DB) GroupRepository {
	return &SQLiteGroupRepository{db}
}

func (repo *SQLiteGroupRepository) Create(name string) (*entity.Group, error) {
	group := &entity.Group{
		UUID:      uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now(),
	}
	general := &entity.Channel{
		UUID:      uuid.New().String(),
		Name:      entity.DefaultChannelName,
		GroupUUID: group.UUID,
		CreatedAt: group.CreatedAt,
	}

	err := repo.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(group).Error; err != nil {
			return err
		}
		return tx.Create(general).Error
	})
	if err != nil {
		return nil, err
	}

	group.Channels = []entity.Channel{*general}
	return group, nil
}

func (repo *SQLiteGroupRepository) AddChannel(groupUUID, name string) (*entity.Channel, error) {
	channel := &entity.Channel{
		UUID:      uuid.New().String(),
		Name:      name,
		GroupUUID: groupUUID,
		CreatedAt: time.Now(),
	}

	err := repo.db.Transaction(func(tx *gorm.DB) error {
		var group entity.Group
		if err := tx.Where("uuid = ?", groupUUID).First(&group).Error; err != nil {
			return err
		}
		return tx.Create(channel).Error
	})
	if err != nil {
		return nil, err
	}
	return channel, nil
}

func (repo *SQLiteGroupRepository) GetByName(name string) (*entity.Group, error) {
	var group entity.Group
	if err := repo.db.Where("name = ?", name).First(&group).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

func (repo *SQLiteGroupRepository) GetByUUID(groupUUID string) (*entity.Group, error) {
	var group entity.Group
	if err := repo.db.Where("uuid = ?", groupUUID).First(&group).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

func (repo *SQLiteGroupRepository) Channels(groupUUID string) ([]*entity.Channel, error) {
	var channels []*entity.Channel
	err := repo.db.Where("group_uuid = ?", groupUUID).Order("created_at ASC").Find(&channels).Error
	return channels, err
}

func (repo *SQLiteGroupRepository) ChannelByUUID(channelUUID string) (*entity.Channel, error) {
	var channel entity.Channel
	if err := repo.db.Where("uuid = ?", channelUUID).First(&channel).Error; err != nil {
		return nil, err
	}
	return &channel, nil
}
