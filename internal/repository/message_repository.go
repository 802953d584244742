package repository

import (
	"fedchat/internal/entity"

	"gorm.io/gorm"
)

type MessageRepository interface {
	// Append persists a message and assigns its id. Messages are never
	// updated or deleted.
	Append(message *entity.Message) (*entity.Message, error)

	// Range pages the channel's history in reverse chronological order,
	// skipping offset messages and returning up to limit. Plain offset
	// paging: not cursor-stable under concurrent inserts.
	Range(channelUUID string, offset, limit int) ([]*entity.Message, error)
}

type SQLiteMessageRepository struct {
	db *gorm.DB
}

func NewSQLiteMessageRepository(db *gorm.DB) MessageRepository {
	return &SQLiteMessageRepository{db}
}

func (repo *SQLiteMessageRepository) Append(message *entity.Message) (*entity.Message, error) {
	message.ID = 0 // id is ours to assign
	if err := repo.db.Create(message).Error; err != nil {
		return nil, err
	}
	return message, nil
}

func (repo *SQLiteMessageRepository) Range(channelUUID string, offset, limit int) ([]*entity.Message, error) {
	var messages []*entity.Message
	err := repo.db.
		Where("channel_uuid = ?", channelUUID).
		Order("sent_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&messages).Error
	return messages, err
}
