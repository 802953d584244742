package repository

import (
	"fedchat/internal/entity"

	"gorm.io/gorm"
)

type PresenceRepository interface {
	// Append records a new status. History is kept; later records supersede
	// earlier ones without overwriting them.
	Append(record *entity.PresenceRecord) (*entity.PresenceRecord, error)

	// Current returns the most recent record for every identity that has
	// ever posted a status to the group.
	Current(groupUUID string) ([]*entity.PresenceRecord, error)
}

type SQLitePresenceRepository struct {
	db *gorm.DB
}

func NewSQLitePresenceRepository(db *gorm.DB) PresenceRepository {
	return &SQLitePresenceRepository{db}
}

func (repo *SQLitePresenceRepository) Append(record *entity.PresenceRecord) (*entity.PresenceRecord, error) {
	record.ID = 0
	if err := repo.db.Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (repo *SQLitePresenceRepository) Current(groupUUID string) ([]*entity.PresenceRecord, error) {
	newest := repo.db.
		Model(&entity.PresenceRecord{}).
		Select("MAX(id)").
		Where("group_uuid = ?", groupUUID).
		Group("user_name, user_host")

	var records []*entity.PresenceRecord
	err := repo.db.
		Where("id IN (?)", newest).
		Order("id ASC").
		Find(&records).Error
	return records, err
}
