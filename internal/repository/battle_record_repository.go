package repository

import (
	"smile_battle/internal/models"
	"smile_battle/internal/storage"
)

type BattleRecordRepository interface {
	Create(record *models.BattleRecord) error
	ExistsByRoomAndUser(roomID, userID uint) (bool, error)
	FindAllByUser(userID uint) ([]models.BattleRecord, error)
}

type battleRecordRepository struct {
	db *storage.PostgresDB
}

func NewBattleRecordRepository(db *storage.PostgresDB) BattleRecordRepository {
	return &battleRecordRepository{db: db}
}

func (r *battleRecordRepository) Create(record *models.BattleRecord) error {
	return r.db.Create(record).Error
}

// ExistsByRoomAndUser 同一房同一用戶是否已有戰績，重複提交時用來跳過
func (r *battleRecordRepository) ExistsByRoomAndUser(roomID, userID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.BattleRecord{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *battleRecordRepository) FindAllByUser(userID uint) ([]models.BattleRecord, error) {
	var records []models.BattleRecord
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&records).Error
	return records, err
}
