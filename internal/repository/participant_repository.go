package repository

import (
	"smile_battle/internal/models"
	"smile_battle/internal/storage"
)

type ParticipantRepository interface {
	Create(participant *models.Participant) error
	FindByRoomAndUser(roomID, userID uint) (*models.Participant, error)
	FindAllByRoom(roomID uint) ([]models.Participant, error) // 依加入順序
	FindAllByUser(userID uint) ([]models.Participant, error)
	FindEarliestByRoom(roomID uint) (*models.Participant, error)
	CountByRoom(roomID uint) (int64, error)
	Save(participant *models.Participant) error
	Delete(id uint) error
}

type participantRepository struct {
	db *storage.PostgresDB
}

func NewParticipantRepository(db *storage.PostgresDB) ParticipantRepository {
	return &participantRepository{db: db}
}

func (r *participantRepository) Create(participant *models.Participant) error {
	return r.db.Create(participant).Error
}

func (r *participantRepository) FindByRoomAndUser(roomID, userID uint) (*models.Participant, error) {
	var participant models.Participant
	err := r.db.Where("room_id = ? AND user_id = ?", roomID, userID).First(&participant).Error
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

// FindAllByRoom 依主鍵升冪回傳，即加入順序
func (r *participantRepository) FindAllByRoom(roomID uint) ([]models.Participant, error) {
	var participants []models.Participant
	err := r.db.Where("room_id = ?", roomID).Order("id ASC").Find(&participants).Error
	return participants, err
}

func (r *participantRepository) FindAllByUser(userID uint) ([]models.Participant, error) {
	var participants []models.Participant
	err := r.db.Where("user_id = ?", userID).Find(&participants).Error
	return participants, err
}

// FindEarliestByRoom 取最早加入的參加者，房長離開時用來選新房長
func (r *participantRepository) FindEarliestByRoom(roomID uint) (*models.Participant, error) {
	var participant models.Participant
	err := r.db.Where("room_id = ?", roomID).Order("created_at ASC").First(&participant).Error
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

func (r *participantRepository) CountByRoom(roomID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Participant{}).Where("room_id = ?", roomID).Count(&count).Error
	return count, err
}

func (r *participantRepository) Save(participant *models.Participant) error {
	return r.db.Save(participant).Error
}

// Delete 實體刪除，(房間, 用戶) 的唯一索引才會立刻釋放，離開後再加入不會撞索引
func (r *participantRepository) Delete(id uint) error {
	return r.db.Unscoped().Delete(&models.Participant{}, id).Error
}
