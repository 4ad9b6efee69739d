package repository

import (
	"smile_battle/internal/models"
	"smile_battle/internal/storage"
)

type RoomRepository interface {
	Create(room *models.Room) error
	FindByID(id uint) (*models.Room, error)
	FindByCode(code string) (*models.Room, error)
	ExistsByCode(code string) (bool, error)
	Save(room *models.Room) error
	Delete(id uint) error
	FindCasualPage(page, size int) ([]models.Room, int64, error) // 大廳列表用，只列自建房
}

type roomRepository struct {
	db *storage.PostgresDB
}

func NewRoomRepository(db *storage.PostgresDB) RoomRepository {
	return &roomRepository{db: db}
}

func (r *roomRepository) Create(room *models.Room) error {
	return r.db.Create(room).Error
}

func (r *roomRepository) FindByID(id uint) (*models.Room, error) {
	var room models.Room
	err := r.db.First(&room, id).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepository) FindByCode(code string) (*models.Room, error) {
	var room models.Room
	err := r.db.Where("room_code = ?", code).First(&room).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepository) ExistsByCode(code string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Room{}).Where("room_code = ?", code).Count(&count).Error
	return count > 0, err
}

func (r *roomRepository) Save(room *models.Room) error {
	return r.db.Save(room).Error
}

// Delete 實體刪除，房間碼的唯一索引才會立刻釋放給新房間使用
func (r *roomRepository) Delete(id uint) error {
	return r.db.Unscoped().Delete(&models.Room{}, id).Error
}

// FindCasualPage 依創建時間新到舊分頁查詢自建房
func (r *roomRepository) FindCasualPage(page, size int) ([]models.Room, int64, error) {
	var rooms []models.Room
	var total int64

	query := r.db.Model(&models.Room{}).Where("kind = ?", models.RoomKindCasual)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&rooms).Error
	return rooms, total, err
}
