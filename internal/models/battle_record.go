package models

import (
	"gorm.io/gorm"
)

// BattleRecord 一場對戰的單人戰績（每房每位用戶一列）
// (RoomID, UserID) 的唯一索引保證重複提交會被資料庫擋下
type BattleRecord struct {
	gorm.Model
	RoomID         uint         `gorm:"uniqueIndex:idx_battle_records_room_user;not null"`
	UserID         uint         `gorm:"uniqueIndex:idx_battle_records_room_user;not null"`
	Result         BattleResult `gorm:"not null;type:varchar(1)"`
	OpponentUserID uint         `gorm:"not null"` // 對手用戶 ID，查詢用
}

// BattleResult 定義對戰結果的類型
type BattleResult string

const (
	BattleResultWin  BattleResult = "W"
	BattleResultLoss BattleResult = "L"
	BattleResultDraw BattleResult = "D"
)
