package models

import (
	"gorm.io/gorm"
)

// User 表示系統中的用戶
type User struct {
	gorm.Model        // 內嵌 gorm.Model，提供 ID、CreatedAt、UpdatedAt 和 DeletedAt 字段
	Username   string `gorm:"uniqueIndex;not null" json:"username"` // 登入帳號，必須唯一
	Password   string `gorm:"not null" json:"-"`                    // 密碼，json 序列化時會被忽略
	Nickname   string `gorm:"not null" json:"nickname"`             // 對戰中顯示的暱稱

	// 累積戰績，遊戲結束時由 BattleService 更新
	TotalGames       int `json:"total_games"`
	TotalWins        int `json:"total_wins"`
	TotalLosses      int `json:"total_losses"`
	TotalDraws       int `json:"total_draws"`
	CurrentWinStreak int `json:"current_win_streak"`
	MaxWinStreak     int `json:"max_win_streak"`
}

// ApplyWinResult 更新勝利後的累積戰績
func (u *User) ApplyWinResult() {
	u.TotalGames++
	u.TotalWins++
	u.CurrentWinStreak++
	if u.CurrentWinStreak > u.MaxWinStreak {
		u.MaxWinStreak = u.CurrentWinStreak
	}
}

// ApplyLossResult 更新落敗後的累積戰績，連勝歸零
func (u *User) ApplyLossResult() {
	u.TotalGames++
	u.TotalLosses++
	u.CurrentWinStreak = 0
}

// ApplyDrawResult 更新平手後的累積戰績，連勝歸零
func (u *User) ApplyDrawResult() {
	u.TotalGames++
	u.TotalDraws++
	u.CurrentWinStreak = 0
}

// PlayerStats 對外顯示用的戰績摘要
type PlayerStats struct {
	TotalGames       int `json:"totalGames"`
	TotalWins        int `json:"totalWins"`
	TotalLosses      int `json:"totalLosses"`
	TotalDraws       int `json:"totalDraws"`
	CurrentWinStreak int `json:"currentWinStreak"`
	MaxWinStreak     int `json:"maxWinStreak"`
}

// Stats 回傳用戶目前的戰績摘要
func (u *User) Stats() PlayerStats {
	return PlayerStats{
		TotalGames:       u.TotalGames,
		TotalWins:        u.TotalWins,
		TotalLosses:      u.TotalLosses,
		TotalDraws:       u.TotalDraws,
		CurrentWinStreak: u.CurrentWinStreak,
		MaxWinStreak:     u.MaxWinStreak,
	}
}
