package models

import (
	"time"

	"gorm.io/gorm"
)

// Room 表示一個對戰房間
// 同一房間的所有變更都必須在房間鎖內進行
type Room struct {
	gorm.Model
	Name              string     // 房間標題
	RoomCode          string     `gorm:"uniqueIndex;not null"` // 入場邀請碼，全域唯一
	Password          string     // 房間密碼（bcrypt 雜湊），空字串表示公開房
	HostID            uint       // 房長的用戶 ID，0 表示沒有房長
	MaxParticipants   int        // 人數上限，固定為 2
	Status            RoomStatus // 房間狀態
	Kind              RoomKind   // 房間種類（自建 / 配對）
	CurrentAttackerID uint       // 當前攻擊方的用戶 ID，0 表示尚未開局
	TurnCount         int        // 回合內的手數，從 1 開始，最大 2
	RoundCount        int        // 回合數，從 1 開始，最大 3
	TurnStartedAt     time.Time  // 當前手開始時間，僅供遙測
	NeedPrivileged    bool       // 是否要求特權客戶端才能加入
}

// IsPrivate 是否為密碼房
func (r *Room) IsPrivate() bool {
	return r.Password != ""
}

// RoomStatus 定義房間狀態的類型
type RoomStatus string

const (
	RoomStatusWaiting    RoomStatus = "WAITING"    // 等待開局
	RoomStatusPlaying    RoomStatus = "PLAYING"    // 對戰中
	RoomStatusTerminated RoomStatus = "TERMINATED" // 對戰結束，不可再轉移
)

// RoomKind 定義房間種類的類型
type RoomKind string

const (
	RoomKindCasual RoomKind = "CASUAL" // 玩家自建房，有房長，手動開局
	RoomKindRanked RoomKind = "RANKED" // 配對產生的房，無房長，雙方準備後自動開局
)

// Participant 表示房間中的一位參加者
// (RoomID, UserID) 組合唯一
type Participant struct {
	gorm.Model
	RoomID             uint            `gorm:"uniqueIndex:idx_participants_room_user;not null"`
	UserID             uint            `gorm:"uniqueIndex:idx_participants_room_user;not null"`
	Role               ParticipantRole `gorm:"not null"`
	IsReady            bool            // 房長恆為 true
	WinCount           int             // 本局的得勝數，0〜2
	IsConnected        bool
	LastDisconnectedAt *time.Time
	IsPrivileged       bool // 是否由特權客戶端加入
}

// ParticipantRole 定義參加者角色的類型
type ParticipantRole string

const (
	RoleHost        ParticipantRole = "HOST"
	RoleParticipant ParticipantRole = "PARTICIPANT"
)

// ParticipantDetail 發給客戶端顯示用的參加者摘要
type ParticipantDetail struct {
	UserID       uint        `json:"userId"`
	Nickname     string      `json:"nickname"`
	IsHost       bool        `json:"isHost"`
	IsReady      bool        `json:"isReady"`
	IsPrivileged bool        `json:"isPrivileged"`
	Stats        PlayerStats `json:"stats"`
}
