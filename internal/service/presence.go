package service

import (
	"log"
	"sync"
)

// PresenceService 追蹤每位用戶當前有效的傳輸會話
// 同一用戶重連時以最新會話為準，舊會話的斷線事件視為過期、不觸發遊戲邏輯
type PresenceService struct {
	mu       sync.Mutex
	active   map[uint]string // userID -> 最新會話 ID
	sessions map[string]bool // 所有在線會話，純粹的連線數簿記

	matchmaking *MatchmakingService
	rooms       *RoomService
}

func NewPresenceService(matchmaking *MatchmakingService, rooms *RoomService) *PresenceService {
	return &PresenceService{
		active:      make(map[uint]string),
		sessions:    make(map[string]bool),
		matchmaking: matchmaking,
		rooms:       rooms,
	}
}

// Connected 新連線建立，該用戶的有效會話換成這一條
func (p *PresenceService) Connected(userID uint, sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.active[userID] = sessionID
	p.sessions[sessionID] = true
}

// Disconnected 處理斷線事件
// 斷掉的不是該用戶的有效會話就只做連線數簿記（用戶已用新會話重連），
// 是有效會話才視為真正離線：移出配對佇列，有訂閱房間就走離房調和
func (p *PresenceService) Disconnected(userID uint, sessionID string, roomID uint) {
	p.mu.Lock()
	current, ok := p.active[userID]
	if !ok || current != sessionID {
		// 過期會話的斷線，忽略
		delete(p.sessions, sessionID)
		p.mu.Unlock()
		return
	}
	delete(p.active, userID)
	delete(p.sessions, sessionID)
	p.mu.Unlock()

	p.matchmaking.Dequeue(userID)

	if roomID != 0 {
		p.rooms.MarkDisconnected(roomID, userID)
		// 調和失敗只記錄，斷線處理不能被單一房間的錯誤擋住
		if err := p.rooms.ExitRoom(roomID, userID); err != nil {
			log.Printf("disconnect reconcile: room %d user %d: %v", roomID, userID, err)
		}
	}
}

// ActiveSession 查詢用戶當前有效的會話 ID
func (p *PresenceService) ActiveSession(userID uint) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	sessionID, ok := p.active[userID]
	return sessionID, ok
}

// SessionCount 目前在線的會話總數
func (p *PresenceService) SessionCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}
