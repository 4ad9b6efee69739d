package service

import (
	"sync"

	"smile_battle/internal/models"
)

// waitingEntry 配對佇列中的一位等待者
type waitingEntry struct {
	userID     uint
	privileged bool // 特權客戶端標記，配對進房時沿用
}

// MatchmakingService 配對佇列：先進先出，湊滿兩人就開配對房
// 所有佇列操作共用同一把鎖。配對是「檢查人數並取出兩人」的複合操作，
// 取消排隊不能和它交錯，否則會把剛取消的人配進房，
// 所以人數檢查、取出與取消都必須在同一個臨界區內完成
type MatchmakingService struct {
	mu          sync.Mutex
	queue       []waitingEntry
	roomService *RoomService
	broadcaster Broadcaster
}

func NewMatchmakingService(roomService *RoomService, broadcaster Broadcaster) *MatchmakingService {
	return &MatchmakingService{
		roomService: roomService,
		broadcaster: broadcaster,
	}
}

// Enqueue 加入配對佇列，已在佇列中則無事返回
// 湊滿兩人就取出最早的兩位建立配對房，並各發一則私人配對成功事件
func (s *MatchmakingService) Enqueue(userID uint, privileged bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range s.queue {
		if entry.userID == userID {
			return nil
		}
	}
	s.queue = append(s.queue, waitingEntry{userID: userID, privileged: privileged})

	if len(s.queue) < 2 {
		return nil
	}

	entryA, entryB := s.queue[0], s.queue[1]
	s.queue = s.queue[2:]

	result, err := s.roomService.CreatePairedRoom(
		entryA.userID, entryB.userID, entryA.privileged, entryB.privileged)
	if err != nil {
		// 開房失敗，兩位都已離隊，請他們重新排
		event := models.NewSystemEvent(models.EventError, "配對失敗，請重新排隊。", nil)
		s.broadcaster.SendToUser(entryA.userID, event)
		s.broadcaster.SendToUser(entryB.userID, event)
		return err
	}

	s.broadcaster.SendToUser(entryA.userID, models.NewSystemEvent(
		models.EventMatchFound, "配對完成。",
		map[string]any{
			"id":           result.ID,
			"name":         result.Name,
			"token":        result.TokenA,
			"participants": result.Participants,
		},
	))
	s.broadcaster.SendToUser(entryB.userID, models.NewSystemEvent(
		models.EventMatchFound, "配對完成。",
		map[string]any{
			"id":           result.ID,
			"name":         result.Name,
			"token":        result.TokenB,
			"participants": result.Participants,
		},
	))
	return nil
}

// Dequeue 離開配對佇列，不在佇列中也安全
func (s *MatchmakingService) Dequeue(userID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, entry := range s.queue {
		if entry.userID == userID {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			return
		}
	}
}

// WaitingCount 目前排隊人數
func (s *MatchmakingService) WaitingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}
