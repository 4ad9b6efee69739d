package service

import (
	"log"
	"math/rand"
	"strconv"
	"time"

	"smile_battle/internal/models"
	"smile_battle/internal/repository"
)

// GameService 房間內的對戰流程引擎
// 固定形制：三回合制，每回合最多兩手，兩位參加者輪流攻防，
// 先拿兩勝者直接獲勝，三回合打滿比勝數，同分為平手
type GameService struct {
	roomRepo        repository.RoomRepository
	participantRepo repository.ParticipantRepository
	userRepo        repository.UserRepository
	broadcaster     Broadcaster
	battle          *BattleService
	locks           *roomLocker
}

func NewGameService(
	roomRepo repository.RoomRepository,
	participantRepo repository.ParticipantRepository,
	userRepo repository.UserRepository,
	broadcaster Broadcaster,
	battle *BattleService,
	locks *roomLocker,
) *GameService {
	return &GameService{
		roomRepo:        roomRepo,
		participantRepo: participantRepo,
		userRepo:        userRepo,
		broadcaster:     broadcaster,
		battle:          battle,
		locks:           locks,
	}
}

// ReadyToggle 變更準備狀態，只有等待中的房間可以按，房長不能按
// 配對房在兩位參加者都準備後自動開局
func (s *GameService) ReadyToggle(roomID, userID uint, ready bool) error {
	s.locks.Lock(roomID)
	defer s.locks.Unlock(roomID)

	room, err := s.roomRepo.FindByID(roomID)
	if err != nil {
		return ErrRoomNotFound
	}
	if room.Status != models.RoomStatusWaiting {
		return ErrRoomNotWaiting
	}

	sender, err := s.participantRepo.FindByRoomAndUser(roomID, userID)
	if err != nil {
		return ErrParticipantNotFound
	}
	if sender.Role == models.RoleHost {
		return ErrHostAlwaysReady
	}

	sender.IsReady = ready
	if err := s.participantRepo.Save(sender); err != nil {
		return err
	}

	nickname := s.nicknameOf(userID)
	message := nickname + " 已準備。"
	if !ready {
		message = nickname + " 取消了準備。"
	}
	s.broadcaster.BroadcastToRoom(roomID, models.NewSystemEvent(
		models.EventReadyChanged, message,
		map[string]any{"userId": userID, "isReady": ready},
	))

	// 配對房雙方都準備好就自動開局
	if room.Kind == models.RoomKindRanked {
		participants, err := s.participantRepo.FindAllByRoom(roomID)
		if err != nil {
			return err
		}
		if len(participants) == 2 && participants[0].IsReady && participants[1].IsReady {
			return s.start(room, participants)
		}
	}
	return nil
}

// ManualStart 房長手動開局，只有自建房可用
// 需要兩位參加者到齊且全員準備
func (s *GameService) ManualStart(roomID, userID uint) error {
	s.locks.Lock(roomID)
	defer s.locks.Unlock(roomID)

	room, err := s.roomRepo.FindByID(roomID)
	if err != nil {
		return ErrRoomNotFound
	}
	if room.Status != models.RoomStatusWaiting {
		return ErrRoomNotWaiting
	}
	if room.Kind == models.RoomKindRanked {
		return ErrManualStartRanked
	}

	sender, err := s.participantRepo.FindByRoomAndUser(roomID, userID)
	if err != nil {
		return ErrParticipantNotFound
	}
	if sender.Role != models.RoleHost {
		return ErrNotHost
	}

	participants, err := s.participantRepo.FindAllByRoom(roomID)
	if err != nil {
		return err
	}
	if len(participants) != 2 {
		return ErrNotEnoughPlayers
	}
	if !participants[0].IsReady || !participants[1].IsReady {
		return ErrNotAllReady
	}

	return s.start(room, participants)
}

// TurnSwap 攻擊方主動換手
// 回合內第一手：單純公守交換；第二手：該回合平手，進下一回合或終局
func (s *GameService) TurnSwap(roomID, userID uint) error {
	s.locks.Lock(roomID)
	defer s.locks.Unlock(roomID)

	room, err := s.roomRepo.FindByID(roomID)
	if err != nil {
		return ErrRoomNotFound
	}
	if room.Status != models.RoomStatusPlaying {
		return ErrRoomNotPlaying
	}
	if room.CurrentAttackerID != userID {
		return ErrNotAttacker
	}

	participants, err := s.participantRepo.FindAllByRoom(roomID)
	if err != nil {
		return err
	}

	return s.advance(room, participants, models.OpTurnSwap)
}

// LaughSignal 守方回報攻擊成功（自己笑了），攻擊方得一勝
// 任一方達到兩勝立即終局，否則照換手規則繼續
func (s *GameService) LaughSignal(roomID, userID uint) error {
	s.locks.Lock(roomID)
	defer s.locks.Unlock(roomID)

	room, err := s.roomRepo.FindByID(roomID)
	if err != nil {
		return ErrRoomNotFound
	}
	if room.Status != models.RoomStatusPlaying {
		return ErrRoomNotPlaying
	}
	if room.CurrentAttackerID == userID {
		return ErrAttackerForbidden
	}

	participants, err := s.participantRepo.FindAllByRoom(roomID)
	if err != nil {
		return err
	}

	var attacker *models.Participant
	for i := range participants {
		if participants[i].UserID == room.CurrentAttackerID {
			attacker = &participants[i]
			break
		}
	}
	if attacker == nil {
		return ErrParticipantNotFound
	}

	attacker.WinCount++
	if err := s.participantRepo.Save(attacker); err != nil {
		return err
	}

	// 兩勝直接終局
	if attacker.WinCount >= 2 {
		return s.finish(room, participants, attacker.UserID, models.OpLaugh,
			"比賽結束！"+s.nicknameOf(attacker.UserID)+" 取得最終勝利。")
	}

	return s.advance(room, participants, models.OpLaugh)
}

// Surrender 投降，對手直接獲勝
func (s *GameService) Surrender(roomID, userID uint) error {
	s.locks.Lock(roomID)
	defer s.locks.Unlock(roomID)

	room, err := s.roomRepo.FindByID(roomID)
	if err != nil {
		return ErrRoomNotFound
	}
	if room.Status != models.RoomStatusPlaying {
		return ErrRoomNotPlaying
	}

	participants, err := s.participantRepo.FindAllByRoom(roomID)
	if err != nil {
		return err
	}

	var winnerID uint
	found := false
	for i := range participants {
		if participants[i].UserID == userID {
			found = true
		} else {
			winnerID = participants[i].UserID
		}
	}
	if !found || winnerID == 0 {
		return ErrParticipantNotFound
	}

	return s.finish(room, participants, winnerID, models.OpSurrender,
		"比賽結束！"+s.nicknameOf(userID)+" 投降了。")
}

// Report 廣播檢舉通知，目標是加入順序中的下一位
// 純告知性質，不影響房間狀態與勝負
func (s *GameService) Report(roomID, userID uint) error {
	room, err := s.roomRepo.FindByID(roomID)
	if err != nil {
		return ErrRoomNotFound
	}

	participants, err := s.participantRepo.FindAllByRoom(room.ID)
	if err != nil {
		return err
	}
	if len(participants) == 0 {
		return ErrParticipantNotFound
	}

	senderIndex := 0
	for i := range participants {
		if participants[i].UserID == userID {
			senderIndex = i
			break
		}
	}
	target := participants[(senderIndex+1)%len(participants)]

	s.broadcaster.BroadcastToRoom(room.ID, models.NewSystemEvent(
		models.EventReported,
		s.nicknameOf(target.UserID)+" 被檢舉了。",
		map[string]any{"reportedUserId": target.UserID},
	))
	return nil
}

// start 開局流程：隨機選首攻，重設手數與回合數
// 呼叫端必須已持有房間鎖
func (s *GameService) start(room *models.Room, participants []models.Participant) error {
	first := participants[rand.Intn(len(participants))]

	room.CurrentAttackerID = first.UserID
	room.Status = models.RoomStatusPlaying
	room.TurnCount = 1
	room.RoundCount = 1
	room.TurnStartedAt = time.Now()
	if err := s.roomRepo.Save(room); err != nil {
		return err
	}

	s.broadcaster.BroadcastToRoom(room.ID, models.NewSystemEvent(
		models.EventBattleStart, "遊戲開始了。",
		map[string]any{
			"attackerId":    first.UserID,
			"currentTurn":   room.TurnCount,
			"currentRound":  room.RoundCount,
			"currentScores": scoresOf(participants),
		},
	))
	return nil
}

// advance 換手與回合推進的共同邏輯
// 第一手：換手；第二手：回合平手，第三回合就終局，否則進下一回合
func (s *GameService) advance(room *models.Room, participants []models.Participant, reason string) error {
	if room.TurnCount == 1 {
		room.TurnCount = 2
		next := swapAttacker(room, participants)
		room.TurnStartedAt = time.Now()
		if err := s.roomRepo.Save(room); err != nil {
			return err
		}

		s.broadcaster.BroadcastToRoom(room.ID, models.NewSystemEvent(
			models.EventTurnSwapped,
			"攻守交換，攻擊方是 "+s.nicknameOf(next.UserID)+"。",
			map[string]any{
				"reason":        reason,
				"attackerId":    next.UserID,
				"currentTurn":   room.TurnCount,
				"currentRound":  room.RoundCount,
				"currentScores": scoresOf(participants),
			},
		))
		return nil
	}

	// 兩手都用完，這回合平手
	if room.RoundCount == 3 {
		winnerID := winnerByWinCount(participants)
		message := "比賽結束！勝負已定。"
		if winnerID == 0 {
			message = "比賽結束！雙方平手。"
		}
		return s.finish(room, participants, winnerID, reason, message)
	}

	room.RoundCount++
	room.TurnCount = 1
	next := swapAttacker(room, participants)
	room.TurnStartedAt = time.Now()
	if err := s.roomRepo.Save(room); err != nil {
		return err
	}

	s.broadcaster.BroadcastToRoom(room.ID, models.NewSystemEvent(
		models.EventRoundEnded,
		"本回合平手，進入下一回合，新的攻擊方是 "+s.nicknameOf(next.UserID)+"。",
		map[string]any{
			"reason":        reason,
			"attackerId":    next.UserID,
			"currentTurn":   room.TurnCount,
			"currentRound":  room.RoundCount,
			"currentScores": scoresOf(participants),
		},
	))
	return nil
}

// finish 終局流程：標記 TERMINATED、提交戰績、廣播結果
// 戰績提交失敗只記錄，玩家端的結束廣播不能因此中斷
func (s *GameService) finish(room *models.Room, participants []models.Participant, winnerID uint, reason, message string) error {
	room.Status = models.RoomStatusTerminated
	if err := s.roomRepo.Save(room); err != nil {
		return err
	}

	if len(participants) == 2 {
		var err error
		if winnerID == 0 {
			err = s.battle.RecordDraw(room.ID, participants[0].UserID, participants[1].UserID)
		} else {
			loserID := participants[0].UserID
			if loserID == winnerID {
				loserID = participants[1].UserID
			}
			err = s.battle.RecordResult(room.ID, winnerID, loserID)
		}
		if err != nil {
			log.Printf("record battle outcome for room %d: %v", room.ID, err)
		}
	}

	winnerValue := any("")
	if winnerID != 0 {
		winnerValue = winnerID
	}
	s.broadcaster.BroadcastToRoom(room.ID, models.NewSystemEvent(
		models.EventBattleEnd, message,
		map[string]any{
			"reason":      reason,
			"winnerId":    winnerValue,
			"finalTurn":   room.TurnCount,
			"finalRound":  room.RoundCount,
			"finalScores": scoresOf(participants),
		},
	))
	return nil
}

func (s *GameService) nicknameOf(userID uint) string {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return ""
	}
	return user.Nickname
}

// swapAttacker 把攻擊方換成加入順序中的下一位
func swapAttacker(room *models.Room, participants []models.Participant) *models.Participant {
	currentIndex := 0
	for i := range participants {
		if participants[i].UserID == room.CurrentAttackerID {
			currentIndex = i
			break
		}
	}
	next := &participants[(currentIndex+1)%len(participants)]
	room.CurrentAttackerID = next.UserID
	return next
}

// winnerByWinCount 勝數嚴格多者獲勝，同分回傳 0 表示平手
func winnerByWinCount(participants []models.Participant) uint {
	if len(participants) != 2 {
		return 0
	}
	if participants[0].WinCount > participants[1].WinCount {
		return participants[0].UserID
	}
	if participants[1].WinCount > participants[0].WinCount {
		return participants[1].UserID
	}
	return 0
}

// scoresOf 以用戶 ID 為鍵的當前勝數表
func scoresOf(participants []models.Participant) map[string]int {
	scores := make(map[string]int, len(participants))
	for i := range participants {
		scores[strconv.FormatUint(uint64(participants[i].UserID), 10)] = participants[i].WinCount
	}
	return scores
}
