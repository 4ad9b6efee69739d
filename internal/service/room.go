package service

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"smile_battle/internal/models"
	"smile_battle/internal/repository"
)

// RoomCreateResult 創建房間後回傳給房長的資料
type RoomCreateResult struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Token string `json:"token"`
}

// RoomJoinResult 加入房間後回傳的資料
type RoomJoinResult struct {
	ID           uint                       `json:"id"`
	Name         string                     `json:"name"`
	Token        string                     `json:"token"`
	Participants []models.ParticipantDetail `json:"participants"`
}

// MatchResult 配對成功後兩位玩家各自需要的資料
type MatchResult struct {
	ID           uint
	Name         string
	TokenA       string
	TokenB       string
	Participants []models.ParticipantDetail
}

// RoomSummary 大廳列表中一列房間的摘要
type RoomSummary struct {
	ID               uint              `json:"id"`
	Name             string            `json:"name"`
	HostNickname     string            `json:"hostNickname"`
	Status           models.RoomStatus `json:"status"`
	IsPrivate        bool              `json:"isPrivate"`
	ParticipantCount int               `json:"participantCount"`
	CreatedAt        string            `json:"createdAt"`
}

// RoomService 管理房間的生命週期：創建、加入、離開與銷毀
type RoomService struct {
	roomRepo        repository.RoomRepository
	participantRepo repository.ParticipantRepository
	userRepo        repository.UserRepository
	broadcaster     Broadcaster
	provisioner     Provisioner
	locks           *roomLocker

	// roomID -> 媒體會話 ID，房間創建時寫入、銷毀時清除
	sessionsMux sync.Mutex
	sessions    map[uint]string
}

func NewRoomService(
	roomRepo repository.RoomRepository,
	participantRepo repository.ParticipantRepository,
	userRepo repository.UserRepository,
	broadcaster Broadcaster,
	provisioner Provisioner,
	locks *roomLocker,
) *RoomService {
	return &RoomService{
		roomRepo:        roomRepo,
		participantRepo: participantRepo,
		userRepo:        userRepo,
		broadcaster:     broadcaster,
		provisioner:     provisioner,
		locks:           locks,
		sessions:        make(map[uint]string),
	}
}

// CreateRoom 創建一個自建房，房長是唯一的參加者且恆為準備狀態
// 媒體會話供應失敗時回滾已寫入的房間列，不留下半完成的房間
func (s *RoomService) CreateRoom(hostUserID uint, name, password string, needPrivileged, privileged bool) (*RoomCreateResult, error) {
	host, err := s.userRepo.FindByID(hostUserID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	if needPrivileged && !privileged {
		return nil, ErrPrivilegedOnly
	}

	hashed := ""
	if password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		hashed = string(h)
	}

	code, err := s.generateUniqueRoomCode()
	if err != nil {
		return nil, err
	}

	room := &models.Room{
		Name:            name,
		RoomCode:        code,
		Password:        hashed,
		HostID:          host.ID,
		MaxParticipants: 2,
		Status:          models.RoomStatusWaiting,
		Kind:            models.RoomKindCasual,
		TurnCount:       1,
		RoundCount:      1,
		NeedPrivileged:  needPrivileged,
	}
	if err := s.roomRepo.Create(room); err != nil {
		return nil, err
	}

	// 媒體會話與房間列必須一起成立，供應失敗就補償刪除
	sessionID, err := s.provisioner.CreateSession(room.ID)
	if err != nil {
		s.compensateCreate(room.ID)
		return nil, fmt.Errorf("%w: %v", ErrProvisionFailed, err)
	}
	token, err := s.provisioner.CreateConnection(sessionID, host.ID, host.Nickname)
	if err != nil {
		s.compensateCreate(room.ID)
		return nil, fmt.Errorf("%w: %v", ErrProvisionFailed, err)
	}
	s.rememberSession(room.ID, sessionID)

	if err := s.participantRepo.Create(&models.Participant{
		RoomID:       room.ID,
		UserID:       host.ID,
		Role:         models.RoleHost,
		IsReady:      true, // 房長恆為準備狀態
		IsConnected:  true,
		IsPrivileged: privileged,
	}); err != nil {
		return nil, err
	}

	return &RoomCreateResult{ID: room.ID, Name: room.Name, Token: token}, nil
}

// CreatePairedRoom 配對佇列湊滿兩人後建立配對房
// 雙方都是一般參加者（配對房沒有房長），各拿一份媒體 token
func (s *RoomService) CreatePairedRoom(userAID, userBID uint, privA, privB bool) (*MatchResult, error) {
	userA, err := s.userRepo.FindByID(userAID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	userB, err := s.userRepo.FindByID(userBID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	code, err := s.generateUniqueRoomCode()
	if err != nil {
		return nil, err
	}

	// 配對房沒有房長，HostID 維持零值
	room := &models.Room{
		Name:            userA.Nickname + " vs " + userB.Nickname,
		RoomCode:        code,
		MaxParticipants: 2,
		Status:          models.RoomStatusWaiting,
		Kind:            models.RoomKindRanked,
		TurnCount:       1,
		RoundCount:      1,
	}
	if err := s.roomRepo.Create(room); err != nil {
		return nil, err
	}

	sessionID, err := s.provisioner.CreateSession(room.ID)
	if err != nil {
		s.compensateCreate(room.ID)
		return nil, fmt.Errorf("%w: %v", ErrProvisionFailed, err)
	}
	tokenA, err := s.provisioner.CreateConnection(sessionID, userA.ID, userA.Nickname)
	if err != nil {
		s.compensateCreate(room.ID)
		return nil, fmt.Errorf("%w: %v", ErrProvisionFailed, err)
	}
	tokenB, err := s.provisioner.CreateConnection(sessionID, userB.ID, userB.Nickname)
	if err != nil {
		s.compensateCreate(room.ID)
		return nil, fmt.Errorf("%w: %v", ErrProvisionFailed, err)
	}
	s.rememberSession(room.ID, sessionID)

	participantA := &models.Participant{
		RoomID: room.ID, UserID: userA.ID,
		Role: models.RoleParticipant, IsConnected: true, IsPrivileged: privA,
	}
	participantB := &models.Participant{
		RoomID: room.ID, UserID: userB.ID,
		Role: models.RoleParticipant, IsConnected: true, IsPrivileged: privB,
	}
	if err := s.participantRepo.Create(participantA); err != nil {
		return nil, err
	}
	if err := s.participantRepo.Create(participantB); err != nil {
		return nil, err
	}

	return &MatchResult{
		ID:     room.ID,
		Name:   room.Name,
		TokenA: tokenA,
		TokenB: tokenB,
		Participants: []models.ParticipantDetail{
			participantDetail(participantA, userA),
			participantDetail(participantB, userB),
		},
	}, nil
}

// JoinRoom 加入房間，roomCode 非空時用邀請碼找房（免密碼），否則用房間 ID
// 容量與密碼檢查必須在房間鎖內進行，兩個併發加入只會有一個搶到最後一個位子
func (s *RoomService) JoinRoom(userID uint, roomID uint, roomCode, password string, privileged bool) (*RoomJoinResult, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	byCode := roomCode != ""
	if byCode {
		room, err := s.roomRepo.FindByCode(roomCode)
		if err != nil {
			return nil, ErrRoomNotFound
		}
		roomID = room.ID
	}

	s.locks.Lock(roomID)
	defer s.locks.Unlock(roomID)

	// 取得鎖後重新讀取，房間可能剛被銷毀
	room, err := s.roomRepo.FindByID(roomID)
	if err != nil {
		return nil, ErrRoomNotFound
	}

	if room.NeedPrivileged && !privileged {
		return nil, ErrPrivilegedOnly
	}

	participants, err := s.participantRepo.FindAllByRoom(roomID)
	if err != nil {
		return nil, err
	}

	// 已在房內就直接回傳當前狀態，不重複寫入
	hasJoined := false
	for _, p := range participants {
		if p.UserID == userID {
			hasJoined = true
			break
		}
	}

	if !hasJoined {
		if len(participants) >= room.MaxParticipants {
			return nil, ErrRoomFull
		}
		// 邀請碼本身就是秘密，用邀請碼加入不驗密碼
		if !byCode && room.IsPrivate() {
			if err := bcrypt.CompareHashAndPassword([]byte(room.Password), []byte(password)); err != nil {
				return nil, ErrWrongPassword
			}
		}
	}

	sessionID, ok := s.sessionFor(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}
	token, err := s.provisioner.CreateConnection(sessionID, user.ID, user.Nickname)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvisionFailed, err)
	}

	details := make([]models.ParticipantDetail, 0, len(participants)+1)
	for i := range participants {
		u, err := s.userRepo.FindByID(participants[i].UserID)
		if err != nil {
			return nil, err
		}
		details = append(details, participantDetail(&participants[i], u))
	}

	if !hasJoined {
		newcomer := &models.Participant{
			RoomID:       roomID,
			UserID:       user.ID,
			Role:         models.RoleParticipant,
			IsConnected:  true,
			IsPrivileged: privileged,
		}
		if err := s.participantRepo.Create(newcomer); err != nil {
			return nil, err
		}

		myDetail := participantDetail(newcomer, user)
		details = append(details, myDetail)

		s.broadcaster.BroadcastToRoom(roomID, models.NewSystemEvent(
			models.EventParticipantJoined,
			"新的參加者加入了房間。",
			map[string]any{
				"userId":       myDetail.UserID,
				"nickname":     myDetail.Nickname,
				"isHost":       myDetail.IsHost,
				"isReady":      myDetail.IsReady,
				"isPrivileged": myDetail.IsPrivileged,
				"stats":        myDetail.Stats,
			},
		))
	}

	return &RoomJoinResult{ID: room.ID, Name: room.Name, Token: token, Participants: details}, nil
}

// ExitRoom 離房調和流程，明確離開與確認斷線都走這裡
//  1. 不是參加者就直接無事返回
//  2. 刪除參加者，沒人了就整個房間銷毀
//  3. 還有人時依房間種類與狀態分支處理
func (s *RoomService) ExitRoom(roomID, userID uint) error {
	s.locks.Lock(roomID)
	defer s.locks.Unlock(roomID)

	leaver, err := s.participantRepo.FindByRoomAndUser(roomID, userID)
	if err != nil {
		return nil // 不在房內，無事可做
	}

	leaverNickname := ""
	if u, err := s.userRepo.FindByID(userID); err == nil {
		leaverNickname = u.Nickname
	}

	if err := s.participantRepo.Delete(leaver.ID); err != nil {
		return err
	}

	remaining, err := s.participantRepo.CountByRoom(roomID)
	if err != nil {
		return err
	}
	if remaining == 0 {
		// 沒人了就刪房，不留殭屍空房
		if err := s.roomRepo.Delete(roomID); err != nil {
			return err
		}
		s.forgetSession(roomID)
		return nil
	}

	room, err := s.roomRepo.FindByID(roomID)
	if err != nil {
		return err
	}

	switch {
	case room.Kind == models.RoomKindCasual && room.Status == models.RoomStatusPlaying:
		// 對戰中有人離開，遊戲直接作廢
		room.Status = models.RoomStatusTerminated
		if err := s.roomRepo.Save(room); err != nil {
			return err
		}
		s.broadcaster.BroadcastToRoom(roomID, models.NewSystemEvent(
			models.EventRoomDestroyed, "參加者離開，遊戲已結束。", nil))

	case room.Kind == models.RoomKindCasual && leaver.Role == models.RoleHost:
		// 房長離開，最早加入的人接任
		next, err := s.participantRepo.FindEarliestByRoom(roomID)
		if err != nil {
			return err
		}
		room.HostID = next.UserID
		if err := s.roomRepo.Save(room); err != nil {
			return err
		}
		next.Role = models.RoleHost
		next.IsReady = true
		if err := s.participantRepo.Save(next); err != nil {
			return err
		}

		nextNickname := ""
		if u, err := s.userRepo.FindByID(next.UserID); err == nil {
			nextNickname = u.Nickname
		}
		s.broadcaster.BroadcastToRoom(roomID, models.NewSystemEvent(
			models.EventHostChanged,
			"原房長已離開，"+nextNickname+" 成為新房長。",
			map[string]any{"prevHostId": userID, "nextHostId": next.UserID},
		))

	case room.Kind == models.RoomKindCasual:
		s.broadcaster.BroadcastToRoom(roomID, models.NewSystemEvent(
			models.EventParticipantLeft,
			leaverNickname+" 離開了房間。",
			map[string]any{"leftUserId": userID},
		))

	case room.Kind == models.RoomKindRanked && room.Status != models.RoomStatusTerminated:
		// 配對房沒有等待補位這回事，有人離開比賽就結束
		room.Status = models.RoomStatusTerminated
		if err := s.roomRepo.Save(room); err != nil {
			return err
		}
		s.broadcaster.BroadcastToRoom(roomID, models.NewSystemEvent(
			models.EventRoomDestroyed, "參加者離開，遊戲已結束。", nil))
	}

	return nil
}

// MarkDisconnected 留下斷線紀錄，確認離線後、調和前呼叫
// 調和失敗時這筆紀錄就是該參加者最後的狀態
func (s *RoomService) MarkDisconnected(roomID, userID uint) {
	s.locks.Lock(roomID)
	defer s.locks.Unlock(roomID)

	participant, err := s.participantRepo.FindByRoomAndUser(roomID, userID)
	if err != nil {
		return
	}

	now := time.Now()
	participant.IsConnected = false
	participant.LastDisconnectedAt = &now
	if err := s.participantRepo.Save(participant); err != nil {
		log.Printf("mark disconnected: room %d user %d: %v", roomID, userID, err)
	}
}

// ExitAllRooms 把某用戶從其所有房間移除，單一房間的失敗只記錄不中斷
// 刪帳號等批次清理流程靠這個保證其餘房間仍會被處理
func (s *RoomService) ExitAllRooms(userID uint) {
	participants, err := s.participantRepo.FindAllByUser(userID)
	if err != nil {
		log.Printf("exit all rooms: list participants for user %d: %v", userID, err)
		return
	}
	for _, p := range participants {
		if err := s.ExitRoom(p.RoomID, userID); err != nil {
			log.Printf("exit all rooms: room %d user %d: %v", p.RoomID, userID, err)
		}
	}
}

// VerifyRoomCode 只有房內的參加者能拿到邀請碼，配對房沒有邀請碼可分享
func (s *RoomService) VerifyRoomCode(userID, roomID uint) (string, error) {
	room, err := s.roomRepo.FindByID(roomID)
	if err != nil {
		return "", ErrRoomNotFound
	}

	if room.Kind == models.RoomKindRanked {
		return "", ErrRankedHasNoCode
	}

	if _, err := s.participantRepo.FindByRoomAndUser(roomID, userID); err != nil {
		return "", ErrParticipantNotFound
	}

	return room.RoomCode, nil
}

// ListRooms 大廳的自建房分頁列表
func (s *RoomService) ListRooms(page, size int) ([]RoomSummary, int64, error) {
	rooms, total, err := s.roomRepo.FindCasualPage(page, size)
	if err != nil {
		return nil, 0, err
	}

	summaries := make([]RoomSummary, 0, len(rooms))
	for i := range rooms {
		hostNickname := ""
		if rooms[i].HostID != 0 {
			if host, err := s.userRepo.FindByID(rooms[i].HostID); err == nil {
				hostNickname = host.Nickname
			}
		}
		count, err := s.participantRepo.CountByRoom(rooms[i].ID)
		if err != nil {
			return nil, 0, err
		}
		summaries = append(summaries, RoomSummary{
			ID:               rooms[i].ID,
			Name:             rooms[i].Name,
			HostNickname:     hostNickname,
			Status:           rooms[i].Status,
			IsPrivate:        rooms[i].IsPrivate(),
			ParticipantCount: int(count),
			CreatedAt:        rooms[i].CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return summaries, total, nil
}

// generateUniqueRoomCode 產生 6 位邀請碼，撞碼就重生
func (s *RoomService) generateUniqueRoomCode() (string, error) {
	for {
		code := strings.ToUpper(uuid.NewString()[:6])
		exists, err := s.roomRepo.ExistsByCode(code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
}

// compensateCreate 媒體會話供應失敗後的補償刪除
func (s *RoomService) compensateCreate(roomID uint) {
	if err := s.roomRepo.Delete(roomID); err != nil {
		log.Printf("compensate room create: delete room %d: %v", roomID, err)
	}
}

func (s *RoomService) rememberSession(roomID uint, sessionID string) {
	s.sessionsMux.Lock()
	defer s.sessionsMux.Unlock()
	s.sessions[roomID] = sessionID
}

func (s *RoomService) sessionFor(roomID uint) (string, bool) {
	s.sessionsMux.Lock()
	defer s.sessionsMux.Unlock()
	sessionID, ok := s.sessions[roomID]
	return sessionID, ok
}

func (s *RoomService) forgetSession(roomID uint) {
	s.sessionsMux.Lock()
	defer s.sessionsMux.Unlock()
	delete(s.sessions, roomID)
}

func participantDetail(p *models.Participant, u *models.User) models.ParticipantDetail {
	return models.ParticipantDetail{
		UserID:       u.ID,
		Nickname:     u.Nickname,
		IsHost:       p.Role == models.RoleHost,
		IsReady:      p.IsReady,
		IsPrivileged: p.IsPrivileged,
		Stats:        u.Stats(),
	}
}
