package service

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"smile_battle/internal/models"
)

// 測試用的記憶體版 repositories 與外部依賴
// 行為對齊真實實作：找不到資料時回 gorm.ErrRecordNotFound，
// 讀寫都加鎖，併發測試也能安全使用

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uint]models.User)}
}

func (r *fakeUserRepo) Create(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	user.ID = r.nextID
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) FindByID(id uint) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &user, nil
}

func (r *fakeUserRepo) FindByUsername(username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Username == username {
			u := user
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) Save(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) Delete(id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}

type fakeRoomRepo struct {
	mu     sync.Mutex
	nextID uint
	rooms  map[uint]models.Room
}

func newFakeRoomRepo() *fakeRoomRepo {
	return &fakeRoomRepo{rooms: make(map[uint]models.Room)}
}

func (r *fakeRoomRepo) Create(room *models.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	room.ID = r.nextID
	room.CreatedAt = time.Now()
	r.rooms[room.ID] = *room
	return nil
}

func (r *fakeRoomRepo) FindByID(id uint) (*models.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &room, nil
}

func (r *fakeRoomRepo) FindByCode(code string) (*models.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, room := range r.rooms {
		if room.RoomCode == code {
			candidate := room
			return &candidate, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRoomRepo) ExistsByCode(code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, room := range r.rooms {
		if room.RoomCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRoomRepo) Save(room *models.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms[room.ID] = *room
	return nil
}

func (r *fakeRoomRepo) Delete(id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, id)
	return nil
}

func (r *fakeRoomRepo) FindCasualPage(page, size int) ([]models.Room, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var casual []models.Room
	for _, room := range r.rooms {
		if room.Kind == models.RoomKindCasual {
			casual = append(casual, room)
		}
	}
	// 新到舊
	sort.Slice(casual, func(i, j int) bool { return casual[i].ID > casual[j].ID })

	total := int64(len(casual))
	start := (page - 1) * size
	if start >= len(casual) {
		return nil, total, nil
	}
	end := start + size
	if end > len(casual) {
		end = len(casual)
	}
	return casual[start:end], total, nil
}

type fakeParticipantRepo struct {
	mu           sync.Mutex
	nextID       uint
	participants map[uint]models.Participant
}

func newFakeParticipantRepo() *fakeParticipantRepo {
	return &fakeParticipantRepo{participants: make(map[uint]models.Participant)}
}

func (r *fakeParticipantRepo) Create(participant *models.Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.participants {
		if p.RoomID == participant.RoomID && p.UserID == participant.UserID {
			return errors.New("duplicate participant")
		}
	}
	r.nextID++
	participant.ID = r.nextID
	participant.CreatedAt = time.Now()
	r.participants[participant.ID] = *participant
	return nil
}

func (r *fakeParticipantRepo) FindByRoomAndUser(roomID, userID uint) (*models.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.participants {
		if p.RoomID == roomID && p.UserID == userID {
			candidate := p
			return &candidate, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// FindAllByRoom 依主鍵升冪，即加入順序
func (r *fakeParticipantRepo) FindAllByRoom(roomID uint) ([]models.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []models.Participant
	for _, p := range r.participants {
		if p.RoomID == roomID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *fakeParticipantRepo) FindAllByUser(userID uint) ([]models.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []models.Participant
	for _, p := range r.participants {
		if p.UserID == userID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *fakeParticipantRepo) FindEarliestByRoom(roomID uint) (*models.Participant, error) {
	all, _ := r.FindAllByRoom(roomID)
	if len(all) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	earliest := all[0]
	return &earliest, nil
}

func (r *fakeParticipantRepo) CountByRoom(roomID uint) (int64, error) {
	all, _ := r.FindAllByRoom(roomID)
	return int64(len(all)), nil
}

func (r *fakeParticipantRepo) Save(participant *models.Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.participants[participant.ID] = *participant
	return nil
}

func (r *fakeParticipantRepo) Delete(id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.participants, id)
	return nil
}

type fakeBattleRecordRepo struct {
	mu      sync.Mutex
	records []models.BattleRecord
}

func newFakeBattleRecordRepo() *fakeBattleRecordRepo {
	return &fakeBattleRecordRepo{}
}

func (r *fakeBattleRecordRepo) Create(record *models.BattleRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record.ID = uint(len(r.records) + 1)
	r.records = append(r.records, *record)
	return nil
}

func (r *fakeBattleRecordRepo) ExistsByRoomAndUser(roomID, userID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, record := range r.records {
		if record.RoomID == roomID && record.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeBattleRecordRepo) FindAllByUser(userID uint) ([]models.BattleRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []models.BattleRecord
	for _, record := range r.records {
		if record.UserID == userID {
			result = append(result, record)
		}
	}
	return result, nil
}

func (r *fakeBattleRecordRepo) all() []models.BattleRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.BattleRecord(nil), r.records...)
}

// fakeBroadcaster 記錄所有廣播過的事件，供測試檢查
type fakeBroadcaster struct {
	mu         sync.Mutex
	roomEvents map[uint][]*models.Event
	userEvents map[uint][]*models.Event
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{
		roomEvents: make(map[uint][]*models.Event),
		userEvents: make(map[uint][]*models.Event),
	}
}

func (b *fakeBroadcaster) BroadcastToRoom(roomID uint, event *models.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.roomEvents[roomID] = append(b.roomEvents[roomID], event)
}

func (b *fakeBroadcaster) SendToUser(userID uint, event *models.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.userEvents[userID] = append(b.userEvents[userID], event)
}

func (b *fakeBroadcaster) roomEventTypes(roomID uint) []models.EventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	types := make([]models.EventType, 0, len(b.roomEvents[roomID]))
	for _, event := range b.roomEvents[roomID] {
		types = append(types, event.Type)
	}
	return types
}

func (b *fakeBroadcaster) lastRoomEvent(roomID uint) *models.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	events := b.roomEvents[roomID]
	if len(events) == 0 {
		return nil
	}
	return events[len(events)-1]
}

func (b *fakeBroadcaster) userEventsOf(userID uint) []*models.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*models.Event(nil), b.userEvents[userID]...)
}

// fakeProvisioner 不打外部 API 的媒體會話供應器
// 每次 CreateConnection 都回傳不同的 token，方便驗證每人各拿一份
type fakeProvisioner struct {
	mu             sync.Mutex
	failSession    bool
	failConnection bool
	connCount      int
}

func newFakeProvisioner() *fakeProvisioner {
	return &fakeProvisioner{}
}

func (p *fakeProvisioner) CreateSession(roomID uint) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failSession {
		return "", errors.New("session backend down")
	}
	return fmt.Sprintf("ses_%d", roomID), nil
}

func (p *fakeProvisioner) CreateConnection(sessionID string, userID uint, nickname string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failConnection {
		return "", errors.New("connection backend down")
	}
	p.connCount++
	return fmt.Sprintf("tok_%s_%d_%d", sessionID, userID, p.connCount), nil
}

// fixture 組好一整套服務與假依賴，測試共用
type fixture struct {
	userRepo        *fakeUserRepo
	roomRepo        *fakeRoomRepo
	participantRepo *fakeParticipantRepo
	recordRepo      *fakeBattleRecordRepo
	broadcaster     *fakeBroadcaster
	provisioner     *fakeProvisioner

	battle      *BattleService
	rooms       *RoomService
	game        *GameService
	matchmaking *MatchmakingService
	presence    *PresenceService
	users       *UserService
}

func newFixture() *fixture {
	f := &fixture{
		userRepo:        newFakeUserRepo(),
		roomRepo:        newFakeRoomRepo(),
		participantRepo: newFakeParticipantRepo(),
		recordRepo:      newFakeBattleRecordRepo(),
		broadcaster:     newFakeBroadcaster(),
		provisioner:     newFakeProvisioner(),
	}

	locks := newRoomLocker()
	f.battle = NewBattleService(f.recordRepo, f.userRepo)
	f.rooms = NewRoomService(f.roomRepo, f.participantRepo, f.userRepo, f.broadcaster, f.provisioner, locks)
	f.game = NewGameService(f.roomRepo, f.participantRepo, f.userRepo, f.broadcaster, f.battle, locks)
	f.matchmaking = NewMatchmakingService(f.rooms, f.broadcaster)
	f.presence = NewPresenceService(f.matchmaking, f.rooms)
	f.users = NewUserService(f.userRepo, f.rooms, f.matchmaking)
	return f
}

// addUser 建立一位測試用戶
func (f *fixture) addUser(nickname string) *models.User {
	user := &models.User{Username: nickname, Password: "hashed", Nickname: nickname}
	if err := f.userRepo.Create(user); err != nil {
		panic(err)
	}
	return user
}
