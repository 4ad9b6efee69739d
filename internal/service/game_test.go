package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smile_battle/internal/models"
)

// startCasualBattle 建好一間自建房、兩人到齊並開局
// 回傳房間 ID、房長與客人的用戶 ID，以及開局後的攻守雙方
func startCasualBattle(t *testing.T, f *fixture) (roomID, hostID, guestID, attackerID, defenderID uint) {
	t.Helper()

	host := f.addUser("小明")
	guest := f.addUser("小華")

	created, err := f.rooms.CreateRoom(host.ID, "歡樂房", "", false, false)
	require.NoError(t, err)
	_, err = f.rooms.JoinRoom(guest.ID, created.ID, "", "", false)
	require.NoError(t, err)

	require.NoError(t, f.game.ReadyToggle(created.ID, guest.ID, true))
	require.NoError(t, f.game.ManualStart(created.ID, host.ID))

	room, err := f.roomRepo.FindByID(created.ID)
	require.NoError(t, err)
	require.Equal(t, models.RoomStatusPlaying, room.Status)

	attackerID = room.CurrentAttackerID
	defenderID = host.ID
	if attackerID == host.ID {
		defenderID = guest.ID
	}
	return created.ID, host.ID, guest.ID, attackerID, defenderID
}

// currentAttacker 讀取房間當前的攻擊方
func currentAttacker(t *testing.T, f *fixture, roomID uint) uint {
	t.Helper()
	room, err := f.roomRepo.FindByID(roomID)
	require.NoError(t, err)
	return room.CurrentAttackerID
}

// otherOf 回傳兩人中的另一位
func otherOf(userID, userA, userB uint) uint {
	if userID == userA {
		return userB
	}
	return userA
}

func TestReadyToggle(t *testing.T) {
	f := newFixture()
	host := f.addUser("小明")
	guest := f.addUser("小華")

	created, err := f.rooms.CreateRoom(host.ID, "歡樂房", "", false, false)
	require.NoError(t, err)
	_, err = f.rooms.JoinRoom(guest.ID, created.ID, "", "", false)
	require.NoError(t, err)

	// 房長不能變更準備狀態
	assert.ErrorIs(t, f.game.ReadyToggle(created.ID, host.ID, true), ErrHostAlwaysReady)

	require.NoError(t, f.game.ReadyToggle(created.ID, guest.ID, true))
	participant, err := f.participantRepo.FindByRoomAndUser(created.ID, guest.ID)
	require.NoError(t, err)
	assert.True(t, participant.IsReady)

	event := f.broadcaster.lastRoomEvent(created.ID)
	require.NotNil(t, event)
	assert.Equal(t, models.EventReadyChanged, event.Type)
	assert.Equal(t, true, event.Data["isReady"])

	// 取消準備
	require.NoError(t, f.game.ReadyToggle(created.ID, guest.ID, false))
	participant, err = f.participantRepo.FindByRoomAndUser(created.ID, guest.ID)
	require.NoError(t, err)
	assert.False(t, participant.IsReady)

	// 自建房不自動開局
	room, err := f.roomRepo.FindByID(created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusWaiting, room.Status)
}

func TestReadyToggleRankedAutoStart(t *testing.T) {
	f := newFixture()
	userA := f.addUser("小明")
	userB := f.addUser("小華")

	result, err := f.rooms.CreatePairedRoom(userA.ID, userB.ID, false, false)
	require.NoError(t, err)

	require.NoError(t, f.game.ReadyToggle(result.ID, userA.ID, true))
	room, err := f.roomRepo.FindByID(result.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusWaiting, room.Status)

	// 配對房雙方都準備好就自動開局
	require.NoError(t, f.game.ReadyToggle(result.ID, userB.ID, true))
	room, err = f.roomRepo.FindByID(result.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusPlaying, room.Status)
	assert.Equal(t, 1, room.TurnCount)
	assert.Equal(t, 1, room.RoundCount)
	assert.Contains(t, []uint{userA.ID, userB.ID}, room.CurrentAttackerID)

	types := f.broadcaster.roomEventTypes(result.ID)
	assert.Contains(t, types, models.EventBattleStart)
}

func TestManualStartValidations(t *testing.T) {
	f := newFixture()
	host := f.addUser("小明")
	guest := f.addUser("小華")

	created, err := f.rooms.CreateRoom(host.ID, "歡樂房", "", false, false)
	require.NoError(t, err)

	// 人數不足
	assert.ErrorIs(t, f.game.ManualStart(created.ID, host.ID), ErrNotEnoughPlayers)

	_, err = f.rooms.JoinRoom(guest.ID, created.ID, "", "", false)
	require.NoError(t, err)

	// 客人還沒準備
	assert.ErrorIs(t, f.game.ManualStart(created.ID, host.ID), ErrNotAllReady)

	require.NoError(t, f.game.ReadyToggle(created.ID, guest.ID, true))

	// 只有房長能開局
	assert.ErrorIs(t, f.game.ManualStart(created.ID, guest.ID), ErrNotHost)

	require.NoError(t, f.game.ManualStart(created.ID, host.ID))

	// 已開局的房間不能再開
	assert.ErrorIs(t, f.game.ManualStart(created.ID, host.ID), ErrRoomNotWaiting)
}

func TestManualStartRankedForbidden(t *testing.T) {
	f := newFixture()
	userA := f.addUser("小明")
	userB := f.addUser("小華")

	result, err := f.rooms.CreatePairedRoom(userA.ID, userB.ID, false, false)
	require.NoError(t, err)

	assert.ErrorIs(t, f.game.ManualStart(result.ID, userA.ID), ErrManualStartRanked)
}

func TestTurnSwapOnlyAttacker(t *testing.T) {
	f := newFixture()
	roomID, _, _, attackerID, defenderID := startCasualBattle(t, f)

	assert.ErrorIs(t, f.game.TurnSwap(roomID, defenderID), ErrNotAttacker)

	require.NoError(t, f.game.TurnSwap(roomID, attackerID))

	// 換手後攻守交換，進入本回合第二手
	room, err := f.roomRepo.FindByID(roomID)
	require.NoError(t, err)
	assert.Equal(t, defenderID, room.CurrentAttackerID)
	assert.Equal(t, 2, room.TurnCount)
	assert.Equal(t, 1, room.RoundCount)

	event := f.broadcaster.lastRoomEvent(roomID)
	require.NotNil(t, event)
	assert.Equal(t, models.EventTurnSwapped, event.Type)
	assert.Equal(t, defenderID, event.Data["attackerId"])
}

func TestTurnSwapSecondTurnEndsRound(t *testing.T) {
	f := newFixture()
	roomID, _, _, attackerID, defenderID := startCasualBattle(t, f)

	require.NoError(t, f.game.TurnSwap(roomID, attackerID))
	require.NoError(t, f.game.TurnSwap(roomID, defenderID))

	// 兩手用完回合平手，進入第二回合第一手
	room, err := f.roomRepo.FindByID(roomID)
	require.NoError(t, err)
	assert.Equal(t, 2, room.RoundCount)
	assert.Equal(t, 1, room.TurnCount)
	assert.Equal(t, attackerID, room.CurrentAttackerID)

	event := f.broadcaster.lastRoomEvent(roomID)
	require.NotNil(t, event)
	assert.Equal(t, models.EventRoundEnded, event.Type)
}

func TestFullDrawLadder(t *testing.T) {
	f := newFixture()
	roomID, hostID, guestID, _, _ := startCasualBattle(t, f)

	// 三回合六手全部換手用盡，無人得分
	for i := 0; i < 6; i++ {
		require.NoError(t, f.game.TurnSwap(roomID, currentAttacker(t, f, roomID)))
	}

	room, err := f.roomRepo.FindByID(roomID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusTerminated, room.Status)

	event := f.broadcaster.lastRoomEvent(roomID)
	require.NotNil(t, event)
	assert.Equal(t, models.EventBattleEnd, event.Type)
	assert.Equal(t, "", event.Data["winnerId"])

	// 雙方都記平手，連勝歸零
	records := f.recordRepo.all()
	require.Len(t, records, 2)
	for _, record := range records {
		assert.Equal(t, models.BattleResultDraw, record.Result)
	}

	for _, userID := range []uint{hostID, guestID} {
		user, err := f.userRepo.FindByID(userID)
		require.NoError(t, err)
		assert.Equal(t, 1, user.TotalGames)
		assert.Equal(t, 1, user.TotalDraws)
		assert.Equal(t, 0, user.CurrentWinStreak)
	}

	// 終局後任何操作都被拒絕
	assert.ErrorIs(t, f.game.TurnSwap(roomID, hostID), ErrRoomNotPlaying)
	assert.ErrorIs(t, f.game.LaughSignal(roomID, hostID), ErrRoomNotPlaying)
}

func TestLaughSignalScoresAttacker(t *testing.T) {
	f := newFixture()
	roomID, _, _, attackerID, defenderID := startCasualBattle(t, f)

	// 攻擊方不能自己回報笑了
	assert.ErrorIs(t, f.game.LaughSignal(roomID, attackerID), ErrAttackerForbidden)

	require.NoError(t, f.game.LaughSignal(roomID, defenderID))

	// 攻擊方得一勝，照換手規則繼續
	scored, err := f.participantRepo.FindByRoomAndUser(roomID, attackerID)
	require.NoError(t, err)
	assert.Equal(t, 1, scored.WinCount)

	room, err := f.roomRepo.FindByID(roomID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusPlaying, room.Status)
	assert.Equal(t, defenderID, room.CurrentAttackerID)
}

func TestTwoLaughsWinTheBattle(t *testing.T) {
	f := newFixture()
	roomID, _, _, firstAttacker, firstDefender := startCasualBattle(t, f)

	// 第一手：守方笑了，攻擊方拿下第一勝，攻守交換
	require.NoError(t, f.game.LaughSignal(roomID, firstDefender))
	// 第二手：新攻擊方直接換手，回合結束，原攻擊方再任攻方
	require.NoError(t, f.game.TurnSwap(roomID, firstDefender))
	require.Equal(t, firstAttacker, currentAttacker(t, f, roomID))
	// 第二回合第一手：守方又笑了，攻擊方兩勝直接終局
	require.NoError(t, f.game.LaughSignal(roomID, firstDefender))

	room, err := f.roomRepo.FindByID(roomID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusTerminated, room.Status)

	event := f.broadcaster.lastRoomEvent(roomID)
	require.NotNil(t, event)
	assert.Equal(t, models.EventBattleEnd, event.Type)
	assert.Equal(t, firstAttacker, event.Data["winnerId"])

	winner, err := f.userRepo.FindByID(firstAttacker)
	require.NoError(t, err)
	assert.Equal(t, 1, winner.TotalWins)
	assert.Equal(t, 1, winner.CurrentWinStreak)

	loser, err := f.userRepo.FindByID(firstDefender)
	require.NoError(t, err)
	assert.Equal(t, 1, loser.TotalLosses)
}

func TestThreeRoundsDecidedByScore(t *testing.T) {
	f := newFixture()
	roomID, _, _, firstAttacker, firstDefender := startCasualBattle(t, f)

	// 第一回合第一手：守方笑了，攻擊方 1 分
	require.NoError(t, f.game.LaughSignal(roomID, firstDefender))
	// 之後全部換手用盡，比分維持 1:0
	for currentRoomStatus(t, f, roomID) == models.RoomStatusPlaying {
		require.NoError(t, f.game.TurnSwap(roomID, currentAttacker(t, f, roomID)))
	}

	// 三回合打滿，勝數多者獲勝
	event := f.broadcaster.lastRoomEvent(roomID)
	require.NotNil(t, event)
	assert.Equal(t, models.EventBattleEnd, event.Type)
	assert.Equal(t, firstAttacker, event.Data["winnerId"])
	assert.Equal(t, 3, event.Data["finalRound"])

	loser, err := f.userRepo.FindByID(firstDefender)
	require.NoError(t, err)
	assert.Equal(t, 1, loser.TotalLosses)
}

func currentRoomStatus(t *testing.T, f *fixture, roomID uint) models.RoomStatus {
	t.Helper()
	room, err := f.roomRepo.FindByID(roomID)
	require.NoError(t, err)
	return room.Status
}

func TestSurrender(t *testing.T) {
	f := newFixture()
	roomID, hostID, guestID, _, _ := startCasualBattle(t, f)

	require.NoError(t, f.game.Surrender(roomID, guestID))

	room, err := f.roomRepo.FindByID(roomID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusTerminated, room.Status)

	// 投降者的對手獲勝
	event := f.broadcaster.lastRoomEvent(roomID)
	require.NotNil(t, event)
	assert.Equal(t, models.EventBattleEnd, event.Type)
	assert.Equal(t, hostID, event.Data["winnerId"])

	winner, err := f.userRepo.FindByID(hostID)
	require.NoError(t, err)
	assert.Equal(t, 1, winner.TotalWins)
}

func TestReportBroadcastsWithoutStateChange(t *testing.T) {
	f := newFixture()
	roomID, hostID, guestID, _, _ := startCasualBattle(t, f)

	before, err := f.roomRepo.FindByID(roomID)
	require.NoError(t, err)

	require.NoError(t, f.game.Report(roomID, hostID))

	// 檢舉對象是加入順序中的下一位
	event := f.broadcaster.lastRoomEvent(roomID)
	require.NotNil(t, event)
	assert.Equal(t, models.EventReported, event.Type)
	assert.Equal(t, guestID, event.Data["reportedUserId"])

	// 純告知性質，房間狀態不變
	after, err := f.roomRepo.FindByID(roomID)
	require.NoError(t, err)
	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, before.TurnCount, after.TurnCount)
	assert.Equal(t, before.RoundCount, after.RoundCount)
	assert.Equal(t, before.CurrentAttackerID, after.CurrentAttackerID)
}
