package service

import (
	"smile_battle/internal/models"
	"smile_battle/internal/repository"
)

// BattleService 對戰結束後寫入戰績的回報匯整
// 同一個房間可能從多條路徑結束（換手用盡、笑了兩次、投降、斷線），
// 所以寫入前一定先檢查該房是否已有紀錄，保證每房每人最多一列
type BattleService struct {
	recordRepo repository.BattleRecordRepository
	userRepo   repository.UserRepository
}

func NewBattleService(recordRepo repository.BattleRecordRepository, userRepo repository.UserRepository) *BattleService {
	return &BattleService{
		recordRepo: recordRepo,
		userRepo:   userRepo,
	}
}

// RecordResult 記錄一勝一敗，重複呼叫時安靜跳過
func (s *BattleService) RecordResult(roomID, winnerID, loserID uint) error {
	done, err := s.alreadyRecorded(roomID, winnerID, loserID)
	if err != nil || done {
		return err
	}

	winner, err := s.userRepo.FindByID(winnerID)
	if err != nil {
		return err
	}
	loser, err := s.userRepo.FindByID(loserID)
	if err != nil {
		return err
	}

	if err := s.recordRepo.Create(&models.BattleRecord{
		RoomID:         roomID,
		UserID:         winner.ID,
		Result:         models.BattleResultWin,
		OpponentUserID: loser.ID,
	}); err != nil {
		return err
	}
	if err := s.recordRepo.Create(&models.BattleRecord{
		RoomID:         roomID,
		UserID:         loser.ID,
		Result:         models.BattleResultLoss,
		OpponentUserID: winner.ID,
	}); err != nil {
		return err
	}

	// 累積戰績更新
	winner.ApplyWinResult()
	loser.ApplyLossResult()
	if err := s.userRepo.Save(winner); err != nil {
		return err
	}
	return s.userRepo.Save(loser)
}

// RecordDraw 記錄雙方平手，重複呼叫時安靜跳過
func (s *BattleService) RecordDraw(roomID, userAID, userBID uint) error {
	done, err := s.alreadyRecorded(roomID, userAID, userBID)
	if err != nil || done {
		return err
	}

	userA, err := s.userRepo.FindByID(userAID)
	if err != nil {
		return err
	}
	userB, err := s.userRepo.FindByID(userBID)
	if err != nil {
		return err
	}

	if err := s.recordRepo.Create(&models.BattleRecord{
		RoomID:         roomID,
		UserID:         userA.ID,
		Result:         models.BattleResultDraw,
		OpponentUserID: userB.ID,
	}); err != nil {
		return err
	}
	if err := s.recordRepo.Create(&models.BattleRecord{
		RoomID:         roomID,
		UserID:         userB.ID,
		Result:         models.BattleResultDraw,
		OpponentUserID: userA.ID,
	}); err != nil {
		return err
	}

	userA.ApplyDrawResult()
	userB.ApplyDrawResult()
	if err := s.userRepo.Save(userA); err != nil {
		return err
	}
	return s.userRepo.Save(userB)
}

// History 依時間新到舊列出某用戶的所有對戰紀錄
func (s *BattleService) History(userID uint) ([]models.BattleRecord, error) {
	return s.recordRepo.FindAllByUser(userID)
}

// alreadyRecorded 任一位已有該房戰績就視為整房已提交
func (s *BattleService) alreadyRecorded(roomID, userAID, userBID uint) (bool, error) {
	exists, err := s.recordRepo.ExistsByRoomAndUser(roomID, userAID)
	if err != nil || exists {
		return exists, err
	}
	return s.recordRepo.ExistsByRoomAndUser(roomID, userBID)
}
