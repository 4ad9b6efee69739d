package service

import "errors"

// 各服務共用的業務錯誤，handler 依這些錯誤對應 HTTP 狀態碼
var (
	// 找不到資源
	ErrUserNotFound        = errors.New("找不到該用戶")
	ErrRoomNotFound        = errors.New("不存在的房間")
	ErrParticipantNotFound = errors.New("該用戶不在這個房間")

	// 衝突
	ErrRoomFull      = errors.New("房間已滿")
	ErrWrongPassword = errors.New("房間密碼錯誤")
	ErrUsernameTaken = errors.New("帳號已被使用")

	// 狀態或角色不允許該操作
	ErrRoomNotWaiting    = errors.New("只有等待中的房間才能進行此操作")
	ErrRoomNotPlaying    = errors.New("只有對戰中才能進行此操作")
	ErrNotHost           = errors.New("只有房長可以進行此操作")
	ErrHostAlwaysReady   = errors.New("房長恆為準備狀態，不能變更")
	ErrNotAttacker       = errors.New("只有攻擊方可以換手")
	ErrAttackerForbidden = errors.New("攻擊方不能送出笑了的訊號")
	ErrNotAllReady       = errors.New("還有參加者尚未準備")
	ErrNotEnoughPlayers  = errors.New("人數不足，無法開局")
	ErrManualStartRanked = errors.New("配對房在雙方都準備後自動開局")
	ErrRankedHasNoCode   = errors.New("配對產生的房間沒有邀請碼")
	ErrPrivilegedOnly    = errors.New("此房間僅限特權客戶端加入")

	// 外部服務（媒體會話供應器）失敗
	ErrProvisionFailed = errors.New("建立媒體會話失敗")
)
