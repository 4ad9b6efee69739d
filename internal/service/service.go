package service

import (
	"smile_battle/internal/repository"
)

type Services struct {
	User             *UserService
	Room             *RoomService
	Game             *GameService
	Matchmaking      *MatchmakingService
	Presence         *PresenceService
	Battle           *BattleService
	WebSocketManager *WebSocketManager
}

func NewServices(repos *repository.Repositories, provisioner Provisioner) *Services {
	wsManager := NewWebSocketManager()
	locks := newRoomLocker()

	battleService := NewBattleService(repos.BattleRecord, repos.User)
	roomService := NewRoomService(repos.Room, repos.Participant, repos.User, wsManager, provisioner, locks)
	gameService := NewGameService(repos.Room, repos.Participant, repos.User, wsManager, battleService, locks)
	matchmakingService := NewMatchmakingService(roomService, wsManager)
	presenceService := NewPresenceService(matchmakingService, roomService)
	userService := NewUserService(repos.User, roomService, matchmakingService)

	return &Services{
		User:             userService,
		Room:             roomService,
		Game:             gameService,
		Matchmaking:      matchmakingService,
		Presence:         presenceService,
		Battle:           battleService,
		WebSocketManager: wsManager,
	}
}
