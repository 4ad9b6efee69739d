package repository

import "smile_battle/internal/storage"

type Repositories struct {
	User         UserRepository
	Room         RoomRepository
	Participant  ParticipantRepository
	BattleRecord BattleRecordRepository
}

func NewRepositories(db *storage.PostgresDB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Room:         NewRoomRepository(db),
		Participant:  NewParticipantRepository(db),
		BattleRecord: NewBattleRecordRepository(db),
	}
}
