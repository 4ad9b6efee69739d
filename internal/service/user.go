package service

import (
	"smile_battle/internal/models"
	"smile_battle/internal/repository"
)

type UserService struct {
	userRepo    repository.UserRepository
	rooms       *RoomService
	matchmaking *MatchmakingService
}

func NewUserService(userRepo repository.UserRepository, rooms *RoomService, matchmaking *MatchmakingService) *UserService {
	return &UserService{
		userRepo:    userRepo,
		rooms:       rooms,
		matchmaking: matchmaking,
	}
}

func (s *UserService) CreateUser(user *models.User) error {
	if _, err := s.userRepo.FindByUsername(user.Username); err == nil {
		return ErrUsernameTaken
	}
	return s.userRepo.Create(user)
}

func (s *UserService) GetUserByUsername(username string) (*models.User, error) {
	return s.userRepo.FindByUsername(username)
}

func (s *UserService) GetUserByID(id uint) (*models.User, error) {
	return s.userRepo.FindByID(id)
}

// DeleteUser 刪除帳號前先離開配對佇列並退出所有房間
// 單一房間的調和失敗不會中斷整個刪除流程
func (s *UserService) DeleteUser(userID uint) error {
	s.matchmaking.Dequeue(userID)
	s.rooms.ExitAllRooms(userID)
	return s.userRepo.Delete(userID)
}
