package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"smile_battle/internal/models"
	"smile_battle/internal/service"
	"smile_battle/internal/utils"
)

// AuthHandler 處理與認證和帳號相關的請求
type AuthHandler struct {
	userService   *service.UserService
	battleService *service.BattleService
}

// NewAuthHandler 創建一個新的 AuthHandler 實例
func NewAuthHandler(userService *service.UserService, battleService *service.BattleService) *AuthHandler {
	return &AuthHandler{
		userService:   userService,
		battleService: battleService,
	}
}

// LoginInput 定義登入請求的結構
type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterInput 定義註冊請求的結構
type RegisterInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Nickname string `json:"nickname" binding:"required"`
}

// Register 處理用戶註冊
func (h *AuthHandler) Register(c *gin.Context) {
	var input RegisterInput
	// 解析並驗證請求體
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 對密碼進行加密
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	user := models.User{
		Username: input.Username,
		Password: string(hashedPassword),
		Nickname: input.Nickname,
	}

	// 創建新用戶
	if err := h.userService.CreateUser(&user); err != nil {
		if err == service.ErrUsernameTaken {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "創建使用者失敗"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "使用者註冊成功"})
}

// Login 處理用戶登入
func (h *AuthHandler) Login(c *gin.Context) {
	var input LoginInput
	// 解析並驗證請求體
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 檢查用戶是否存在
	user, err := h.userService.GetUserByUsername(input.Username)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	// 驗證密碼
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	// 生成 JWT token
	token, err := utils.GenerateToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "獲取token失敗"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Profile 回傳目前登入用戶的基本資料與累積戰績
func (h *AuthHandler) Profile(c *gin.Context) {
	userID, _ := c.Get("userID")

	user, err := h.userService.GetUserByID(userID.(uint))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "用戶不存在"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":       user.ID,
		"username": user.Username,
		"nickname": user.Nickname,
		"stats":    user.Stats(),
	})
}

// BattleHistory 回傳目前登入用戶的對戰紀錄
func (h *AuthHandler) BattleHistory(c *gin.Context) {
	userID, _ := c.Get("userID")

	records, err := h.battleService.History(userID.(uint))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "無法查詢對戰紀錄"})
		return
	}

	c.JSON(http.StatusOK, records)
}

// DeleteAccount 刪除目前登入的帳號，先退出所有房間再刪資料
func (h *AuthHandler) DeleteAccount(c *gin.Context) {
	userID, _ := c.Get("userID")

	if err := h.userService.DeleteUser(userID.(uint)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "刪除帳號失敗"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "帳號已刪除"})
}
