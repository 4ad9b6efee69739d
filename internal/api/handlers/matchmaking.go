package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"smile_battle/internal/service"
)

// MatchmakingHandler 處理隨機配對的請求
type MatchmakingHandler struct {
	matchmakingService *service.MatchmakingService
	clientSignature    string
}

// NewMatchmakingHandler 創建一個新的 MatchmakingHandler 實例
func NewMatchmakingHandler(matchmakingService *service.MatchmakingService, clientSignature string) *MatchmakingHandler {
	return &MatchmakingHandler{
		matchmakingService: matchmakingService,
		clientSignature:    clientSignature,
	}
}

// Start 加入配對佇列，配對結果會透過個人事件佇列送達
func (h *MatchmakingHandler) Start(c *gin.Context) {
	userID, _ := c.Get("userID")

	if err := h.matchmakingService.Enqueue(userID.(uint), isPrivileged(c, h.clientSignature)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "配對失敗，請重新排隊。"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "已加入配對佇列"})
}

// Cancel 離開配對佇列，不在佇列中也回成功
func (h *MatchmakingHandler) Cancel(c *gin.Context) {
	userID, _ := c.Get("userID")

	h.matchmakingService.Dequeue(userID.(uint))

	c.JSON(http.StatusOK, gin.H{"message": "已取消配對"})
}
