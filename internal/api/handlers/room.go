package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"smile_battle/internal/service"
)

// RoomHandler 處理與對戰房間相關的請求
type RoomHandler struct {
	roomService     *service.RoomService
	clientSignature string
}

// NewRoomHandler 創建一個新的 RoomHandler 實例
func NewRoomHandler(roomService *service.RoomService, clientSignature string) *RoomHandler {
	return &RoomHandler{
		roomService:     roomService,
		clientSignature: clientSignature,
	}
}

// isPrivileged 驗證請求是否來自官方客戶端
func isPrivileged(c *gin.Context, signature string) bool {
	return signature != "" && c.GetHeader("X-Client-Signature") == signature
}

// CreateRoom 處理創建新房間的請求
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var input struct {
		Name           string `json:"name" binding:"required"`
		Password       string `json:"password"`
		NeedPrivileged bool   `json:"need_privileged"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := c.Get("userID")

	result, err := h.roomService.CreateRoom(
		userID.(uint), input.Name, input.Password,
		input.NeedPrivileged, isPrivileged(c, h.clientSignature))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, result)
}

// ListRooms 處理大廳房間列表的請求，page 從 1 開始
func (h *RoomHandler) ListRooms(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	rooms, total, err := h.roomService.ListRooms(page, 9)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "無法查詢房間列表"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"rooms": rooms,
		"total": total,
		"page":  page,
	})
}

// JoinRoom 處理以房間 ID 加入房間的請求
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	roomID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "不存在的房間ID"})
		return
	}

	var input struct {
		Password string `json:"password"`
	}
	// 公開房間允許空請求體
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	userID, _ := c.Get("userID")

	result, err := h.roomService.JoinRoom(
		userID.(uint), uint(roomID), "", input.Password,
		isPrivileged(c, h.clientSignature))
	if err != nil {
		if err == service.ErrRoomNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// JoinRoomByCode 處理以邀請碼加入房間的請求，持碼者免密碼
func (h *RoomHandler) JoinRoomByCode(c *gin.Context) {
	var input struct {
		RoomCode string `json:"room_code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := c.Get("userID")

	result, err := h.roomService.JoinRoom(
		userID.(uint), 0, input.RoomCode, "",
		isPrivileged(c, h.clientSignature))
	if err != nil {
		if err == service.ErrRoomNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ExitRoom 處理離開房間的請求
func (h *RoomHandler) ExitRoom(c *gin.Context) {
	roomID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "不存在的房間ID"})
		return
	}

	userID, _ := c.Get("userID")

	if err := h.roomService.ExitRoom(uint(roomID), userID.(uint)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "成功離開房間"})
}

// GetRoomCode 處理查詢房間邀請碼的請求，只有房內成員可以查
func (h *RoomHandler) GetRoomCode(c *gin.Context) {
	roomID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "不存在的房間ID"})
		return
	}

	userID, _ := c.Get("userID")

	code, err := h.roomService.VerifyRoomCode(userID.(uint), uint(roomID))
	if err != nil {
		if err == service.ErrRoomNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"room_code": code})
}
