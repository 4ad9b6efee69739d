package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"smile_battle/internal/api/handlers"
	"smile_battle/internal/middleware"
	"smile_battle/internal/service"
)

func SetupRoutes(r *gin.Engine, services *service.Services, clientSignature string) {
	// 初始化 handlers
	authHandler := handlers.NewAuthHandler(services.User, services.Battle)
	roomHandler := handlers.NewRoomHandler(services.Room, clientSignature)
	matchmakingHandler := handlers.NewMatchmakingHandler(services.Matchmaking, clientSignature)
	wsHandler := handlers.NewWebSocketHandler(services.WebSocketManager, services.Game, services.Presence)

	// API 路由群組
	api := r.Group("/api")

	// 處理 404 錯誤
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "找不到該路徑",
		})
	})

	// 公開路由
	{
		// 用戶認證相關
		api.POST("/register", authHandler.Register)
		api.POST("/login", authHandler.Login)

		// 基本的健康檢查
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status": "ok",
			})
		})
	}

	// 需要驗證的路由
	authorized := api.Group("/")
	authorized.Use(middleware.AuthMiddleware())
	{
		// 帳號相關
		users := authorized.Group("/users")
		{
			users.GET("/me", authHandler.Profile)            // 個人資料與累積戰績
			users.GET("/me/battles", authHandler.BattleHistory) // 對戰紀錄
			users.DELETE("/me", authHandler.DeleteAccount)   // 刪除帳號
		}

		// 對戰房間相關
		rooms := authorized.Group("/rooms")
		{
			// 基本操作
			rooms.GET("", roomHandler.ListRooms)   // 獲取大廳房間列表
			rooms.POST("", roomHandler.CreateRoom) // 創建房間

			// 房間參與
			rooms.POST("/:id/join", roomHandler.JoinRoom)   // 以房間 ID 加入
			rooms.POST("/:id/exit", roomHandler.ExitRoom)   // 離開房間
			rooms.GET("/:id/code", roomHandler.GetRoomCode) // 查詢邀請碼
		}

		// 以邀請碼加入，持碼者免密碼
		authorized.POST("/invites/join", roomHandler.JoinRoomByCode)

		// 隨機配對相關
		matchmaking := authorized.Group("/matchmaking")
		{
			matchmaking.POST("/start", matchmakingHandler.Start)   // 加入配對佇列
			matchmaking.POST("/cancel", matchmakingHandler.Cancel) // 取消配對
		}

		// WebSocket 連接點，遊戲操作與事件都走這條連線
		authorized.GET("/ws", wsHandler.HandleWebSocket)
	}
}
