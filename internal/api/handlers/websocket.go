package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"smile_battle/internal/models"
	"smile_battle/internal/service"
)

// 定義 WebSocket 升級器
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // 注意：在生產環境中，應該檢查 origin
	},
}

// WebSocketHandler 處理 WebSocket 連接與遊戲操作的分派
type WebSocketHandler struct {
	wsManager       *service.WebSocketManager
	gameService     *service.GameService
	presenceService *service.PresenceService
}

// NewWebSocketHandler 創建一個新的 WebSocketHandler 實例
func NewWebSocketHandler(
	wsManager *service.WebSocketManager,
	gameService *service.GameService,
	presenceService *service.PresenceService,
) *WebSocketHandler {
	return &WebSocketHandler{
		wsManager:       wsManager,
		gameService:     gameService,
		presenceService: presenceService,
	}
}

// HandleWebSocket 處理 WebSocket 連接請求
// 每條連線有自己的傳輸會話 ID，斷線時用它判斷是不是過期會話
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	userIDUint := userID.(uint)

	// 升級 HTTP 連接為 WebSocket 連接
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "升級WebSocket失敗"})
		return
	}

	client := &service.Client{
		Conn:      conn,
		UserID:    userIDUint,
		SessionID: uuid.NewString(),
		SendChan:  make(chan *models.Event, 256), // 設置緩衝大小為 256 的事件通道
	}

	h.wsManager.Register(client)
	h.presenceService.Connected(client.UserID, client.SessionID)

	// 確保連接關閉時清理資源
	defer func() {
		roomID := client.RoomID
		h.wsManager.Unregister(client)
		conn.Close()
		close(client.SendChan)
		h.presenceService.Disconnected(client.UserID, client.SessionID, roomID)
	}()

	// 啟動讀寫處理
	go h.writePump(client)
	h.readPump(client)
}

// readPump 持續監聽並分派客戶端送來的操作
func (h *WebSocketHandler) readPump(client *service.Client) {
	client.Conn.SetReadLimit(4096) // 設置最大消息大小為 4KB
	client.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		var msg models.ClientMessage
		if err := client.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket unexpected close error: %v", err)
			}
			break
		}

		h.dispatch(client, &msg)
	}
}

// dispatch 把操作轉給對應的遊戲服務，錯誤以事件回送給發送者本人
func (h *WebSocketHandler) dispatch(client *service.Client, msg *models.ClientMessage) {
	var err error

	switch msg.Type {
	case models.OpSubscribe:
		h.wsManager.Subscribe(client, msg.RoomID)
	case models.OpReadyChange:
		ready, _ := msg.Data["ready"].(bool)
		err = h.gameService.ReadyToggle(msg.RoomID, client.UserID, ready)
	case models.OpBattleStart:
		err = h.gameService.ManualStart(msg.RoomID, client.UserID)
	case models.OpTurnSwap:
		err = h.gameService.TurnSwap(msg.RoomID, client.UserID)
	case models.OpLaugh:
		err = h.gameService.LaughSignal(msg.RoomID, client.UserID)
	case models.OpSurrender:
		err = h.gameService.Surrender(msg.RoomID, client.UserID)
	case models.OpReport:
		err = h.gameService.Report(msg.RoomID, client.UserID)
	default:
		h.wsManager.SendToUser(client.UserID,
			models.NewSystemEvent(models.EventError, "不支援的操作類型", nil))
		return
	}

	if err != nil {
		h.wsManager.SendToUser(client.UserID,
			models.NewSystemEvent(models.EventError, err.Error(), nil))
	}
}

// writePump 處理向客戶端發送事件的邏輯
func (h *WebSocketHandler) writePump(client *service.Client) {
	// 設置心跳檢查計時器
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-client.SendChan:
			// 設置寫入超時
			client.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := client.Conn.WriteJSON(event); err != nil {
				return
			}

		case <-ticker.C:
			// 發送心跳包
			client.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
