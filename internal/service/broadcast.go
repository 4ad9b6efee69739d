package service

import (
	"sync"

	"github.com/gorilla/websocket"

	"smile_battle/internal/models"
)

// Broadcaster 廣播閘道的發布契約
// 核心服務只依賴這個介面，不直接碰 WebSocket 連線
type Broadcaster interface {
	BroadcastToRoom(roomID uint, event *models.Event) // 發到房間主題
	SendToUser(userID uint, event *models.Event)      // 發到個人佇列
}

// Client 代表一個 WebSocket 客戶端連接
type Client struct {
	Conn      *websocket.Conn     // WebSocket 連接
	UserID    uint                // 用戶 ID
	SessionID string              // 本次連線的傳輸會話 ID
	RoomID    uint                // 已訂閱的房間 ID，0 表示尚未訂閱
	SendChan  chan *models.Event  // 事件發送通道，用於異步傳送
}

// WebSocketManager 管理所有的 WebSocket 連接和事件傳遞
type WebSocketManager struct {
	rooms      map[uint]map[*Client]bool // roomID -> client -> bool
	users      map[uint]map[*Client]bool // userID -> client -> bool
	clientsMux sync.RWMutex              // 保護上面兩張 map 的讀寫鎖
}

// NewWebSocketManager 創建並初始化新的 WebSocket 管理器
func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{
		rooms: make(map[uint]map[*Client]bool),
		users: make(map[uint]map[*Client]bool),
	}
}

// Register 登記一個新連線到該用戶的個人佇列
func (m *WebSocketManager) Register(client *Client) {
	m.clientsMux.Lock()
	defer m.clientsMux.Unlock()

	if m.users[client.UserID] == nil {
		m.users[client.UserID] = make(map[*Client]bool)
	}
	m.users[client.UserID][client] = true
}

// Subscribe 把連線加入房間主題
func (m *WebSocketManager) Subscribe(client *Client, roomID uint) {
	m.clientsMux.Lock()
	defer m.clientsMux.Unlock()

	// 先退出原本訂閱的房間
	if client.RoomID != 0 {
		if clients, ok := m.rooms[client.RoomID]; ok {
			delete(clients, client)
			if len(clients) == 0 {
				delete(m.rooms, client.RoomID)
			}
		}
	}

	client.RoomID = roomID
	if m.rooms[roomID] == nil {
		m.rooms[roomID] = make(map[*Client]bool)
	}
	m.rooms[roomID][client] = true
}

// Unregister 移除連線並清理空的房間條目
func (m *WebSocketManager) Unregister(client *Client) {
	m.clientsMux.Lock()
	defer m.clientsMux.Unlock()

	if clients, ok := m.rooms[client.RoomID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(m.rooms, client.RoomID)
		}
	}
	if clients, ok := m.users[client.UserID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(m.users, client.UserID)
		}
	}
}

// BroadcastToRoom 向房間主題上的所有客戶端廣播事件
func (m *WebSocketManager) BroadcastToRoom(roomID uint, event *models.Event) {
	m.clientsMux.RLock()
	clients := make([]*Client, 0, len(m.rooms[roomID]))
	for client := range m.rooms[roomID] {
		clients = append(clients, client)
	}
	m.clientsMux.RUnlock()

	for _, client := range clients {
		m.send(client, event)
	}
}

// SendToUser 向某用戶的所有連線發送事件
func (m *WebSocketManager) SendToUser(userID uint, event *models.Event) {
	m.clientsMux.RLock()
	clients := make([]*Client, 0, len(m.users[userID]))
	for client := range m.users[userID] {
		clients = append(clients, client)
	}
	m.clientsMux.RUnlock()

	for _, client := range clients {
		m.send(client, event)
	}
}

// RoomClientCount 獲取指定房間的在線客戶端數量
func (m *WebSocketManager) RoomClientCount(roomID uint) int {
	m.clientsMux.RLock()
	defer m.clientsMux.RUnlock()

	return len(m.rooms[roomID])
}

func (m *WebSocketManager) send(client *Client, event *models.Event) {
	select {
	case client.SendChan <- event:
		// 事件成功加入發送隊列
	default:
		// 客戶端隊列已滿，關閉連接，由 readPump 的錯誤路徑做清理
		client.Conn.Close()
	}
}
