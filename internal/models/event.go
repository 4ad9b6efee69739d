package models

// EventType 定義廣播事件的類型
type EventType string

// 房間主題與個人佇列上的事件
const (
	EventReadyChanged      EventType = "ready-changed"
	EventBattleStart       EventType = "battle-start"
	EventTurnSwapped       EventType = "turn-swapped"
	EventRoundEnded        EventType = "round-ended"
	EventBattleEnd         EventType = "battle-end"
	EventRoomDestroyed     EventType = "room-destroyed"
	EventHostChanged       EventType = "host-changed"
	EventParticipantJoined EventType = "participant-joined"
	EventParticipantLeft   EventType = "participant-left"
	EventReported          EventType = "reported"
	EventMatchFound        EventType = "match-found"
	EventError             EventType = "error"
)

// 客戶端透過 WebSocket 送進來的操作類型
const (
	OpSubscribe   = "subscribe"
	OpReadyChange = "ready-change"
	OpTurnSwap    = "turn-swap"
	OpLaugh       = "laugh"
	OpSurrender   = "surrender"
	OpBattleStart = "battle-start"
	OpReport      = "report"
)

// Event 廣播事件的統一信封
// SenderID 為 nil 代表系統訊息
type Event struct {
	Type       EventType      `json:"type"`
	SenderID   *uint          `json:"senderId"`
	SenderName string         `json:"senderNickname"`
	Message    string         `json:"message"`
	Data       map[string]any `json:"data,omitempty"`
}

// NewSystemEvent 創建一個新的系統事件
func NewSystemEvent(eventType EventType, message string, data map[string]any) *Event {
	return &Event{
		Type:       eventType,
		SenderID:   nil,
		SenderName: "系統",
		Message:    message,
		Data:       data,
	}
}

// ClientMessage 客戶端透過 WebSocket 送進來的操作
type ClientMessage struct {
	Type   string         `json:"type"`
	RoomID uint           `json:"room_id"`
	Data   map[string]any `json:"data,omitempty"`
}
