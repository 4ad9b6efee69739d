package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Provisioner 媒體會話供應器的契約
// 核心只把會話和連線當成不透明的識別字串交換，供應失敗時由呼叫端補償
type Provisioner interface {
	CreateSession(roomID uint) (string, error)                                 // 回傳會話 ID
	CreateConnection(sessionID string, userID uint, nickname string) (string, error) // 回傳個人連線 token
}

// OpenViduProvisioner 透過 OpenVidu 相容的 REST API 建立媒體會話
type OpenViduProvisioner struct {
	baseURL string
	secret  string
	client  *http.Client
}

func NewOpenViduProvisioner(baseURL, secret string) *OpenViduProvisioner {
	return &OpenViduProvisioner{
		baseURL: baseURL,
		secret:  secret,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// CreateSession 以房間 ID 作為自訂會話 ID 建立媒體會話
// 會話已存在時（409）直接沿用同一個 ID
func (p *OpenViduProvisioner) CreateSession(roomID uint) (string, error) {
	sessionID := strconv.FormatUint(uint64(roomID), 10)
	body := map[string]any{"customSessionId": sessionID}

	resp, err := p.post("/openvidu/api/sessions", body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusConflict:
		return sessionID, nil
	default:
		return "", fmt.Errorf("create session: unexpected status %d", resp.StatusCode)
	}
}

// CreateConnection 替一位參加者建立連線，回傳可識別該參加者的 token
func (p *OpenViduProvisioner) CreateConnection(sessionID string, userID uint, nickname string) (string, error) {
	data, _ := json.Marshal(map[string]any{"userId": userID, "nickname": nickname})
	body := map[string]any{
		"type": "WEBRTC",
		"role": "PUBLISHER",
		"data": string(data),
	}

	resp, err := p.post("/openvidu/api/sessions/"+sessionID+"/connection", body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("create connection: unexpected status %d", resp.StatusCode)
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("create connection: decode response: %v", err)
	}
	return result.Token, nil
}

func (p *OpenViduProvisioner) post(path string, body map[string]any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth("OPENVIDUAPP", p.secret)
	req.Header.Set("Content-Type", "application/json")

	return p.client.Do(req)
}
