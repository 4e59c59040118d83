package models

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Websocketクライアントを定義
type Client struct {
	Conn    *websocket.Conn
	UserID  string // JWTから抽出したuid
	MatchID string // 購読中のマッチID（未参加なら空）

	// スナップショット転送・リディレクタ・Pingが同じ接続に書き込むため
	// 書き込みはこのロックで直列化する
	WriteMu sync.Mutex
}

// Send は接続へJSONメッセージを書き込む。
func (c *Client) Send(payload interface{}) error {
	c.WriteMu.Lock()
	defer c.WriteMu.Unlock()
	return c.Conn.WriteJSON(payload)
}
