package models

import (
	"gorm.io/gorm"
)

// User モデルの定義。認証やBANの判定は外部コラボレーターとして扱い、
// マッチメイキングからは表示情報とBANフラグのみを参照する。
type User struct {
	gorm.Model
	UserID   string `gorm:"unique;not null"` // プロフィールを指すuid
	Nickname string `gorm:"not null"`
	Avatar   string
	Banned   bool `gorm:"not null;default:false"` // BANされたアカウントは強制サインアウト
	Points   int  `gorm:"not null;default:0"`
	Level    int  `gorm:"not null;default:1"`
}

// ChatMessage はチャット発の対戦招待を反映するためのモデル。
// Statusにはwaiting/played/canceledのいずれかが入る。
type ChatMessage struct {
	gorm.Model
	Path       string `gorm:"unique;not null"` // ルームが参照するメッセージパス
	SenderID   string `gorm:"index"`
	ReceiverID string `gorm:"index"`
	Body       string
	Status     string `gorm:"default:'waiting'"`
}
