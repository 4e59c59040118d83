package models

import (
	"gorm.io/gorm"
)

// Question は問題バンクの1レコード。チャプターID単位で読み取り専用に取得される。
type Question struct {
	gorm.Model
	QuestionID string `gorm:"unique;not null"`
	SubjectID  string `gorm:"index;not null"`
	ChapterID  string `gorm:"index;not null"`
	Text       string `gorm:"not null"`
	Options    string `gorm:"not null"` // 選択肢のJSON配列
	Answer     int    `gorm:"not null"` // 正解選択肢のインデックス
}
