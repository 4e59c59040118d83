package models

// Config はconfig.jsonから読み込むPostgreSQL接続設定。
// ユーザー・問題バンク・チャット招待の各テーブルが載るDBを指す。
type Config struct {
	DBHost     string `json:"db_host"`
	DBUser     string `json:"db_user"`
	DBPassword string `json:"db_password"`
	DBName     string `json:"db_name"`
	DBSSLMode  string `json:"db_sslmode"`
}
