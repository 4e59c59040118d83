package models

// マッチステータス
const (
	MatchStatusActive    = "active"
	MatchStatusCompleted = "completed"
	MatchStatusCancelled = "cancelled"
)

// マッチモード
const (
	MatchModeAuto   = "auto"   // 自動マッチング
	MatchModeCustom = "custom" // ルームコードによるプライベート対戦
)

// WinnerDraw は引き分けを示すwinnerの特別値。
const WinnerDraw = "draw"

// PlayerInfo はマッチ内で表示されるプレイヤー情報。
type PlayerInfo struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	Status string `json:"status,omitempty"`
}

// Reaction はマッチ中に送られるリアクション（スタンプ）。
type Reaction struct {
	SenderID  string `json:"senderId"`
	Value     string `json:"value"`
	Timestamp int64  `json:"timestamp"`
}

// MatchState は1ゲーム分の共有マッチレコード。
// 両クライアントが対等な書き込み権を持ち、更新は必ずストアのトランザクション経由で行う。
type MatchState struct {
	MatchID       string                `json:"matchId"`
	Status        string                `json:"status"`
	Mode          string                `json:"mode"`
	CurrentQ      int                   `json:"currentQ"`     // 0始まりの問題ポインタ
	AnswersCount  int                   `json:"answersCount"` // 現在の問題に回答済みのプレイヤー数（0か1）
	Scores        map[string]int        `json:"scores"`
	Players       map[string]PlayerInfo `json:"players"`
	Winner        string                `json:"winner,omitempty"` // uid、"draw"、未決着なら空
	Subject       string                `json:"subject"`          // チャプターID
	QuestionLimit int                   `json:"questionLimit"`
	LastReaction  *Reaction             `json:"lastReaction,omitempty"`
	CreatedAt     int64                 `json:"createdAt"`
}

// QueueEntry は自動マッチングの待機リストの1件。
// 表示情報はマッチ作成時にplayersへそのまま写せるようエントリに持たせる。
type QueueEntry struct {
	UID      string `json:"uid"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
	JoinedAt int64  `json:"joinedAt"` // スイーパーが期限切れ判定に使うハートビート
}

// Room は4桁コードで共有されるプライベートロビー。
// 2人目の参加が成立した瞬間にマッチ作成と同時に削除される。
type Room struct {
	Host           string `json:"host"`
	SubjectID      string `json:"sid"`
	ChapterID      string `json:"lid"`
	QuestionLimit  int    `json:"questionLimit"`
	CreatedAt      int64  `json:"createdAt"`
	LinkedChatPath string `json:"linkedChatPath,omitempty"` // 招待状態を書き戻すチャットメッセージパス
}
