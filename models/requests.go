package models

// LoginRequest はクライアントからのログインリクエストを表します。
type LoginRequest struct {
	UserID   string `json:"userId"`
	Nickname string `json:"nickname,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

// QueueRequest は自動マッチングの開始リクエスト。
type QueueRequest struct {
	ChapterID string `json:"chapterId"`
}

// RoomCreateRequest はプライベートルームの作成リクエスト。
// チャット発の招待の場合はLinkedChatPathに招待メッセージのパスが入る。
type RoomCreateRequest struct {
	SubjectID      string `json:"subjectId"`
	ChapterID      string `json:"chapterId"`
	QuestionLimit  int    `json:"questionLimit"`
	LinkedChatPath string `json:"linkedChatPath,omitempty"`
}

// RoomJoinRequest はルームコードによる参加リクエスト。
type RoomJoinRequest struct {
	Code string `json:"code"`
}
