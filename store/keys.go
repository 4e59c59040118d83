package store

import "fmt"

// Redis上のキー構成。プロフィールはフィールド単位のキーに分けることで
// MultiWriteの盲目的な書き込みが他フィールドを壊さないようにしている。

func QueuePrefix(chapterID string) string {
	return fmt.Sprintf("queue:%s:", chapterID)
}

func QueueKey(chapterID, pushID string) string {
	return QueuePrefix(chapterID) + pushID
}

func RoomKey(code string) string {
	return fmt.Sprintf("room:%s", code)
}

func MatchKey(matchID string) string {
	return fmt.Sprintf("match:%s", matchID)
}

func ActiveMatchKey(uid string) string {
	return fmt.Sprintf("profile:%s:activeMatch", uid)
}

func BannedKey(uid string) string {
	return fmt.Sprintf("profile:%s:banned", uid)
}
