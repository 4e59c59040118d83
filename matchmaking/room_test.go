package matchmaking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"quizserver/models"
	"quizserver/store"
)

func TestCreateAndJoinRoom(t *testing.T) {
	coordinator, s := newTestCoordinator()
	ctx := context.Background()

	code, err := coordinator.CreateRoom(ctx, "host", models.RoomCreateRequest{
		SubjectID:     "math",
		ChapterID:     "algebra_1",
		QuestionLimit: 12,
	})
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if len(code) != 4 {
		t.Fatalf("expected 4-digit code, got %q", code)
	}

	result, err := coordinator.JoinRoom(ctx, "guest", code)
	if err != nil {
		t.Fatalf("JoinRoom failed: %v", err)
	}
	if result.Status != MatchStatusMatched {
		t.Fatalf("expected matched, got %+v", result)
	}

	state := getMatch(t, s, result.MatchID)
	if state.Mode != models.MatchModeCustom {
		t.Errorf("expected custom mode, got %s", state.Mode)
	}
	if state.QuestionLimit != 12 || state.Subject != "algebra_1" {
		t.Errorf("room settings not carried over: %+v", state)
	}
	if len(state.Players) != 2 {
		t.Errorf("expected 2 players, got %v", state.Players)
	}

	// 参加が成立した瞬間にルームは消える
	if data, _ := s.Get(ctx, store.RoomKey(code)); data != nil {
		t.Error("room should be deleted after join")
	}
	for _, uid := range []string{"host", "guest"} {
		pointer, _ := s.Get(ctx, store.ActiveMatchKey(uid))
		if string(pointer) != result.MatchID {
			t.Errorf("activeMatch of %s = %q, want %q", uid, pointer, result.MatchID)
		}
	}
}

func TestJoinRoomErrors(t *testing.T) {
	coordinator, _ := newTestCoordinator()
	ctx := context.Background()

	if _, err := coordinator.JoinRoom(ctx, "guest", "0000"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("expected ErrRoomNotFound, got %v", err)
	}

	code, err := coordinator.CreateRoom(ctx, "host", models.RoomCreateRequest{ChapterID: "algebra_1"})
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if _, err := coordinator.JoinRoom(ctx, "host", code); !errors.Is(err, ErrSelfJoin) {
		t.Errorf("expected ErrSelfJoin, got %v", err)
	}
}

func TestRoomJoinedOnlyOnce(t *testing.T) {
	coordinator, s := newTestCoordinator()
	ctx := context.Background()

	code, err := coordinator.CreateRoom(ctx, "host", models.RoomCreateRequest{ChapterID: "algebra_1", QuestionLimit: 10})
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	// ほぼ同時の参加。片方は成立し、もう片方はRoomNotFoundで弾かれる
	outcomes := make([]error, 2)
	var wg sync.WaitGroup
	for i, uid := range []string{"guest1", "guest2"} {
		wg.Add(1)
		go func(i int, uid string) {
			defer wg.Done()
			_, err := coordinator.JoinRoom(ctx, uid, code)
			outcomes[i] = err
		}(i, uid)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range outcomes {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, ErrRoomNotFound) {
			t.Errorf("unexpected join error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly 1 successful join, got %d", succeeded)
	}

	matches, _ := s.List(ctx, "match:")
	if len(matches) != 1 {
		t.Errorf("expected exactly 1 match record, got %d", len(matches))
	}
}

func TestConcurrentRoomCreation(t *testing.T) {
	coordinator, s := newTestCoordinator()
	ctx := context.Background()

	// 1つのコーディネーターを複数リクエストが共有する。乱数生成器が
	// 直列化されていればコード生成と問題数サンプリングは並行でも安全
	const hosts = 8
	var wg sync.WaitGroup
	for i := 0; i < hosts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := coordinator.CreateRoom(ctx, fmt.Sprintf("host%d", i), models.RoomCreateRequest{ChapterID: "algebra_1"})
			if err != nil {
				t.Errorf("CreateRoom %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	rooms, _ := s.List(ctx, "room:")
	for key, data := range rooms {
		var room models.Room
		if err := json.Unmarshal(data, &room); err != nil {
			t.Fatalf("broken room %s: %v", key, err)
		}
		if room.QuestionLimit < QuestionLimitMin || room.QuestionLimit > QuestionLimitMax {
			t.Errorf("sampled limit out of range for %s: %d", key, room.QuestionLimit)
		}
	}
}

func TestCancelRoom(t *testing.T) {
	coordinator, s := newTestCoordinator()
	ctx := context.Background()

	code, err := coordinator.CreateRoom(ctx, "host", models.RoomCreateRequest{ChapterID: "algebra_1"})
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	// ホスト以外は取り下げられない
	if err := coordinator.CancelRoom(ctx, "stranger", code); !errors.Is(err, ErrNotRoomHost) {
		t.Errorf("expected ErrNotRoomHost, got %v", err)
	}

	if err := coordinator.CancelRoom(ctx, "host", code); err != nil {
		t.Fatalf("CancelRoom failed: %v", err)
	}
	if data, _ := s.Get(ctx, store.RoomKey(code)); data != nil {
		t.Error("room should be deleted")
	}

	// 取り下げ済みルームの再取り下げはno-op
	if err := coordinator.CancelRoom(ctx, "host", code); err != nil {
		t.Errorf("second cancel should be a no-op: %v", err)
	}
}
