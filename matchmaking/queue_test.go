package matchmaking

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"quizserver/models"
	"quizserver/store"

	"go.uber.org/zap"
)

func newTestCoordinator() (*Coordinator, *store.MemoryStore) {
	s := store.NewMemoryStore()
	return NewCoordinator(s, nil, zap.NewNop()), s
}

func getMatch(t *testing.T, s *store.MemoryStore, matchID string) models.MatchState {
	t.Helper()
	data, _ := s.Get(context.Background(), store.MatchKey(matchID))
	if data == nil {
		t.Fatalf("match %s not found", matchID)
	}
	var state models.MatchState
	if err := json.Unmarshal(data, &state); err != nil {
		t.Fatalf("unmarshal match: %v", err)
	}
	return state
}

func TestAutoMatchPairsTwoPlayers(t *testing.T) {
	coordinator, s := newTestCoordinator()
	ctx := context.Background()

	// aliceが先に待機する
	first, err := coordinator.RequestAutoMatch(ctx, "alice", "algebra_1")
	if err != nil {
		t.Fatalf("alice request: %v", err)
	}
	if first.Status != MatchStatusSearching || first.EntryKey == "" {
		t.Fatalf("expected searching with entry key, got %+v", first)
	}

	// bobのスキャンがaliceのエントリを見つけてマッチが成立する
	second, err := coordinator.RequestAutoMatch(ctx, "bob", "algebra_1")
	if err != nil {
		t.Fatalf("bob request: %v", err)
	}
	if second.Status != MatchStatusMatched || second.MatchID == "" {
		t.Fatalf("expected matched, got %+v", second)
	}

	state := getMatch(t, s, second.MatchID)
	if state.Mode != models.MatchModeAuto || state.Subject != "algebra_1" {
		t.Errorf("unexpected match: %+v", state)
	}
	if state.CurrentQ != 0 || state.AnswersCount != 0 {
		t.Errorf("match should start at question 0: %+v", state)
	}
	if state.Scores["alice"] != 0 || state.Scores["bob"] != 0 || len(state.Scores) != 2 {
		t.Errorf("scores should be zeroed for both: %v", state.Scores)
	}
	if state.QuestionLimit < QuestionLimitMin || state.QuestionLimit > QuestionLimitMax {
		t.Errorf("question limit out of range: %d", state.QuestionLimit)
	}

	// 両プロフィールのactiveMatchポインタが同じマッチを指す
	for _, uid := range []string{"alice", "bob"} {
		pointer, _ := s.Get(ctx, store.ActiveMatchKey(uid))
		if string(pointer) != second.MatchID {
			t.Errorf("activeMatch of %s = %q, want %q", uid, pointer, second.MatchID)
		}
	}

	// 消費されたエントリは残らない
	entries, _ := s.List(ctx, store.QueuePrefix("algebra_1"))
	if len(entries) != 0 {
		t.Errorf("queue should be empty, got %d entries", len(entries))
	}
}

func TestAutoMatchIgnoresOwnEntry(t *testing.T) {
	coordinator, s := newTestCoordinator()
	ctx := context.Background()

	coordinator.RequestAutoMatch(ctx, "alice", "algebra_1")
	result, err := coordinator.RequestAutoMatch(ctx, "alice", "algebra_1")
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	if result.Status != MatchStatusSearching {
		t.Errorf("own entry must not match itself: %+v", result)
	}

	matches, _ := s.List(ctx, "match:")
	if len(matches) != 0 {
		t.Errorf("no match should exist, got %d", len(matches))
	}
}

func TestQueueEntryConsumedOnlyOnce(t *testing.T) {
	coordinator, s := newTestCoordinator()
	ctx := context.Background()

	if _, err := coordinator.RequestAutoMatch(ctx, "alice", "algebra_1"); err != nil {
		t.Fatalf("alice request: %v", err)
	}

	// 2人の参加者がaliceのエントリへほぼ同時に到達する。
	// 条件付き削除が効いていれば成立するマッチは1つだけになる。
	results := make([]*MatchResult, 2)
	var wg sync.WaitGroup
	for i, uid := range []string{"bob", "carol"} {
		wg.Add(1)
		go func(i int, uid string) {
			defer wg.Done()
			result, err := coordinator.RequestAutoMatch(ctx, uid, "algebra_1")
			if err != nil {
				t.Errorf("%s request: %v", uid, err)
				return
			}
			results[i] = result
		}(i, uid)
	}
	wg.Wait()

	matched := 0
	for _, result := range results {
		if result != nil && result.Status == MatchStatusMatched {
			matched++
		}
	}
	if matched != 1 {
		t.Fatalf("expected exactly 1 match from the shared entry, got %d", matched)
	}

	matches, _ := s.List(ctx, "match:")
	if len(matches) != 1 {
		t.Errorf("expected exactly 1 match record, got %d", len(matches))
	}
}

// rejectMatchWriteStore はマッチレコードを含むMultiWriteだけを失敗させる。
// ストア障害時のロールバック経路を通すためのテスト用ラッパー。
type rejectMatchWriteStore struct {
	*store.MemoryStore
}

func (s *rejectMatchWriteStore) MultiWrite(ctx context.Context, writes map[string][]byte) error {
	for key := range writes {
		if strings.HasPrefix(key, "match:") {
			return errors.New("write rejected")
		}
	}
	return s.MemoryStore.MultiWrite(ctx, writes)
}

func TestFailedMatchCreationRestoresQueueEntry(t *testing.T) {
	mem := store.NewMemoryStore()
	coordinator := NewCoordinator(&rejectMatchWriteStore{mem}, nil, zap.NewNop())
	ctx := context.Background()

	first, err := coordinator.RequestAutoMatch(ctx, "alice", "algebra_1")
	if err != nil {
		t.Fatalf("alice request: %v", err)
	}

	// bobはaliceのエントリを獲得するがマッチ作成が失敗する
	if _, err := coordinator.RequestAutoMatch(ctx, "bob", "algebra_1"); err == nil {
		t.Fatal("expected match creation to fail")
	}

	// 失敗した試行はなかったことになる。aliceのエントリは待機リストに戻る
	data, _ := mem.Get(ctx, first.EntryKey)
	if data == nil {
		t.Fatal("alice's entry should be restored after the failed attempt")
	}
	var entry models.QueueEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("unmarshal restored entry: %v", err)
	}
	if entry.UID != "alice" {
		t.Errorf("restored entry uid = %q, want alice", entry.UID)
	}
}

func TestCancelSearchIsIdempotent(t *testing.T) {
	coordinator, _ := newTestCoordinator()
	ctx := context.Background()

	result, err := coordinator.RequestAutoMatch(ctx, "alice", "algebra_1")
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	if err := coordinator.CancelSearch(ctx, result.EntryKey); err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	// 既に消えたエントリの取り下げはエラーにならない
	if err := coordinator.CancelSearch(ctx, result.EntryKey); err != nil {
		t.Fatalf("second cancel should be a no-op: %v", err)
	}
}

func TestConsumedEntryCancelIsNoop(t *testing.T) {
	coordinator, _ := newTestCoordinator()
	ctx := context.Background()

	first, _ := coordinator.RequestAutoMatch(ctx, "alice", "algebra_1")
	if _, err := coordinator.RequestAutoMatch(ctx, "bob", "algebra_1"); err != nil {
		t.Fatalf("bob request: %v", err)
	}

	// aliceのタイムアウトタイマーが発火しても、消費済みエントリの削除はno-op
	if err := coordinator.CancelSearch(ctx, first.EntryKey); err != nil {
		t.Fatalf("cancel of consumed entry: %v", err)
	}
}

func TestPruneStaleEntries(t *testing.T) {
	coordinator, s := newTestCoordinator()
	ctx := context.Background()

	fresh, _ := coordinator.RequestAutoMatch(ctx, "alice", "algebra_1")
	if fresh.Status != MatchStatusSearching {
		t.Fatalf("expected searching, got %+v", fresh)
	}

	// タブを閉じたまま放置された古いエントリ
	stale := models.QueueEntry{
		UID:      "ghost",
		JoinedAt: time.Now().Add(-time.Hour).UnixMilli(),
	}
	data, _ := json.Marshal(stale)
	s.MultiWrite(ctx, map[string][]byte{store.QueueKey("algebra_1", "old"): data})

	coordinator.PruneStaleEntries(ctx)

	entries, _ := s.List(ctx, store.QueuePrefix("algebra_1"))
	if len(entries) != 1 {
		t.Fatalf("expected only the fresh entry to survive, got %d", len(entries))
	}
	if _, ok := entries[fresh.EntryKey]; !ok {
		t.Error("fresh entry was pruned")
	}
}
