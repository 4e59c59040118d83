package questions

import (
	"reflect"
	"testing"
)

func sampleRecords() []Record {
	return []Record{
		{ID: "q1", Question: "1+1=?", Options: []string{"1", "2", "3", "4"}, Answer: 1},
		{ID: "q2", Question: "2*3=?", Options: []string{"5", "6", "7", "8"}, Answer: 1},
		{ID: "q3", Question: "9-4=?", Options: []string{"5", "6", "7", "8"}, Answer: 0},
		{ID: "q4", Question: "8/2=?", Options: []string{"2", "3", "4", "5"}, Answer: 2},
	}
}

func TestShuffleKeepsAnswerMapping(t *testing.T) {
	original := sampleRecords()
	correctByID := make(map[string]string)
	for _, record := range original {
		correctByID[record.ID] = record.Options[record.Answer]
	}

	shuffled := Shuffle(42, original)
	if len(shuffled) != len(original) {
		t.Fatalf("shuffle changed length: %d", len(shuffled))
	}

	// 選択肢を入れ替えてもAnswerは同じ正解文字列を指し続ける
	for _, record := range shuffled {
		if record.Answer < 0 || record.Answer >= len(record.Options) {
			t.Fatalf("answer index out of range for %s: %d", record.ID, record.Answer)
		}
		if got := record.Options[record.Answer]; got != correctByID[record.ID] {
			t.Errorf("%s: answer points at %q, want %q", record.ID, got, correctByID[record.ID])
		}
	}
}

func TestShuffleIsDeterministicPerSeed(t *testing.T) {
	// 両クライアントが同じシードから同じ並びを得られること
	first := Shuffle(7, sampleRecords())
	second := Shuffle(7, sampleRecords())
	if !reflect.DeepEqual(first, second) {
		t.Error("same seed should produce the same order")
	}
}

func TestShuffleDoesNotMutateInput(t *testing.T) {
	original := sampleRecords()
	snapshot := sampleRecords()
	Shuffle(3, original)
	if !reflect.DeepEqual(original, snapshot) {
		t.Error("input slice was mutated")
	}
}
