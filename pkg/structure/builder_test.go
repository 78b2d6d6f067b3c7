package structure

import (
	"testing"
	"time"

	"golang.org/x/exp/rand"
)

func TestSpeakerGroupsNumbersConsecutively(t *testing.T) {
	groups := SpeakerGroups([]int{2, 3})
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	want := [][]SpeakerID{{1, 2}, {3, 4, 5}}
	for i := range want {
		if len(groups[i]) != len(want[i]) {
			t.Fatalf("group %d: expected %v, got %v", i, want[i], groups[i])
		}
		for j := range want[i] {
			if groups[i][j] != want[i][j] {
				t.Errorf("group %d: expected %v, got %v", i, want[i], groups[i])
			}
		}
	}
}

func TestParallelConversationsBuildsOneTablePerSize(t *testing.T) {
	b := NewBuilder(rand.NewSource(1))
	root := b.ParallelConversations([]int{2, 2, 3}, 10*time.Minute)

	seq, ok := root.(*Sequence)
	if !ok {
		t.Fatalf("expected *Sequence root, got %T", root)
	}
	if len(seq.Speakers) != 7 {
		t.Errorf("expected 7 speakers, got %d", len(seq.Speakers))
	}
	split, ok := seq.Elements[0].(*Splitter)
	if !ok {
		t.Fatalf("expected *Splitter, got %T", seq.Elements[0])
	}
	if len(split.Elements) != 3 {
		t.Fatalf("expected 3 tables, got %d", len(split.Elements))
	}
	if got := TotalDuration(root); got != 10*time.Minute {
		t.Errorf("expected 10m total, got %v", got)
	}
}

func TestSmallTableIsSingleConversation(t *testing.T) {
	b := NewBuilder(rand.NewSource(1), WithSegmenter(ExponentialSegmenter(rand.NewSource(2), time.Minute, 10*time.Second)))
	node := b.Table([]SpeakerID{1, 2, 3}, 5*time.Minute)

	conv, ok := node.(*Conversation)
	if !ok {
		t.Fatalf("expected *Conversation for a 3-speaker table, got %T", node)
	}
	if conv.Duration != 5*time.Minute {
		t.Errorf("expected 5m, got %v", conv.Duration)
	}
}

func TestSegmentedTableAlternatesWholeAndSplitPhases(t *testing.T) {
	seg := ExponentialSegmenter(rand.NewSource(7), time.Minute, 15*time.Second)
	b := NewBuilder(rand.NewSource(7), WithSegmenter(seg))

	node := b.Table([]SpeakerID{1, 2, 3, 4}, 10*time.Minute)
	seq, ok := node.(*Sequence)
	if !ok {
		t.Fatalf("expected *Sequence for a segmented table, got %T", node)
	}
	if got := TotalDuration(seq); got != 10*time.Minute {
		t.Errorf("expected phases to sum to 10m, got %v", got)
	}
	for i, el := range seq.Elements {
		if i%2 == 0 {
			if _, ok := el.(*Conversation); !ok {
				t.Errorf("phase %d: expected whole-table *Conversation, got %T", i, el)
			}
			continue
		}
		split, ok := el.(*Splitter)
		if !ok {
			t.Errorf("phase %d: expected *Splitter, got %T", i, el)
			continue
		}
		if len(split.Elements) != 2 {
			t.Errorf("phase %d: expected 2 sub-conversations, got %d", i, len(split.Elements))
		}
	}
}

func TestExponentialSegmenterGuardsDegenerateParameters(t *testing.T) {
	seg := ExponentialSegmenter(rand.NewSource(9), 0, 0)
	total := 10 * time.Second

	var sum time.Duration
	phases := seg(total)
	for _, d := range phases {
		if d <= 0 {
			t.Fatalf("non-positive phase %v", d)
		}
		sum += d
	}
	if sum != total {
		t.Errorf("expected phases to sum to %v, got %v", total, sum)
	}
	if len(phases) > int(total/time.Second) {
		t.Errorf("expected at most %d phases, got %d", total/time.Second, len(phases))
	}
}

func TestExponentialSegmenterSumsExactly(t *testing.T) {
	seg := ExponentialSegmenter(rand.NewSource(3), 45*time.Second, 10*time.Second)
	total := 7 * time.Minute

	var sum time.Duration
	for _, d := range seg(total) {
		if d <= 0 {
			t.Fatalf("non-positive phase %v", d)
		}
		sum += d
	}
	if sum != total {
		t.Errorf("expected phases to sum to %v, got %v", total, sum)
	}
}
