package scene

import (
	"testing"
	"time"

	"golang.org/x/exp/rand"

	"github.com/soundscene/soundscene/pkg/structure"
)

func randSource(seed uint64) rand.Source {
	return rand.NewSource(seed)
}

func TestRandomSchedulerNeverRepeatsLastSpeaker(t *testing.T) {
	s := NewRandomScheduler(randSource(1), TurnPolicy{})
	speakers := []structure.SpeakerID{1, 2, 3}

	last := structure.SpeakerID(0)
	for i := 0; i < 500; i++ {
		pick := s.NextSpeaker(speakers, last)
		if pick == last {
			t.Fatalf("turn %d: speaker %d repeated", i, pick)
		}
		last = pick
	}
}

func TestRandomSchedulerHandlesSingleSpeaker(t *testing.T) {
	s := NewRandomScheduler(randSource(1), TurnPolicy{})
	if pick := s.NextSpeaker([]structure.SpeakerID{7}, 7); pick != 7 {
		t.Errorf("expected sole speaker 7, got %d", pick)
	}
}

func TestTurnOffsetStaysWithinPolicyBounds(t *testing.T) {
	policy := TurnPolicy{
		MinTurn:     2 * time.Second,
		MaxOverlap:  time.Second,
		MaxGap:      1500 * time.Millisecond,
		OffsetScale: 5 * time.Second, // wide jitter to force clamping
	}
	s := NewRandomScheduler(randSource(2), policy)

	for i := 0; i < 1000; i++ {
		off := s.TurnOffset()
		if off < -policy.MaxOverlap || off > policy.MaxGap {
			t.Fatalf("offset %v outside [-%v, %v]", off, policy.MaxOverlap, policy.MaxGap)
		}
	}
}

func TestRoundRobinSchedulerCycles(t *testing.T) {
	s := NewRoundRobinScheduler(randSource(3), TurnPolicy{})
	speakers := []structure.SpeakerID{4, 8, 15}

	last := structure.SpeakerID(0)
	want := []structure.SpeakerID{4, 8, 15, 4, 8, 15}
	for i, expected := range want {
		pick := s.NextSpeaker(speakers, last)
		if pick != expected {
			t.Fatalf("turn %d: expected speaker %d, got %d", i, expected, pick)
		}
		last = pick
	}
}

func TestMinSpanAccountsForOverlap(t *testing.T) {
	policy := TurnPolicy{MinTurn: 2 * time.Second, MaxOverlap: 500 * time.Millisecond}.withDefaults()

	// 4 speakers: 4 turns of 2s, 3 joins each saving up to 500ms.
	if got, want := policy.MinSpan(4), 6500*time.Millisecond; got != want {
		t.Errorf("expected min span %v, got %v", want, got)
	}
	if got := policy.MinSpan(1); got != policy.MinTurn {
		t.Errorf("expected single-speaker span %v, got %v", policy.MinTurn, got)
	}
}

func TestPolicyDefaultsAndValidation(t *testing.T) {
	p := TurnPolicy{}.withDefaults()
	if p.MinTurn != DefaultMinTurn || p.MaxOverlap != DefaultMaxOverlap || p.MaxGap != DefaultMaxGap {
		t.Errorf("unexpected defaults %+v", p)
	}
	if err := p.validate(); err != nil {
		t.Errorf("default policy must validate, got %v", err)
	}

	bad := TurnPolicy{MinTurn: time.Second, MaxOverlap: time.Second}.withDefaults()
	if err := bad.validate(); err == nil {
		t.Error("expected validation error when overlap reaches min turn")
	}

	strict := TurnPolicy{MaxOverlap: -1, MaxGap: -1}.withDefaults()
	if strict.MaxOverlap != 0 || strict.MaxGap != 0 {
		t.Errorf("expected negative bounds to clamp to 0, got %+v", strict)
	}
}
