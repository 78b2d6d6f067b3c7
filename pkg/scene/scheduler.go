package scene

import (
	"fmt"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/soundscene/soundscene/pkg/structure"
)

// TurnPolicy bundles the knobs of the turn-taking discipline. The zero
// value means "use defaults"; see the field comments for the defaults.
//
// MaxOverlap must stay below MinTurn, which guarantees a turn only ever
// overlaps its immediate predecessor and therefore a different speaker.
type TurnPolicy struct {
	// MinTurn is the shortest turn the scheduler requests from the clip
	// pool. Defaults to 1s.
	MinTurn time.Duration

	// MaxOverlap bounds how far a turn may reach back into its
	// predecessor. Defaults to 500ms.
	MaxOverlap time.Duration

	// MaxGap bounds the silence between adjacent turns. Defaults to 2s.
	MaxGap time.Duration

	// OffsetScale is the standard deviation of the gaussian jitter applied
	// between turns; draws are clamped to [-MaxOverlap, MaxGap].
	// Defaults to 500ms. Zero keeps the default; set MaxOverlap and
	// MaxGap to 0 for strictly back-to-back turns.
	OffsetScale time.Duration
}

// Turn policy defaults.
const (
	DefaultMinTurn     = time.Second
	DefaultMaxOverlap  = 500 * time.Millisecond
	DefaultMaxGap      = 2 * time.Second
	DefaultOffsetScale = 500 * time.Millisecond
)

func (p TurnPolicy) withDefaults() TurnPolicy {
	if p.MinTurn <= 0 {
		p.MinTurn = DefaultMinTurn
	}
	if p.MaxOverlap == 0 {
		p.MaxOverlap = DefaultMaxOverlap
	}
	if p.MaxOverlap < 0 {
		p.MaxOverlap = 0
	}
	if p.MaxGap == 0 {
		p.MaxGap = DefaultMaxGap
	}
	if p.MaxGap < 0 {
		p.MaxGap = 0
	}
	if p.OffsetScale <= 0 {
		p.OffsetScale = DefaultOffsetScale
	}
	return p
}

func (p TurnPolicy) validate() error {
	if p.MaxOverlap >= p.MinTurn {
		return fmt.Errorf("scene: max overlap %v must be smaller than min turn %v", p.MaxOverlap, p.MinTurn)
	}
	return nil
}

// MinSpan returns the shortest conversation duration that can seat n
// speakers at least once: n minimum turns, each but the first overlapping
// its predecessor maximally.
func (p TurnPolicy) MinSpan(n int) time.Duration {
	span := time.Duration(n)*p.MinTurn - time.Duration(n-1)*p.MaxOverlap
	if span < p.MinTurn {
		span = p.MinTurn
	}
	return span
}

// TurnScheduler decides who speaks next and how turns abut. Schedulers own
// their randomness: construct them from the same seeded source as the
// generator for reproducible scenes.
type TurnScheduler interface {
	// NextSpeaker picks the next turn's speaker. last is 0 for the first
	// turn of a conversation; otherwise implementations must not return
	// last again when another speaker is available.
	NextSpeaker(speakers []structure.SpeakerID, last structure.SpeakerID) structure.SpeakerID

	// TurnOffset returns the signed distance from the previous turn's end
	// to the next turn's start: negative for overlap, positive for a gap.
	// Draws stay within [-MaxOverlap, MaxGap] of the policy.
	TurnOffset() time.Duration

	// Policy returns the policy the scheduler enforces.
	Policy() TurnPolicy
}

// RandomScheduler picks speakers uniformly at random, excluding the
// previous speaker, with gaussian turn-boundary jitter. This is the
// default discipline.
type RandomScheduler struct {
	rng    *rand.Rand
	jitter distuv.Normal
	policy TurnPolicy
}

// NewRandomScheduler creates a RandomScheduler drawing from src.
func NewRandomScheduler(src rand.Source, policy TurnPolicy) *RandomScheduler {
	policy = policy.withDefaults()
	return &RandomScheduler{
		rng:    rand.New(src),
		jitter: distuv.Normal{Mu: 0, Sigma: policy.OffsetScale.Seconds(), Src: src},
		policy: policy,
	}
}

// NextSpeaker picks uniformly among speakers, never repeating last when
// another speaker is available.
func (s *RandomScheduler) NextSpeaker(speakers []structure.SpeakerID, last structure.SpeakerID) structure.SpeakerID {
	if len(speakers) == 1 {
		return speakers[0]
	}
	for {
		pick := speakers[s.rng.Intn(len(speakers))]
		if pick != last {
			return pick
		}
	}
}

// TurnOffset draws gaussian jitter clamped to the policy bounds.
func (s *RandomScheduler) TurnOffset() time.Duration {
	return clampOffset(time.Duration(s.jitter.Rand()*float64(time.Second)), s.policy)
}

// Policy returns the scheduler's policy.
func (s *RandomScheduler) Policy() TurnPolicy {
	return s.policy
}

// RoundRobinScheduler cycles through the speaker set in order, with the
// same gaussian boundary jitter as RandomScheduler. Useful when every
// speaker must get near-equal floor time.
type RoundRobinScheduler struct {
	jitter distuv.Normal
	policy TurnPolicy
}

// NewRoundRobinScheduler creates a RoundRobinScheduler drawing jitter
// from src.
func NewRoundRobinScheduler(src rand.Source, policy TurnPolicy) *RoundRobinScheduler {
	policy = policy.withDefaults()
	return &RoundRobinScheduler{
		jitter: distuv.Normal{Mu: 0, Sigma: policy.OffsetScale.Seconds(), Src: src},
		policy: policy,
	}
}

// NextSpeaker returns the speaker following last in the set's order.
func (s *RoundRobinScheduler) NextSpeaker(speakers []structure.SpeakerID, last structure.SpeakerID) structure.SpeakerID {
	for i, id := range speakers {
		if id == last {
			return speakers[(i+1)%len(speakers)]
		}
	}
	return speakers[0]
}

// TurnOffset draws gaussian jitter clamped to the policy bounds.
func (s *RoundRobinScheduler) TurnOffset() time.Duration {
	return clampOffset(time.Duration(s.jitter.Rand()*float64(time.Second)), s.policy)
}

// Policy returns the scheduler's policy.
func (s *RoundRobinScheduler) Policy() TurnPolicy {
	return s.policy
}

func clampOffset(off time.Duration, p TurnPolicy) time.Duration {
	if off < -p.MaxOverlap {
		return -p.MaxOverlap
	}
	if off > p.MaxGap {
		return p.MaxGap
	}
	return off
}
