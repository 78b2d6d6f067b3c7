package scene

import (
	"fmt"
	"time"

	"github.com/soundscene/soundscene/pkg/structure"
)

// DurationConflictError reports a conversation whose duration is too short
// to seat every listed speaker at least once under the active turn policy.
// Path locates the conversation in the structure tree.
type DurationConflictError struct {
	Path     string
	Duration time.Duration
	Min      time.Duration
	Speakers int
}

func (e *DurationConflictError) Error() string {
	return fmt.Sprintf("scene: %s: duration %v cannot seat %d speakers (minimum %v)",
		e.Path, e.Duration, e.Speakers, e.Min)
}

// InsufficientSourceMaterialError reports that no clip of adequate length
// was available for a required turn.
type InsufficientSourceMaterialError struct {
	Path    string
	Speaker structure.SpeakerID
	Min     time.Duration
	Err     error
}

func (e *InsufficientSourceMaterialError) Error() string {
	return fmt.Sprintf("scene: %s: no clip of at least %v for speaker %d: %v",
		e.Path, e.Min, e.Speaker, e.Err)
}

func (e *InsufficientSourceMaterialError) Unwrap() error {
	return e.Err
}
