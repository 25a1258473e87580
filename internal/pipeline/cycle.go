package pipeline

import (
	"encoding/json"
	"time"
)

// Stage is a step of the fetch cycle state machine:
//
//	Idle → Fetching → Mapping → Published → Idle
//	               ↘ Failed → Idle
//
// Decoding happens inside FeedFetcher.Fetch and is reported as Fetching.
type Stage int32

const (
	StageIdle Stage = iota
	StageFetching
	StageMapping
	StagePublished
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageFetching:
		return "fetching"
	case StageMapping:
		return "mapping"
	case StagePublished:
		return "published"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the stage by name.
func (s Stage) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// CycleResult records how a single cycle ended.
type CycleResult struct {
	ID         string    `json:"id"`
	Outcome    Stage     `json:"outcome"`
	Events     int       `json:"events"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Duration is the wall time the cycle took.
func (r CycleResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
