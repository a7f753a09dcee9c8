package generate

import (
	"fmt"

	"github.com/renderinc/notion-architect/internal/llm"
)

// State is a step of a generation run.
type State string

const (
	StateGenerating    State = "generating"
	StateExtracting    State = "extracting"
	StateValidating    State = "validating"
	StateMaterializing State = "materializing"
	StateDone          State = "done"
	StateFailed        State = "failed"
)

// Kind tells state transitions from narrative text.
type Kind string

const (
	KindState Kind = "state"
	KindDelta Kind = "delta"
)

// Event reports progress of a run.
type Event struct {
	Kind     Kind          `json:"kind"`
	RunID    string        `json:"run_id"`
	Attempt  int           `json:"attempt"`
	State    State         `json:"state,omitempty"`
	Delta    string        `json:"delta,omitempty"`
	Sampling *llm.Sampling `json:"sampling,omitempty"` // on StateGenerating

	// Set on StateFailed. Retrying is true when the content was rejected
	// and another attempt follows.
	Err      error  `json:"-"`
	Error    string `json:"error,omitempty"`
	Retrying bool   `json:"retrying,omitempty"`
	Remote   bool   `json:"remote,omitempty"`  // the remote write failed
	Created  int    `json:"created,omitempty"` // nodes left behind by it

	PageID string `json:"page_id,omitempty"` // on StateDone
}

// Summary is a one-line human description of a state event.
func (e Event) Summary() string {
	switch e.State {
	case StateGenerating:
		if e.Sampling != nil {
			return fmt.Sprintf("attempt %d: generating (temperature %.1f, top_p %.1f)", e.Attempt, e.Sampling.Temperature, e.Sampling.TopP)
		}
		return fmt.Sprintf("attempt %d: generating", e.Attempt)
	case StateFailed:
		switch {
		case e.Retrying:
			return fmt.Sprintf("attempt %d: invalid content, retrying: %s", e.Attempt, e.Error)
		case e.Remote:
			return fmt.Sprintf("remote write failed, %d nodes already created: %s", e.Created, e.Error)
		default:
			return fmt.Sprintf("failed: %s", e.Error)
		}
	case StateDone:
		return fmt.Sprintf("done: page %s", e.PageID)
	default:
		return fmt.Sprintf("attempt %d: %s", e.Attempt, e.State)
	}
}
