package exporter

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/magebay99/multiexporter-hack/internal/planner"
)

// State is the orchestrator's position in a run.
type State int32

const (
	Idle State = iota
	Planning
	Exporting
	Succeeded
	AwaitingRetry
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Planning:
		return "planning"
	case Exporting:
		return "exporting"
	case Succeeded:
		return "succeeded"
	case AwaitingRetry:
		return "awaiting_retry"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// SkipReason says why a job produced no file without failing.
type SkipReason string

const (
	SkipNoBounds       SkipReason = "no bounds"
	SkipDegenerate     SkipReason = "degenerate bounds"
	SkipNothingVisible SkipReason = "nothing visible"
	SkipNoLayer        SkipReason = "no such layer"
)

// Export is a written file.
type Export struct {
	Job   planner.Job `json:"job"`
	Label string      `json:"label"`
	Path  string      `json:"path"`
}

// Failure is a job that failed to synthesize or encode.
type Failure struct {
	Job   planner.Job `json:"job"`
	Label string      `json:"label"`
	Err   error       `json:"-"`
}

// Skip is a job that had nothing to export.
type Skip struct {
	Job    planner.Job `json:"job"`
	Label  string      `json:"label"`
	Reason SkipReason  `json:"reason"`
}

// RunResult accumulates every pass of one export invocation. Failed holds
// only the failures of the latest pass.
type RunResult struct {
	ID        string    `json:"id"`
	Format    string    `json:"format"`
	Started   time.Time `json:"started"`
	Finished  time.Time `json:"finished"`
	Succeeded []Export  `json:"succeeded"`
	Failed    []Failure `json:"failed"`
	Skipped   []Skip    `json:"skipped"`
	Exported  int       `json:"exported"`
	Total     int       `json:"total"`
	Attempts  int       `json:"attempts"`
	Cancelled bool      `json:"cancelled"`
}

// OK reports whether the run finished with nothing left failed.
func (r *RunResult) OK() bool { return len(r.Failed) == 0 && !r.Cancelled }

// RetryPrompt describes the failures of a pass to the user.
type RetryPrompt struct {
	Layers    []string `json:"layers,omitempty"`
	Artboards []string `json:"artboards,omitempty"`
	Message   string   `json:"message"`
}

func newRetryPrompt(failures []Failure, artboardNames, layerNames []string) RetryPrompt {
	var p RetryPrompt
	var layers, artboards []int
	for _, f := range failures {
		if !slices.Contains(artboards, f.Job.Artboard) {
			artboards = append(artboards, f.Job.Artboard)
			p.Artboards = append(p.Artboards, name(artboardNames, f.Job.Artboard))
		}
		if !f.Job.IsWhole() && !slices.Contains(layers, f.Job.Layer) {
			layers = append(layers, f.Job.Layer)
			p.Layers = append(p.Layers, name(layerNames, f.Job.Layer))
		}
	}

	var b strings.Builder
	if len(p.Layers) > 0 {
		fmt.Fprintf(&b, "%d layers failed across %d artboards:", len(p.Layers), len(p.Artboards))
		for _, n := range p.Layers {
			b.WriteString("\n - " + n)
		}
	} else {
		fmt.Fprintf(&b, "%d artboards failed:", len(p.Artboards))
		for _, n := range p.Artboards {
			b.WriteString("\n - " + n)
		}
	}
	b.WriteString("\nRetry?")
	p.Message = b.String()
	return p
}

func name(names []string, i int) string {
	if i < 0 || i >= len(names) {
		return fmt.Sprintf("#%d", i)
	}
	return names[i]
}
