package encoder

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/magebay99/multiexporter-hack/internal/format"
	"github.com/magebay99/multiexporter-hack/internal/geom"
)

// ErrInjected is returned by Failing for the calls it is told to fail.
var ErrInjected = errors.New("encoder: injected failure")

// Failing fails the first Times materializations of every matching label
// and delegates everything else to Next. An empty Labels matches all jobs.
type Failing struct {
	Next   format.Encoder
	Times  int
	Labels []string

	mu     sync.Mutex
	failed map[string]int
}

// NewFailing wraps next so each listed label fails times times.
func NewFailing(next format.Encoder, times int, labels ...string) *Failing {
	return &Failing{Next: next, Times: times, Labels: labels}
}

func (f *Failing) Materialize(ctx context.Context, t format.Target) error {
	if f.shouldFail(t.Label) {
		return fmt.Errorf("%w: %s", ErrInjected, t.Label)
	}
	return f.Next.Materialize(ctx, t)
}

func (f *Failing) shouldFail(label string) bool {
	if len(f.Labels) > 0 && !slices.Contains(f.Labels, label) {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failed == nil {
		f.failed = make(map[string]int)
	}
	if f.failed[label] >= f.Times {
		return false
	}
	f.failed[label]++
	return true
}

// Call is one materialization seen by a Recorder.
type Call struct {
	Path     string         `json:"path"`
	Label    string         `json:"label"`
	Kind     format.Kind    `json:"kind"`
	Options  format.Options `json:"options"`
	Frame    geom.Rect      `json:"frame"`
	Width    float64        `json:"width"`
	Height   float64        `json:"height"`
	Layers   []string       `json:"layers"`
	Artboard int            `json:"artboard"`
}

// Recorder remembers every target instead of writing files. It is used for
// dry runs.
type Recorder struct {
	mu    sync.Mutex
	calls []Call
}

func (r *Recorder) Materialize(ctx context.Context, t format.Target) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s, err := snapshot(t.Doc, t.Artboard)
	if err != nil {
		return err
	}
	w, h := t.Doc.Size()
	c := Call{
		Path:     t.Path,
		Label:    t.Label,
		Kind:     t.Kind,
		Options:  t.Options,
		Frame:    s.frame,
		Width:    w,
		Height:   h,
		Artboard: t.Artboard,
	}
	for i := len(s.layers) - 1; i >= 0; i-- {
		c.Layers = append(c.Layers, s.layers[i].name)
	}
	r.mu.Lock()
	r.calls = append(r.calls, c)
	r.mu.Unlock()
	return nil
}

// Calls returns a copy of the recorded calls in order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}
