// Package exporter runs an export plan against a live document: it toggles
// visibility or synthesizes isolated canvases per job, hands each result to
// the encoder, and offers to retry whatever failed.
package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/magebay99/multiexporter-hack/internal/apperr"
	"github.com/magebay99/multiexporter-hack/internal/document"
	"github.com/magebay99/multiexporter-hack/internal/format"
	"github.com/magebay99/multiexporter-hack/internal/planner"
	"github.com/magebay99/multiexporter-hack/internal/prefs"
	"github.com/magebay99/multiexporter-hack/internal/synth"
)

// Orchestrator executes export plans one at a time.
type Orchestrator struct {
	// mu is held for the whole run: it stands for exclusive access to the
	// live document.
	mu    sync.Mutex
	state atomic.Int32

	synth    *synth.Synthesizer
	enc      format.Encoder
	log      *slog.Logger
	confirm  Confirmer
	progress ProgressFunc
	observe  func(State)
	reserved string
	runID    string
}

// New creates an Orchestrator that builds canvases on host and writes files
// through enc.
func New(host document.Host, enc format.Encoder, opts ...Option) *Orchestrator {
	o := &Orchestrator{enc: enc, reserved: prefs.LayerName}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = slog.Default()
	}
	o.synth = synth.New(host, o.log)
	return o
}

// State returns the current state.
func (o *Orchestrator) State() State { return State(o.state.Load()) }

func (o *Orchestrator) setState(s State) {
	o.state.Store(int32(s))
	if o.observe != nil {
		o.observe(s)
	}
}

// Run exports plan from doc using cfg. Configuration problems abort the run
// before anything is written; per-job failures are collected in the result.
// Cancellation is honoured between jobs and marks the result cancelled.
func (o *Orchestrator) Run(ctx context.Context, doc document.Document, cfg prefs.Config, plan planner.Plan) (*RunResult, error) {
	if !o.mu.TryLock() {
		return nil, apperr.ErrBusy
	}
	defer o.mu.Unlock()
	defer o.setState(Idle)

	o.setState(Planning)
	if !plan.Valid() {
		return nil, apperr.Configuration("please select valid artboards / layers")
	}
	if strings.TrimSpace(cfg.BasePath) == "" {
		return nil, apperr.Configuration("please select a destination")
	}
	if len(doc.Artboards()) == 0 {
		return nil, apperr.Configuration("document has no artboards")
	}

	id := o.runID
	if id == "" {
		id = uuid.NewString()
	}
	res := &RunResult{
		ID:      id,
		Format:  cfg.Profile().Name,
		Started: time.Now(),
		Total:   plan.Total,
	}
	log := o.log.With(slog.String("run", res.ID))
	log.Info("export: run started",
		slog.String("format", res.Format),
		slog.Int("total", plan.Total),
	)

	for {
		res.Attempts++
		o.setState(Exporting)
		failures := o.pass(ctx, log, doc, cfg, plan, res)
		res.Failed = failures
		if res.Cancelled || len(failures) == 0 {
			break
		}

		o.setState(AwaitingRetry)
		prompt := newRetryPrompt(failures, artboardNames(doc), layerNames(doc))
		if o.confirm == nil || !o.confirm.ConfirmRetry(ctx, prompt) {
			break
		}
		jobs := make([]planner.Job, len(failures))
		for i, f := range failures {
			jobs[i] = f.Job
		}
		plan = plan.Narrow(jobs)
		log.Info("export: retrying failed jobs", slog.Int("jobs", plan.Total))
	}
	if res.OK() {
		o.setState(Succeeded)
	}

	res.Finished = time.Now()
	log.Info("export: run finished",
		slog.Int("exported", res.Exported),
		slog.Int("failed", len(res.Failed)),
		slog.Int("skipped", len(res.Skipped)),
		slog.Int("attempts", res.Attempts),
		slog.Bool("cancelled", res.Cancelled),
	)
	return res, nil
}

// pass runs every job of plan once and returns the failures.
func (o *Orchestrator) pass(ctx context.Context, log *slog.Logger, doc document.Document, cfg prefs.Config, plan planner.Plan, res *RunResult) []Failure {
	profile := cfg.Profile()
	p := &pass{
		o:         o,
		log:       log,
		doc:       doc,
		cfg:       cfg,
		plan:      plan,
		profile:   profile,
		opts:      profile.Options(cfg.Settings()),
		isolate:   profile.Isolation || cfg.TrimEdges,
		artboards: doc.Artboards(),
		layers:    doc.Layers(),
		current:   -1,
	}
	if !p.isolate {
		p.shown = visibility(p.layers)
		defer p.restoreVisibility()
	}
	defer p.endArtboard()

	done := 0
	for _, job := range plan.Jobs {
		if ctx.Err() != nil {
			res.Cancelled = true
			log.Info("export: cancelled", slog.Int("done", done))
			break
		}
		if job.Artboard != p.current {
			p.endArtboard()
			p.current = job.Artboard
		}

		label, path, skip, err := p.run(ctx, job)
		switch {
		case err != nil:
			p.failures = append(p.failures, Failure{Job: job, Label: label, Err: err})
			log.Warn("export: job failed", slog.String("job", label), slog.String("error", err.Error()))
		case skip != "":
			res.Skipped = append(res.Skipped, Skip{Job: job, Label: label, Reason: skip})
			log.Debug("export: job skipped", slog.String("job", label), slog.String("reason", string(skip)))
		default:
			res.Succeeded = append(res.Succeeded, Export{Job: job, Label: label, Path: path})
			res.Exported++
			log.Debug("export: wrote file", slog.String("job", label), slog.String("path", path))
		}

		done++
		if o.progress != nil {
			o.progress(done, plan.Total)
		}
	}
	return p.failures
}

func artboardNames(doc document.Document) []string {
	var out []string
	for _, a := range doc.Artboards() {
		out = append(out, a.Name)
	}
	return out
}

func layerNames(doc document.Document) []string {
	var out []string
	for _, l := range doc.Layers() {
		out = append(out, l.Name())
	}
	return out
}

// visibility captures the visibility of the top-level layers.
func visibility(layers []document.Layer) []bool {
	out := make([]bool, len(layers))
	for i, l := range layers {
		out[i] = l.Visible()
	}
	return out
}

// basePath builds the output path without extension.
func basePath(cfg prefs.Config, name string) string {
	return filepath.Join(cfg.OutputDir(), cfg.Prefix+name+cfg.Suffix)
}

// recovered turns a panic raised while materializing a job into an error.
func recovered(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}
