// Package exportservice ties the scene file, its preferences, the planner,
// the orchestrator and the run history together for the CLI, API and MCP
// front ends.
package exportservice

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/magebay99/multiexporter-hack/internal/apperr"
	"github.com/magebay99/multiexporter-hack/internal/checksum"
	"github.com/magebay99/multiexporter-hack/internal/encoder"
	"github.com/magebay99/multiexporter-hack/internal/exporter"
	"github.com/magebay99/multiexporter-hack/internal/format"
	"github.com/magebay99/multiexporter-hack/internal/history"
	"github.com/magebay99/multiexporter-hack/internal/planner"
	"github.com/magebay99/multiexporter-hack/internal/prefs"
	"github.com/magebay99/multiexporter-hack/internal/progress"
	"github.com/magebay99/multiexporter-hack/internal/scene"
	"github.com/magebay99/multiexporter-hack/internal/storage"
	"github.com/magebay99/multiexporter-hack/internal/watch"
)

// FormatInfo describes one output format and the preferences it uses.
type FormatInfo struct {
	Name      string   `json:"name"`
	Extension string   `json:"extension"`
	Isolation bool     `json:"isolation"`
	Controls  []string `json:"controls"`
}

// PlanView is a plan together with the scene revision it was computed from.
type PlanView struct {
	planner.Plan
	Scene    string `json:"scene"`
	Checksum string `json:"checksum"`
	Format   string `json:"format"`
}

// ExportRequest parameterizes one export.
type ExportRequest struct {
	// Retry answers up to Retry retry prompts with yes.
	Retry int
	// DryRun records the targets instead of writing files or history.
	DryRun bool
	// FailLabels makes the encoder fail the named jobs FailTimes times
	// (at least once).
	FailLabels []string
	FailTimes  int
}

// ExportReport is the outcome of one export.
type ExportReport struct {
	Result   *exporter.RunResult `json:"result"`
	Plan     planner.Plan        `json:"plan"`
	Run      history.Run         `json:"run"`
	Outcomes []history.Outcome   `json:"outcomes"`
	Targets  []encoder.Call      `json:"targets,omitempty"`
}

// Service coordinates one scene file with its exports.
type Service struct {
	scenePath string
	ledger    history.Ledger
	enc       format.Encoder
	broker    *progress.Broker
	log       *slog.Logger
	plans     *cache.Cache

	// mu serializes scene mutations and exports.
	mu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithEncoder replaces the file encoder.
func WithEncoder(enc format.Encoder) Option {
	return func(s *Service) { s.enc = enc }
}

// WithBroker publishes plan and progress events to b.
func WithBroker(b *progress.Broker) Option {
	return func(s *Service) { s.broker = b }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithPlanTTL sets how long computed plans are cached.
func WithPlanTTL(ttl time.Duration) Option {
	return func(s *Service) { s.plans = cache.New(ttl, 2*ttl) }
}

// NewService creates a service for the scene file at scenePath. ledger may be
// nil, in which case runs are not recorded.
func NewService(scenePath string, ledger history.Ledger, opts ...Option) *Service {
	s := &Service{scenePath: scenePath, ledger: ledger}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.enc == nil {
		s.enc = encoder.NewFiles(s.log)
	}
	if s.plans == nil {
		s.plans = cache.New(5*time.Minute, 10*time.Minute)
	}
	return s
}

// ScenePath returns the scene file the service works on.
func (s *Service) ScenePath() string { return s.scenePath }

// Formats lists the format profiles in menu order.
func (s *Service) Formats() []FormatInfo {
	out := make([]FormatInfo, 0, len(format.All()))
	for _, p := range format.All() {
		fi := FormatInfo{Name: p.Name, Extension: p.Ext, Isolation: p.Isolation, Controls: []string{}}
		for _, c := range p.Controls {
			fi.Controls = append(fi.Controls, string(c))
		}
		out = append(out, fi)
	}
	return out
}

func (s *Service) load() (*scene.Scene, string, error) {
	dir, name := filepath.Split(s.scenePath)
	if dir == "" {
		dir = "."
	}
	store, err := storage.NewFS(dir)
	if err != nil {
		return nil, "", fmt.Errorf("exportservice: %w", err)
	}
	data, err := store.Read(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", fmt.Errorf("scene %s: %w", s.scenePath, apperr.ErrNotFound)
		}
		return nil, "", err
	}
	doc, err := scene.Parse(data)
	if err != nil {
		return nil, "", err
	}
	return doc, checksum.Sum(data), nil
}

// Preferences returns the preferences stored in the scene. A scene without a
// record gets the defaults written back.
func (s *Service) Preferences(_ context.Context) (prefs.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, _, err := s.load()
	if err != nil {
		return prefs.Config{}, err
	}
	_, found, _ := doc.ReadRecord(prefs.LayerName)
	cfg, err := prefs.Load(doc)
	if err != nil {
		return prefs.Config{}, err
	}
	if !found {
		if err := doc.Save(s.scenePath); err != nil {
			return prefs.Config{}, err
		}
		s.log.Info("exportservice: preferences initialized", slog.String("scene", s.scenePath))
	}
	return cfg, nil
}

// SetPreferences applies the key=value updates in order of key and persists
// the record. Nothing is written when any update is invalid.
func (s *Service) SetPreferences(_ context.Context, updates map[string]string) (prefs.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, _, err := s.load()
	if err != nil {
		return prefs.Config{}, err
	}
	cfg, err := prefs.Load(doc)
	if err != nil {
		return prefs.Config{}, err
	}

	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := cfg.Set(k, updates[k]); err != nil {
			return prefs.Config{}, err
		}
	}

	if err := prefs.Save(doc, cfg); err != nil {
		return prefs.Config{}, err
	}
	if err := doc.Save(s.scenePath); err != nil {
		return prefs.Config{}, err
	}
	s.log.Info("exportservice: preferences saved", slog.Any("keys", keys))

	if s.broker != nil {
		if view, err := s.planLocked(); err == nil {
			s.broker.Publish(progress.Event{Type: progress.TypePlan, Data: view})
		}
	}
	return cfg, nil
}

// ImportScene replaces the scene file with data after checking that it
// parses, and returns the plan of the new scene.
func (s *Service) ImportScene(_ context.Context, data []byte) (PlanView, error) {
	if _, err := scene.Parse(data); err != nil {
		return PlanView{}, fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}
	if !s.mu.TryLock() {
		return PlanView{}, apperr.ErrBusy
	}
	defer s.mu.Unlock()

	dir, name := filepath.Split(s.scenePath)
	if dir == "" {
		dir = "."
	}
	store, err := storage.EnsureFS(dir)
	if err != nil {
		return PlanView{}, fmt.Errorf("exportservice: %w", err)
	}
	if err := store.Write(name, data); err != nil {
		return PlanView{}, fmt.Errorf("exportservice: %w", err)
	}
	s.log.Info("exportservice: scene imported",
		slog.String("scene", s.scenePath),
		slog.Int("bytes", len(data)))
	return s.planLocked()
}

// Plan computes the export plan for the scene as it is on disk.
func (s *Service) Plan(_ context.Context) (PlanView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.planLocked()
}

func (s *Service) planLocked() (PlanView, error) {
	doc, sum, err := s.load()
	if err != nil {
		return PlanView{}, err
	}
	cfg, err := prefs.Load(doc)
	if err != nil {
		return PlanView{}, err
	}
	return s.plan(doc, sum, cfg), nil
}

func (s *Service) plan(doc *scene.Scene, sum string, cfg prefs.Config) PlanView {
	key := checksum.Key(sum, cfg.Artboards.String(), cfg.Layers.String())
	if v, ok := s.plans.Get(key); ok {
		return v.(PlanView)
	}
	view := PlanView{
		Plan:     planner.Compute(doc, cfg, prefs.LayerName),
		Scene:    s.scenePath,
		Checksum: sum,
		Format:   cfg.Profile().Name,
	}
	s.plans.Set(key, view, cache.DefaultExpiration)
	return view
}

// SceneChanged re-plans after a watcher-reported change and broadcasts the
// new plan.
func (s *Service) SceneChanged(ch watch.Change) {
	if ch.Removed {
		s.log.Warn("exportservice: scene removed", slog.String("path", ch.Path))
		return
	}
	view, err := s.Plan(context.Background())
	if err != nil {
		s.log.Warn("exportservice: re-plan failed",
			slog.String("path", ch.Path),
			slog.String("error", err.Error()))
		return
	}
	s.log.Info("exportservice: re-planned",
		slog.String("summary", view.Summary),
		slog.Int("total", view.Total))
	if s.broker != nil {
		s.broker.Publish(progress.Event{Type: progress.TypePlan, Data: view})
	}
}

// Export plans and runs an export of the scene. Only one export runs at a
// time; a second one gets apperr.ErrBusy.
func (s *Service) Export(ctx context.Context, req ExportRequest) (*ExportReport, error) {
	if !s.mu.TryLock() {
		return nil, apperr.ErrBusy
	}
	defer s.mu.Unlock()

	doc, sum, err := s.load()
	if err != nil {
		return nil, err
	}
	cfg, err := prefs.Load(doc)
	if err != nil {
		return nil, err
	}
	view := s.plan(doc, sum, cfg)

	enc := s.enc
	var rec *encoder.Recorder
	if req.DryRun {
		rec = &encoder.Recorder{}
		enc = rec
	}
	if len(req.FailLabels) > 0 {
		enc = encoder.NewFailing(enc, max(req.FailTimes, 1), req.FailLabels...)
	}

	id := uuid.NewString()
	opts := []exporter.Option{
		exporter.WithLogger(s.log),
		exporter.WithRunID(id),
		exporter.WithConfirmer(exporter.RetryUpTo(req.Retry)),
	}
	if s.broker != nil {
		opts = append(opts, exporter.WithProgress(func(done, total int) {
			s.broker.PublishProgress(id, done, total)
		}))
		s.broker.Publish(progress.Event{Type: progress.TypeStarted, Data: map[string]any{
			"run": id, "total": view.Total, "summary": view.Summary,
		}, Run: id})
	}

	res, err := exporter.New(&scene.Host{}, enc, opts...).Run(ctx, doc, cfg, view.Plan)
	if err != nil {
		if s.broker != nil {
			s.broker.Publish(progress.Event{Type: progress.TypeFinished, Data: map[string]any{
				"run": id, "error": err.Error(),
			}, Run: id})
		}
		return nil, err
	}

	report := &ExportReport{Result: res, Plan: view.Plan}
	report.Run, report.Outcomes = toHistory(res, s.scenePath)
	if rec != nil {
		report.Targets = rec.Calls()
	} else {
		s.fillChecksums(report.Outcomes)
		if s.ledger != nil {
			if err := s.ledger.RecordRun(report.Run, report.Outcomes); err != nil {
				s.log.Error("exportservice: record run failed",
					slog.String("run", res.ID),
					slog.String("error", err.Error()))
			}
		}
	}

	if s.broker != nil {
		s.broker.Publish(progress.Event{Type: progress.TypeFinished, Data: report.Run, Run: id})
	}
	return report, nil
}

// fillChecksums fingerprints every exported file that exists on disk.
func (s *Service) fillChecksums(outcomes []history.Outcome) {
	stores := make(map[string]*storage.FS)
	for i := range outcomes {
		o := &outcomes[i]
		if o.Status != history.StatusExported || o.Path == "" {
			continue
		}
		dir, name := filepath.Split(o.Path)
		store, ok := stores[dir]
		if !ok {
			var err error
			if store, err = storage.NewFS(dir); err != nil {
				continue
			}
			stores[dir] = store
		}
		fi, err := store.Stat(name)
		if err != nil {
			s.log.Warn("exportservice: exported file unreadable",
				slog.String("path", o.Path),
				slog.String("error", err.Error()))
			continue
		}
		o.Checksum = fi.Checksum
	}
}

func toHistory(res *exporter.RunResult, scenePath string) (history.Run, []history.Outcome) {
	run := history.Run{
		ID:        res.ID,
		Scene:     scenePath,
		Format:    res.Format,
		Started:   res.Started,
		Finished:  res.Finished,
		Total:     res.Total,
		Exported:  res.Exported,
		Failed:    len(res.Failed),
		Skipped:   len(res.Skipped),
		Attempts:  res.Attempts,
		Cancelled: res.Cancelled,
	}
	var out []history.Outcome
	add := func(o history.Outcome) {
		o.RunID = res.ID
		o.Seq = len(out) + 1
		out = append(out, o)
	}
	for _, e := range res.Succeeded {
		path := e.Path
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		add(history.Outcome{Artboard: e.Job.Artboard, Layer: e.Job.Layer, Label: e.Label, Status: history.StatusExported, Path: path})
	}
	for _, sk := range res.Skipped {
		add(history.Outcome{Artboard: sk.Job.Artboard, Layer: sk.Job.Layer, Label: sk.Label, Status: history.StatusSkipped, Detail: string(sk.Reason)})
	}
	for _, f := range res.Failed {
		detail := ""
		if f.Err != nil {
			detail = f.Err.Error()
		}
		add(history.Outcome{Artboard: f.Job.Artboard, Layer: f.Job.Layer, Label: f.Label, Status: history.StatusFailed, Detail: detail})
	}
	return run, out
}

// Runs lists recorded runs, newest first.
func (s *Service) Runs(_ context.Context, limit, offset int) ([]history.Run, int, error) {
	if s.ledger == nil {
		return []history.Run{}, 0, nil
	}
	return s.ledger.ListRuns(limit, offset)
}

// Run returns one recorded run and its outcomes.
func (s *Service) Run(_ context.Context, id string) (*history.Run, []history.Outcome, error) {
	if s.ledger == nil {
		return nil, nil, apperr.ErrNotFound
	}
	r, err := s.ledger.GetRun(id)
	if err != nil {
		return nil, nil, err
	}
	outcomes, err := s.ledger.Outcomes(id)
	if err != nil {
		return nil, nil, err
	}
	return r, outcomes, nil
}

// Search finds outcomes whose label, path or detail match query.
func (s *Service) Search(_ context.Context, query string, limit int) ([]history.Outcome, error) {
	if s.ledger == nil {
		return []history.Outcome{}, nil
	}
	return s.ledger.Search(query, limit)
}

// Verify reports exported files under root that changed or disappeared
// since they were recorded. An empty root means the configured output
// directory.
func (s *Service) Verify(ctx context.Context, root string) ([]history.Drift, error) {
	if s.ledger == nil {
		return nil, nil
	}
	if root == "" {
		cfg, err := s.Preferences(ctx)
		if err != nil {
			return nil, err
		}
		if root = cfg.OutputDir(); root == "" {
			return nil, apperr.Configuration("please select a destination")
		}
	}
	store, err := storage.NewFS(root)
	if err != nil {
		return nil, err
	}
	return history.Verify(s.ledger, store, s.log)
}
