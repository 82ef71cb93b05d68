package exportservice

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/magebay99/multiexporter-hack/internal/apperr"
	"github.com/magebay99/multiexporter-hack/internal/history"
	"github.com/magebay99/multiexporter-hack/internal/prefs"
	"github.com/magebay99/multiexporter-hack/internal/progress"
	"github.com/magebay99/multiexporter-hack/internal/testutil"
	"github.com/magebay99/multiexporter-hack/internal/watch"
)

func setup(t *testing.T, opts ...Option) (*Service, string, string) {
	t.Helper()
	scenePath := testutil.TestScene(t, "")
	out, _ := testutil.TestOutput(t)
	svc := NewService(scenePath, testutil.TestDB(t), opts...)
	if _, err := svc.SetPreferences(context.Background(), map[string]string{prefs.KeyBasePath: out}); err != nil {
		t.Fatalf("SetPreferences: %v", err)
	}
	return svc, scenePath, out
}

func TestPreferences_InitializesRecord(t *testing.T) {
	scenePath := testutil.TestScene(t, "")
	svc := NewService(scenePath, nil)

	cfg, err := svc.Preferences(context.Background())
	if err != nil {
		t.Fatalf("Preferences: %v", err)
	}
	if cfg.Format != "PNG 24" {
		t.Errorf("format = %q", cfg.Format)
	}
	data, _ := os.ReadFile(scenePath)
	if !strings.Contains(string(data), prefs.LayerName) {
		t.Error("record layer not written back to the scene")
	}
}

func TestSetPreferences_InvalidLeavesSceneUntouched(t *testing.T) {
	svc, scenePath, _ := setup(t)
	before, _ := os.ReadFile(scenePath)

	_, err := svc.SetPreferences(context.Background(), map[string]string{
		prefs.KeyPrefix:  "x-",
		prefs.KeyScaling: "big",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	after, _ := os.ReadFile(scenePath)
	if string(before) != string(after) {
		t.Error("scene changed after a rejected update")
	}
}

func TestPlan(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	view, err := svc.Plan(ctx)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if view.Total != 6 {
		t.Errorf("total = %d, want 6", view.Total)
	}
	if want := "Will export 6 files (3 layers × 2 artboards)"; view.Summary != want {
		t.Errorf("summary = %q, want %q", view.Summary, want)
	}

	again, _ := svc.Plan(ctx)
	if again.Checksum != view.Checksum || again.Summary != view.Summary {
		t.Error("plan changed without a scene change")
	}

	if _, err := svc.SetPreferences(ctx, map[string]string{prefs.KeyLayers: prefs.None}); err != nil {
		t.Fatal(err)
	}
	view, _ = svc.Plan(ctx)
	if want := "Will export 2 of 2 artboards"; view.Summary != want {
		t.Errorf("summary = %q, want %q", view.Summary, want)
	}
}

func TestPlan_MissingScene(t *testing.T) {
	svc := NewService(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	if _, err := svc.Plan(context.Background()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestExport_WritesFilesAndHistory(t *testing.T) {
	svc, _, out := setup(t)
	ctx := context.Background()

	report, err := svc.Export(ctx, ExportRequest{})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !report.Result.OK() || report.Result.Exported != 6 {
		t.Fatalf("result = %+v", report.Result)
	}
	for _, name := range []string{"Cover-Logo.png", "Cover-Cover.png", "Back-Back.png"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}

	runs, total, err := svc.Runs(ctx, 10, 0)
	if err != nil || total != 1 || len(runs) != 1 {
		t.Fatalf("Runs = %v, %d, %v", runs, total, err)
	}
	run, outcomes, err := svc.Run(ctx, report.Run.ID)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Exported != 6 || len(outcomes) != 6 {
		t.Errorf("run = %+v, outcomes = %d", run, len(outcomes))
	}
	for _, o := range outcomes {
		if o.Status != history.StatusExported || o.Checksum == "" {
			t.Errorf("outcome = %+v", o)
		}
	}

	if err := os.WriteFile(filepath.Join(out, "Back-Back.png"), []byte("edited"), 0o644); err != nil {
		t.Fatal(err)
	}
	drift, err := svc.Verify(ctx, "")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(drift) != 1 || drift[0].Kind != "changed" || drift[0].Outcome.Label != "Back-Back" {
		t.Errorf("drift = %+v", drift)
	}
}

func TestExport_RetryAndFailure(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	report, err := svc.Export(ctx, ExportRequest{Retry: 1, FailLabels: []string{"Cover-Logo"}})
	if err != nil {
		t.Fatal(err)
	}
	if report.Result.Attempts != 2 || !report.Result.OK() {
		t.Errorf("result = %+v", report.Result)
	}

	report, err = svc.Export(ctx, ExportRequest{FailLabels: []string{"Cover-Logo"}})
	if err != nil {
		t.Fatal(err)
	}
	if report.Run.Failed != 1 || report.Run.Exported != 5 {
		t.Errorf("run = %+v", report.Run)
	}
	last := report.Outcomes[len(report.Outcomes)-1]
	if last.Status != history.StatusFailed || !strings.Contains(last.Detail, "injected") {
		t.Errorf("failed outcome = %+v", last)
	}
}

func TestExport_DryRun(t *testing.T) {
	svc, _, out := setup(t)
	ctx := context.Background()

	report, err := svc.Export(ctx, ExportRequest{DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Targets) != 6 {
		t.Errorf("targets = %d, want 6", len(report.Targets))
	}
	entries, _ := os.ReadDir(out)
	if len(entries) != 0 {
		t.Errorf("dry run wrote %d files", len(entries))
	}
	if _, total, _ := svc.Runs(ctx, 10, 0); total != 0 {
		t.Errorf("dry run recorded %d runs", total)
	}
}

func TestExport_Busy(t *testing.T) {
	svc, _, _ := setup(t)
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if _, err := svc.Export(context.Background(), ExportRequest{}); !errors.Is(err, apperr.ErrBusy) {
		t.Errorf("err = %v, want ErrBusy", err)
	}
}

func TestExport_PublishesEvents(t *testing.T) {
	b := progress.NewBroker(time.Hour)
	defer b.Close()
	svc, _, _ := setup(t, WithBroker(b))
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	if _, err := svc.Export(context.Background(), ExportRequest{}); err != nil {
		t.Fatal(err)
	}

	seen := map[string]bool{}
	deadline := time.After(2 * time.Second)
	for len(seen) < 3 {
		select {
		case msg := <-ch:
			for _, typ := range []string{progress.TypeStarted, progress.TypeProgress, progress.TypeFinished} {
				if strings.HasPrefix(string(msg), "event: "+typ+"\n") {
					seen[typ] = true
				}
			}
		case <-deadline:
			t.Fatalf("events seen = %v", seen)
		}
	}
}

func TestSceneChanged_PublishesPlan(t *testing.T) {
	b := progress.NewBroker(time.Hour)
	defer b.Close()
	svc, scenePath, _ := setup(t, WithBroker(b))
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	svc.SceneChanged(watch.Change{Path: scenePath, Checksum: "x"})

	select {
	case msg := <-ch:
		if !strings.Contains(string(msg), "event: plan.updated") || !strings.Contains(string(msg), "Will export 6 files") {
			t.Errorf("event = %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("no plan.updated event")
	}
}

func TestImportScene(t *testing.T) {
	svc, scenePath, _ := setup(t)
	ctx := context.Background()

	one := `width: 100
height: 100
artboards:
  - name: Only
    rect: [0, 100, 100, 0]
layers:
  - name: Only
    items:
      - bounds: [10, 90, 90, 10]
`
	view, err := svc.ImportScene(ctx, []byte(one))
	if err != nil {
		t.Fatalf("ImportScene: %v", err)
	}
	if view.Total != 1 {
		t.Errorf("total = %d, want 1", view.Total)
	}

	if _, err := svc.ImportScene(ctx, []byte("width: [")); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
	data, _ := os.ReadFile(scenePath)
	if !strings.Contains(string(data), "name: Only") {
		t.Error("invalid import overwrote the scene")
	}
}
