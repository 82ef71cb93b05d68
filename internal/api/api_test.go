package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/magebay99/multiexporter-hack/internal/exportservice"
	"github.com/magebay99/multiexporter-hack/internal/prefs"
	"github.com/magebay99/multiexporter-hack/internal/testutil"
)

// testEnv sets up a temp scene, output dir, history DB, service, and router.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) (*exportservice.Service, http.Handler) {
	t.Helper()
	return testEnvWithSSE(t, authToken, nil)
}

func testEnvWithSSE(t *testing.T, authToken string, sse http.Handler) (*exportservice.Service, http.Handler) {
	t.Helper()
	out, _ := testutil.TestOutput(t)
	svc := exportservice.NewService(testutil.TestScene(t, ""), testutil.TestDB(t))
	if _, err := svc.SetPreferences(context.Background(), map[string]string{prefs.KeyBasePath: out}); err != nil {
		t.Fatalf("SetPreferences: %v", err)
	}
	return svc, NewRouter(svc, authToken != "", authToken, sse)
}

func do(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func TestListFormats(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/formats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decode[FormatsResponse](t, w)
	if len(resp.Formats) != 8 || resp.Formats[1].Name != "PNG 24" {
		t.Errorf("formats = %+v", resp.Formats)
	}
}

func TestPlanEndpoint(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/plan", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	view := decode[map[string]any](t, w)
	if view["total"] != float64(6) {
		t.Errorf("total = %v", view["total"])
	}
	if !strings.HasPrefix(view["summary"].(string), "Will export 6 files") {
		t.Errorf("summary = %v", view["summary"])
	}
}

func TestPreferences_GetAndUpdate(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPut, "/preferences", map[string]string{prefs.KeyLayers: "none", prefs.KeyPrefix: "nyt-"})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/preferences", nil)
	cfg := decode[map[string]any](t, w)
	if cfg["layers"] != "none" || cfg["prefix"] != "nyt-" {
		t.Errorf("preferences = %v", cfg)
	}

	w = do(t, router, http.MethodGet, "/plan", nil)
	if view := decode[map[string]any](t, w); view["summary"] != "Will export 2 of 2 artboards" {
		t.Errorf("summary = %v", view["summary"])
	}
}

func TestPreferences_InvalidUpdate(t *testing.T) {
	_, router := testEnv(t, "")

	for name, body := range map[string]any{
		"unknown key": map[string]string{"colour": "red"},
		"bad scaling": map[string]string{prefs.KeyScaling: "-5"},
		"bad format":  map[string]string{prefs.KeyFormat: "BMP"},
		"bad boolean": map[string]string{prefs.KeyTransparency: "yes"},
		"empty":       map[string]string{},
	} {
		if w := do(t, router, http.MethodPut, "/preferences", body); w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400 (%s)", name, w.Code, w.Body.String())
		}
	}

	req := httptest.NewRequest(http.MethodPut, "/preferences", strings.NewReader("{"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid JSON = %d, want 400", w.Code)
	}
}

func TestExportAndRuns(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/export?retry=1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export status = %d, body = %s", w.Code, w.Body.String())
	}
	report := decode[ExportReport](t, w)
	if report.Run.Exported != 6 || report.Run.ID == "" {
		t.Fatalf("run = %+v", report.Run)
	}

	w = do(t, router, http.MethodGet, "/runs", nil)
	runs := decode[RunListResponse](t, w)
	if runs.Total != 1 || runs.Runs[0].ID != report.Run.ID {
		t.Errorf("runs = %+v", runs)
	}

	w = do(t, router, http.MethodGet, "/runs/"+report.Run.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get run = %d", w.Code)
	}
	if detail := decode[RunDetail](t, w); len(detail.Outcomes) != 6 {
		t.Errorf("outcomes = %d, want 6", len(detail.Outcomes))
	}

	w = do(t, router, http.MethodGet, "/verify", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"drift":[]`) {
		t.Errorf("verify = %d %s", w.Code, w.Body.String())
	}
}

func TestExport_DryRun(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/export?dry_run=true", nil)
	report := decode[ExportReport](t, w)
	if len(report.Targets) != 6 {
		t.Errorf("targets = %d, want 6", len(report.Targets))
	}
	if runs := decode[RunListResponse](t, do(t, router, http.MethodGet, "/runs", nil)); runs.Total != 0 {
		t.Errorf("dry run recorded %d runs", runs.Total)
	}
}

func TestExport_BadRetry(t *testing.T) {
	_, router := testEnv(t, "")
	if w := do(t, router, http.MethodPost, "/export?retry=-1", nil); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestExport_NoDestination(t *testing.T) {
	svc, router := testEnv(t, "")
	if _, err := svc.SetPreferences(context.Background(), map[string]string{prefs.KeyBasePath: ""}); err != nil {
		t.Fatal(err)
	}
	if w := do(t, router, http.MethodPost, "/export", nil); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422 (%s)", w.Code, w.Body.String())
	}
}

func TestGetRun_NotFound(t *testing.T) {
	_, router := testEnv(t, "")
	if w := do(t, router, http.MethodGet, "/runs/nope", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing run = %d, want 404", w.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	do(t, router, http.MethodPost, "/export", nil)

	w := do(t, router, http.MethodGet, "/search?q=Logo", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search status = %d", w.Code)
	}
	if resp := decode[SearchResponse](t, w); len(resp.Results) == 0 {
		t.Error("expected search hits for Logo")
	}
}

func TestSearchMissingQuery(t *testing.T) {
	_, router := testEnv(t, "")
	if w := do(t, router, http.MethodGet, "/search", nil); w.Code != http.StatusBadRequest {
		t.Errorf("search no query = %d, want 400", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/formats", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authed = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")
	if w := do(t, router, http.MethodGet, "/formats", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/formats", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

// stubSSE writes headers and blocks until the request context is done.
var stubSSE = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	_, router := testEnvWithSSE(t, "secret", stubSSE)
	if w := do(t, router, http.MethodGet, "/events", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	_, router := testEnvWithSSE(t, "tok", stubSSE)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with valid token = %d, want 200", w.Code)
	}
}
