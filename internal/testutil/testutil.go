// Package testutil provides shared test helpers for scenes, output
// directories and history databases.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/magebay99/multiexporter-hack/internal/history"
	"github.com/magebay99/multiexporter-hack/internal/storage"
)

// SceneYAML is a two-artboard scene. Each artboard has a layer of the same
// name; "Logo" spans both and "+Grid" is an additional layer.
const SceneYAML = `width: 400
height: 200
active_artboard: 0
artboards:
  - name: Cover
    rect: [0, 200, 200, 0]
  - name: Back
    rect: [200, 200, 400, 0]
layers:
  - name: Logo
    items:
      - bounds: [20, 180, 380, 150]
        fill: "#ff0000"
  - name: +Grid
    items:
      - bounds: [0, 200, 400, 0]
        fill: "#eeeeee"
  - name: Cover
    items:
      - bounds: [10, 140, 190, 10]
        fill: "#0000ff"
  - name: Back
    items:
      - bounds: [210, 140, 390, 10]
        fill: "#00ff00"
`

// TestDB creates a temporary history database that is automatically cleaned up.
func TestDB(t *testing.T) *history.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "multiexporter-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := history.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestScene writes content (SceneYAML when empty) to a scene file in a
// temporary directory and returns its path.
func TestScene(t *testing.T, content string) string {
	t.Helper()
	if content == "" {
		content = SceneYAML
	}
	path := filepath.Join(t.TempDir(), "scene.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestOutput creates a temporary output directory with a storage.Provider.
func TestOutput(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}
