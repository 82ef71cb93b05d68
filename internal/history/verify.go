package history

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/magebay99/multiexporter-hack/internal/storage"
)

// Drift is an exported file that no longer matches the ledger.
type Drift struct {
	Outcome Outcome `json:"outcome"`
	// Kind is "missing" or "changed".
	Kind string `json:"kind"`
}

// Verify compares the latest exported file for every path below the store
// root with what is on disk. Files outside the root are ignored.
func Verify(l Ledger, store storage.Provider, logger *slog.Logger) ([]Drift, error) {
	files, err := l.ExportedFiles()
	if err != nil {
		return nil, err
	}
	metas, err := store.List("")
	if err != nil {
		return nil, fmt.Errorf("history: list outputs: %w", err)
	}
	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Path] = m.Checksum
	}

	var out []Drift
	for _, o := range files {
		rel, err := filepath.Rel(store.Root(), o.Path)
		if err != nil || !filepath.IsLocal(rel) {
			continue
		}
		cs, ok := disk[filepath.ToSlash(rel)]
		switch {
		case !ok:
			out = append(out, Drift{Outcome: o, Kind: "missing"})
			logger.Debug("verify: missing", slog.String("path", o.Path))
		case o.Checksum != "" && cs != o.Checksum:
			out = append(out, Drift{Outcome: o, Kind: "changed"})
			logger.Debug("verify: changed", slog.String("path", o.Path))
		}
	}
	return out, nil
}
