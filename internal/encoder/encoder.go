// Package encoder turns synthesized documents into files. The renderings
// are schematic: every item is drawn as its bounding box.
package encoder

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/magebay99/multiexporter-hack/internal/document"
	"github.com/magebay99/multiexporter-hack/internal/format"
	"github.com/magebay99/multiexporter-hack/internal/geom"
	"github.com/magebay99/multiexporter-hack/internal/storage"
)

// Files writes each target to disk through storage.FS atomic writes.
type Files struct {
	log *slog.Logger
}

var _ format.Encoder = (*Files)(nil)

// NewFiles creates a file encoder.
func NewFiles(log *slog.Logger) *Files {
	if log == nil {
		log = slog.Default()
	}
	return &Files{log: log}
}

// Materialize renders t and writes it to t.Path.
func (f *Files) Materialize(ctx context.Context, t format.Target) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s, err := snapshot(t.Doc, t.Artboard)
	if err != nil {
		return err
	}

	var data []byte
	switch t.Kind {
	case format.SVG:
		data, err = renderSVG(s)
	case format.PNG8, format.PNG24, format.JPG:
		data, err = renderRaster(s, t.Kind, t.Options)
	default:
		data, err = renderManifest(s, t.Kind, t.Options)
	}
	if err != nil {
		return fmt.Errorf("encoder: render %s: %w", t.Kind, err)
	}

	dir, name := filepath.Split(t.Path)
	store, err := storage.EnsureFS(dir)
	if err != nil {
		return fmt.Errorf("encoder: %w", err)
	}
	if err := store.Write(name, data); err != nil {
		return fmt.Errorf("encoder: %w", err)
	}
	f.log.Debug("encoder: wrote",
		slog.String("path", t.Path),
		slog.String("format", t.Kind.String()),
		slog.Int("bytes", len(data)),
	)
	return nil
}

// scene is the flattened content of one artboard.
type scene struct {
	name   string
	frame  geom.Rect
	layers []drawnLayer
}

type drawnLayer struct {
	name  string
	boxes []drawnBox
}

type drawnBox struct {
	rect geom.Rect
	fill string
}

// filler is implemented by items that know their fill colour.
type filler interface {
	Fill() string
}

// snapshot collects the visible items of doc back to front. Item lists,
// like layer lists, are ordered front-most first.
func snapshot(doc document.Document, artboard int) (scene, error) {
	abs := doc.Artboards()
	if artboard < 0 || artboard >= len(abs) {
		return scene{}, fmt.Errorf("encoder: artboard %d out of range (%d artboards)", artboard, len(abs))
	}
	s := scene{name: abs[artboard].Name, frame: abs[artboard].Rect}
	layers := doc.Layers()
	for i := len(layers) - 1; i >= 0; i-- {
		if !layers[i].Visible() {
			continue
		}
		dl := drawnLayer{name: layers[i].Name()}
		collect(layers[i], &dl.boxes)
		s.layers = append(s.layers, dl)
	}
	return s, nil
}

func collect(l document.Layer, out *[]drawnBox) {
	children := l.Layers()
	for i := len(children) - 1; i >= 0; i-- {
		if children[i].Visible() {
			collect(children[i], out)
		}
	}
	items := l.Items()
	for i := len(items) - 1; i >= 0; i-- {
		it := items[i]
		r, ok := it.VisibleBounds()
		if !ok || it.Guide() {
			continue
		}
		b := drawnBox{rect: r}
		if f, ok := it.(filler); ok {
			b.fill = f.Fill()
		}
		*out = append(*out, b)
	}
}
