// Package scene is an in-memory document model loaded from a YAML scene
// file. It implements the document read, canvas and preference-record
// surfaces so the export pipeline can run without a host application.
package scene

import (
	"errors"
	"fmt"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/magebay99/multiexporter-hack/internal/document"
	"github.com/magebay99/multiexporter-hack/internal/geom"
	"github.com/magebay99/multiexporter-hack/internal/storage"
)

// ErrRecordFrames is returned when the preferences layer does not hold
// exactly one text frame.
var ErrRecordFrames = errors.New("scene: preferences layer must hold exactly one text frame")

// Item is a page item. Text frames carry contents; guides have no bounds.
type Item struct {
	bounds    geom.Rect
	hasBounds bool
	guide     bool
	fill      string
	text      string
	isText    bool
}

// NewItem returns a filled path item with the given bounds.
func NewItem(bounds geom.Rect, fill string) *Item {
	return &Item{bounds: bounds, hasBounds: true, fill: fill}
}

// NewGuide returns a guide item.
func NewGuide() *Item { return &Item{guide: true} }

func (it *Item) Guide() bool { return it.guide }

func (it *Item) VisibleBounds() (geom.Rect, bool) {
	if it.guide || !it.hasBounds {
		return geom.Rect{}, false
	}
	return it.bounds, true
}

// Fill returns the item's fill colour as written in the scene file.
func (it *Item) Fill() string { return it.fill }

// Text returns the contents of a text frame.
func (it *Item) Text() string { return it.text }

func (it *Item) clone() *Item {
	c := *it
	return &c
}

// Layer is a node of the layer tree.
type Layer struct {
	attrs    document.Attributes
	visible  bool
	selected bool
	parent   *Layer
	layers   []*Layer
	items    []*Item
}

// NewLayer returns a visible layer holding items.
func NewLayer(name string, items ...*Item) *Layer {
	return &Layer{
		attrs:   document.Attributes{Name: name, Opacity: 100, Printable: true, Preview: true},
		visible: true,
		items:   items,
	}
}

// Add appends children to l and returns l.
func (l *Layer) Add(children ...*Layer) *Layer {
	for _, c := range children {
		c.parent = l
		l.layers = append(l.layers, c)
	}
	return l
}

// Hidden marks l invisible and returns it.
func (l *Layer) Hidden() *Layer {
	l.visible = false
	return l
}

// Selected marks l as holding selected artwork and returns it.
func (l *Layer) Selected() *Layer {
	l.selected = true
	return l
}

func (l *Layer) Name() string { return l.attrs.Name }
func (l *Layer) Visible() bool { return l.visible }
func (l *Layer) SetVisible(v bool) { l.visible = v }
func (l *Layer) HasSelectedArtwork() bool { return l.selected }
func (l *Layer) Attributes() document.Attributes { return l.attrs }
func (l *Layer) SetAttributes(a document.Attributes) { l.attrs = a }

func (l *Layer) Layers() []document.Layer {
	out := make([]document.Layer, len(l.layers))
	for i, c := range l.layers {
		out[i] = c
	}
	return out
}

func (l *Layer) Items() []document.Item {
	out := make([]document.Item, len(l.items))
	for i, it := range l.items {
		out[i] = it
	}
	return out
}

func (l *Layer) textFrames() []*Item {
	var out []*Item
	for _, it := range l.items {
		if it.isText {
			out = append(out, it)
		}
	}
	return out
}

// Scene is a whole document.
type Scene struct {
	width, height float64
	active        int
	artboards     []document.Artboard
	layers        []*Layer
}

// New returns a scene with the given artboards and top-level layers
// (front-most first).
func New(width, height float64, artboards []document.Artboard, layers ...*Layer) *Scene {
	s := &Scene{width: width, height: height}
	for i, a := range artboards {
		a.Index = i
		s.artboards = append(s.artboards, a)
	}
	for _, l := range layers {
		l.parent = nil
		s.layers = append(s.layers, l)
	}
	return s
}

// SetActiveArtboard marks index as the active artboard.
func (s *Scene) SetActiveArtboard(index int) { s.active = index }

func (s *Scene) Artboards() []document.Artboard {
	out := make([]document.Artboard, len(s.artboards))
	copy(out, s.artboards)
	return out
}

func (s *Scene) ActiveArtboard() int { return s.active }

func (s *Scene) Layers() []document.Layer {
	out := make([]document.Layer, len(s.layers))
	for i, l := range s.layers {
		out[i] = l
	}
	return out
}

func (s *Scene) Size() (float64, float64) { return s.width, s.height }

// Parse decodes a YAML scene.
func Parse(data []byte) (*Scene, error) {
	var f sceneFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("scene: parse: %w", err)
	}
	s := &Scene{width: f.Width, height: f.Height, active: f.ActiveArtboard}
	for i, a := range f.Artboards {
		s.artboards = append(s.artboards, document.Artboard{Index: i, Name: a.Name, Rect: geom.Rect(a.Rect)})
	}
	if len(s.artboards) > 0 && (s.active < 0 || s.active >= len(s.artboards)) {
		return nil, fmt.Errorf("scene: active artboard %d out of range", s.active)
	}
	for _, lf := range f.Layers {
		s.layers = append(s.layers, lf.toLayer(nil))
	}
	return s, nil
}

// Marshal encodes the scene back to YAML.
func (s *Scene) Marshal() ([]byte, error) {
	f := sceneFile{Width: s.width, Height: s.height, ActiveArtboard: s.active}
	for _, a := range s.artboards {
		f.Artboards = append(f.Artboards, artboardFile{Name: a.Name, Rect: box(a.Rect)})
	}
	for _, l := range s.layers {
		f.Layers = append(f.Layers, fromLayer(l))
	}
	data, err := yaml.Marshal(&f)
	if err != nil {
		return nil, fmt.Errorf("scene: marshal: %w", err)
	}
	return data, nil
}

// Save atomically writes the scene to path.
func (s *Scene) Save(path string) error {
	data, err := s.Marshal()
	if err != nil {
		return err
	}
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	store, err := storage.NewFS(dir)
	if err != nil {
		return err
	}
	return store.Write(name, data)
}

func (s *Scene) topLayer(name string) *Layer {
	for _, l := range s.layers {
		if l.attrs.Name == name {
			return l
		}
	}
	return nil
}

// ReadRecord returns the contents of the single text frame on the
// top-level layer called layerName. found is false when no such layer exists.
func (s *Scene) ReadRecord(layerName string) (string, bool, error) {
	l := s.topLayer(layerName)
	if l == nil {
		return "", false, nil
	}
	frames := l.textFrames()
	if len(frames) != 1 {
		return "", true, fmt.Errorf("%w: %q has %d", ErrRecordFrames, layerName, len(frames))
	}
	return frames[0].text, true, nil
}

// WriteRecord stores text in the preferences layer, creating a hidden,
// non-printable layer with one text frame when it does not exist yet.
func (s *Scene) WriteRecord(layerName, text string) error {
	l := s.topLayer(layerName)
	if l == nil {
		l = NewLayer(layerName, &Item{isText: true, text: text})
		l.visible = false
		l.attrs.Printable = false
		s.layers = append([]*Layer{l}, s.layers...)
		return nil
	}
	frames := l.textFrames()
	if len(frames) != 1 {
		return fmt.Errorf("%w: %q has %d", ErrRecordFrames, layerName, len(frames))
	}
	frames[0].text = text
	return nil
}
