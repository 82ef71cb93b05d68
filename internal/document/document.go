// Package document defines the read and mutation surface of a vector
// document that the export planner, synthesizer and orchestrator consume.
//
// Layer lists are ordered front-most first: index 0 is drawn on top.
package document

import (
	"strings"

	"github.com/magebay99/multiexporter-hack/internal/geom"
)

// Artboard is an immutable snapshot of one output canvas region.
type Artboard struct {
	Index int       `json:"index"`
	Name  string    `json:"name"`
	Rect  geom.Rect `json:"rect"`
}

// Item is an opaque page item. Only its bounds are ever inspected.
type Item interface {
	// Guide reports whether the item is a guide, which never has visible bounds.
	Guide() bool
	// VisibleBounds returns the drawn extent of the item.
	VisibleBounds() (geom.Rect, bool)
}

// Attributes are the presentation attributes carried over when a layer is copied.
type Attributes struct {
	Name            string  `json:"name" yaml:"name"`
	BlendMode       string  `json:"blend_mode,omitempty" yaml:"blend_mode,omitempty"`
	Color           string  `json:"color,omitempty" yaml:"color,omitempty"`
	Opacity         float64 `json:"opacity" yaml:"opacity"`
	Knockout        bool    `json:"knockout,omitempty" yaml:"knockout,omitempty"`
	Isolated        bool    `json:"isolated,omitempty" yaml:"isolated,omitempty"`
	Printable       bool    `json:"printable" yaml:"printable"`
	Sliced          bool    `json:"sliced,omitempty" yaml:"sliced,omitempty"`
	DimPlacedImages bool    `json:"dim_placed_images,omitempty" yaml:"dim_placed_images,omitempty"`
	Preview         bool    `json:"preview" yaml:"preview"`
}

// Layer is a named, nestable visibility unit.
type Layer interface {
	Name() string
	Visible() bool
	SetVisible(v bool)
	HasSelectedArtwork() bool
	Attributes() Attributes
	Layers() []Layer
	Items() []Item
}

// Document is the read surface of an open document.
type Document interface {
	Artboards() []Artboard
	ActiveArtboard() int
	Layers() []Layer
	Size() (width, height float64)
}

// Canvas is a synthesized, throwaway document that receives copies of
// source layers and items.
type Canvas interface {
	Document

	// AddLayer creates a layer at the front of parent's children, or at the
	// front of the top-level list when parent is nil.
	AddLayer(parent Layer, attrs Attributes) (Layer, error)
	// DuplicateItem appends a copy of item to the end of into's items.
	DuplicateItem(item Item, into Layer) error
	// Translate moves every item of layer and its descendants.
	Translate(layer Layer, dx, dy float64) error
	// ZPosition is the 1-based stacking position of a top-level layer
	// counted from the back.
	ZPosition(layer Layer) int
	BringForward(layer Layer) error
	SendBackward(layer Layer) error
	RemoveLayer(layer Layer) error
	// Close discards the canvas without persisting anything.
	Close() error
}

// Host creates canvases. frame is the canvas artboard in the source
// document's coordinate space.
type Host interface {
	NewCanvas(src Document, frame geom.Rect) (Canvas, error)
}

// AdditionalPrefix flags a layer that is always drawn with every layer job
// and never exported on its own.
const AdditionalPrefix = "+"

// IsAdditional reports whether l is a visible additional layer.
func IsAdditional(l Layer) bool {
	return strings.HasPrefix(l.Name(), AdditionalPrefix) && l.Visible()
}

// Included returns the predicate for layers that take part in an export:
// visible and not the reserved preferences layer.
func Included(reserved string) func(Layer) bool {
	return func(l Layer) bool {
		return l.Visible() && l.Name() != reserved
	}
}
