// Package synth builds throwaway canvases holding copies of the layers a
// single export job needs, shifted so the target artboard lines up with
// the canvas origin.
package synth

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/magebay99/multiexporter-hack/internal/document"
	"github.com/magebay99/multiexporter-hack/internal/geom"
)

// Offset is the shift applied to copied top-level layers. Normalized is set
// once the first bounded copy has corrected for host placement drift.
type Offset struct {
	X, Y       float64
	Normalized bool
}

// BaseOffset is the shift that moves target onto first, the first artboard
// of the document.
func BaseOffset(first, target geom.Rect) Offset {
	return Offset{X: first.Left - target.Left, Y: first.Top - target.Top}
}

// Add returns o shifted by (dx, dy).
func (o Offset) Add(dx, dy float64) Offset {
	o.X += dx
	o.Y += dy
	return o
}

// CanvasFrame is a w by h canvas artboard anchored at origin's top-left corner.
func CanvasFrame(origin geom.Rect, w, h float64) geom.Rect {
	return geom.R(origin.Left, origin.Top, origin.Left+w, origin.Top-h)
}

// CopyPlan is the read-only result of the first pass over the source layers.
type CopyPlan struct {
	// Order holds the top-level indices to copy, back to front.
	Order []int
	// Depth maps each rejected top-level index to the 1-based stacking
	// position, counted from the back, it would have among the copies.
	Depth map[int]int
}

// PlanCopy selects the top-level layers that pass include and whose bounds
// intersect rect.
func PlanCopy(layers []document.Layer, rect geom.Rect, include func(document.Layer) bool) CopyPlan {
	p := CopyPlan{Depth: make(map[int]int)}
	count := 1
	for i := len(layers) - 1; i >= 0; i-- {
		l := layers[i]
		if !include(l) {
			p.Depth[i] = count
			continue
		}
		if b, ok := document.Bounds(l); ok && geom.Intersects(rect, b) {
			p.Order = append(p.Order, i)
			count++
		}
	}
	return p
}

// Frame places a synthesized canvas.
type Frame struct {
	// Artboard is the target artboard in source coordinates.
	Artboard geom.Rect
	// Canvas is the canvas artboard in canvas coordinates.
	Canvas geom.Rect
	Offset Offset
}

// Synthesis is a built canvas together with the bookkeeping needed to
// isolate further layers into it.
type Synthesis struct {
	Canvas document.Canvas
	Offset Offset
	Depth  map[int]int
}

// Close discards the canvas.
func (s *Synthesis) Close() error { return s.Canvas.Close() }

// Synthesizer copies layers from a source document into host canvases.
type Synthesizer struct {
	host document.Host
	log  *slog.Logger
}

// New creates a Synthesizer.
func New(host document.Host, log *slog.Logger) *Synthesizer {
	if log == nil {
		log = slog.Default()
	}
	return &Synthesizer{host: host, log: log}
}

// Build creates a canvas and copies into it every top-level layer of src
// selected by PlanCopy. The canvas is closed when copying fails.
func (s *Synthesizer) Build(src document.Document, f Frame, include func(document.Layer) bool) (*Synthesis, error) {
	layers := src.Layers()
	plan := PlanCopy(layers, f.Artboard, include)

	c, err := s.host.NewCanvas(src, f.Canvas)
	if err != nil {
		return nil, fmt.Errorf("synth: new canvas: %w", err)
	}
	off := f.Offset
	for _, i := range plan.Order {
		if _, off, err = s.copyLayer(c, layers[i], nil, off); err != nil {
			_ = c.Close()
			return nil, err
		}
	}
	return &Synthesis{Canvas: c, Offset: off, Depth: plan.Depth}, nil
}

// Isolate copies src on top of the canvas, makes it visible and moves it to
// depth. A layer that fails part way is removed again.
func (s *Synthesizer) Isolate(syn *Synthesis, src document.Layer, depth int) (document.Layer, error) {
	c := syn.Canvas
	l, off, err := s.copyLayer(c, src, nil, syn.Offset)
	if err == nil {
		l.SetVisible(true)
		err = restack(c, l, depth)
	}
	if err != nil {
		if l != nil {
			if rmErr := c.RemoveLayer(l); rmErr != nil {
				err = errors.Join(err, rmErr)
			}
		}
		return nil, err
	}
	syn.Offset = off
	return l, nil
}

// restack moves l one step at a time until its stacking position is depth.
// A depth of zero leaves l on top.
func restack(c document.Canvas, l document.Layer, depth int) error {
	if depth <= 0 {
		return nil
	}
	for steps := len(c.Layers()); steps > 0; steps-- {
		z := c.ZPosition(l)
		var err error
		switch {
		case z < depth:
			err = c.BringForward(l)
		case z > depth:
			err = c.SendBackward(l)
		default:
			return nil
		}
		if err != nil {
			return fmt.Errorf("synth: restack %q: %w", l.Name(), err)
		}
	}
	return nil
}

// copyLayer copies src with its items and visible children into a new layer
// under parent, or at the top level when parent is nil.
func (s *Synthesizer) copyLayer(c document.Canvas, src document.Layer, parent document.Layer, off Offset) (document.Layer, Offset, error) {
	dst, err := c.AddLayer(parent, src.Attributes())
	if err != nil {
		return nil, off, fmt.Errorf("synth: add layer %q: %w", src.Name(), err)
	}

	var before geom.Rect
	var hadBefore bool
	if !off.Normalized {
		before, hadBefore = document.VisibleBounds(src)
	}

	for _, it := range src.Items() {
		if err := c.DuplicateItem(it, dst); err != nil {
			return dst, off, fmt.Errorf("synth: duplicate item on %q: %w", src.Name(), err)
		}
	}
	children := src.Layers()
	for i := len(children) - 1; i >= 0; i-- {
		if !children[i].Visible() {
			continue
		}
		if _, off, err = s.copyLayer(c, children[i], dst, off); err != nil {
			return dst, off, err
		}
	}

	if !off.Normalized && hadBefore {
		if after, ok := settledBounds(func() (geom.Rect, bool) { return document.Bounds(dst) }, before); ok {
			off = off.Add(before.Left-after.Left, before.Top-after.Top)
			off.Normalized = true
			s.log.Debug("synth: offset normalized",
				slog.String("layer", src.Name()),
				slog.Float64("x", off.X),
				slog.Float64("y", off.Y),
			)
		}
	}

	if parent == nil {
		if err := c.Translate(dst, off.X, off.Y); err != nil {
			return dst, off, fmt.Errorf("synth: translate %q: %w", src.Name(), err)
		}
	}
	return dst, off, nil
}

// settledBounds queries the bounds of a fresh copy. A copy reporting exactly
// the source bounds may not have settled yet, so it is queried once more.
func settledBounds(query func() (geom.Rect, bool), source geom.Rect) (geom.Rect, bool) {
	r, ok := query()
	if ok && geom.Equal(r, source) {
		r, ok = query()
	}
	return r, ok
}
