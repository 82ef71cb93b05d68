package scene

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/magebay99/multiexporter-hack/internal/document"
	"github.com/magebay99/multiexporter-hack/internal/geom"
)

var (
	// ErrClosed is returned by any mutation on a closed canvas.
	ErrClosed = errors.New("scene: canvas is closed")
	// ErrForeignLayer is returned when a layer does not belong to the canvas.
	ErrForeignLayer = errors.New("scene: layer does not belong to this canvas")
)

// Host creates in-memory canvases and counts the ones still open.
type Host struct {
	// DriftX and DriftY displace every duplicated item, the way a real host
	// may place a copy slightly off its source.
	DriftX, DriftY float64

	open atomic.Int64
}

// Open returns the number of canvases created and not yet closed.
func (h *Host) Open() int { return int(h.open.Load()) }

// NewCanvas returns an empty canvas whose single artboard is frame.
func (h *Host) NewCanvas(_ document.Document, frame geom.Rect) (document.Canvas, error) {
	if !frame.Valid() {
		return nil, fmt.Errorf("scene: invalid canvas frame %v", frame)
	}
	h.open.Add(1)
	return &Canvas{
		Scene: &Scene{
			width:     frame.Width(),
			height:    frame.Height(),
			artboards: []document.Artboard{{Index: 0, Name: "canvas", Rect: frame}},
		},
		host: h,
	}, nil
}

// Canvas is a throwaway scene built by the synthesizer.
type Canvas struct {
	*Scene
	host   *Host
	closed bool
}

var _ document.Canvas = (*Canvas)(nil)

func (c *Canvas) layer(l document.Layer) (*Layer, error) {
	if c.closed {
		return nil, ErrClosed
	}
	sl, ok := l.(*Layer)
	if !ok {
		return nil, ErrForeignLayer
	}
	top := sl
	for top.parent != nil {
		top = top.parent
	}
	if c.topIndex(top) < 0 {
		return nil, ErrForeignLayer
	}
	return sl, nil
}

func (c *Canvas) topIndex(l *Layer) int {
	for i, t := range c.layers {
		if t == l {
			return i
		}
	}
	return -1
}

func (c *Canvas) AddLayer(parent document.Layer, attrs document.Attributes) (document.Layer, error) {
	if c.closed {
		return nil, ErrClosed
	}
	nl := &Layer{attrs: attrs, visible: true}
	if parent == nil {
		c.layers = append([]*Layer{nl}, c.layers...)
		return nl, nil
	}
	p, err := c.layer(parent)
	if err != nil {
		return nil, err
	}
	nl.parent = p
	p.layers = append([]*Layer{nl}, p.layers...)
	return nl, nil
}

func (c *Canvas) DuplicateItem(item document.Item, into document.Layer) error {
	dst, err := c.layer(into)
	if err != nil {
		return err
	}
	var dup *Item
	if src, ok := item.(*Item); ok {
		dup = src.clone()
	} else {
		dup = &Item{guide: item.Guide()}
		dup.bounds, dup.hasBounds = item.VisibleBounds()
	}
	if dup.hasBounds && c.host != nil {
		dup.bounds = dup.bounds.Translate(c.host.DriftX, c.host.DriftY)
	}
	dst.items = append(dst.items, dup)
	return nil
}

func (c *Canvas) Translate(l document.Layer, dx, dy float64) error {
	sl, err := c.layer(l)
	if err != nil {
		return err
	}
	shift(sl, dx, dy)
	return nil
}

func shift(l *Layer, dx, dy float64) {
	for _, it := range l.items {
		if it.hasBounds {
			it.bounds = it.bounds.Translate(dx, dy)
		}
	}
	for i := len(l.layers) - 1; i >= 0; i-- {
		shift(l.layers[i], dx, dy)
	}
}

func (c *Canvas) ZPosition(l document.Layer) int {
	sl, ok := l.(*Layer)
	if !ok {
		return 0
	}
	i := c.topIndex(sl)
	if i < 0 {
		return 0
	}
	return len(c.layers) - i
}

func (c *Canvas) BringForward(l document.Layer) error {
	return c.move(l, -1)
}

func (c *Canvas) SendBackward(l document.Layer) error {
	return c.move(l, 1)
}

func (c *Canvas) move(l document.Layer, step int) error {
	sl, err := c.layer(l)
	if err != nil {
		return err
	}
	i := c.topIndex(sl)
	if i < 0 {
		return fmt.Errorf("scene: only top-level layers can be reordered: %q", sl.Name())
	}
	j := i + step
	if j < 0 || j >= len(c.layers) {
		return nil
	}
	c.layers[i], c.layers[j] = c.layers[j], c.layers[i]
	return nil
}

func (c *Canvas) RemoveLayer(l document.Layer) error {
	sl, err := c.layer(l)
	if err != nil {
		return err
	}
	siblings := &c.layers
	if sl.parent != nil {
		siblings = &sl.parent.layers
	}
	for i, s := range *siblings {
		if s == sl {
			*siblings = append((*siblings)[:i], (*siblings)[i+1:]...)
			return nil
		}
	}
	return ErrForeignLayer
}

// Close discards the canvas. Closing twice is a no-op.
func (c *Canvas) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.host != nil {
		c.host.open.Add(-1)
	}
	return nil
}

// Closed reports whether Close has been called.
func (c *Canvas) Closed() bool { return c.closed }
