package scene

import (
	"errors"
	"testing"

	"github.com/magebay99/multiexporter-hack/internal/document"
	"github.com/magebay99/multiexporter-hack/internal/geom"
)

func newCanvas(t *testing.T, h *Host) *Canvas {
	t.Helper()
	c, err := h.NewCanvas(nil, geom.R(0, 100, 200, 0))
	if err != nil {
		t.Fatalf("NewCanvas: %v", err)
	}
	return c.(*Canvas)
}

func TestHost_NewCanvas(t *testing.T) {
	h := &Host{}
	c := newCanvas(t, h)
	if h.Open() != 1 {
		t.Errorf("Open = %d", h.Open())
	}
	if w, ht := c.Size(); w != 200 || ht != 100 {
		t.Errorf("Size = %v x %v", w, ht)
	}
	if len(c.Layers()) != 0 {
		t.Errorf("new canvas has %d layers", len(c.Layers()))
	}
	if abs := c.Artboards(); len(abs) != 1 || !geom.Equal(abs[0].Rect, geom.R(0, 100, 200, 0)) {
		t.Errorf("Artboards = %+v", abs)
	}

	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if h.Open() != 0 || !c.Closed() {
		t.Errorf("Open = %d closed=%v", h.Open(), c.Closed())
	}

	if _, err := h.NewCanvas(nil, geom.R(10, 0, 0, 10)); err == nil {
		t.Error("invalid frame accepted")
	}
}

func TestCanvas_LayersAndItems(t *testing.T) {
	h := &Host{DriftX: 1, DriftY: -1}
	c := newCanvas(t, h)

	back, err := c.AddLayer(nil, document.Attributes{Name: "back", Opacity: 100})
	if err != nil {
		t.Fatal(err)
	}
	front, err := c.AddLayer(nil, document.Attributes{Name: "front", Opacity: 100})
	if err != nil {
		t.Fatal(err)
	}
	if got := c.Layers(); got[0] != front || got[1] != back {
		t.Fatal("new top-level layers must be front-most")
	}
	if c.ZPosition(front) != 2 || c.ZPosition(back) != 1 {
		t.Errorf("ZPosition front=%d back=%d", c.ZPosition(front), c.ZPosition(back))
	}

	child, err := c.AddLayer(back, document.Attributes{Name: "child"})
	if err != nil {
		t.Fatal(err)
	}
	src := NewItem(geom.R(10, 50, 30, 20), "#abc")
	if err := c.DuplicateItem(src, child); err != nil {
		t.Fatal(err)
	}
	got, ok := child.Items()[0].VisibleBounds()
	if !ok || !geom.Equal(got, geom.R(11, 49, 31, 19)) {
		t.Errorf("duplicate bounds = %v", got)
	}
	if b, _ := src.VisibleBounds(); !geom.Equal(b, geom.R(10, 50, 30, 20)) {
		t.Error("duplicating moved the source item")
	}

	if err := c.Translate(back, -1, 1); err != nil {
		t.Fatal(err)
	}
	if b, _ := document.Bounds(back); !geom.Equal(b, geom.R(10, 50, 30, 20)) {
		t.Errorf("translated bounds = %v", b)
	}

	if err := c.SendBackward(front); err != nil {
		t.Fatal(err)
	}
	if c.Layers()[1] != front {
		t.Error("SendBackward did not move the layer")
	}
	if err := c.SendBackward(front); err != nil {
		t.Errorf("SendBackward at the back: %v", err)
	}
	if err := c.BringForward(front); err != nil || c.Layers()[0] != front {
		t.Errorf("BringForward = %v", err)
	}
	if err := c.BringForward(child); err == nil {
		t.Error("reordering a nested layer should fail")
	}

	if err := c.RemoveLayer(child); err != nil {
		t.Fatal(err)
	}
	if len(back.Layers()) != 0 {
		t.Error("child not removed")
	}
}

func TestCanvas_Errors(t *testing.T) {
	h := &Host{}
	c := newCanvas(t, h)
	foreign := NewLayer("elsewhere")

	if err := c.DuplicateItem(NewItem(geom.R(0, 1, 1, 0), ""), foreign); !errors.Is(err, ErrForeignLayer) {
		t.Errorf("DuplicateItem into foreign layer: %v", err)
	}
	if err := c.RemoveLayer(foreign); !errors.Is(err, ErrForeignLayer) {
		t.Errorf("RemoveLayer foreign: %v", err)
	}

	l, err := c.AddLayer(nil, document.Attributes{Name: "x"})
	if err != nil {
		t.Fatal(err)
	}
	c.Close()
	if _, err := c.AddLayer(nil, document.Attributes{Name: "y"}); !errors.Is(err, ErrClosed) {
		t.Errorf("AddLayer after Close: %v", err)
	}
	if err := c.Translate(l, 1, 1); !errors.Is(err, ErrClosed) {
		t.Errorf("Translate after Close: %v", err)
	}
}
