package scene

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/magebay99/multiexporter-hack/internal/document"
	"github.com/magebay99/multiexporter-hack/internal/geom"
)

const twoBoards = `width: 400
height: 200
active_artboard: 1
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
      - guide: true
  - name: Draft
    visible: false
    opacity: 40
    layers:
      - name: Sketch
        items:
          - bounds: [0, 10, 10, 0]
`

func TestParse(t *testing.T) {
	s, err := Parse([]byte(twoBoards))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if w, h := s.Size(); w != 400 || h != 200 {
		t.Errorf("Size = %v x %v", w, h)
	}
	if s.ActiveArtboard() != 1 {
		t.Errorf("ActiveArtboard = %d", s.ActiveArtboard())
	}
	abs := s.Artboards()
	if len(abs) != 2 || abs[1].Index != 1 || abs[1].Name != "Back" || !geom.Equal(abs[1].Rect, geom.R(200, 200, 400, 0)) {
		t.Fatalf("Artboards = %+v", abs)
	}

	layers := s.Layers()
	if len(layers) != 2 {
		t.Fatalf("got %d layers", len(layers))
	}
	logo, draft := layers[0], layers[1]
	if !logo.Visible() || logo.Attributes().Opacity != 100 || !logo.Attributes().Printable {
		t.Errorf("Logo defaults = %+v visible=%v", logo.Attributes(), logo.Visible())
	}
	if len(logo.Items()) != 2 || !logo.Items()[1].Guide() {
		t.Errorf("Logo items = %d", len(logo.Items()))
	}
	if draft.Visible() || draft.Attributes().Opacity != 40 {
		t.Errorf("Draft = %+v visible=%v", draft.Attributes(), draft.Visible())
	}
	if len(draft.Layers()) != 1 || draft.Layers()[0].Name() != "Sketch" {
		t.Errorf("Draft children = %v", draft.Layers())
	}
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]string{
		"bad yaml":     "width: [",
		"short rect":   "artboards:\n  - name: A\n    rect: [0, 1, 2]\n",
		"active range": "active_artboard: 3\nartboards:\n  - name: A\n    rect: [0, 10, 10, 0]\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestMarshal_RoundTrip(t *testing.T) {
	s, err := Parse([]byte(twoBoards))
	if err != nil {
		t.Fatal(err)
	}
	data, err := s.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(data), "[200, 200, 400, 0]") {
		t.Errorf("rect not written as a flow sequence:\n%s", data)
	}
	again, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse(Marshal): %v", err)
	}
	if again.Layers()[1].Visible() || again.Layers()[1].Attributes().Opacity != 40 {
		t.Error("Draft attributes lost")
	}
	if again.ActiveArtboard() != 1 {
		t.Errorf("ActiveArtboard = %d", again.ActiveArtboard())
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	s := New(100, 100, []document.Artboard{{Name: "Only", Rect: geom.R(0, 100, 100, 0)}},
		NewLayer("Art", NewItem(geom.R(10, 90, 90, 10), "#123456")))
	if err := s.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	got, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	items := got.Layers()[0].Items()
	if len(items) != 1 || items[0].(*Item).Fill() != "#123456" {
		t.Errorf("items = %+v", items)
	}
}

func TestRecord(t *testing.T) {
	s := New(10, 10, nil, NewLayer("Art"))

	if _, found, err := s.ReadRecord("info"); found || err != nil {
		t.Fatalf("ReadRecord on fresh scene = %v, %v", found, err)
	}
	if err := s.WriteRecord("info", "<a>1</a>"); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}
	top := s.Layers()[0]
	if top.Name() != "info" || top.Visible() || top.Attributes().Printable {
		t.Errorf("record layer = %q visible=%v printable=%v", top.Name(), top.Visible(), top.Attributes().Printable)
	}

	if err := s.WriteRecord("info", "<a>2</a>"); err != nil {
		t.Fatalf("WriteRecord update: %v", err)
	}
	text, found, err := s.ReadRecord("info")
	if err != nil || !found || text != "<a>2</a>" {
		t.Errorf("ReadRecord = %q, %v, %v", text, found, err)
	}
	if len(s.Layers()) != 2 {
		t.Errorf("update added a layer: %d layers", len(s.Layers()))
	}

	// Record survives a file round trip.
	data, err := s.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	again, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if text, _, _ := again.ReadRecord("info"); text != "<a>2</a>" {
		t.Errorf("reloaded record = %q", text)
	}
}

func TestRecord_FrameCount(t *testing.T) {
	s, err := Parse([]byte("layers:\n  - name: info\n    items:\n      - text: one\n      - text: two\n"))
	if err != nil {
		t.Fatal(err)
	}
	if _, found, err := s.ReadRecord("info"); !found || !errors.Is(err, ErrRecordFrames) {
		t.Errorf("ReadRecord = %v, %v", found, err)
	}
	if err := s.WriteRecord("info", "x"); !errors.Is(err, ErrRecordFrames) {
		t.Errorf("WriteRecord err = %v", err)
	}
}
