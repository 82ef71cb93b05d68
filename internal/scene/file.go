package scene

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/magebay99/multiexporter-hack/internal/document"
	"github.com/magebay99/multiexporter-hack/internal/geom"
)

// box is a rectangle written as a flow sequence [left, top, right, bottom].
type box geom.Rect

func (b *box) UnmarshalYAML(node *yaml.Node) error {
	var v []float64
	if err := node.Decode(&v); err != nil {
		return err
	}
	if len(v) != 4 {
		return fmt.Errorf("scene: line %d: rect needs 4 values, got %d", node.Line, len(v))
	}
	*b = box{Left: v[0], Top: v[1], Right: v[2], Bottom: v[3]}
	return nil
}

func (b box) MarshalYAML() (interface{}, error) {
	n := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, v := range []float64{b.Left, b.Top, b.Right, b.Bottom} {
		n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: strconv.FormatFloat(v, 'f', -1, 64)})
	}
	return n, nil
}

type sceneFile struct {
	Width          float64        `yaml:"width"`
	Height         float64        `yaml:"height"`
	ActiveArtboard int            `yaml:"active_artboard"`
	Artboards      []artboardFile `yaml:"artboards"`
	Layers         []layerFile    `yaml:"layers"`
}

type artboardFile struct {
	Name string `yaml:"name"`
	Rect box    `yaml:"rect"`
}

type layerFile struct {
	Name      string      `yaml:"name"`
	Visible   *bool       `yaml:"visible,omitempty"`
	Selected  bool        `yaml:"selected,omitempty"`
	BlendMode string      `yaml:"blend_mode,omitempty"`
	Color     string      `yaml:"color,omitempty"`
	Opacity   *float64    `yaml:"opacity,omitempty"`
	Printable *bool       `yaml:"printable,omitempty"`
	Knockout  bool        `yaml:"knockout,omitempty"`
	Isolated  bool        `yaml:"isolated,omitempty"`
	Sliced    bool        `yaml:"sliced,omitempty"`
	Items     []itemFile  `yaml:"items,omitempty"`
	Layers    []layerFile `yaml:"layers,omitempty"`
}

type itemFile struct {
	Bounds *box   `yaml:"bounds,omitempty"`
	Guide  bool   `yaml:"guide,omitempty"`
	Fill   string `yaml:"fill,omitempty"`
	Text   string `yaml:"text,omitempty"`
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func (f layerFile) toLayer(parent *Layer) *Layer {
	opacity := 100.0
	if f.Opacity != nil {
		opacity = *f.Opacity
	}
	l := &Layer{
		attrs: document.Attributes{
			Name:      f.Name,
			BlendMode: f.BlendMode,
			Color:     f.Color,
			Opacity:   opacity,
			Knockout:  f.Knockout,
			Isolated:  f.Isolated,
			Printable: boolOr(f.Printable, true),
			Sliced:    f.Sliced,
			Preview:   true,
		},
		visible:  boolOr(f.Visible, true),
		selected: f.Selected,
		parent:   parent,
	}
	for _, it := range f.Items {
		item := &Item{guide: it.Guide, fill: it.Fill, text: it.Text, isText: it.Text != ""}
		if it.Bounds != nil {
			item.bounds = geom.Rect(*it.Bounds)
			item.hasBounds = true
		}
		l.items = append(l.items, item)
	}
	for _, child := range f.Layers {
		l.layers = append(l.layers, child.toLayer(l))
	}
	return l
}

func fromLayer(l *Layer) layerFile {
	visible := l.visible
	printable := l.attrs.Printable
	opacity := l.attrs.Opacity
	f := layerFile{
		Name:      l.attrs.Name,
		Visible:   &visible,
		Selected:  l.selected,
		BlendMode: l.attrs.BlendMode,
		Color:     l.attrs.Color,
		Opacity:   &opacity,
		Printable: &printable,
		Knockout:  l.attrs.Knockout,
		Isolated:  l.attrs.Isolated,
		Sliced:    l.attrs.Sliced,
	}
	for _, it := range l.items {
		itf := itemFile{Guide: it.guide, Fill: it.fill, Text: it.text}
		if it.hasBounds {
			b := box(it.bounds)
			itf.Bounds = &b
		}
		f.Items = append(f.Items, itf)
	}
	for _, child := range l.layers {
		f.Layers = append(f.Layers, fromLayer(child))
	}
	return f
}
