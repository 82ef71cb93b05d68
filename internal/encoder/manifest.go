package encoder

import (
	"gopkg.in/yaml.v3"

	"github.com/magebay99/multiexporter-hack/internal/format"
)

// manifest is the layout written for formats without a renderer.
type manifest struct {
	Format   string          `yaml:"format"`
	Artboard string          `yaml:"artboard"`
	Width    float64         `yaml:"width"`
	Height   float64         `yaml:"height"`
	Options  format.Options  `yaml:"options"`
	Layers   []manifestLayer `yaml:"layers"`
}

type manifestLayer struct {
	Name  string         `yaml:"name"`
	Items []manifestItem `yaml:"items,omitempty"`
}

// manifestItem bounds are [x, y, width, height] measured from the
// artboard's top-left corner.
type manifestItem struct {
	Bounds [4]float64 `yaml:"bounds,flow"`
	Fill   string     `yaml:"fill,omitempty"`
}

func renderManifest(s scene, kind format.Kind, opts format.Options) ([]byte, error) {
	m := manifest{
		Format:   kind.String(),
		Artboard: s.name,
		Width:    s.frame.Width(),
		Height:   s.frame.Height(),
		Options:  opts,
	}
	for _, l := range s.layers {
		ml := manifestLayer{Name: l.name}
		for _, b := range l.boxes {
			ml.Items = append(ml.Items, manifestItem{
				Bounds: [4]float64{b.rect.Left - s.frame.Left, s.frame.Top - b.rect.Top, b.rect.Width(), b.rect.Height()},
				Fill:   b.fill,
			})
		}
		m.Layers = append(m.Layers, ml)
	}
	return yaml.Marshal(&m)
}
