// Package format is the closed set of output formats and their options.
package format

import (
	"context"
	"fmt"
	"strconv"

	"github.com/magebay99/multiexporter-hack/internal/document"
)

// Kind identifies an output format.
type Kind int

const (
	PNG8 Kind = iota
	PNG24
	PDF
	JPG
	EPS
	SVG
	FXG1
	FXG2
)

// Control names a preference that is meaningful for a format. The values
// match the persisted record keys.
type Control string

const (
	ControlScaling          Control = "scaling"
	ControlTransparency     Control = "transparency"
	ControlEmbedImage       Control = "embedImage"
	ControlEmbedFont        Control = "embedFont"
	ControlTrimEdges        Control = "trimEdges"
	ControlSkipDefaultNames Control = "skipDefaultNames"
)

// AllControls lists every format-dependent control.
var AllControls = []Control{
	ControlScaling, ControlTransparency, ControlEmbedImage,
	ControlEmbedFont, ControlTrimEdges, ControlSkipDefaultNames,
}

// Settings are the preference values the options factories read.
type Settings struct {
	Transparency bool
	Scaling      float64
	EmbedImage   bool
	EmbedFont    bool
	TrimEdges    bool
}

// Options are the resolved encoder options for one format.
type Options struct {
	AntiAliasing              bool    `json:"anti_aliasing,omitempty" yaml:"anti_aliasing,omitempty"`
	Transparency              bool    `json:"transparency,omitempty" yaml:"transparency,omitempty"`
	ArtboardClipping          bool    `json:"artboard_clipping,omitempty" yaml:"artboard_clipping,omitempty"`
	HorizontalScale           float64 `json:"horizontal_scale,omitempty" yaml:"horizontal_scale,omitempty"`
	VerticalScale             float64 `json:"vertical_scale,omitempty" yaml:"vertical_scale,omitempty"`
	Compatibility             string  `json:"compatibility,omitempty" yaml:"compatibility,omitempty"`
	GenerateThumbnails        bool    `json:"generate_thumbnails,omitempty" yaml:"generate_thumbnails,omitempty"`
	PreserveEditability       bool    `json:"preserve_editability,omitempty" yaml:"preserve_editability,omitempty"`
	EmbedLinkedFiles          bool    `json:"embed_linked_files,omitempty" yaml:"embed_linked_files,omitempty"`
	EmbedAllFonts             bool    `json:"embed_all_fonts,omitempty" yaml:"embed_all_fonts,omitempty"`
	IncludeDocumentThumbnails bool    `json:"include_document_thumbnails,omitempty" yaml:"include_document_thumbnails,omitempty"`
	EmbedRasterImages         bool    `json:"embed_raster_images,omitempty" yaml:"embed_raster_images,omitempty"`
	SaveMultipleArtboards     bool    `json:"save_multiple_artboards,omitempty" yaml:"save_multiple_artboards,omitempty"`
	FXGVersion                string  `json:"fxg_version,omitempty" yaml:"fxg_version,omitempty"`
	ArtboardRange             string  `json:"artboard_range,omitempty" yaml:"artboard_range,omitempty"`
}

// Target is one file to materialize.
type Target struct {
	Doc      document.Document
	Artboard int // artboard of Doc to encode
	Path     string
	Kind     Kind
	Options  Options
	Ordinal  int
	Label    string
}

// Encoder materializes a document as a file.
type Encoder interface {
	Materialize(ctx context.Context, t Target) error
}

// Profile is the static description of one format.
type Profile struct {
	Kind      Kind
	Name      string
	Ext       string
	Isolation bool // hidden layers must be removed, not just hidden
	Controls  []Control

	saveAs  bool // saved per artboard range rather than exported
	options func(Settings) Options
}

// Options builds the encoder options for s.
func (p Profile) Options(s Settings) Options { return p.options(s) }

// Active reports whether c is meaningful for this format.
func (p Profile) Active(c Control) bool {
	for _, x := range p.Controls {
		if x == c {
			return true
		}
	}
	return false
}

// Save appends the extension to base and hands the document to enc.
func (p Profile) Save(ctx context.Context, enc Encoder, doc document.Document, base string, opts Options, artboard int, label string) (string, error) {
	if p.saveAs {
		opts.ArtboardRange = strconv.Itoa(artboard + 1)
	}
	path := base + p.Ext
	err := enc.Materialize(ctx, Target{
		Doc:      doc,
		Artboard: artboard,
		Path:     path,
		Kind:     p.Kind,
		Options:  opts,
		Ordinal:  artboard,
		Label:    label,
	})
	return path, err
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(profiles) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return profiles[k].Name
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	p, ok := Lookup(string(b))
	if !ok {
		return fmt.Errorf("format: unknown format %q", string(b))
	}
	*k = p.Kind
	return nil
}
