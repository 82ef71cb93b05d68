// Package prefs holds the export preferences and the flat record they are
// persisted as inside the document.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/magebay99/multiexporter-hack/internal/apperr"
	"github.com/magebay99/multiexporter-hack/internal/format"
)

// LayerName is the reserved top-level layer that stores the record.
const LayerName = "nyt_exporter_info"

// Config is the user-controlled export configuration.
type Config struct {
	Artboards        Selector `json:"artboards" yaml:"artboards"`
	Layers           Selector `json:"layers" yaml:"layers"`
	Prefix           string   `json:"prefix" yaml:"prefix"`
	Suffix           string   `json:"suffix" yaml:"suffix"`
	BasePath         string   `json:"base_path" yaml:"base_path"`
	Scaling          float64  `json:"scaling" yaml:"scaling"`
	Transparency     bool     `json:"transparency" yaml:"transparency"`
	EmbedImage       bool     `json:"embed_image" yaml:"embed_image"`
	EmbedFont        bool     `json:"embed_font" yaml:"embed_font"`
	TrimEdges        bool     `json:"trim_edges" yaml:"trim_edges"`
	SkipDefaultNames bool     `json:"skip_default_names" yaml:"skip_default_names"`
	IgnoreWarnings   bool     `json:"ignore_warnings" yaml:"ignore_warnings"`
	Format           string   `json:"format" yaml:"format"`
	// ExportArtboards mirrors whole-artboard mode as last persisted.
	ExportArtboards bool `json:"export_artboards" yaml:"export_artboards"`
}

// Default returns the configuration written into a fresh document.
func Default() Config {
	c, _ := Decode(DefaultRecord())
	return c
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	names := make([]interface{}, 0, len(format.Names()))
	for _, n := range format.Names() {
		names = append(names, n)
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Scaling, validation.Required, validation.Min(0.0)),
		validation.Field(&c.Format, validation.Required, validation.In(names...)),
		validation.Field(&c.Artboards, validation.By(selectorRule(All, Current))),
		validation.Field(&c.Layers, validation.By(selectorRule(All, None, Selected))),
	)
}

func selectorRule(codes ...string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(Selector)
		if s.IsIndex() {
			if s.Index < 0 {
				return errors.New("must not be negative")
			}
			return nil
		}
		for _, c := range codes {
			if s.Code == c {
				return nil
			}
		}
		return fmt.Errorf("must be one of %s or an index", strings.Join(codes, ", "))
	}
}

// Profile returns the configured format profile, falling back to the default.
func (c Config) Profile() format.Profile {
	if p, ok := format.Lookup(c.Format); ok {
		return p
	}
	p, _ := format.Lookup(format.Default)
	return p
}

// Settings returns the values the format options factories consume.
func (c Config) Settings() format.Settings {
	return format.Settings{
		Transparency: c.Transparency,
		Scaling:      c.Scaling,
		EmbedImage:   c.EmbedImage,
		EmbedFont:    c.EmbedFont,
		TrimEdges:    c.TrimEdges,
	}
}

// WholeArtboardMode reports whether the layer selector asks for one
// combined image per artboard.
func (c Config) WholeArtboardMode() bool { return c.Layers.Is(None) }

// OutputDir returns BasePath with a leading "~" expanded.
func (c Config) OutputDir() string {
	p := c.BasePath
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

// Set updates one field by its record key.
func (c *Config) Set(key, value string) error {
	r := Encode(*c)
	if _, ok := r[key]; !ok {
		return fmt.Errorf("prefs: %w: unknown key %q", apperr.ErrInvalid, key)
	}
	if err := checkValue(key, value); err != nil {
		return fmt.Errorf("prefs: %w: %s: %v", apperr.ErrInvalid, key, err)
	}
	r[key] = value
	next, err := Decode(r)
	if err != nil {
		return fmt.Errorf("prefs: %w: %s: %v", apperr.ErrInvalid, key, err)
	}
	if err := next.Validate(); err != nil {
		return fmt.Errorf("prefs: %w: %s: %v", apperr.ErrInvalid, key, err)
	}
	*c = next
	return nil
}
