package format

import (
	"context"
	"testing"

	"github.com/magebay99/multiexporter-hack/internal/document"
)

type captureEncoder struct{ got []Target }

func (c *captureEncoder) Materialize(_ context.Context, t Target) error {
	c.got = append(c.got, t)
	return nil
}

func TestLookup(t *testing.T) {
	for _, name := range Names() {
		p, ok := Lookup(name)
		if !ok {
			t.Fatalf("Lookup(%q) failed", name)
		}
		if p.Name != name || p.Kind.String() != name {
			t.Errorf("Lookup(%q) = %+v", name, p)
		}
	}
	if _, ok := Lookup("TIFF"); ok {
		t.Error("unexpected profile for TIFF")
	}
}

func TestIsolation(t *testing.T) {
	want := map[Kind]bool{PNG8: false, PNG24: false, PDF: false, JPG: false, EPS: true, SVG: true, FXG1: true, FXG2: true}
	for k, iso := range want {
		if Get(k).Isolation != iso {
			t.Errorf("%s isolation = %v, want %v", k, Get(k).Isolation, iso)
		}
	}
}

func TestOptionsFactories(t *testing.T) {
	s := Settings{Transparency: true, Scaling: 200, EmbedImage: true, EmbedFont: false}
	png := Get(PNG24).Options(s)
	if !png.Transparency || png.HorizontalScale != 200 || png.VerticalScale != 200 || !png.ArtboardClipping {
		t.Errorf("png options = %+v", png)
	}
	eps := Get(EPS).Options(s)
	if !eps.EmbedLinkedFiles || eps.EmbedAllFonts {
		t.Errorf("eps options = %+v", eps)
	}
	if Get(FXG2).Options(s).FXGVersion != "2.0" {
		t.Error("fxg 2 version")
	}
}

func TestActiveControls(t *testing.T) {
	if !Get(PNG8).Active(ControlScaling) {
		t.Error("PNG 8 should enable scaling")
	}
	if Get(PDF).Active(ControlScaling) {
		t.Error("PDF should not enable scaling")
	}
	if !Get(SVG).Active(ControlEmbedImage) || Get(SVG).Active(ControlEmbedFont) {
		t.Error("SVG controls wrong")
	}
}

func TestSave_AppendsExtensionAndRange(t *testing.T) {
	enc := &captureEncoder{}
	var doc document.Document
	path, err := Get(PDF).Save(context.Background(), enc, doc, "/out/Cover", Options{}, 2, "Cover")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if path != "/out/Cover.pdf" {
		t.Errorf("path = %q", path)
	}
	if enc.got[0].Options.ArtboardRange != "3" {
		t.Errorf("artboard range = %q, want 3", enc.got[0].Options.ArtboardRange)
	}
	_, _ = Get(SVG).Save(context.Background(), enc, doc, "/out/Back", Options{}, 0, "Back")
	if enc.got[1].Path != "/out/Back.svg" || enc.got[1].Options.ArtboardRange != "" {
		t.Errorf("svg target = %+v", enc.got[1])
	}
}

func TestKind_TextRoundTrip(t *testing.T) {
	var k Kind
	if err := k.UnmarshalText([]byte("FXG 1.0")); err != nil || k != FXG1 {
		t.Fatalf("UnmarshalText = %v, %v", k, err)
	}
	if err := k.UnmarshalText([]byte("BMP")); err == nil {
		t.Error("expected error for unknown format")
	}
}
