package prefs

import (
	"errors"
	"strings"
	"testing"

	"github.com/magebay99/multiexporter-hack/internal/apperr"
	"github.com/magebay99/multiexporter-hack/internal/scene"
)

func TestDefault(t *testing.T) {
	c := Default()
	if c.Scaling != 100 {
		t.Errorf("scaling = %v, want 100", c.Scaling)
	}
	if !c.Transparency || !c.EmbedImage || !c.EmbedFont || !c.TrimEdges || !c.SkipDefaultNames {
		t.Errorf("boolean defaults wrong: %+v", c)
	}
	if c.IgnoreWarnings || c.ExportArtboards {
		t.Errorf("ignore/exportArtboards should default false: %+v", c)
	}
	if c.Format != "PNG 24" || !c.Artboards.Is(All) || !c.Layers.Is(All) {
		t.Errorf("selector/format defaults wrong: %+v", c)
	}
	if c.BasePath != "~/Desktop" {
		t.Errorf("base path = %q", c.BasePath)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestParseSelector(t *testing.T) {
	cases := []struct {
		in   string
		want Selector
	}{
		{"", Code(All)},
		{"all", Code(All)},
		{"current", Code(Current)},
		{"3", Index(3)},
		{"0", Index(0)},
		{"03", Code("03")},
	}
	for _, c := range cases {
		if got := ParseSelector(c.in, All); got != c.want {
			t.Errorf("ParseSelector(%q) = %+v, want %+v", c.in, got, c.want)
		}
	}
}

func TestEncode_LiteralBooleans(t *testing.T) {
	c := Default()
	c.Transparency = false
	c.Layers = Code(None)
	r := Encode(c)
	if r[KeyTransparency] != "false" || r[KeyEmbedFont] != "true" {
		t.Errorf("booleans = %q/%q", r[KeyTransparency], r[KeyEmbedFont])
	}
	if r[KeyExportArtboards] != "true" {
		t.Errorf("exportArtboards should mirror whole-artboard mode, got %q", r[KeyExportArtboards])
	}
	if r[KeyScaling] != "100" {
		t.Errorf("scaling = %q", r[KeyScaling])
	}
	for _, k := range Keys {
		if _, ok := r[k]; !ok {
			t.Errorf("missing key %q", k)
		}
	}
}

func TestDecode_Scaling(t *testing.T) {
	for in, want := range map[string]float64{"100%": 100, "": 100, "200": 200, " 150 % ": 150, "50.5": 50.5} {
		r := DefaultRecord()
		r[KeyScaling] = in
		c, err := Decode(r)
		if err != nil {
			t.Fatalf("Decode(%q): %v", in, err)
		}
		if c.Scaling != want {
			t.Errorf("scaling(%q) = %v, want %v", in, c.Scaling, want)
		}
	}
	r := DefaultRecord()
	r[KeyScaling] = "big"
	if _, err := Decode(r); !errors.Is(err, apperr.ErrPreferenceRecord) {
		t.Errorf("expected ErrPreferenceRecord, got %v", err)
	}
}

func TestDecode_Format(t *testing.T) {
	r := DefaultRecord()
	r[KeyFormat] = ""
	c, err := Decode(r)
	if err != nil || c.Format != "PNG 24" {
		t.Errorf("blank format = %q, %v", c.Format, err)
	}

	r[KeyFormat] = "TIFF"
	if _, err := Decode(r); !errors.Is(err, apperr.ErrPreferenceRecord) {
		t.Errorf("unknown format err = %v, want ErrPreferenceRecord", err)
	}
}

func TestRecordText_RoundTrip(t *testing.T) {
	c := Default()
	c.Prefix = "ad_"
	c.Suffix = "@2x"
	c.BasePath = "/tmp/out & more"
	c.Artboards = Index(2)
	c.Format = "SVG"
	text := Encode(c).Text()
	if !strings.HasPrefix(text, "<nyt_prefs>") || !strings.Contains(text, "<nyt_base_path>") {
		t.Errorf("unexpected text %q", text)
	}
	r, err := ParseRecord(text)
	if err != nil {
		t.Fatalf("ParseRecord: %v", err)
	}
	got, err := Decode(r)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != c {
		t.Errorf("round trip = %+v, want %+v", got, c)
	}
}

func TestParseRecord_Malformed(t *testing.T) {
	for _, text := range []string{"<nyt_prefs><nyt_prefix>", "not xml", "<other/>"} {
		if _, err := ParseRecord(text); !errors.Is(err, apperr.ErrPreferenceRecord) {
			t.Errorf("ParseRecord(%q) = %v, want ErrPreferenceRecord", text, err)
		}
	}
}

func TestLoad_InitializesMissingRecord(t *testing.T) {
	s := scene.New(100, 100, nil)
	c, err := Load(s)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c != Default() {
		t.Errorf("Load = %+v, want defaults", c)
	}
	layers := s.Layers()
	if len(layers) != 1 || layers[0].Name() != LayerName {
		t.Fatalf("expected prefs layer, got %d layers", len(layers))
	}
	if layers[0].Visible() || layers[0].Attributes().Printable {
		t.Error("prefs layer should be hidden and non-printable")
	}
}

func TestSaveThenLoad(t *testing.T) {
	s := scene.New(100, 100, nil)
	c := Default()
	c.Layers = Code(Selected)
	c.Scaling = 200
	c.IgnoreWarnings = true
	if err := Save(s, c); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(s)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != c {
		t.Errorf("Load = %+v, want %+v", got, c)
	}
}

func TestLoad_MissingKeysUseDefaults(t *testing.T) {
	s := scene.New(100, 100, nil)
	if err := s.WriteRecord(LayerName, "<nyt_prefs><nyt_prefix>p_</nyt_prefix></nyt_prefs>"); err != nil {
		t.Fatal(err)
	}
	c, err := Load(s)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Prefix != "p_" || c.Format != "PNG 24" || c.Scaling != 100 || !c.TrimEdges {
		t.Errorf("Load = %+v", c)
	}
}

func TestLoad_TwoTextFrames(t *testing.T) {
	s, err := scene.Parse([]byte(`
layers:
  - name: nyt_exporter_info
    visible: false
    items:
      - text: "<nyt_prefs/>"
      - text: "<nyt_prefs/>"
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := Load(s); !errors.Is(err, apperr.ErrPreferenceRecord) {
		t.Errorf("expected ErrPreferenceRecord, got %v", err)
	}
}

func TestLoad_MalformedText(t *testing.T) {
	s := scene.New(100, 100, nil)
	_ = s.WriteRecord(LayerName, "<nyt_prefs><broken>")
	if _, err := Load(s); !errors.Is(err, apperr.ErrPreferenceRecord) {
		t.Errorf("expected ErrPreferenceRecord, got %v", err)
	}
}

func TestLoad_InvalidRecordValues(t *testing.T) {
	cases := map[string]Record{
		"artboards": {KeyArtboards: "bogus"},
		"layers":    {KeyLayers: "current"},
		"scaling":   {KeyScaling: "-50%"},
		"format":    {KeyFormat: "BMP"},
	}
	for name, fields := range cases {
		t.Run(name, func(t *testing.T) {
			r := DefaultRecord()
			for k, v := range fields {
				r[k] = v
			}
			s := scene.New(100, 100, nil)
			if err := s.WriteRecord(LayerName, r.Text()); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(s); !errors.Is(err, apperr.ErrPreferenceRecord) {
				t.Errorf("Load err = %v, want ErrPreferenceRecord", err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	c := Default()
	c.Scaling = 0
	if err := c.Validate(); err == nil {
		t.Error("zero scaling should fail")
	}
	c = Default()
	c.Layers = Code(Current)
	if err := c.Validate(); err == nil {
		t.Error("layers=current should fail")
	}
	c = Default()
	c.Artboards = Index(-1)
	if err := c.Validate(); err == nil {
		t.Error("negative index should fail")
	}
}

func TestSet(t *testing.T) {
	c := Default()
	if err := c.Set(KeyLayers, "none"); err != nil {
		t.Fatalf("Set layers: %v", err)
	}
	if !c.WholeArtboardMode() {
		t.Error("expected whole-artboard mode")
	}
	if err := c.Set(KeyArtboards, "1"); err != nil || !c.Artboards.IsIndex() || c.Artboards.Index != 1 {
		t.Errorf("Set artboards = %+v, %v", c.Artboards, err)
	}
	if err := c.Set("colour", "red"); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("unknown key err = %v, want ErrInvalid", err)
	}
	if err := c.Set(KeyScaling, "-5"); err == nil {
		t.Error("negative scaling should fail")
	}
	if c.Scaling != 100 {
		t.Errorf("failed Set must not modify config, scaling = %v", c.Scaling)
	}
}

func TestSet_RejectsCoercedValues(t *testing.T) {
	c := Default()
	for key, value := range map[string]string{
		KeyFormat:       "BMP",
		KeyTransparency: "yes",
		KeyTrimEdges:    "",
		KeyScaling:      "big",
	} {
		if err := c.Set(key, value); !errors.Is(err, apperr.ErrInvalid) {
			t.Errorf("Set(%s, %q) err = %v, want ErrInvalid", key, value, err)
		}
	}
	if c.Format != "PNG 24" || !c.Transparency || !c.TrimEdges {
		t.Errorf("rejected Set modified config: %+v", c)
	}

	if err := c.Set(KeyTransparency, "false"); err != nil || c.Transparency {
		t.Errorf("Set transparency=false = %v, %v", c.Transparency, err)
	}
	if err := c.Set(KeyFormat, "SVG"); err != nil || c.Format != "SVG" {
		t.Errorf("Set format=SVG = %q, %v", c.Format, err)
	}
}

func TestOutputDir_ExpandsHome(t *testing.T) {
	c := Default()
	if strings.HasPrefix(c.OutputDir(), "~") {
		t.Errorf("OutputDir = %q, want expanded", c.OutputDir())
	}
	c.BasePath = "/abs/out"
	if c.OutputDir() != "/abs/out" {
		t.Errorf("OutputDir = %q", c.OutputDir())
	}
}
