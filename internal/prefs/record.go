package prefs

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/magebay99/multiexporter-hack/internal/apperr"
	"github.com/magebay99/multiexporter-hack/internal/format"
)

// Record keys, in the order they are written.
const (
	KeyPrefix           = "prefix"
	KeySuffix           = "suffix"
	KeyBasePath         = "basePath"
	KeyScaling          = "scaling"
	KeyTransparency     = "transparency"
	KeyEmbedImage       = "embedImage"
	KeyEmbedFont        = "embedFont"
	KeyTrimEdges        = "trimEdges"
	KeySkipDefaultNames = "skipDefaultNames"
	KeyFormat           = "format"
	KeyArtboards        = "artboards"
	KeyLayers           = "layers"
	KeyExportArtboards  = "exportArtboards"
	KeyIgnoreWarnings   = "ignoreWarnings"
)

// Keys lists every record key in write order.
var Keys = []string{
	KeyPrefix, KeySuffix, KeyBasePath, KeyScaling, KeyTransparency,
	KeyEmbedImage, KeyEmbedFont, KeyTrimEdges, KeySkipDefaultNames,
	KeyFormat, KeyArtboards, KeyLayers, KeyExportArtboards, KeyIgnoreWarnings,
}

// Record is the flat, string-valued persisted form of Config.
type Record map[string]string

// DefaultRecord returns the record written into a document that has none.
func DefaultRecord() Record {
	return Record{
		KeyPrefix:           "",
		KeySuffix:           "",
		KeyBasePath:         "~/Desktop",
		KeyScaling:          "100%",
		KeyTransparency:     "true",
		KeyEmbedImage:       "true",
		KeyEmbedFont:        "true",
		KeyTrimEdges:        "true",
		KeySkipDefaultNames: "true",
		KeyFormat:           format.Default,
		KeyArtboards:        All,
		KeyLayers:           All,
		KeyExportArtboards:  "false",
		KeyIgnoreWarnings:   "false",
	}
}

// Encode flattens c into a record.
func Encode(c Config) Record {
	return Record{
		KeyPrefix:           c.Prefix,
		KeySuffix:           c.Suffix,
		KeyBasePath:         c.BasePath,
		KeyScaling:          strconv.FormatFloat(c.Scaling, 'f', -1, 64),
		KeyTransparency:     strconv.FormatBool(c.Transparency),
		KeyEmbedImage:       strconv.FormatBool(c.EmbedImage),
		KeyEmbedFont:        strconv.FormatBool(c.EmbedFont),
		KeyTrimEdges:        strconv.FormatBool(c.TrimEdges),
		KeySkipDefaultNames: strconv.FormatBool(c.SkipDefaultNames),
		KeyFormat:           c.Format,
		KeyArtboards:        c.Artboards.String(),
		KeyLayers:           c.Layers.String(),
		KeyExportArtboards:  strconv.FormatBool(c.WholeArtboardMode()),
		KeyIgnoreWarnings:   strconv.FormatBool(c.IgnoreWarnings),
	}
}

// Decode parses a record. Only the literal "true" is true. A blank scaling
// means 100 and a blank format means the default one. A scaling that is not
// a number or a format no profile has is an ErrPreferenceRecord.
func Decode(r Record) (Config, error) {
	scaling, err := parseScaling(r[KeyScaling])
	if err != nil {
		return Config{}, err
	}
	f := r[KeyFormat]
	if f == "" {
		f = format.Default
	}
	if _, ok := format.Lookup(f); !ok {
		return Config{}, fmt.Errorf("%w: unknown format %q", apperr.ErrPreferenceRecord, f)
	}
	return Config{
		Artboards:        ParseSelector(r[KeyArtboards], All),
		Layers:           ParseSelector(r[KeyLayers], All),
		Prefix:           r[KeyPrefix],
		Suffix:           r[KeySuffix],
		BasePath:         r[KeyBasePath],
		Scaling:          scaling,
		Transparency:     r[KeyTransparency] == "true",
		EmbedImage:       r[KeyEmbedImage] == "true",
		EmbedFont:        r[KeyEmbedFont] == "true",
		TrimEdges:        r[KeyTrimEdges] == "true",
		SkipDefaultNames: r[KeySkipDefaultNames] == "true",
		IgnoreWarnings:   r[KeyIgnoreWarnings] == "true",
		Format:           f,
		ExportArtboards:  r[KeyExportArtboards] == "true",
	}, nil
}

// boolKeys are the record keys that hold "true" or "false".
var boolKeys = map[string]bool{
	KeyTransparency:     true,
	KeyEmbedImage:       true,
	KeyEmbedFont:        true,
	KeyTrimEdges:        true,
	KeySkipDefaultNames: true,
	KeyExportArtboards:  true,
	KeyIgnoreWarnings:   true,
}

// checkValue rejects a value Decode would otherwise coerce: a boolean that
// is not literally "true" or "false", or a format name no profile has.
func checkValue(key, value string) error {
	switch {
	case boolKeys[key] && value != "true" && value != "false":
		return fmt.Errorf("must be \"true\" or \"false\", got %q", value)
	case key == KeyFormat:
		if _, ok := format.Lookup(value); !ok {
			return fmt.Errorf("must be one of %s, got %q", strings.Join(format.Names(), ", "), value)
		}
	}
	return nil
}

func parseScaling(s string) (float64, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if s == "" {
		return 100, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: scaling %q is not a number", apperr.ErrPreferenceRecord, s)
	}
	return v, nil
}

// Record keys map to nyt_<key> elements, except basePath which is stored
// as nyt_base_path.
func elementName(key string) string {
	if key == KeyBasePath {
		return "nyt_base_path"
	}
	return "nyt_" + key
}

func keyName(element string) string {
	if element == "nyt_base_path" {
		return KeyBasePath
	}
	return strings.TrimPrefix(element, "nyt_")
}

type xmlField struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

type xmlRecord struct {
	XMLName xml.Name   `xml:"nyt_prefs"`
	Fields  []xmlField `xml:",any"`
}

// Text renders the record as the XML stored in the preferences text frame.
func (r Record) Text() string {
	doc := xmlRecord{}
	for _, k := range Keys {
		doc.Fields = append(doc.Fields, xmlField{XMLName: xml.Name{Local: elementName(k)}, Value: r[k]})
	}
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	if err := enc.Encode(doc); err != nil {
		// Encoding plain strings into fixed element names cannot fail.
		panic(fmt.Sprintf("prefs: encode record: %v", err))
	}
	return buf.String()
}

// ParseRecord parses the stored XML. Unknown elements are kept as keys.
func ParseRecord(text string) (Record, error) {
	var doc xmlRecord
	if err := xml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrPreferenceRecord, err)
	}
	r := Record{}
	for _, f := range doc.Fields {
		r[keyName(f.XMLName.Local)] = f.Value
	}
	return r, nil
}

// withDefaults fills keys missing from r with their default values.
func (r Record) withDefaults() Record {
	out := DefaultRecord()
	for k, v := range r {
		out[k] = v
	}
	return out
}
