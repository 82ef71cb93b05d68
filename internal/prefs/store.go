package prefs

import (
	"fmt"

	"github.com/magebay99/multiexporter-hack/internal/apperr"
)

// Store reads and writes the record text attached to a document.
type Store interface {
	// ReadRecord returns the record text kept on layer. found is false when
	// the document has no such layer.
	ReadRecord(layer string) (text string, found bool, err error)
	WriteRecord(layer, text string) error
}

// Load reads the preferences from s. A document without a record is
// initialized with the defaults. Any malformed record is an
// ErrPreferenceRecord.
func Load(s Store) (Config, error) {
	text, found, err := s.ReadRecord(LayerName)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", apperr.ErrPreferenceRecord, err)
	}
	if !found {
		text = DefaultRecord().Text()
		if err := s.WriteRecord(LayerName, text); err != nil {
			return Config{}, fmt.Errorf("prefs: initialize record: %w", err)
		}
	}
	r, err := ParseRecord(text)
	if err != nil {
		return Config{}, err
	}
	cfg, err := Decode(r.withDefaults())
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%w: %v", apperr.ErrPreferenceRecord, err)
	}
	return cfg, nil
}

// Save persists c into s.
func Save(s Store, c Config) error {
	if err := s.WriteRecord(LayerName, Encode(c).Text()); err != nil {
		return fmt.Errorf("prefs: save record: %w", err)
	}
	return nil
}
