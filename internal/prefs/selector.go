package prefs

import (
	"fmt"
	"strconv"
)

// Selector codes.
const (
	All      = "all"
	Current  = "current"
	None     = "none"
	Selected = "selected"
)

// Selector picks artboards or layers either by a mode code or by an
// explicit 0-based index. Code is empty for index selectors.
type Selector struct {
	Code  string
	Index int
}

// Code returns a mode selector.
func Code(code string) Selector { return Selector{Code: code} }

// Index returns an explicit index selector.
func Index(i int) Selector { return Selector{Index: i} }

// IsIndex reports whether s names an explicit index.
func (s Selector) IsIndex() bool { return s.Code == "" }

// Is reports whether s is the mode selector code.
func (s Selector) Is(code string) bool { return s.Code == code }

func (s Selector) String() string {
	if s.IsIndex() {
		return strconv.Itoa(s.Index)
	}
	return s.Code
}

// ParseSelector reads a stored selector. Canonical decimal integers become
// index selectors, blank text becomes def, anything else is a mode code.
func ParseSelector(text, def string) Selector {
	if text == "" {
		return Code(def)
	}
	if n, err := strconv.Atoi(text); err == nil && strconv.Itoa(n) == text {
		return Index(n)
	}
	return Code(text)
}

func (s Selector) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Selector) UnmarshalText(b []byte) error {
	*s = ParseSelector(string(b), "")
	if !s.IsIndex() && s.Code == "" {
		return fmt.Errorf("prefs: empty selector")
	}
	return nil
}
