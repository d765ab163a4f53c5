// Package param models the parameter metadata served by the calculator
// backend and converts user values into each parameter's default unit.
package param

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// Unbounded is the sentinel the backend sends in place of infinity.
const Unbounded = 1e20

// Descriptor is the server-supplied metadata for one form field.
type Descriptor struct {
	Name string `json:"-"`

	DefaultValue *float64 `json:"default_value"`
	DefaultUnit  string   `json:"default_unit"`

	// AllowedUnits is the ordered list offered in the unit selector.
	AllowedUnits []string `json:"units"`
	// ConversionFactors maps a unit to the factor that scales a value in
	// that unit to DefaultUnit.
	ConversionFactors map[string]float64 `json:"data_conversion"`

	LowerBound          *float64 `json:"lower_value"`
	LowerBoundExclusive bool     `json:"lower_value_is_floor"`
	UpperBound          *float64 `json:"upper_value"`
	UpperBoundExclusive bool     `json:"upper_value_is_ceil"`

	AllowedValues []float64 `json:"allowed_values"`
}

// HasUnits reports whether the field offers a unit selector.
func (d Descriptor) HasUnits() bool {
	return len(d.AllowedUnits) > 0
}

// Default returns the default value, or zero and false when there is none.
func (d Descriptor) Default() (float64, bool) {
	if d.DefaultValue == nil {
		return 0, false
	}
	return *d.DefaultValue, true
}

// UpperUnbounded reports whether the upper bound is missing or the
// infinity sentinel.
func (d Descriptor) UpperUnbounded() bool {
	return d.UpperBound == nil || IsUnbounded(*d.UpperBound)
}

// IsUnbounded reports whether v is the backend's stand-in for infinity.
func IsUnbounded(v float64) bool {
	return v >= Unbounded
}

// Set maps parameter names to descriptors.
type Set map[string]Descriptor

// Get returns the descriptor for name.
func (s Set) Get(name string) (Descriptor, bool) {
	d, ok := s[name]
	return d, ok
}

// Names returns parameter names in sorted order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Decode reads a descriptor set. The backend serialises the set with
// json.dumps before returning it, so the body is either a JSON object or
// a JSON string holding one; both are accepted.
func Decode(r io.Reader) (Set, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read descriptors: %w", err)
	}
	body = bytes.TrimSpace(body)

	if len(body) > 0 && body[0] == '"' {
		var inner string
		if err := json.Unmarshal(body, &inner); err != nil {
			return nil, fmt.Errorf("decode descriptor string: %w", err)
		}
		body = []byte(inner)
	}

	var set Set
	if err := json.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("decode descriptors: %w", err)
	}
	if set == nil {
		set = Set{}
	}
	for name, d := range set {
		d.Name = name
		set[name] = d
	}
	return set, nil
}
