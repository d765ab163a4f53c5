package param

import (
	"fmt"
	"sort"
	"strings"

	lev "github.com/agnivade/levenshtein"
)

// maxSuggestDistance bounds how far a typo may be from a known unit before
// no suggestion is offered.
const maxSuggestDistance = 2

// ConversionError reports a unit that has no conversion factor.
type ConversionError struct {
	Param      string
	Unit       string
	Known      []string
	Suggestion string
}

func (e *ConversionError) Error() string {
	msg := fmt.Sprintf("no conversion factor for unit %q on %s", e.Unit, e.Param)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	return msg
}

// Factor returns the multiplier that converts a value in unit to the
// descriptor's default unit. An empty unit, or the default unit itself,
// yields 1.
func Factor(unit string, d Descriptor) (float64, error) {
	if unit == "" || unit == d.DefaultUnit {
		if f, ok := d.ConversionFactors[unit]; ok && unit != "" {
			return f, nil
		}
		return 1, nil
	}
	if f, ok := d.ConversionFactors[unit]; ok {
		return f, nil
	}

	known := make([]string, 0, len(d.ConversionFactors))
	for u := range d.ConversionFactors {
		known = append(known, u)
	}
	sort.Strings(known)
	return 0, &ConversionError{
		Param:      d.Name,
		Unit:       unit,
		Known:      known,
		Suggestion: suggest(unit, known),
	}
}

// ToDefaultUnits scales value from unit into the descriptor's default unit.
func ToDefaultUnits(value float64, unit string, d Descriptor) (float64, error) {
	f, err := Factor(unit, d)
	if err != nil {
		return 0, err
	}
	return value * f, nil
}

func suggest(unit string, known []string) string {
	best := ""
	bestDist := maxSuggestDistance + 1
	for _, k := range known {
		dist := lev.ComputeDistance(strings.ToLower(unit), strings.ToLower(k))
		if dist < bestDist {
			best, bestDist = k, dist
		}
	}
	return best
}
