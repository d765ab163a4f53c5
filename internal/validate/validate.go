// Package validate checks raw form input against parameter descriptors.
// Failures are reported as values; the package never renders anything.
package validate

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/litescript/ls-sensitivity/internal/astro"
	"github.com/litescript/ls-sensitivity/internal/logging"
	"github.com/litescript/ls-sensitivity/internal/param"
)

// Reason identifies why a value was rejected.
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonRequired     Reason = "required"
	ReasonNotNumeric   Reason = "not_numeric"
	ReasonNotAllowed   Reason = "not_allowed"
	ReasonBelowRange   Reason = "below_range"
	ReasonAboveRange   Reason = "above_range"
	ReasonUnknownUnit  Reason = "unknown_unit"
	ReasonBadFormat    Reason = "bad_format"
	ReasonNeverVisible Reason = "never_visible"
	ReasonOutsideBand  Reason = "outside_band"
)

// Input is one field's raw state as the validator sees it.
type Input struct {
	Raw      string
	Unit     string
	Disabled bool
	Optional bool
}

// Outcome is the result of validating one field. Value holds the parsed
// number in default units (degrees for coordinates) when OK.
type Outcome struct {
	OK     bool
	Reason Reason
	Value  float64
}

func pass(v float64) Outcome { return Outcome{OK: true, Value: v} }

func fail(r Reason) Outcome { return Outcome{Reason: r} }

func failV(r Reason, v float64) Outcome { return Outcome{Reason: r, Value: v} }

var numericPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// IsNumeric reports whether s is a finite decimal literal after trimming
// surrounding whitespace. Hex, "Infinity" and "NaN" are rejected.
func IsNumeric(s string) bool {
	_, ok := parseNumber(s)
	return ok
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if !numericPattern.MatchString(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// Validator validates fields against descriptors.
type Validator struct {
	strictUnits bool
	site        astro.Observer
	logger      *logging.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithStrictUnits makes an unknown unit a validation failure. Otherwise
// the value is used as if it were already in the default unit.
func WithStrictUnits(strict bool) Option {
	return func(v *Validator) {
		v.strictUnits = strict
	}
}

// WithSite sets the observatory used for the horizon check.
func WithSite(site astro.Observer) Option {
	return func(v *Validator) {
		v.site = site
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(v *Validator) {
		v.logger = l
	}
}

// New creates a validator.
func New(opts ...Option) *Validator {
	v := &Validator{
		site:   astro.ReferenceSite,
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Field validates a numeric field. Checks run in order and stop at the
// first failure: disabled, empty, numeric, unit conversion, allowed
// values, bounds.
func (v *Validator) Field(in Input, d param.Descriptor) Outcome {
	if in.Disabled {
		return pass(0)
	}
	if strings.TrimSpace(in.Raw) == "" {
		if in.Optional {
			return pass(0)
		}
		return fail(ReasonRequired)
	}

	raw, ok := parseNumber(in.Raw)
	if !ok {
		return fail(ReasonNotNumeric)
	}

	value, err := param.ToDefaultUnits(raw, in.Unit, d)
	if err != nil {
		var ce *param.ConversionError
		if !errors.As(err, &ce) {
			return fail(ReasonUnknownUnit)
		}
		if v.strictUnits {
			v.logger.Error("%v", ce)
			return failV(ReasonUnknownUnit, raw)
		}
		v.logger.Warn("%v; treating %v as %s", ce, raw, d.DefaultUnit)
		value = raw
	}

	if d.AllowedValues != nil && !allowed(value, d.AllowedValues) {
		return failV(ReasonNotAllowed, value)
	}

	if r := checkRange(value, d); r != ReasonNone {
		return failV(r, value)
	}
	return pass(value)
}

func checkRange(value float64, d param.Descriptor) Reason {
	if d.LowerBound != nil {
		lower := *d.LowerBound
		if d.LowerBoundExclusive && value <= lower || !d.LowerBoundExclusive && value < lower {
			return ReasonBelowRange
		}
	}
	if d.UpperBound != nil {
		upper := *d.UpperBound
		if d.UpperBoundExclusive && value >= upper || !d.UpperBoundExclusive && value > upper {
			return ReasonAboveRange
		}
	}
	return ReasonNone
}

func allowed(value float64, values []float64) bool {
	for _, a := range values {
		if value == a {
			return true
		}
	}
	return false
}

// RA validates a right ascension field. Value is in degrees.
func (v *Validator) RA(in Input) Outcome {
	if out, done := v.coordPrecheck(in); done {
		return out
	}
	raw := strings.TrimSpace(in.Raw)
	if !astro.ValidRA(raw) {
		return fail(ReasonBadFormat)
	}
	deg, err := astro.ParseRA(raw)
	if err != nil {
		return fail(ReasonBadFormat)
	}
	return pass(deg)
}

// Dec validates a declination field, including the horizon check at the
// configured site. Value is in degrees.
func (v *Validator) Dec(in Input) Outcome {
	if out, done := v.coordPrecheck(in); done {
		return out
	}
	raw := strings.TrimSpace(in.Raw)
	if !astro.ValidDec(raw) {
		return fail(ReasonBadFormat)
	}
	deg, err := astro.ParseDec(raw)
	if err != nil {
		return fail(ReasonBadFormat)
	}
	if !v.site.IsAboveHorizon(deg) {
		v.logger.Debug("declination %s (%.6f) never rises at %s", raw, deg, v.site.Name)
		return failV(ReasonNeverVisible, deg)
	}
	return pass(deg)
}

func (v *Validator) coordPrecheck(in Input) (Outcome, bool) {
	if in.Disabled {
		return pass(0), true
	}
	if strings.TrimSpace(in.Raw) == "" {
		if in.Optional {
			return pass(0), true
		}
		return fail(ReasonRequired), true
	}
	return Outcome{}, false
}

// Site returns the observatory used by the horizon check.
func (v *Validator) Site() astro.Observer {
	return v.site
}
