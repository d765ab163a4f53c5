package validate

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/litescript/ls-sensitivity/internal/param"
)

// Message returns the user-facing text for a rejected field.
func Message(r Reason, d param.Descriptor) string {
	switch r {
	case ReasonNone:
		return ""
	case ReasonRequired:
		return "A value is required"
	case ReasonNotNumeric:
		return "Please enter a number"
	case ReasonNotAllowed:
		vals := make([]string, len(d.AllowedValues))
		for i, a := range d.AllowedValues {
			vals[i] = formatNumber(a)
		}
		return "Please enter one of " + strings.Join(vals, ", ")
	case ReasonBelowRange, ReasonAboveRange:
		return RangeMessage(d)
	case ReasonUnknownUnit:
		if len(d.AllowedUnits) == 0 {
			return "Unknown unit"
		}
		return "Unknown unit; expected one of " + strings.Join(d.AllowedUnits, ", ")
	case ReasonBadFormat:
		return "Input formatted incorrectly."
	case ReasonNeverVisible:
		return "Target is never above the horizon"
	case ReasonOutsideBand:
		return "Bandwidth must be fully contained within the band."
	default:
		return string(r)
	}
}

// RangeMessage describes the accepted range of a bounded field.
func RangeMessage(d param.Descriptor) string {
	msg := "Please enter a valid number"

	switch {
	case d.LowerBound == nil && d.UpperBound == nil:
		return msg
	case d.LowerBound == nil:
		op := "<="
		if d.UpperBoundExclusive {
			op = "<"
		}
		msg += fmt.Sprintf(" %s %s", op, formatNumber(*d.UpperBound))
	case d.LowerBoundExclusive:
		msg += " > " + formatNumber(*d.LowerBound)
	case d.UpperBoundExclusive && d.UpperUnbounded(), d.UpperBound == nil:
		msg += " >= " + formatNumber(*d.LowerBound)
	default:
		msg += fmt.Sprintf(" between %s and %s", formatNumber(*d.LowerBound), formatNumber(*d.UpperBound))
	}

	return withUnit(msg, d)
}

// AllowedRange is the short range hint shown next to an input, such as
// ">=1 s", "> 0" or "35 - 950".
func AllowedRange(d param.Descriptor) string {
	if len(d.AllowedValues) > 0 {
		vals := make([]string, len(d.AllowedValues))
		for i, a := range d.AllowedValues {
			vals[i] = formatNumber(a)
		}
		return strings.Join(vals, ", ")
	}
	if d.LowerBound == nil && d.UpperBound == nil {
		return ""
	}

	var minimum, maximum string
	if d.LowerBound != nil {
		minimum = formatNumber(*d.LowerBound)
		if d.LowerBoundExclusive {
			minimum = "> " + minimum
		}
	}
	if d.UpperBound != nil {
		switch {
		case d.UpperBoundExclusive && !d.UpperUnbounded():
			maximum = "< " + formatNumber(*d.UpperBound)
		case !d.UpperBoundExclusive:
			maximum = formatNumber(*d.UpperBound)
		}
	}

	var msg string
	switch {
	case minimum == "" && maximum == "":
		return ""
	case minimum == "":
		msg = "<= " + maximum
		if d.UpperBoundExclusive {
			msg = maximum
		}
	case maximum == "" && !d.LowerBoundExclusive:
		msg = ">=" + minimum
	case maximum == "":
		msg = minimum
	default:
		msg = minimum + " - " + maximum
	}
	return withUnit(msg, d)
}

// withUnit appends the default unit when the lower bound is not zero and
// the field offers more than one unit.
func withUnit(msg string, d param.Descriptor) string {
	if d.LowerBound != nil && *d.LowerBound == 0 {
		return msg
	}
	if len(d.AllowedUnits) > 1 && d.DefaultUnit != "" {
		return msg + " " + d.DefaultUnit
	}
	return msg
}

func formatNumber(v float64) string {
	if param.IsUnbounded(v) || math.IsInf(v, 1) {
		return "inf"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
