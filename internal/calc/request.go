// Package calc talks to the sensitivity calculator backend.
package calc

import (
	"fmt"
	"sort"
	"strings"
)

// Operation names the quantity the backend computes. Its value is the
// URL path segment.
type Operation string

const (
	OpSensitivity     Operation = "sensitivity"
	OpIntegrationTime Operation = "integration-time"
)

// ParseOperation parses an operation name, accepting underscores.
func ParseOperation(s string) (Operation, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-") {
	case "sensitivity":
		return OpSensitivity, nil
	case "integration-time", "t-int":
		return OpIntegrationTime, nil
	default:
		return "", fmt.Errorf("unknown operation %q", s)
	}
}

// Label is a human-readable name for the computed quantity.
func (o Operation) Label() string {
	switch o {
	case OpSensitivity:
		return "Sensitivity"
	case OpIntegrationTime:
		return "Integration time"
	default:
		return string(o)
	}
}

// Entry is one submitted parameter. Value is the trimmed user text.
type Entry struct {
	Value string `json:"value"`
	Unit  string `json:"unit,omitempty"`
}

// Request maps parameter names to submitted entries.
type Request map[string]Entry

// Names returns the parameter names in sorted order.
func (r Request) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Result is a computed quantity.
type Result struct {
	Value    float64   `json:"value"`
	Unit     string    `json:"unit"`
	Quantity Operation `json:"-"`
}

// FormatResult renders a result with four decimals.
func FormatResult(r Result) string {
	s := fmt.Sprintf("%.4f", r.Value)
	if r.Unit != "" {
		s += " " + r.Unit
	}
	return s
}

// RequestError describes a failed backend call.
type RequestError struct {
	Op     string
	Status int    // HTTP status, zero for transport failures
	Detail string // server-supplied reason, when present
	Err    error
}

func (e *RequestError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Status != 0 {
		fmt.Fprintf(&b, ": status %d", e.Status)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Message is the text shown to the user for a failed request.
func (e *RequestError) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.Status != 0 {
		return fmt.Sprintf("Calculation failed (HTTP %d)", e.Status)
	}
	return "Calculation service unreachable"
}
