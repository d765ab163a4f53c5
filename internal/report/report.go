// Package report renders the form and backend descriptors as plain text
// and JSON for headless output.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/litescript/ls-sensitivity/internal/astro"
	"github.com/litescript/ls-sensitivity/internal/calc"
	"github.com/litescript/ls-sensitivity/internal/form"
	"github.com/litescript/ls-sensitivity/internal/param"
	"github.com/litescript/ls-sensitivity/internal/validate"
)

// Export is the JSON form of a calculation run.
type Export struct {
	Timestamp   time.Time     `json:"timestamp"`
	Layout      string        `json:"layout"`
	Calculation string        `json:"calculation"`
	Observing   string        `json:"observing"`
	Operation   string        `json:"operation"`
	Valid       bool          `json:"valid"`
	Fields      []FieldExport `json:"fields"`
	Request     calc.Request  `json:"request,omitempty"`
	Result      *ResultExport `json:"result,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// FieldExport is one field's state.
type FieldExport struct {
	Name    string `json:"name"`
	Value   string `json:"value"`
	Unit    string `json:"unit,omitempty"`
	Enabled bool   `json:"enabled"`
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// ResultExport is the backend's answer.
type ResultExport struct {
	Quantity string  `json:"quantity,omitempty"`
	Value    float64 `json:"value"`
	Unit     string  `json:"unit,omitempty"`
	Display  string  `json:"display"`
}

// NewExport captures c at time at.
func NewExport(c *form.Controller, at time.Time) *Export {
	snap := c.Snapshot()
	e := &Export{
		Timestamp:   at,
		Layout:      snap.Layout,
		Calculation: snap.Modes[form.GroupCalculation].String(),
		Observing:   snap.Modes[form.GroupObserving].String(),
		Operation:   string(snap.Modes[form.GroupCalculation].Operation()),
		Valid:       snap.Valid,
	}
	for _, fv := range snap.Fields {
		e.Fields = append(e.Fields, FieldExport{
			Name:    fv.Spec.Name,
			Value:   fv.State.Raw,
			Unit:    fv.State.Unit,
			Enabled: !fv.State.Disabled,
			Valid:   fv.State.Valid,
			Message: fv.Message,
		})
	}
	if snap.Valid {
		e.Request = c.Payload()
	}
	if snap.Result != nil {
		e.Result = &ResultExport{
			Quantity: string(snap.Result.Quantity),
			Value:    snap.Result.Value,
			Unit:     snap.Result.Unit,
			Display:  calc.FormatResult(*snap.Result),
		}
	}
	if snap.Err != nil {
		e.Error = ErrorText(snap.Err)
	}
	return e
}

// WriteJSON writes the export as indented JSON.
func (e *Export) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}

// ErrorText is the user-facing text for a submit error.
func ErrorText(err error) string {
	var rerr *calc.RequestError
	if errors.As(err, &rerr) {
		return rerr.Message()
	}
	return err.Error()
}

// SummaryRow is one line of the field table.
type SummaryRow struct {
	Label  string
	Value  string
	Unit   string
	Status string
}

// GenerateSummaryRows builds the field table rows in layout order.
func GenerateSummaryRows(snap form.Snapshot) []SummaryRow {
	rows := make([]SummaryRow, 0, len(snap.Fields))
	for _, fv := range snap.Fields {
		status := "ok"
		switch {
		case fv.State.Disabled:
			status = "-"
		case !fv.State.Valid:
			status = fv.Message
		}
		value := fv.State.Raw
		if fv.Spec.Kind == form.KindChoice && value == "" {
			value = "(none)"
		}
		rows = append(rows, SummaryRow{
			Label:  fv.Spec.Label,
			Value:  value,
			Unit:   fv.State.Unit,
			Status: status,
		})
	}
	return rows
}

// WriteSummary writes the form table, the result or error, and the
// target's elevation at site, both at transit and at timestamp.
func WriteSummary(w io.Writer, c *form.Controller, site astro.Observer, timestamp time.Time) {
	snap := c.Snapshot()
	calcMode := snap.Modes[form.GroupCalculation]

	fmt.Fprintf(w, "Sensitivity Calculator (%s) @ %s\n", snap.Layout, timestamp.Format(time.RFC3339))
	fmt.Fprintf(w, "Mode: %s / %s\n", calcMode.Label(), snap.Modes[form.GroupObserving].Label())
	fmt.Fprintln(w, strings.Repeat("─", 78))

	fmt.Fprintf(w, "%-26s %-16s %-6s %s\n", "Field", "Value", "Unit", "Status")
	fmt.Fprintln(w, strings.Repeat("─", 78))
	for _, r := range GenerateSummaryRows(snap) {
		fmt.Fprintf(w, "%-26s %-16s %-6s %s\n",
			truncateStr(r.Label, 26),
			truncateStr(r.Value, 16),
			truncateStr(r.Unit, 6),
			r.Status,
		)
	}
	fmt.Fprintln(w, strings.Repeat("─", 78))

	writeVisibility(w, c, site, timestamp)

	switch {
	case snap.Result != nil:
		q := snap.Result.Quantity
		if q == "" {
			q = calcMode.Operation()
		}
		fmt.Fprintf(w, "%s: %s\n", q.Label(), calc.FormatResult(*snap.Result))
	case snap.Err != nil:
		fmt.Fprintf(w, "Error: %s\n", ErrorText(snap.Err))
	case !snap.Valid:
		fmt.Fprintln(w, "Form has invalid fields")
	default:
		fmt.Fprintf(w, "%s: not computed\n", calcMode.Operation().Label())
	}
}

// writeVisibility reports where the target sits in the site's sky. An
// invalid right ascension only drops the elevation at timestamp.
func writeVisibility(w io.Writer, c *form.Controller, site astro.Observer, timestamp time.Time) {
	dec, ok := c.Field("dec")
	if !ok || dec.Disabled {
		return
	}
	switch {
	case dec.Valid:
		fmt.Fprintf(w, "Transit elevation at %s: %.1f°\n", site.Name, site.TransitElevation(dec.Value))
		ra, ok := c.Field("right_asc")
		if !ok || ra.Disabled || !ra.Valid {
			return
		}
		coord, err := astro.ParseCoord(ra.Raw, dec.Raw)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "Elevation at %s: %.1f°\n", timestamp.UTC().Format("15:04 MST"), site.Elevation(coord, timestamp))
	case dec.Reason == validate.ReasonNeverVisible:
		fmt.Fprintf(w, "Declinations from %s never rise at %s\n", astro.FormatDec(site.DeclinationLimit()), site.Name)
	}
}

// WriteDescriptors writes the backend's parameter table.
func WriteDescriptors(w io.Writer, set param.Set) {
	fmt.Fprintf(w, "%d parameters\n", len(set))
	fmt.Fprintln(w, strings.Repeat("─", 78))
	fmt.Fprintf(w, "%-14s %-10s %-8s %-22s %s\n", "Name", "Default", "Unit", "Range", "Units")
	fmt.Fprintln(w, strings.Repeat("─", 78))

	for _, name := range set.Names() {
		d := set[name]
		def := "-"
		if v, ok := d.Default(); ok {
			def = formatBound(v)
		}
		unit := d.DefaultUnit
		if unit == "" {
			unit = "-"
		}
		units := strings.Join(d.AllowedUnits, ",")
		if len(d.AllowedValues) > 0 {
			vals := make([]string, len(d.AllowedValues))
			for i, v := range d.AllowedValues {
				vals[i] = formatBound(v)
			}
			units = "one of " + strings.Join(vals, ",")
		}
		fmt.Fprintf(w, "%-14s %-10s %-8s %-22s %s\n",
			truncateStr(name, 14),
			truncateStr(def, 10),
			truncateStr(unit, 8),
			formatRange(d),
			units,
		)
	}
}

// WriteBands writes the receiver band table.
func WriteBands(w io.Writer) {
	fmt.Fprintf(w, "%-8s %-10s %s\n", "Band", "Low", "High")
	fmt.Fprintln(w, strings.Repeat("─", 30))
	for _, b := range validate.Bands {
		fmt.Fprintf(w, "%-8s %-10s %s\n", b.Name,
			humanize.SIWithDigits(b.LowHz, 3, "Hz"),
			humanize.SIWithDigits(b.HighHz, 3, "Hz"))
	}
}

func formatRange(d param.Descriptor) string {
	if d.LowerBound == nil && d.UpperBound == nil {
		return "-"
	}
	lo, hi := "-∞", "∞"
	left, right := "(", ")"
	if d.LowerBound != nil {
		lo = formatBound(*d.LowerBound)
		if !d.LowerBoundExclusive {
			left = "["
		}
	}
	if !d.UpperUnbounded() {
		hi = formatBound(*d.UpperBound)
		if !d.UpperBoundExclusive {
			right = "]"
		}
	}
	return left + lo + ", " + hi + right
}

func formatBound(v float64) string {
	if param.IsUnbounded(v) {
		return "∞"
	}
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return humanize.Comma(int64(v))
	}
	return humanize.CommafWithDigits(v, 4)
}

func truncateStr(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-2] + ".."
}
