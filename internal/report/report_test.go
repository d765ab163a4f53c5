package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/litescript/ls-sensitivity/internal/astro"
	"github.com/litescript/ls-sensitivity/internal/calc"
	"github.com/litescript/ls-sensitivity/internal/form"
	"github.com/litescript/ls-sensitivity/internal/param"
	"github.com/litescript/ls-sensitivity/internal/validate"
)

func f(v float64) *float64 { return &v }

func testSet() param.Set {
	return param.Set{
		"t_int": {
			Name: "t_int", DefaultValue: f(100), DefaultUnit: "s",
			AllowedUnits:      []string{"s", "min"},
			ConversionFactors: map[string]float64{"s": 1, "min": 60},
			LowerBound:        f(1), UpperBound: f(param.Unbounded), UpperBoundExclusive: true,
		},
		"sensitivity": {Name: "sensitivity", DefaultValue: f(0.3), DefaultUnit: "mJy", LowerBound: f(0), LowerBoundExclusive: true},
		"obs_freq":    {Name: "obs_freq", DefaultValue: f(1.4), DefaultUnit: "GHz"},
		"bandwidth":   {Name: "bandwidth", DefaultValue: f(0.1), DefaultUnit: "GHz"},
		"n_pol":       {Name: "n_pol", DefaultValue: f(2), AllowedValues: []float64{1, 2}},
		"weather":     {Name: "weather", DefaultValue: f(50), LowerBound: f(5), UpperBound: f(95)},
		"elevation":   {Name: "elevation", DefaultValue: f(45), DefaultUnit: "deg", LowerBound: f(15), UpperBound: f(90)},
	}
}

func newController(t *testing.T) *form.Controller {
	t.Helper()
	c, err := form.NewController(form.PublicLayout(), testSet(), validate.New())
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return c
}

var ts = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestWriteSummaryWithResult(t *testing.T) {
	c := newController(t)
	ticket, err := c.BeginSubmit()
	if err != nil {
		t.Fatalf("BeginSubmit: %v", err)
	}
	c.CompleteSubmit(ticket, calc.Result{Value: 0.0123, Unit: "mJy", Quantity: calc.OpSensitivity}, nil)

	var buf bytes.Buffer
	WriteSummary(&buf, c, astro.ReferenceSite, ts)
	out := buf.String()

	now := astro.ReferenceSite.Elevation(astro.SkyCoord{RAdeg: 0, DecDeg: -30}, ts)
	for _, want := range []string{
		fmt.Sprintf("Elevation at 12:00 UTC: %.1f°", now),
		"Sensitivity Calculator (public) @ 2026-03-01T12:00:00Z",
		"Mode: Supply integration time / Continuum",
		"Integration time",
		"Transit elevation at SKA-Mid: 89.3°",
		"Sensitivity: 0.0123 mJy",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q\n%s", want, out)
		}
	}
}

func TestWriteSummaryStates(t *testing.T) {
	tests := []struct {
		name string
		prep func(c *form.Controller)
		want string
	}{
		{"not computed", func(c *form.Controller) {}, "Sensitivity: not computed"},
		{"invalid", func(c *form.Controller) { _ = c.SetValue("n_pol", "4") }, "Form has invalid fields"},
		{"request error", func(c *form.Controller) {
			ticket, _ := c.BeginSubmit()
			c.CompleteSubmit(ticket, calc.Result{}, &calc.RequestError{Op: "sensitivity", Status: 400, Detail: "Value must be greater than 0"})
		}, "Error: Value must be greater than 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newController(t)
			tt.prep(c)
			var buf bytes.Buffer
			WriteSummary(&buf, c, astro.ReferenceSite, ts)
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("summary missing %q\n%s", tt.want, buf.String())
			}
		})
	}
}

func TestWriteSummaryVisibility(t *testing.T) {
	tests := []struct {
		name    string
		ra, dec string
		want    []string
		absent  []string
	}{
		{
			name:   "never rises",
			ra:     "00:00:00",
			dec:    "+59:16:43.932",
			want:   []string{"Declinations from +59:16:43.932 never rise at SKA-Mid"},
			absent: []string{"Transit elevation", "Elevation at"},
		},
		{
			name:   "bad right ascension",
			ra:     "0h",
			dec:    "-30:00:00",
			want:   []string{"Transit elevation at SKA-Mid: 89.3°"},
			absent: []string{"Elevation at 12:00"},
		},
		{
			name:   "bad declination format",
			ra:     "00:00:00",
			dec:    "30:00:00",
			absent: []string{"Transit elevation", "Elevation at", "never rise"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newController(t)
			_ = c.SetValue("right_asc", tt.ra)
			_ = c.SetValue("dec", tt.dec)

			var buf bytes.Buffer
			WriteSummary(&buf, c, astro.ReferenceSite, ts)
			out := buf.String()
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("summary missing %q\n%s", want, out)
				}
			}
			for _, absent := range tt.absent {
				if strings.Contains(out, absent) {
					t.Errorf("summary contains %q\n%s", absent, out)
				}
			}
		})
	}
}

func TestGenerateSummaryRows(t *testing.T) {
	c := newController(t)
	_ = c.SetValue("weather", "99")

	rows := GenerateSummaryRows(c.Snapshot())
	byLabel := make(map[string]SummaryRow, len(rows))
	for _, r := range rows {
		byLabel[r.Label] = r
	}
	if got := byLabel["Sensitivity"].Status; got != "-" {
		t.Errorf("disabled status = %q, want -", got)
	}
	if got := byLabel["Integration time"].Status; got != "ok" {
		t.Errorf("valid status = %q, want ok", got)
	}
	if got := byLabel["Weather (PWV percentile)"].Status; !strings.HasPrefix(got, "Please enter a valid number") {
		t.Errorf("invalid status = %q", got)
	}
}

func TestExportJSON(t *testing.T) {
	c := newController(t)
	c.SelectMode(form.ModeSensitivity)

	var buf bytes.Buffer
	if err := NewExport(c, ts).WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var got Export
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Operation != "integration-time" || got.Calculation != "sensitivity" {
		t.Errorf("operation/calculation = %q/%q", got.Operation, got.Calculation)
	}
	if _, ok := got.Request["t_int"]; ok {
		t.Error("request contains disabled t_int")
	}
	if got.Request["sensitivity"].Unit != "mJy" {
		t.Errorf("sensitivity entry = %+v", got.Request["sensitivity"])
	}
	if got.Result != nil || got.Error != "" {
		t.Errorf("unexpected result/error: %+v %q", got.Result, got.Error)
	}
}

func TestWriteDescriptors(t *testing.T) {
	set := testSet()
	set["big"] = param.Descriptor{Name: "big", DefaultValue: f(1500000), LowerBound: f(0.25), UpperBound: f(2e6)}

	var buf bytes.Buffer
	WriteDescriptors(&buf, set)
	out := buf.String()

	for _, want := range []string{
		"8 parameters",
		"[1, ∞)",
		"one of 1,2",
		"1,500,000",
		"[0.25, 2,000,000]",
		"s,min",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("descriptor table missing %q\n%s", want, out)
		}
	}
}

func TestWriteBands(t *testing.T) {
	var buf bytes.Buffer
	WriteBands(&buf)
	for _, want := range []string{"Band 1", "350 MHz", "15.4 GHz"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("band table missing %q\n%s", want, buf.String())
		}
	}
}

func TestTruncateStr(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10c", 10, "exactly10c"},
		{"integration_time", 8, "integr.."},
		{"abcdef", 3, "abc"},
	}
	for _, tt := range tests {
		if got := truncateStr(tt.in, tt.max); got != tt.want {
			t.Errorf("truncateStr(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
