package param

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"
)

const descriptorJSON = `{
  "t_int": {"default_value": 100, "default_unit": "s", "lower_value": 1,
            "lower_value_is_floor": false, "upper_value": 1e20, "upper_value_is_ceil": true,
            "allowed_values": null, "units": ["s", "min", "h"],
            "data_conversion": {"s": 1, "min": 60, "h": 3600}},
  "bandwidth": {"default_value": 7.5, "default_unit": "GHz", "lower_value": 0,
                "lower_value_is_floor": true, "upper_value": 1e20, "upper_value_is_ceil": true,
                "units": ["Hz", "kHz", "MHz", "GHz"],
                "data_conversion": {"Hz": 1e-9, "kHz": 1e-6, "MHz": 0.001, "GHz": 1}},
  "n_pol": {"default_value": 2, "default_unit": null, "lower_value": null, "upper_value": null,
            "allowed_values": [1, 2], "units": null, "data_conversion": null}
}`

func TestDecode(t *testing.T) {
	set, err := Decode(strings.NewReader(descriptorJSON))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if got, want := set.Names(), []string{"bandwidth", "n_pol", "t_int"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}

	tint, ok := set.Get("t_int")
	if !ok {
		t.Fatal("t_int missing")
	}
	if tint.Name != "t_int" {
		t.Errorf("Name = %q, want t_int", tint.Name)
	}
	if v, ok := tint.Default(); !ok || v != 100 {
		t.Errorf("Default() = %v, %v, want 100, true", v, ok)
	}
	if !tint.UpperUnbounded() {
		t.Error("t_int upper bound should be unbounded")
	}
	if tint.LowerBound == nil || *tint.LowerBound != 1 {
		t.Errorf("LowerBound = %v, want 1", tint.LowerBound)
	}

	npol := set["n_pol"]
	if npol.HasUnits() {
		t.Error("n_pol should have no unit selector")
	}
	if !reflect.DeepEqual(npol.AllowedValues, []float64{1, 2}) {
		t.Errorf("AllowedValues = %v, want [1 2]", npol.AllowedValues)
	}
	if npol.LowerBound != nil || npol.UpperBound != nil {
		t.Error("n_pol bounds should be absent")
	}
}

func TestDecodeDoubleEncoded(t *testing.T) {
	quoted := `"{\"weather\": {\"default_value\": 50, \"lower_value\": 0, \"upper_value\": 100}}"`
	set, err := Decode(strings.NewReader(quoted))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	w, ok := set.Get("weather")
	if !ok {
		t.Fatal("weather missing")
	}
	if w.UpperBound == nil || *w.UpperBound != 100 {
		t.Errorf("UpperBound = %v, want 100", w.UpperBound)
	}
}

func TestDecodeErrors(t *testing.T) {
	for _, body := range []string{"", "[1,2]", `"not json"`, `{"x": {"default_value": "ten"}}`} {
		if _, err := Decode(strings.NewReader(body)); err == nil {
			t.Errorf("Decode(%q) succeeded, want error", body)
		}
	}
}

func TestToDefaultUnits(t *testing.T) {
	set, err := Decode(strings.NewReader(descriptorJSON))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	tests := []struct {
		name  string
		param string
		value float64
		unit  string
		want  float64
	}{
		{"identity default unit", "bandwidth", 7.5, "GHz", 7.5},
		{"MHz to GHz", "bandwidth", 500, "MHz", 0.5},
		{"Hz to GHz", "bandwidth", 2e9, "Hz", 2},
		{"minutes to seconds", "t_int", 2, "min", 120},
		{"no unit selector", "n_pol", 2, "", 2},
		{"empty unit means default", "t_int", 30, "", 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToDefaultUnits(tt.value, tt.unit, set[tt.param])
			if err != nil {
				t.Fatalf("ToDefaultUnits: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("ToDefaultUnits(%v, %q) = %v, want %v", tt.value, tt.unit, got, tt.want)
			}
		})
	}
}

func TestFactorDefaultUnitWithoutMap(t *testing.T) {
	d := Descriptor{Name: "elevation", DefaultUnit: "deg"}
	f, err := Factor("deg", d)
	if err != nil || f != 1 {
		t.Errorf("Factor(deg) = %v, %v, want 1, nil", f, err)
	}
}

func TestConversionError(t *testing.T) {
	d := Descriptor{
		Name:              "bandwidth",
		DefaultUnit:       "GHz",
		ConversionFactors: map[string]float64{"Hz": 1e-9, "MHz": 0.001, "GHz": 1},
	}

	tests := []struct {
		unit           string
		wantSuggestion string
	}{
		{"Mhz", "MHz"},
		{"THz", "GHz"},
		{"furlongs", ""},
	}

	for _, tt := range tests {
		t.Run(tt.unit, func(t *testing.T) {
			_, err := ToDefaultUnits(1, tt.unit, d)
			var ce *ConversionError
			if !errors.As(err, &ce) {
				t.Fatalf("error = %v, want *ConversionError", err)
			}
			if ce.Param != "bandwidth" || ce.Unit != tt.unit {
				t.Errorf("ConversionError = %+v", ce)
			}
			if ce.Suggestion != tt.wantSuggestion {
				t.Errorf("Suggestion = %q, want %q", ce.Suggestion, tt.wantSuggestion)
			}
			if !reflect.DeepEqual(ce.Known, []string{"GHz", "Hz", "MHz"}) {
				t.Errorf("Known = %v", ce.Known)
			}
		})
	}
}

func TestDefaultUnitConversionIsIdempotent(t *testing.T) {
	d := Descriptor{
		Name:              "bandwidth",
		DefaultUnit:       "GHz",
		ConversionFactors: map[string]float64{"MHz": 0.001, "GHz": 1},
	}
	for _, v := range []float64{0, 1, 7.5, 1234.5678} {
		once, err := ToDefaultUnits(v, "MHz", d)
		if err != nil {
			t.Fatalf("ToDefaultUnits: %v", err)
		}
		twice, err := ToDefaultUnits(once, d.DefaultUnit, d)
		if err != nil {
			t.Fatalf("ToDefaultUnits: %v", err)
		}
		if once != twice {
			t.Errorf("default-unit conversion changed %v to %v", once, twice)
		}
	}
}
