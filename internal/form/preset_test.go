package form

import (
	"errors"
	"math"
	"testing"
)

func str(s string) *string { return &s }

func boolean(b bool) *bool { return &b }

func TestRestoreCalculationMode(t *testing.T) {
	tests := []struct {
		name   string
		preset Preset
		want   Mode
	}{
		{"explicit", Preset{Calculation: "sensitivity"}, ModeSensitivity},
		{"only sensitivity enabled", Preset{Fields: map[string]PresetField{
			"t_int":       {Enabled: boolean(false)},
			"sensitivity": {Enabled: boolean(true)},
		}}, ModeSensitivity},
		{"both enabled", Preset{Fields: map[string]PresetField{
			"t_int":       {Enabled: boolean(true)},
			"sensitivity": {Enabled: boolean(true)},
		}}, ModeIntegrationTime},
		{"neither enabled", Preset{Fields: map[string]PresetField{
			"t_int":       {Enabled: boolean(false)},
			"sensitivity": {Enabled: boolean(false)},
		}}, ModeIntegrationTime},
		{"nothing said", Preset{}, ModeIntegrationTime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestController(t, PublicLayout())
			c.SelectMode(ModeSensitivity)
			if err := c.Restore(tt.preset); err != nil {
				t.Fatalf("Restore: %v", err)
			}
			if got := c.Mode(GroupCalculation); got != tt.want {
				t.Errorf("mode = %v, want %v", got, tt.want)
			}
			tint, sens := field(t, c, "t_int"), field(t, c, "sensitivity")
			if tint.Disabled == sens.Disabled {
				t.Error("exactly one of t_int and sensitivity must be enabled")
			}
		})
	}
}

func TestRestoreValues(t *testing.T) {
	c := newTestController(t, InternalLayout())
	_ = c.SetValue("weather", "80")

	err := c.Restore(Preset{
		Observing: "line",
		Fields: map[string]PresetField{
			"obs_freq": {Value: str("800"), Unit: "MHz"},
			"Tsys_SKA": {Value: str("35"), Manual: boolean(true)},
		},
	})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if got := field(t, c, "weather").Raw; got != "50" {
		t.Errorf("weather = %q, want default 50", got)
	}
	if st := field(t, c, "obs_freq"); st.Raw != "800" || st.Unit != "MHz" || math.Abs(st.Value-0.8) > 1e-12 {
		t.Errorf("obs_freq = %+v", st)
	}
	if st := field(t, c, "Tsys_SKA"); !st.Manual || st.Disabled || !st.Valid {
		t.Errorf("Tsys_SKA = %+v", st)
	}
	if c.Mode(GroupObserving) != ModeLine {
		t.Errorf("observing mode = %v, want line", c.Mode(GroupObserving))
	}
}

func TestRestoreManualConflict(t *testing.T) {
	c := newTestController(t, InternalLayout())

	err := c.Restore(Preset{Fields: map[string]PresetField{
		"Tsys_SKA": {Value: str("35"), Manual: boolean(true)},
		"Tsky":     {Value: str("5"), Manual: boolean(true)},
	}})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !field(t, c, "Tsys_SKA").Manual {
		t.Error("Tsys_SKA should be manual")
	}
	if field(t, c, "Tsky").Manual {
		t.Error("Tsky conflicts with Tsys_SKA and should stay off")
	}
}

func TestRestoreErrors(t *testing.T) {
	tests := []struct {
		name   string
		preset Preset
		want   error
	}{
		{"unknown field", Preset{Fields: map[string]PresetField{"flux": {Value: str("1")}}}, ErrUnknownField},
		{"wrong group", Preset{Calculation: "line"}, ErrUnknownMode},
		{"manual on plain field", Preset{Fields: map[string]PresetField{"weather": {Manual: boolean(true)}}}, ErrNotManual},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestController(t, InternalLayout())
			_ = c.SetValue("weather", "70")
			if err := c.Restore(tt.preset); !errors.Is(err, tt.want) {
				t.Errorf("Restore error = %v, want %v", err, tt.want)
			}
			if got := field(t, c, "weather").Raw; got != "70" {
				t.Errorf("failed Restore modified the form: weather = %q", got)
			}
		})
	}
}

func TestExportRestore(t *testing.T) {
	c := newTestController(t, InternalLayout())
	c.SelectMode(ModeSensitivity)
	c.SelectMode(ModePulsars)
	_ = c.ToggleManual("Tgal")
	_ = c.SetValue("Tgal", "12")
	_ = c.SetUnit("bandwidth", "MHz")
	_ = c.SetValue("bandwidth", "250")

	p := c.Export()

	other := newTestController(t, InternalLayout())
	if err := other.Restore(p); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if other.Mode(GroupCalculation) != ModeSensitivity || other.Mode(GroupObserving) != ModePulsars {
		t.Errorf("modes = %v/%v", other.Mode(GroupCalculation), other.Mode(GroupObserving))
	}
	for _, name := range []string{"Tgal", "bandwidth"} {
		if got, want := field(t, other, name), field(t, c, name); got != want {
			t.Errorf("%s = %+v, want %+v", name, got, want)
		}
	}
}
