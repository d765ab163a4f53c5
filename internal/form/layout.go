package form

import (
	"fmt"

	"github.com/litescript/ls-sensitivity/internal/param"
	"github.com/litescript/ls-sensitivity/internal/validate"
)

// Kind selects how a field is validated.
type Kind int

const (
	KindNumber Kind = iota
	KindRA
	KindDec
	KindChoice
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindRA:
		return "ra"
	case KindDec:
		return "dec"
	case KindChoice:
		return "choice"
	default:
		return "unknown"
	}
}

// FieldSpec describes one form field.
type FieldSpec struct {
	Name  string
	Label string
	Kind  Kind

	// Optional fields are valid when empty.
	Optional bool
	// Modes gates the field: it is enabled only while its group's active
	// mode is one of these. Empty means always enabled.
	Modes []Mode
	// Manual fields are enabled only while their "enter manually" toggle
	// is on.
	Manual bool
	// Local fields are validated but never sent to the backend.
	Local bool
	// Section groups fields for display.
	Section string

	// Default is the raw initial value when the descriptor has none.
	Default string
	// Fallback is used when the backend does not describe the field.
	Fallback *param.Descriptor
	// Choices are the options of a KindChoice field.
	Choices []string
}

// ContainmentRule requires the window Centre ± Width/2 to lie inside the
// receiver band selected in the Band field.
type ContainmentRule struct {
	Centre string
	Width  string
	Band   string
}

// Layout is the full form description.
type Layout struct {
	Name   string
	Fields []FieldSpec
	// Conflicts maps a manual field to the manual fields it locks while
	// its toggle is on.
	Conflicts   map[string][]string
	Containment []ContainmentRule
}

// Field returns the spec for name.
func (l Layout) Field(name string) (FieldSpec, bool) {
	for _, f := range l.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Check reports structural mistakes in the layout.
func (l Layout) Check() error {
	seen := make(map[string]FieldSpec, len(l.Fields))
	for _, f := range l.Fields {
		if f.Name == "" {
			return fmt.Errorf("layout %s: field with empty name", l.Name)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("layout %s: duplicate field %q", l.Name, f.Name)
		}
		if f.Kind == KindChoice && len(f.Choices) == 0 {
			return fmt.Errorf("layout %s: choice field %q has no choices", l.Name, f.Name)
		}
		if len(f.Modes) > 0 {
			g := f.Modes[0].Group()
			for _, m := range f.Modes[1:] {
				if m.Group() != g {
					return fmt.Errorf("layout %s: field %q gated on modes from different groups", l.Name, f.Name)
				}
			}
		}
		seen[f.Name] = f
	}
	for name, locks := range l.Conflicts {
		if f, ok := seen[name]; !ok || !f.Manual {
			return fmt.Errorf("layout %s: conflict source %q is not a manual field", l.Name, name)
		}
		for _, other := range locks {
			if f, ok := seen[other]; !ok || !f.Manual {
				return fmt.Errorf("layout %s: conflict target %q is not a manual field", l.Name, other)
			}
		}
	}
	for _, r := range l.Containment {
		for _, name := range []string{r.Centre, r.Width, r.Band} {
			if _, ok := seen[name]; !ok {
				return fmt.Errorf("layout %s: containment rule references unknown field %q", l.Name, name)
			}
		}
		if seen[r.Band].Kind != KindChoice {
			return fmt.Errorf("layout %s: containment band field %q is not a choice", l.Name, r.Band)
		}
	}
	return nil
}

func ptr(v float64) *float64 { return &v }

// positive is the descriptor used for manual overrides that just need to
// be greater than zero.
func positive(name, unit string) *param.Descriptor {
	d := &param.Descriptor{
		Name:                name,
		DefaultUnit:         unit,
		LowerBound:          ptr(0),
		LowerBoundExclusive: true,
	}
	if unit != "" {
		d.AllowedUnits = []string{unit}
		d.ConversionFactors = map[string]float64{unit: 1}
	}
	return d
}

func frequency(name string, def float64) *param.Descriptor {
	return &param.Descriptor{
		Name:                name,
		DefaultValue:        ptr(def),
		DefaultUnit:         "GHz",
		AllowedUnits:        []string{"Hz", "kHz", "MHz", "GHz"},
		ConversionFactors:   map[string]float64{"Hz": 1e-9, "kHz": 1e-6, "MHz": 1e-3, "GHz": 1},
		LowerBound:          ptr(0),
		LowerBoundExclusive: true,
		UpperBound:          ptr(param.Unbounded),
		UpperBoundExclusive: true,
	}
}

func publicFields() []FieldSpec {
	return []FieldSpec{
		{Name: "right_asc", Label: "Right ascension", Kind: KindRA, Local: true, Section: "Target", Default: "00:00:00"},
		{Name: "dec", Label: "Declination", Kind: KindDec, Local: true, Section: "Target", Default: "-30:00:00"},
		{Name: "t_int", Label: "Integration time", Modes: []Mode{ModeIntegrationTime}, Section: "Calculation"},
		{Name: "sensitivity", Label: "Sensitivity", Modes: []Mode{ModeSensitivity}, Section: "Calculation"},
		{Name: "obs_freq", Label: "Observing frequency", Section: "Observation"},
		{Name: "bandwidth", Label: "Bandwidth", Section: "Observation"},
		{Name: "n_pol", Label: "Polarisations", Section: "Observation"},
		{Name: "weather", Label: "Weather (PWV percentile)", Section: "Observation"},
		{Name: "elevation", Label: "Elevation", Section: "Observation"},
	}
}

// PublicLayout is the form offered to external users.
func PublicLayout() Layout {
	return Layout{Name: "public", Fields: publicFields()}
}

// InternalLayout adds receiver bands, line-mode zoom windows and the
// manual temperature overrides.
func InternalLayout() Layout {
	fields := publicFields()
	for i := range fields {
		if fields[i].Name == "bandwidth" {
			fields[i].Modes = []Mode{ModeContinuum, ModePulsars}
		}
	}

	fields = append(fields,
		FieldSpec{Name: "t_int_override", Label: "Integration time override", Optional: true, Section: "Calculation",
			Fallback: &param.Descriptor{
				Name: "t_int_override", DefaultUnit: "s",
				AllowedUnits:      []string{"s", "min", "h"},
				ConversionFactors: map[string]float64{"s": 1, "min": 60, "h": 3600},
				LowerBound:        ptr(0), LowerBoundExclusive: true,
			}},
		FieldSpec{Name: "band", Label: "Receiver band", Kind: KindChoice, Local: true, Section: "Observation",
			Choices: validate.BandNames()},
		FieldSpec{Name: "zoom_freq", Label: "Zoom centre", Modes: []Mode{ModeLine}, Section: "Line",
			Fallback: frequency("zoom_freq", 1.4)},
		FieldSpec{Name: "zoom_resolution", Label: "Zoom width", Modes: []Mode{ModeLine}, Section: "Line",
			Fallback: frequency("zoom_resolution", 0.1)},
	)

	for _, name := range []string{"Tsys_SKA", "Trcv_SKA", "Tspl_SKA", "Tsys_Meer", "Trcv_Meer", "Tspl_Meer", "Tsky", "Tgal"} {
		fields = append(fields, FieldSpec{
			Name: name, Label: name, Manual: true, Section: "Temperatures",
			Fallback: positive(name, "K"),
		})
	}
	fields = append(fields, FieldSpec{
		Name: "alpha", Label: "Spectral index", Manual: true, Section: "Temperatures",
		Fallback: positive("alpha", ""),
	})

	return Layout{
		Name:   "internal",
		Fields: fields,
		Conflicts: map[string][]string{
			"Tsys_SKA":  {"Trcv_SKA", "Tspl_SKA", "Tsky", "Tgal", "alpha"},
			"Trcv_SKA":  {"Tsys_SKA"},
			"Tspl_SKA":  {"Tsys_SKA"},
			"Tsys_Meer": {"Trcv_Meer", "Tspl_Meer", "Tsky", "Tgal", "alpha"},
			"Trcv_Meer": {"Tsys_Meer"},
			"Tspl_Meer": {"Tsys_Meer"},
			"Tsky":      {"Tsys_SKA", "Tsys_Meer", "Tgal", "alpha"},
			"Tgal":      {"Tsys_SKA", "Tsys_Meer", "Tsky", "alpha"},
			"alpha":     {"Tsys_SKA", "Tsys_Meer", "Tsky", "Tgal"},
		},
		Containment: []ContainmentRule{
			{Centre: "obs_freq", Width: "bandwidth", Band: "band"},
			{Centre: "zoom_freq", Width: "zoom_resolution", Band: "band"},
		},
	}
}

// LayoutByName returns the public or internal layout.
func LayoutByName(name string) (Layout, error) {
	switch name {
	case "", "public":
		return PublicLayout(), nil
	case "internal":
		return InternalLayout(), nil
	default:
		return Layout{}, fmt.Errorf("unknown layout %q", name)
	}
}

// hzPerUnit scales frequency units to Hz for band containment.
var hzPerUnit = map[string]float64{
	"Hz":  1,
	"kHz": 1e3,
	"MHz": 1e6,
	"GHz": 1e9,
}
