package form

import (
	"fmt"
	"sort"
)

// Preset is a saved form: mode selections plus per-field overrides.
type Preset struct {
	Calculation string                 `yaml:"calculation,omitempty" toml:"calculation,omitempty"`
	Observing   string                 `yaml:"observing,omitempty" toml:"observing,omitempty"`
	Fields      map[string]PresetField `yaml:"fields,omitempty" toml:"fields,omitempty"`
}

// PresetField overrides one field. Nil pointers leave the default.
type PresetField struct {
	Value   *string `yaml:"value,omitempty" toml:"value,omitempty"`
	Unit    string  `yaml:"unit,omitempty" toml:"unit,omitempty"`
	Manual  *bool   `yaml:"manual,omitempty" toml:"manual,omitempty"`
	Enabled *bool   `yaml:"enabled,omitempty" toml:"enabled,omitempty"`
}

// Restore resets the form and applies p. When p names no calculation mode
// the mode is inferred from the enabled flags of the calculation fields;
// if both or neither are enabled the form falls back to supplying
// integration time.
func (c *Controller) Restore(p Preset) error {
	var calcMode, obsMode *Mode
	if p.Calculation != "" {
		m, err := parseGroupMode(p.Calculation, GroupCalculation)
		if err != nil {
			return err
		}
		calcMode = &m
	}
	if p.Observing != "" {
		m, err := parseGroupMode(p.Observing, GroupObserving)
		if err != nil {
			return err
		}
		obsMode = &m
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(p.Fields))
	for name := range p.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		f, err := c.spec(name)
		if err != nil {
			return err
		}
		if p.Fields[name].Manual != nil && !f.Manual {
			return fmt.Errorf("%w: %s", ErrNotManual, name)
		}
	}

	c.resetLocked()

	for _, name := range names {
		pf := p.Fields[name]
		st := c.fields[name]
		if pf.Value != nil {
			st.Raw = *pf.Value
		}
		if pf.Unit != "" {
			st.Unit = pf.Unit
		}
		c.fields[name] = st
	}

	if calcMode == nil {
		calcMode = c.inferCalculation(p)
	}
	if calcMode != nil {
		c.modes[GroupCalculation] = *calcMode
	}
	if obsMode != nil {
		c.modes[GroupObserving] = *obsMode
	}

	for _, f := range c.layout.Fields {
		pf, ok := p.Fields[f.Name]
		if !ok || pf.Manual == nil || !*pf.Manual {
			continue
		}
		if by := c.lockedBy(f.Name); by != "" {
			c.logger.Warn("preset enables manual %s but %s is already manual; ignoring", f.Name, by)
			continue
		}
		st := c.fields[f.Name]
		st.Manual = true
		c.fields[f.Name] = st
	}

	c.invalidate()
	c.derive()
	return nil
}

// inferCalculation picks the calculation mode from enabled flags. It
// returns nil when the preset says nothing about them.
func (c *Controller) inferCalculation(p Preset) *Mode {
	var enabled []Mode
	mentioned := false
	for _, f := range c.layout.Fields {
		if len(f.Modes) == 0 || f.Modes[0].Group() != GroupCalculation {
			continue
		}
		pf, ok := p.Fields[f.Name]
		if !ok || pf.Enabled == nil {
			continue
		}
		mentioned = true
		if *pf.Enabled {
			enabled = append(enabled, f.Modes...)
		}
	}
	if !mentioned {
		return nil
	}
	if len(enabled) == 1 {
		return &enabled[0]
	}
	def := GroupCalculation.Default()
	c.logger.Warn("preset enables %d calculation fields; using %s", len(enabled), def)
	return &def
}

func parseGroupMode(s string, g GroupID) (Mode, error) {
	m, err := ParseMode(s)
	if err != nil {
		return 0, err
	}
	if m.Group() != g {
		return 0, fmt.Errorf("%w: %s is not a %s mode", ErrUnknownMode, m, g)
	}
	return m, nil
}

// Export captures the current form as a preset.
func (c *Controller) Export() Preset {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p := Preset{
		Calculation: c.modes[GroupCalculation].String(),
		Observing:   c.modes[GroupObserving].String(),
		Fields:      make(map[string]PresetField, len(c.fields)),
	}
	for _, f := range c.layout.Fields {
		st := c.fields[f.Name]
		raw := st.Raw
		pf := PresetField{Value: &raw, Unit: st.Unit}
		if f.Manual {
			manual := st.Manual
			pf.Manual = &manual
		}
		p.Fields[f.Name] = pf
	}
	return p
}
