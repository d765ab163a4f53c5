package form

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/litescript/ls-sensitivity/internal/calc"
	"github.com/litescript/ls-sensitivity/internal/logging"
	"github.com/litescript/ls-sensitivity/internal/param"
	"github.com/litescript/ls-sensitivity/internal/validate"
)

var (
	ErrUnknownField = errors.New("unknown field")
	ErrNotManual    = errors.New("field has no manual toggle")
	ErrManualLocked = errors.New("manual entry locked by another field")
	ErrNotChoice    = errors.New("field is not a choice")
	ErrUnknownMode  = errors.New("mode not valid for group")
)

// FieldState is one field's current value and validation result.
type FieldState struct {
	Raw      string
	Unit     string
	Disabled bool
	// Manual is the "enter manually" toggle. Only meaningful for manual
	// fields.
	Manual bool
	Valid  bool
	Reason validate.Reason
	// Value is the parsed value in default units when Valid and enabled.
	Value float64
}

// Controller owns the form state. All methods are safe for concurrent use.
type Controller struct {
	mu sync.RWMutex

	layout      Layout
	descriptors param.Set
	validator   *validate.Validator
	logger      *logging.Logger

	fields map[string]FieldState
	modes  map[GroupID]Mode

	// generation changes on every edit; a response is applied only if it
	// was requested at the current generation.
	generation uint64
	submitSeq  uint64
	inFlight   bool
	computed   bool
	result     *calc.Result
	err        error
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewController builds a controller for layout using the backend's
// descriptors. Fields the backend does not describe fall back to the
// layout's own descriptor.
func NewController(layout Layout, descriptors param.Set, v *validate.Validator, opts ...Option) (*Controller, error) {
	if err := layout.Check(); err != nil {
		return nil, err
	}
	if v == nil {
		v = validate.New()
	}
	c := &Controller{
		layout:      layout,
		descriptors: descriptors,
		validator:   v,
		logger:      logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}

	for _, f := range layout.Fields {
		if f.Kind != KindNumber {
			continue
		}
		if _, ok := descriptors.Get(f.Name); !ok && f.Fallback == nil {
			c.logger.Warn("no descriptor for %s; only numeric checks apply", f.Name)
		}
	}

	c.resetLocked()
	return c, nil
}

// Descriptor returns the descriptor in force for name.
func (c *Controller) Descriptor(name string) param.Descriptor {
	if d, ok := c.descriptors.Get(name); ok {
		return d
	}
	if f, ok := c.layout.Field(name); ok && f.Fallback != nil {
		d := *f.Fallback
		d.Name = name
		return d
	}
	return param.Descriptor{Name: name}
}

// Layout returns the form layout.
func (c *Controller) Layout() Layout {
	return c.layout
}

func (c *Controller) defaultState(f FieldSpec) FieldState {
	st := FieldState{Raw: f.Default}
	switch f.Kind {
	case KindNumber:
		d := c.Descriptor(f.Name)
		if v, ok := d.Default(); ok {
			st.Raw = strconv.FormatFloat(v, 'f', -1, 64)
		}
		if d.HasUnits() {
			st.Unit = d.DefaultUnit
			if st.Unit == "" {
				st.Unit = d.AllowedUnits[0]
			}
		}
	case KindChoice:
		if st.Raw == "" {
			st.Raw = f.Choices[0]
		}
	}
	return st
}

func (c *Controller) resetLocked() {
	c.fields = make(map[string]FieldState, len(c.layout.Fields))
	for _, f := range c.layout.Fields {
		c.fields[f.Name] = c.defaultState(f)
	}
	c.modes = make(map[GroupID]Mode, len(Groups))
	for _, g := range Groups {
		c.modes[g] = g.Default()
	}
	c.inFlight = false
	c.invalidate()
	c.derive()
}

// invalidate marks the result stale after any edit.
func (c *Controller) invalidate() {
	c.generation++
	c.computed = false
	c.result = nil
	c.err = nil
}

func (c *Controller) enabled(f FieldSpec) bool {
	if len(f.Modes) > 0 {
		active := c.modes[f.Modes[0].Group()]
		found := false
		for _, m := range f.Modes {
			if m == active {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Manual {
		return c.fields[f.Name].Manual
	}
	return true
}

// derive recomputes enablement and validity of every field.
func (c *Controller) derive() {
	for _, f := range c.layout.Fields {
		st := c.fields[f.Name]
		st.Disabled = !c.enabled(f)
		in := validate.Input{Raw: st.Raw, Unit: st.Unit, Disabled: st.Disabled, Optional: f.Optional}

		var out validate.Outcome
		switch f.Kind {
		case KindNumber:
			out = c.validator.Field(in, c.Descriptor(f.Name))
		case KindRA:
			out = c.validator.RA(in)
		case KindDec:
			out = c.validator.Dec(in)
		case KindChoice:
			out = validate.Outcome{OK: true}
			if !st.Disabled && !contains(f.Choices, st.Raw) {
				out = validate.Outcome{Reason: validate.ReasonNotAllowed}
			}
		}
		st.Valid = out.OK
		st.Reason = out.Reason
		st.Value = out.Value
		c.fields[f.Name] = st
	}

	for _, r := range c.layout.Containment {
		c.checkContainment(r)
	}
}

func (c *Controller) checkContainment(r ContainmentRule) {
	band := c.fields[r.Band]
	if band.Disabled || band.Raw == "" {
		return
	}
	centre, width := c.fields[r.Centre], c.fields[r.Width]
	if centre.Disabled || width.Disabled || !centre.Valid || !width.Valid {
		return
	}
	cs, ok1 := hzPerUnit[c.Descriptor(r.Centre).DefaultUnit]
	ws, ok2 := hzPerUnit[c.Descriptor(r.Width).DefaultUnit]
	if !ok1 || !ok2 {
		c.logger.Debug("skipping band check for %s/%s: default units are not frequencies", r.Centre, r.Width)
		return
	}
	if !validate.BandwidthContained(centre.Value*cs, width.Value*ws, band.Raw) {
		width.Valid = false
		width.Reason = validate.ReasonOutsideBand
		c.fields[r.Width] = width
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (c *Controller) spec(name string) (FieldSpec, error) {
	f, ok := c.layout.Field(name)
	if !ok {
		return FieldSpec{}, fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	return f, nil
}

// SetValue replaces a field's raw text and revalidates the form.
func (c *Controller) SetValue(name, raw string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.spec(name); err != nil {
		return err
	}
	st := c.fields[name]
	if st.Raw == raw {
		return nil
	}
	st.Raw = raw
	c.fields[name] = st
	c.invalidate()
	c.derive()
	return nil
}

// SetUnit selects a field's unit. Units outside the descriptor's list are
// accepted here and reported by validation.
func (c *Controller) SetUnit(name, unit string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.spec(name); err != nil {
		return err
	}
	st := c.fields[name]
	if st.Unit == unit {
		return nil
	}
	st.Unit = unit
	c.fields[name] = st
	c.invalidate()
	c.derive()
	return nil
}

// CycleUnit advances to the next allowed unit. It reports whether the
// unit changed.
func (c *Controller) CycleUnit(name string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.spec(name); err != nil {
		return false, err
	}
	units := c.Descriptor(name).AllowedUnits
	if len(units) < 2 {
		return false, nil
	}
	st := c.fields[name]
	st.Unit = next(units, st.Unit)
	c.fields[name] = st
	c.invalidate()
	c.derive()
	return true, nil
}

// CycleChoice advances a choice field to its next option.
func (c *Controller) CycleChoice(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := c.spec(name)
	if err != nil {
		return err
	}
	if f.Kind != KindChoice {
		return fmt.Errorf("%w: %s", ErrNotChoice, name)
	}
	st := c.fields[name]
	st.Raw = next(f.Choices, st.Raw)
	c.fields[name] = st
	c.invalidate()
	c.derive()
	return nil
}

func next(list []string, cur string) string {
	for i, v := range list {
		if v == cur {
			return list[(i+1)%len(list)]
		}
	}
	return list[0]
}

// SelectMode activates m within its group. Selecting the active mode is a
// no-op and reports false.
func (c *Controller) SelectMode(m Mode) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectLocked(m)
}

func (c *Controller) selectLocked(m Mode) bool {
	g := m.Group()
	if c.modes[g] == m {
		return false
	}
	c.logger.Debug("%s mode %s -> %s", g, c.modes[g], m)
	c.modes[g] = m
	c.invalidate()
	c.derive()
	return true
}

// CycleMode moves group g to its next mode.
func (c *Controller) CycleMode(g GroupID) Mode {
	c.mu.Lock()
	defer c.mu.Unlock()

	members := g.Members()
	cur := c.modes[g]
	for i, m := range members {
		if m == cur {
			c.selectLocked(members[(i+1)%len(members)])
			break
		}
	}
	return c.modes[g]
}

// ToggleManual flips a manual field's toggle. Turning it on fails while a
// conflicting field is in manual entry.
func (c *Controller) ToggleManual(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := c.spec(name)
	if err != nil {
		return err
	}
	if !f.Manual {
		return fmt.Errorf("%w: %s", ErrNotManual, name)
	}
	st := c.fields[name]
	if !st.Manual {
		if by := c.lockedBy(name); by != "" {
			return fmt.Errorf("%w: %s is locked by %s", ErrManualLocked, name, by)
		}
	}
	st.Manual = !st.Manual
	c.fields[name] = st
	c.invalidate()
	c.derive()
	return nil
}

func (c *Controller) lockedBy(name string) string {
	for _, f := range c.layout.Fields {
		if !f.Manual || !c.fields[f.Name].Manual {
			continue
		}
		if contains(c.layout.Conflicts[f.Name], name) {
			return f.Name
		}
	}
	return ""
}

// Reset returns every field, mode and toggle to its initial value. Any
// in-flight response will be discarded when it arrives.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger.Debug("form reset")
	c.resetLocked()
}

// Field returns a copy of a field's state.
func (c *Controller) Field(name string) (FieldState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st, ok := c.fields[name]
	return st, ok
}

// Mode returns the active mode of group g.
func (c *Controller) Mode(g GroupID) Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.modes[g]
}

// Operation is the calculation implied by the active calculation mode.
func (c *Controller) Operation() calc.Operation {
	return c.Mode(GroupCalculation).Operation()
}

func (c *Controller) validLocked() bool {
	for _, f := range c.layout.Fields {
		st := c.fields[f.Name]
		if !st.Disabled && !st.Valid {
			return false
		}
	}
	return true
}

// Valid reports whether every enabled field passes validation.
func (c *Controller) Valid() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.validLocked()
}

// SubmitEnabled reports whether the submit control should be active.
func (c *Controller) SubmitEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.validLocked() && !c.inFlight && !c.computed
}

// Result returns the last applied result, if any.
func (c *Controller) Result() (calc.Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.result == nil {
		return calc.Result{}, false
	}
	return *c.result, true
}

// Err returns the last applied request error.
func (c *Controller) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Generation returns the current edit generation.
func (c *Controller) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// Message returns the user-facing text for a field's validation failure,
// or "" when the field is valid or disabled.
func (c *Controller) Message(name string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.messageLocked(name)
}

func (c *Controller) messageLocked(name string) string {
	st, ok := c.fields[name]
	if !ok || st.Disabled || st.Valid {
		return ""
	}
	if f, _ := c.layout.Field(name); f.Kind == KindChoice {
		var opts []string
		for _, ch := range f.Choices {
			if ch != "" {
				opts = append(opts, ch)
			}
		}
		return "Please choose one of " + strings.Join(opts, ", ")
	}
	return validate.Message(st.Reason, c.Descriptor(name))
}

// FieldView is a field's spec and state together, for rendering.
type FieldView struct {
	Spec    FieldSpec
	State   FieldState
	Message string
	// Hint is the short allowed-range text, such as ">=1 s".
	Hint   string
	Locked bool
}

// Snapshot is a point-in-time copy of the whole form.
type Snapshot struct {
	Layout        string
	Fields        []FieldView
	Modes         map[GroupID]Mode
	Valid         bool
	SubmitEnabled bool
	InFlight      bool
	Computed      bool
	Result        *calc.Result
	Err           error
	Generation    uint64
}

// Snapshot returns a consistent copy of the form state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Layout:     c.layout.Name,
		Fields:     make([]FieldView, 0, len(c.layout.Fields)),
		Modes:      make(map[GroupID]Mode, len(c.modes)),
		Valid:      c.validLocked(),
		InFlight:   c.inFlight,
		Computed:   c.computed,
		Err:        c.err,
		Generation: c.generation,
	}
	s.SubmitEnabled = s.Valid && !c.inFlight && !c.computed
	for g, m := range c.modes {
		s.Modes[g] = m
	}
	if c.result != nil {
		r := *c.result
		s.Result = &r
	}
	for _, f := range c.layout.Fields {
		v := FieldView{Spec: f, State: c.fields[f.Name], Message: c.messageLocked(f.Name)}
		if f.Kind == KindNumber {
			v.Hint = validate.AllowedRange(c.Descriptor(f.Name))
		}
		if f.Manual {
			v.Locked = c.lockedBy(f.Name) != ""
		}
		s.Fields = append(s.Fields, v)
	}
	return s
}

// Payload builds the request for the enabled, non-local, non-empty fields.
func (c *Controller) Payload() calc.Request {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.payloadLocked()
}

func (c *Controller) payloadLocked() calc.Request {
	req := make(calc.Request)
	for _, f := range c.layout.Fields {
		st := c.fields[f.Name]
		if f.Local || st.Disabled {
			continue
		}
		raw := strings.TrimSpace(st.Raw)
		if raw == "" {
			continue
		}
		unit := st.Unit
		if unit == "" {
			unit = c.Descriptor(f.Name).DefaultUnit
		}
		req[f.Name] = calc.Entry{Value: raw, Unit: unit}
	}
	return req
}
