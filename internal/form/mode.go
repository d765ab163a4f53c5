// Package form holds the calculator form's state: field values, the
// mutually exclusive mode groups, manual-entry toggles, validation results
// and the submit lifecycle.
package form

import (
	"fmt"
	"strings"

	"github.com/litescript/ls-sensitivity/internal/calc"
)

// GroupID identifies a set of mutually exclusive modes.
type GroupID int

const (
	// GroupCalculation selects which quantity the user supplies.
	GroupCalculation GroupID = iota
	// GroupObserving selects the observing-mode section.
	GroupObserving
)

func (g GroupID) String() string {
	switch g {
	case GroupCalculation:
		return "calculation"
	case GroupObserving:
		return "observing"
	default:
		return "unknown"
	}
}

// Members returns the group's modes in display order.
func (g GroupID) Members() []Mode {
	switch g {
	case GroupCalculation:
		return []Mode{ModeIntegrationTime, ModeSensitivity}
	case GroupObserving:
		return []Mode{ModeContinuum, ModeLine, ModePulsars}
	default:
		return nil
	}
}

// Default is the mode active after startup or reset.
func (g GroupID) Default() Mode {
	return g.Members()[0]
}

// Groups lists every mode group.
var Groups = []GroupID{GroupCalculation, GroupObserving}

// Mode is one member of a mode group.
type Mode int

const (
	// ModeIntegrationTime: the user supplies integration time, the backend
	// computes sensitivity.
	ModeIntegrationTime Mode = iota
	// ModeSensitivity: the user supplies sensitivity, the backend computes
	// integration time.
	ModeSensitivity
	ModeContinuum
	ModeLine
	ModePulsars
)

func (m Mode) String() string {
	switch m {
	case ModeIntegrationTime:
		return "integration-time"
	case ModeSensitivity:
		return "sensitivity"
	case ModeContinuum:
		return "continuum"
	case ModeLine:
		return "line"
	case ModePulsars:
		return "pulsars"
	default:
		return "unknown"
	}
}

// Label is the mode's display name.
func (m Mode) Label() string {
	switch m {
	case ModeIntegrationTime:
		return "Supply integration time"
	case ModeSensitivity:
		return "Supply sensitivity"
	case ModeContinuum:
		return "Continuum"
	case ModeLine:
		return "Line"
	case ModePulsars:
		return "Pulsars"
	default:
		return "Unknown"
	}
}

// Group returns the group the mode belongs to.
func (m Mode) Group() GroupID {
	switch m {
	case ModeIntegrationTime, ModeSensitivity:
		return GroupCalculation
	default:
		return GroupObserving
	}
}

// Operation is the backend calculation the mode implies. Only meaningful
// for GroupCalculation members.
func (m Mode) Operation() calc.Operation {
	if m == ModeSensitivity {
		return calc.OpIntegrationTime
	}
	return calc.OpSensitivity
}

// ParseMode parses a mode name. Underscores and case are ignored.
func ParseMode(s string) (Mode, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	switch norm {
	case "integration-time", "t-int":
		return ModeIntegrationTime, nil
	case "sensitivity":
		return ModeSensitivity, nil
	case "continuum":
		return ModeContinuum, nil
	case "line", "zoom":
		return ModeLine, nil
	case "pulsars", "pulsar", "pss":
		return ModePulsars, nil
	default:
		return 0, fmt.Errorf("unknown mode %q", s)
	}
}
