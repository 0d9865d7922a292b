package domain

import (
	"fmt"
	"strings"
)

// ColorTag is the closed palette a night can be tagged with.
type ColorTag string

const (
	ColorOrange ColorTag = "orange"
	ColorPink   ColorTag = "pink"
	ColorGreen  ColorTag = "green"
)

// Valid reports whether c belongs to the palette.
func (c ColorTag) Valid() bool {
	switch c {
	case ColorOrange, ColorPink, ColorGreen:
		return true
	}
	return false
}

// UnmarshalText rejects tags outside the palette. Used by both JSON and YAML decoding.
func (c *ColorTag) UnmarshalText(text []byte) error {
	tag := ColorTag(strings.ToLower(strings.TrimSpace(string(text))))
	if !tag.Valid() {
		return fmt.Errorf("%w: unknown color tag %q", ErrInvalidSettings, string(text))
	}
	*c = tag
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (c ColorTag) MarshalText() ([]byte, error) {
	return []byte(c), nil
}

// RoutineStep is one product application within a routine.
type RoutineStep struct {
	ID         string `json:"id" yaml:"id"`
	Label      string `json:"label" yaml:"label"`
	ProductRef string `json:"product_ref" yaml:"product_ref"`
}

// NightConfig is one position of the PM cycle.
type NightConfig struct {
	ID          string        `json:"id" yaml:"id"`
	Title       string        `json:"title" yaml:"title"`
	Description string        `json:"description" yaml:"description"`
	ColorTag    ColorTag      `json:"color_tag" yaml:"color_tag"`
	Enabled     bool          `json:"enabled" yaml:"enabled"`
	Steps       []RoutineStep `json:"steps" yaml:"steps"`
}

// Settings is the full protocol definition: the AM routine plus the ordered PM cycle.
type Settings struct {
	AMRoutine []RoutineStep `json:"am_routine" yaml:"am_routine"`
	PMCycle   []NightConfig `json:"pm_cycle" yaml:"pm_cycle"`
}

// Validate checks structural integrity. It does not require any night to be enabled.
func (s Settings) Validate() error {
	if err := validateSteps("am_routine", s.AMRoutine); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(s.PMCycle))
	for i, night := range s.PMCycle {
		if strings.TrimSpace(night.ID) == "" {
			return fmt.Errorf("%w: pm_cycle[%d] has no id", ErrInvalidSettings, i)
		}
		if _, dup := seen[night.ID]; dup {
			return fmt.Errorf("%w: duplicate night id %q", ErrInvalidSettings, night.ID)
		}
		seen[night.ID] = struct{}{}
		if !night.ColorTag.Valid() {
			return fmt.Errorf("%w: night %q has color tag %q", ErrInvalidSettings, night.ID, night.ColorTag)
		}
		if err := validateSteps("pm_cycle["+night.ID+"]", night.Steps); err != nil {
			return err
		}
	}
	return nil
}

func validateSteps(where string, steps []RoutineStep) error {
	seen := make(map[string]struct{}, len(steps))
	for i, step := range steps {
		if strings.TrimSpace(step.ID) == "" {
			return fmt.Errorf("%w: %s step %d has no id", ErrInvalidSettings, where, i)
		}
		if strings.TrimSpace(step.Label) == "" {
			return fmt.Errorf("%w: %s step %q has no label", ErrInvalidSettings, where, step.ID)
		}
		if _, dup := seen[step.ID]; dup {
			return fmt.Errorf("%w: %s has duplicate step id %q", ErrInvalidSettings, where, step.ID)
		}
		seen[step.ID] = struct{}{}
	}
	return nil
}

// Clone returns a deep copy so callers can edit without aliasing stored slices.
func (s Settings) Clone() Settings {
	out := Settings{
		AMRoutine: cloneSteps(s.AMRoutine),
		PMCycle:   make([]NightConfig, len(s.PMCycle)),
	}
	for i, night := range s.PMCycle {
		night.Steps = cloneSteps(night.Steps)
		out.PMCycle[i] = night
	}
	return out
}

func cloneSteps(steps []RoutineStep) []RoutineStep {
	if steps == nil {
		return nil
	}
	out := make([]RoutineStep, len(steps))
	copy(out, steps)
	return out
}
