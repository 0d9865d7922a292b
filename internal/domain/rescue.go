package domain

// RescueSteps is the reduced evening routine shown while rescue mode is active.
func RescueSteps() []RoutineStep {
	return []RoutineStep{
		{ID: "rescue_1", Label: "Gentle cleanse", ProductRef: "Hydro Boost Aqua Reinigungsgel"},
		{ID: "rescue_2", Label: "Rich moisturiser", ProductRef: "Attiva Anti-Rughe Collagene"},
	}
}

// IsRescueEligible reports whether the reported skin condition calls for rescue mode
// on an active (non-recovery) night.
func IsRescueEligible(log DailyLog, night NightConfig) bool {
	switch log.SkinCondition {
	case SkinIrritated, SkinDry, SkinBreakout:
		return !IsRecoveryNight(night)
	}
	return false
}

// RescueSession holds the session-local override flag. It never touches settings or logs.
type RescueSession struct {
	active bool
}

// Activate switches the session to the rescue routine and returns its steps.
func (s *RescueSession) Activate() []RoutineStep {
	s.active = true
	return RescueSteps()
}

// Deactivate reverts the session to the configured steps.
func (s *RescueSession) Deactivate() {
	s.active = false
}

// Active reports whether rescue mode is on.
func (s *RescueSession) Active() bool {
	return s.active
}

// PMSteps returns the evening steps to display: the rescue routine in place of the
// night's steps while active, the night's own steps otherwise.
func (s *RescueSession) PMSteps(night NightConfig) []RoutineStep {
	if s.active {
		return RescueSteps()
	}
	return cloneSteps(night.Steps)
}
