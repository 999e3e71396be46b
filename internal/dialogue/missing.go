package dialogue

// Evaluate computes which required slots are unset. It is the only place
// missing-info flags are derived.
func Evaluate(slots Slots) MissingInfo {
	return MissingInfo{
		Severity:           !slots.Severity.Valid(),
		Reproducibility:    slots.Reproducibility == "",
		Evidence:           !slots.Evidence.Present(),
		AffectedComponents: len(slots.AffectedComponents) == 0,
	}
}
