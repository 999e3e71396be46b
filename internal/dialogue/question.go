package dialogue

// questions holds the single canonical prompt for each field.
var questions = map[Field]string{
	FieldSeverity:           "What is the severity of this issue? (critical, high, medium, or low)",
	FieldReproducibility:    "How reproducible is this issue? Please describe steps to reproduce or frequency of occurrence.",
	FieldEvidence:           "Do you have any evidence (screenshots, logs, videos) of the issue? Please specify which ones you have available.",
	FieldAffectedComponents: "Which components or features are affected by this issue?",
}

// QuestionFor returns the canonical question for a field.
func QuestionFor(f Field) (Question, bool) {
	text, ok := questions[f]
	if !ok {
		return Question{}, false
	}
	return Question{Field: f, Text: text}, true
}

// NextQuestion picks the first missing field in priority order. The boolean is
// false when nothing is missing.
func NextQuestion(missing MissingInfo) (Question, bool) {
	for _, f := range fieldOrder {
		if missing.Has(f) {
			return QuestionFor(f)
		}
	}
	return Question{}, false
}
