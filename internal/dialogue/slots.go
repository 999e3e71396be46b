package dialogue

// Field names one slot of ticket information collected by the dialogue.
type Field string

const (
	FieldSeverity           Field = "severity"
	FieldReproducibility    Field = "reproducibility"
	FieldEvidence           Field = "evidence"
	FieldAffectedComponents Field = "affected_components"
)

// fieldOrder is the priority in which missing fields are asked about.
var fieldOrder = []Field{
	FieldSeverity,
	FieldReproducibility,
	FieldEvidence,
	FieldAffectedComponents,
}

// Fields returns the slot fields in question priority order.
func Fields() []Field {
	out := make([]Field, len(fieldOrder))
	copy(out, fieldOrder)
	return out
}

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// severityOrder doubles as the keyword scan order for severity extraction.
var severityOrder = []Severity{
	SeverityCritical,
	SeverityHigh,
	SeverityMedium,
	SeverityLow,
}

func (s Severity) Valid() bool {
	for _, known := range severityOrder {
		if s == known {
			return true
		}
	}
	return false
}

// Step is the controller state reported to the driver after each turn.
type Step string

const (
	StepInitial       Step = "initial"
	StepAskQuestion   Step = "ask_question"
	StepConfirmTicket Step = "confirm_ticket"
	StepFinished      Step = "finished"
)

// Evidence records which kinds of supporting material the reporter has.
type Evidence struct {
	Screenshots bool `json:"screenshots"`
	Logs        bool `json:"logs"`
	Videos      bool `json:"videos"`
}

// Present reports whether at least one kind of evidence is available.
func (e Evidence) Present() bool {
	return e.Screenshots || e.Logs || e.Videos
}

// Slots holds the ticket facts collected so far. Empty values mean unset.
type Slots struct {
	ProblemStatement   string   `json:"problem_statement"`
	Severity           Severity `json:"severity,omitempty"`
	Reproducibility    string   `json:"reproducibility,omitempty"`
	Evidence           Evidence `json:"evidence"`
	AffectedComponents []string `json:"affected_components,omitempty"`
}

// MissingInfo flags the required slots that are still unset.
type MissingInfo struct {
	Severity           bool `json:"severity"`
	Reproducibility    bool `json:"reproducibility"`
	Evidence           bool `json:"evidence"`
	AffectedComponents bool `json:"affected_components"`
}

// Any reports whether at least one required slot is missing.
func (m MissingInfo) Any() bool {
	return m.Severity || m.Reproducibility || m.Evidence || m.AffectedComponents
}

// Has reports whether the given field is flagged as missing.
func (m MissingInfo) Has(f Field) bool {
	switch f {
	case FieldSeverity:
		return m.Severity
	case FieldReproducibility:
		return m.Reproducibility
	case FieldEvidence:
		return m.Evidence
	case FieldAffectedComponents:
		return m.AffectedComponents
	default:
		return false
	}
}

// Question is a prompt for one missing field.
type Question struct {
	Field Field  `json:"field"`
	Text  string `json:"question"`
}

// State is everything the controller knows about one session. It is plain data
// so drivers can persist it between turns.
type State struct {
	Slots

	Step            Step             `json:"step"`
	MissingInfo     MissingInfo      `json:"missing_info"`
	CurrentQuestion *Question        `json:"current_question"`
	Responses       map[Field]string `json:"responses"`
	Draft           string           `json:"draft,omitempty"`
	Confirmation    *bool            `json:"confirmation"`
	FinalTicket     *Ticket          `json:"final_ticket"`
}

// NewState returns the state of a session that has not started yet.
func NewState() State {
	st := State{
		Step:      StepInitial,
		Responses: map[Field]string{},
	}
	st.MissingInfo = Evaluate(st.Slots)
	return st
}

// Clone returns a deep copy so callers never share slices or maps with the controller.
func (s State) Clone() State {
	out := s
	if s.AffectedComponents != nil {
		out.AffectedComponents = append([]string(nil), s.AffectedComponents...)
	}
	out.Responses = make(map[Field]string, len(s.Responses))
	for k, v := range s.Responses {
		out.Responses[k] = v
	}
	if s.CurrentQuestion != nil {
		q := *s.CurrentQuestion
		out.CurrentQuestion = &q
	}
	if s.Confirmation != nil {
		c := *s.Confirmation
		out.Confirmation = &c
	}
	if s.FinalTicket != nil {
		t := s.FinalTicket.clone()
		out.FinalTicket = &t
	}
	return out
}
