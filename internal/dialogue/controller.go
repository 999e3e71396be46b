package dialogue

import (
	"strings"
	"time"

	"basegraph.app/intake/common/id"
)

// Result is what the driver relays to the reporter after a turn.
type Result struct {
	NextStep Step      `json:"next_step"`
	Question *Question `json:"question,omitempty"`
	Summary  *Summary  `json:"summary,omitempty"`
	Ticket   *Ticket   `json:"ticket,omitempty"`
}

type Option func(*Controller)

// WithIDGenerator overrides how ticket identifiers are produced.
func WithIDGenerator(fn func() string) Option {
	return func(c *Controller) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// WithClock overrides the time source used for ticket creation timestamps.
func WithClock(fn func() time.Time) Option {
	return func(c *Controller) {
		if fn != nil {
			c.now = fn
		}
	}
}

// Controller drives one session through initial -> ask_question -> confirm_ticket -> finished.
// It is not safe for concurrent use; drivers serialize turns per session.
type Controller struct {
	state State
	newID func() string
	now   func() time.Time
}

// NewController returns a controller for a fresh session.
func NewController(opts ...Option) *Controller {
	return Restore(NewState(), opts...)
}

// Restore rebuilds a controller from previously saved state.
func Restore(st State, opts ...Option) *Controller {
	c := &Controller{
		state: st.Clone(),
		newID: defaultTicketID,
		now:   time.Now,
	}
	if c.state.Step == "" {
		c.state.Step = StepInitial
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a copy of the session state.
func (c *Controller) State() State {
	return c.state.Clone()
}

func (c *Controller) Step() Step {
	return c.state.Step
}

// Start sets the problem statement and asks the first question.
func (c *Controller) Start(problem string) (Result, error) {
	if c.state.Step != StepInitial {
		return Result{}, ErrAlreadyStarted
	}
	if strings.TrimSpace(problem) == "" {
		return Result{}, ErrEmptyProblemStatement
	}

	c.state.ProblemStatement = problem
	c.state.MissingInfo = Evaluate(c.state.Slots)
	return c.advance()
}

// Respond applies raw as the answer to the pending question.
func (c *Controller) Respond(raw string) (Result, error) {
	if c.state.CurrentQuestion == nil {
		return Result{}, ErrNoPendingQuestion
	}

	next, err := ApplyResponse(c.state, c.state.CurrentQuestion.Field, raw)
	if err != nil {
		return Result{}, err
	}
	next.CurrentQuestion = nil
	c.state = next

	return c.advance()
}

// Confirm accepts or rejects the current draft. Accepting finalizes the ticket;
// rejecting re-runs the missing-info check, which re-offers the same draft when
// every slot is still filled.
func (c *Controller) Confirm(confirmed bool) (Result, error) {
	if c.state.Step != StepConfirmTicket {
		return Result{}, ErrNotAwaitingConfirmation
	}

	if !confirmed {
		c.state.Confirmation = &confirmed
		return c.advance()
	}

	ticket, err := Finalize(c.state.Slots, c.newID(), c.now())
	if err != nil {
		return Result{}, err
	}

	c.state.Confirmation = &confirmed
	c.state.FinalTicket = &ticket
	c.state.Step = StepFinished

	out := ticket.clone()
	return Result{NextStep: StepFinished, Ticket: &out}, nil
}

// Resume returns the prompt the session is currently waiting on without changing
// any collected information.
func (c *Controller) Resume() (Result, error) {
	switch c.state.Step {
	case StepInitial:
		return Result{}, ErrNotStarted
	case StepFinished:
		if c.state.FinalTicket == nil {
			return Result{NextStep: StepFinished}, nil
		}
		out := c.state.FinalTicket.clone()
		return Result{NextStep: StepFinished, Ticket: &out}, nil
	default:
		return c.advance()
	}
}

// advance is the step shared by every mutating turn: ask for the next missing
// field, or summarize once nothing is missing.
func (c *Controller) advance() (Result, error) {
	c.state.MissingInfo = Evaluate(c.state.Slots)

	if q, ok := NextQuestion(c.state.MissingInfo); ok {
		c.state.CurrentQuestion = &q
		c.state.Step = StepAskQuestion
		asked := q
		return Result{NextStep: StepAskQuestion, Question: &asked}, nil
	}

	summary, err := Summarize(c.state.Slots)
	if err != nil {
		return Result{}, err
	}

	c.state.CurrentQuestion = nil
	c.state.Draft = summary.Text
	c.state.Step = StepConfirmTicket
	return Result{NextStep: StepConfirmTicket, Summary: &summary}, nil
}

func defaultTicketID() string {
	return id.NewString("TICKET-")
}
