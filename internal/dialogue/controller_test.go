package dialogue_test

import (
	"encoding/json"
	"math/rand"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/intake/internal/dialogue"
)

var _ = Describe("Controller", func() {
	var (
		c   *dialogue.Controller
		now time.Time
	)

	BeforeEach(func() {
		now = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
		c = dialogue.NewController(
			dialogue.WithIDGenerator(func() string { return "TICKET-42" }),
			dialogue.WithClock(func() time.Time { return now }),
		)
	})

	fillAll := func() dialogue.Result {
		_, err := c.Start("App crashes on save.")
		Expect(err).NotTo(HaveOccurred())
		for _, answer := range []string{"high severity issue", "Happens every time I click save", "I have logs", "Save button, Editor"} {
			_, err = c.Respond(answer)
			Expect(err).NotTo(HaveOccurred())
		}
		res, err := c.Resume()
		Expect(err).NotTo(HaveOccurred())
		return res
	}

	It("walks the full intake conversation", func() {
		res, err := c.Start("App crashes on save.")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.NextStep).To(Equal(dialogue.StepAskQuestion))
		Expect(res.Question.Field).To(Equal(dialogue.FieldSeverity))

		res, err = c.Respond("high severity issue")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.NextStep).To(Equal(dialogue.StepAskQuestion))
		Expect(res.Question.Field).To(Equal(dialogue.FieldReproducibility))

		res, err = c.Respond("Happens every time I click save")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Question.Field).To(Equal(dialogue.FieldEvidence))

		res, err = c.Respond("I have logs")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Question.Field).To(Equal(dialogue.FieldAffectedComponents))

		res, err = c.Respond("Save button, Editor")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.NextStep).To(Equal(dialogue.StepConfirmTicket))
		Expect(res.Question).To(BeNil())
		Expect(res.Summary.Text).To(ContainSubstring("Severity: high"))

		res, err = c.Confirm(true)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.NextStep).To(Equal(dialogue.StepFinished))
		Expect(res.Ticket.ID).To(Equal("TICKET-42"))
		Expect(res.Ticket.Title).To(Equal("App crashes on save"))
		Expect(res.Ticket.Status).To(Equal(dialogue.TicketStatusPending))
		Expect(res.Ticket.CreatedAt).To(Equal(now))
		Expect(res.Ticket.AffectedComponents).To(Equal([]string{"Save button", "Editor"}))

		st := c.State()
		Expect(st.FinalTicket).NotTo(BeNil())
		Expect(*st.Confirmation).To(BeTrue())
		Expect(st.CurrentQuestion).To(BeNil())
	})

	It("re-asks the same field when extraction misses", func() {
		_, err := c.Start("Export is slow")
		Expect(err).NotTo(HaveOccurred())

		res, err := c.Respond("pretty bad I guess")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.NextStep).To(Equal(dialogue.StepAskQuestion))
		Expect(res.Question.Field).To(Equal(dialogue.FieldSeverity))
		Expect(c.State().Responses).To(HaveKeyWithValue(dialogue.FieldSeverity, "pretty bad I guess"))
	})

	It("clears the pending question once a response is applied", func() {
		_, err := c.Start("Export is slow")
		Expect(err).NotTo(HaveOccurred())
		Expect(c.State().CurrentQuestion).NotTo(BeNil())

		_, err = c.Respond("low")
		Expect(err).NotTo(HaveOccurred())
		Expect(c.State().CurrentQuestion.Field).To(Equal(dialogue.FieldReproducibility))
	})

	Describe("rejection", func() {
		It("returns to a non-finished step without a ticket", func() {
			Expect(fillAll().NextStep).To(Equal(dialogue.StepConfirmTicket))

			res, err := c.Confirm(false)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.NextStep).NotTo(Equal(dialogue.StepFinished))
			Expect(res.Ticket).To(BeNil())

			st := c.State()
			Expect(st.FinalTicket).To(BeNil())
			Expect(*st.Confirmation).To(BeFalse())
		})

		It("re-offers the same summary when nothing is missing", func() {
			first := fillAll()

			res, err := c.Confirm(false)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.NextStep).To(Equal(dialogue.StepConfirmTicket))
			Expect(res.Summary).To(Equal(first.Summary))

			res, err = c.Confirm(true)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.NextStep).To(Equal(dialogue.StepFinished))
		})
	})

	Describe("precondition violations", func() {
		It("rejects respond before any question was asked", func() {
			_, err := c.Respond("high")
			Expect(err).To(MatchError(dialogue.ErrNoPendingQuestion))
			Expect(err).To(MatchError(dialogue.ErrPrecondition))
		})

		It("rejects an empty problem statement", func() {
			_, err := c.Start("   ")
			Expect(err).To(MatchError(dialogue.ErrEmptyProblemStatement))
			Expect(c.Step()).To(Equal(dialogue.StepInitial))
		})

		It("rejects a second start", func() {
			_, err := c.Start("first")
			Expect(err).NotTo(HaveOccurred())
			_, err = c.Start("second")
			Expect(err).To(MatchError(dialogue.ErrAlreadyStarted))
			Expect(c.State().ProblemStatement).To(Equal("first"))
		})

		It("rejects confirm while questions are pending", func() {
			_, err := c.Start("first")
			Expect(err).NotTo(HaveOccurred())
			before := c.State()

			_, err = c.Confirm(true)
			Expect(err).To(MatchError(dialogue.ErrNotAwaitingConfirmation))
			Expect(c.State()).To(Equal(before))
		})

		It("rejects respond while awaiting confirmation", func() {
			fillAll()
			before := c.State()

			_, err := c.Respond("critical")
			Expect(err).To(MatchError(dialogue.ErrNoPendingQuestion))
			Expect(c.State()).To(Equal(before))
		})

		It("rejects any turn after the ticket is finalized", func() {
			fillAll()
			_, err := c.Confirm(true)
			Expect(err).NotTo(HaveOccurred())
			ticket := c.State().FinalTicket

			_, err = c.Confirm(true)
			Expect(err).To(MatchError(dialogue.ErrNotAwaitingConfirmation))
			_, err = c.Respond("low")
			Expect(err).To(MatchError(dialogue.ErrNoPendingQuestion))
			Expect(c.State().FinalTicket).To(Equal(ticket))
		})

		It("rejects resume before start", func() {
			_, err := c.Resume()
			Expect(err).To(MatchError(dialogue.ErrNotStarted))
		})
	})

	Describe("Resume", func() {
		It("is idempotent while a question is pending", func() {
			_, err := c.Start("Search returns nothing")
			Expect(err).NotTo(HaveOccurred())

			first, err := c.Resume()
			Expect(err).NotTo(HaveOccurred())
			second, err := c.Resume()
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(Equal(first))
		})

		It("is idempotent while awaiting confirmation", func() {
			first := fillAll()
			second, err := c.Resume()
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(Equal(first))
		})

		It("returns the final ticket after finishing", func() {
			fillAll()
			done, err := c.Confirm(true)
			Expect(err).NotTo(HaveOccurred())

			res, err := c.Resume()
			Expect(err).NotTo(HaveOccurred())
			Expect(res).To(Equal(done))
		})
	})

	It("continues from persisted state", func() {
		_, err := c.Start("App crashes on save.")
		Expect(err).NotTo(HaveOccurred())
		_, err = c.Respond("critical")
		Expect(err).NotTo(HaveOccurred())

		raw, err := json.Marshal(c.State())
		Expect(err).NotTo(HaveOccurred())

		var saved dialogue.State
		Expect(json.Unmarshal(raw, &saved)).To(Succeed())

		restored := dialogue.Restore(saved)
		res, err := restored.Respond("every time")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Question.Field).To(Equal(dialogue.FieldEvidence))
		Expect(restored.State().Severity).To(Equal(dialogue.SeverityCritical))
	})

	It("keeps missing info consistent with the slots across random conversations", func() {
		answers := []string{"", "high", "meh", "screenshot", "none", "Login, Editor", " , ", "every time", "low and logs"}
		rng := rand.New(rand.NewSource(7))

		for run := 0; run < 50; run++ {
			ctrl := dialogue.NewController(dialogue.WithIDGenerator(func() string { return "T" }))
			_, err := ctrl.Start("Something broke badly.")
			Expect(err).NotTo(HaveOccurred())

			for turn := 0; turn < 20 && ctrl.Step() != dialogue.StepFinished; turn++ {
				if ctrl.Step() == dialogue.StepConfirmTicket {
					_, err = ctrl.Confirm(rng.Intn(2) == 0)
				} else {
					_, err = ctrl.Respond(answers[rng.Intn(len(answers))])
				}
				Expect(err).NotTo(HaveOccurred())

				st := ctrl.State()
				Expect(st.MissingInfo).To(Equal(dialogue.Evaluate(st.Slots)))
				if st.Step == dialogue.StepAskQuestion {
					Expect(st.CurrentQuestion).NotTo(BeNil())
					Expect(st.MissingInfo.Has(st.CurrentQuestion.Field)).To(BeTrue())
				} else {
					Expect(st.CurrentQuestion).To(BeNil())
				}
				if st.Step != dialogue.StepFinished {
					Expect(st.FinalTicket).To(BeNil())
				}
			}
		}
	})
})
