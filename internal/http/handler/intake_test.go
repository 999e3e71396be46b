package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/intake/internal/dialogue"
	"basegraph.app/intake/internal/http/handler"
	"basegraph.app/intake/internal/service"
)

var _ = Describe("IntakeHandler", func() {
	var (
		router *gin.Engine
		svc    *mockIntakeService
	)

	post := func(body any) *httptest.ResponseRecorder {
		raw, _ := json.Marshal(body)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/support-ticket-chat", bytes.NewBuffer(raw))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	decode := func(w *httptest.ResponseRecorder) map[string]any {
		var resp map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		return resp
	}

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		svc = &mockIntakeService{}
		h := handler.NewIntakeHandler(svc)
		router.POST("/api/v1/support-ticket-chat", h.Chat)
		router.GET("/api/v1/support-ticket-chat/:session_id", h.Resume)
	})

	Describe("Chat", func() {
		It("starts a session and returns the first question", func() {
			var gotProblem string
			svc.startFn = func(_ context.Context, sessionID, problem string) (string, dialogue.Result, error) {
				gotProblem = problem
				return sessionID, dialogue.Result{
					NextStep: dialogue.StepAskQuestion,
					Question: &dialogue.Question{Field: dialogue.FieldSeverity, Text: "How severe is it?"},
				}, nil
			}

			w := post(map[string]any{
				"session_id": "s-1",
				"action":     "start",
				"data":       map[string]any{"problem_statement": "Login page crashes"},
			})

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(gotProblem).To(Equal("Login page crashes"))

			resp := decode(w)
			Expect(resp["session_id"]).To(Equal("s-1"))
			Expect(resp["next_step"]).To(Equal("ask_question"))
			data := resp["data"].(map[string]any)
			question := data["question"].(map[string]any)
			Expect(question["field"]).To(Equal("severity"))
			Expect(question["text"]).To(Equal("How severe is it?"))
			Expect(data).NotTo(HaveKey("ticket"))
		})

		It("returns the generated session id when none is given", func() {
			svc.startFn = func(_ context.Context, sessionID, _ string) (string, dialogue.Result, error) {
				Expect(sessionID).To(BeEmpty())
				return "generated-id", dialogue.Result{NextStep: dialogue.StepAskQuestion}, nil
			}

			w := post(map[string]any{
				"action": "start",
				"data":   map[string]any{"problem_statement": "Broken"},
			})

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(decode(w)["session_id"]).To(Equal("generated-id"))
		})

		It("passes the answer through on respond", func() {
			svc.respondFn = func(_ context.Context, sessionID, answer string) (dialogue.Result, error) {
				Expect(sessionID).To(Equal("s-1"))
				Expect(answer).To(Equal("critical"))
				return dialogue.Result{
					NextStep: dialogue.StepConfirmTicket,
					Summary:  &dialogue.Summary{Severity: dialogue.SeverityCritical, Text: "Issue Summary:"},
				}, nil
			}

			w := post(map[string]any{
				"session_id": "s-1",
				"action":     "respond",
				"data":       map[string]any{"response": "critical"},
			})

			Expect(w.Code).To(Equal(http.StatusOK))
			summary := decode(w)["data"].(map[string]any)["summary"].(map[string]any)
			Expect(summary["severity"]).To(Equal("critical"))
			Expect(summary["text"]).To(Equal("Issue Summary:"))
		})

		It("accepts an explicit false confirmation", func() {
			called := false
			svc.confirmFn = func(_ context.Context, _ string, confirmed bool) (dialogue.Result, error) {
				called = true
				Expect(confirmed).To(BeFalse())
				return dialogue.Result{NextStep: dialogue.StepAskQuestion}, nil
			}

			w := post(map[string]any{
				"session_id": "s-1",
				"action":     "confirm",
				"data":       map[string]any{"confirmed": false},
			})

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(called).To(BeTrue())
		})

		It("returns the ticket once finished", func() {
			svc.confirmFn = func(context.Context, string, bool) (dialogue.Result, error) {
				return dialogue.Result{
					NextStep: dialogue.StepFinished,
					Ticket:   &dialogue.Ticket{ID: "T-1", Title: "Login page crashes", Status: dialogue.TicketStatusPending},
				}, nil
			}

			w := post(map[string]any{
				"session_id": "s-1",
				"action":     "confirm",
				"data":       map[string]any{"confirmed": true},
			})

			Expect(w.Code).To(Equal(http.StatusOK))
			ticket := decode(w)["data"].(map[string]any)["ticket"].(map[string]any)
			Expect(ticket["id"]).To(Equal("T-1"))
			Expect(ticket["status"]).To(Equal("pending"))
		})

		It("returns 400 for an unknown action", func() {
			w := post(map[string]any{"session_id": "s-1", "action": "cancel"})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 400 when the action's data is missing", func() {
			w := post(map[string]any{"session_id": "s-1", "action": "confirm", "data": map[string]any{}})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(decode(w)["error"]).To(ContainSubstring("confirmed"))
		})

		DescribeTable("maps service errors to status codes",
			func(err error, want int) {
				svc.respondFn = func(context.Context, string, string) (dialogue.Result, error) {
					return dialogue.Result{}, err
				}

				w := post(map[string]any{
					"session_id": "s-1",
					"action":     "respond",
					"data":       map[string]any{"response": "x"},
				})

				Expect(w.Code).To(Equal(want))
				Expect(decode(w)).To(HaveKey("error"))
			},
			Entry("invalid session", service.ErrInvalidSession, http.StatusBadRequest),
			Entry("unknown session", service.ErrSessionNotFound, http.StatusNotFound),
			Entry("busy session", service.ErrSessionBusy, http.StatusConflict),
			Entry("no pending question", dialogue.ErrNoPendingQuestion, http.StatusConflict),
			Entry("not started", dialogue.ErrNotStarted, http.StatusConflict),
			Entry("unexpected failure", errors.New("redis down"), http.StatusInternalServerError),
		)

		It("returns 400 for an empty problem statement", func() {
			svc.startFn = func(_ context.Context, sessionID, _ string) (string, dialogue.Result, error) {
				return sessionID, dialogue.Result{}, dialogue.ErrEmptyProblemStatement
			}

			w := post(map[string]any{
				"session_id": "s-1",
				"action":     "start",
				"data":       map[string]any{"problem_statement": "   "},
			})

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 409 when starting an already started session", func() {
			svc.startFn = func(_ context.Context, sessionID, _ string) (string, dialogue.Result, error) {
				return sessionID, dialogue.Result{}, dialogue.ErrAlreadyStarted
			}

			w := post(map[string]any{
				"session_id": "s-1",
				"action":     "start",
				"data":       map[string]any{"problem_statement": "again"},
			})

			Expect(w.Code).To(Equal(http.StatusConflict))
		})
	})

	Describe("Resume", func() {
		It("returns the pending question", func() {
			svc.resumeFn = func(_ context.Context, sessionID string) (dialogue.Result, error) {
				Expect(sessionID).To(Equal("s-9"))
				return dialogue.Result{
					NextStep: dialogue.StepAskQuestion,
					Question: &dialogue.Question{Field: dialogue.FieldEvidence, Text: "Do you have logs?"},
				}, nil
			}

			req := httptest.NewRequest(http.MethodGet, "/api/v1/support-ticket-chat/s-9", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			resp := decode(w)
			Expect(resp["session_id"]).To(Equal("s-9"))
			Expect(resp["next_step"]).To(Equal("ask_question"))
		})

		It("returns 404 for an unknown session", func() {
			svc.resumeFn = func(context.Context, string) (dialogue.Result, error) {
				return dialogue.Result{}, service.ErrSessionNotFound
			}

			req := httptest.NewRequest(http.MethodGet, "/api/v1/support-ticket-chat/nope", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})
})
