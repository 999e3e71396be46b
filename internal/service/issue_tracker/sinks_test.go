package issue_tracker_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"unicode/utf8"

	"basegraph.app/intake/core/config"
	"basegraph.app/intake/internal/dialogue"
	"basegraph.app/intake/internal/model"
	"basegraph.app/intake/internal/service/issue_tracker"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func sampleTicket() *model.Ticket {
	return &model.Ticket{
		ID:                 "TICKET-1",
		Title:              "Checkout fails on submit",
		Description:        "## Problem Description\nCheckout fails on submit",
		Severity:           dialogue.SeverityCritical,
		AffectedComponents: []string{"Checkout", "Payments"},
		Status:             model.TicketStatusPending,
	}
}

var _ = Describe("Ticket sinks", func() {
	var (
		ctx      context.Context
		server   *httptest.Server
		lastReq  *http.Request
		lastBody map[string]any
		respond  func(w http.ResponseWriter)
	)

	BeforeEach(func() {
		ctx = context.Background()
		lastReq = nil
		lastBody = nil
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lastReq = r
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, &lastBody)
			respond(w)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("GitLab", func() {
		It("creates an issue with severity and component labels", func() {
			respond = func(w http.ResponseWriter) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte(`{"id":900,"iid":7,"title":"x","web_url":"https://gitlab.example.com/acme/app/-/issues/7"}`))
			}

			sink, err := issue_tracker.NewGitLabSink(server.URL, "glpat-test", "42")
			Expect(err).NotTo(HaveOccurred())
			Expect(sink.Name()).To(Equal(config.TrackerGitLab))

			ref, err := sink.CreateTicket(ctx, sampleTicket())
			Expect(err).NotTo(HaveOccurred())
			Expect(ref.ID).To(Equal("7"))
			Expect(ref.URL).To(Equal("https://gitlab.example.com/acme/app/-/issues/7"))

			Expect(lastReq.Method).To(Equal(http.MethodPost))
			Expect(lastReq.URL.Path).To(Equal("/api/v4/projects/42/issues"))
			Expect(lastReq.Header.Get("PRIVATE-TOKEN")).To(Equal("glpat-test"))
			Expect(lastBody["title"]).To(Equal("Checkout fails on submit"))
			labels := fmt.Sprint(lastBody["labels"])
			Expect(labels).To(ContainSubstring("severity::critical"))
			Expect(labels).To(ContainSubstring("component::payments"))
		})
	})

	Describe("Jira", func() {
		It("creates a bug with mapped priority and browse url", func() {
			respond = func(w http.ResponseWriter) {
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte(`{"id":"10001","key":"SUP-12"}`))
			}

			sink := issue_tracker.NewJiraSink(server.URL+"/", "pm@example.com", "token", "SUP", nil)
			ref, err := sink.CreateTicket(ctx, sampleTicket())
			Expect(err).NotTo(HaveOccurred())
			Expect(ref.Tracker).To(Equal(config.TrackerJira))
			Expect(ref.ID).To(Equal("SUP-12"))
			Expect(ref.URL).To(Equal(server.URL + "/browse/SUP-12"))

			Expect(lastReq.URL.Path).To(Equal("/rest/api/2/issue"))
			user, pass, ok := lastReq.BasicAuth()
			Expect(ok).To(BeTrue())
			Expect(user).To(Equal("pm@example.com"))
			Expect(pass).To(Equal("token"))

			fields := lastBody["fields"].(map[string]any)
			Expect(fields["priority"]).To(Equal(map[string]any{"name": "Highest"}))
			Expect(fields["issuetype"]).To(Equal(map[string]any{"name": "Bug"}))
			Expect(fields["labels"]).To(ConsistOf("intake", "component-checkout", "component-payments"))
		})

		It("caps the summary at the Jira field limit", func() {
			respond = func(w http.ResponseWriter) {
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte(`{"id":"10002","key":"SUP-13"}`))
			}
			ticket := sampleTicket()
			ticket.Title = strings.Repeat("checkout spinner never stops ", 15)

			sink := issue_tracker.NewJiraSink(server.URL, "a", "b", "SUP", nil)
			_, err := sink.CreateTicket(ctx, ticket)
			Expect(err).NotTo(HaveOccurred())

			summary := lastBody["fields"].(map[string]any)["summary"].(string)
			Expect(utf8.RuneCountInString(summary)).To(BeNumerically("<=", 255))
			Expect(summary).To(HavePrefix("checkout spinner never stops"))
			Expect(summary).To(HaveSuffix("..."))
		})

		It("wraps non-2xx responses as rejections", func() {
			respond = func(w http.ResponseWriter) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"errors":{"priority":"invalid"}}`))
			}

			sink := issue_tracker.NewJiraSink(server.URL, "a", "b", "SUP", nil)
			_, err := sink.CreateTicket(ctx, sampleTicket())
			Expect(errors.Is(err, issue_tracker.ErrTrackerRejected)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("400"))
		})
	})

	Describe("Linear", func() {
		It("sends the issueCreate mutation with numeric priority", func() {
			respond = func(w http.ResponseWriter) {
				_, _ = w.Write([]byte(`{"data":{"issueCreate":{"success":true,"issue":{"id":"uuid","identifier":"ENG-3","url":"https://linear.app/acme/issue/ENG-3"}}}}`))
			}

			sink := issue_tracker.NewLinearSink(server.URL, "lin_api_x", "team-1", nil)
			t := sampleTicket()
			t.Severity = dialogue.SeverityLow

			ref, err := sink.CreateTicket(ctx, t)
			Expect(err).NotTo(HaveOccurred())
			Expect(ref.ID).To(Equal("ENG-3"))
			Expect(ref.URL).To(Equal("https://linear.app/acme/issue/ENG-3"))
			Expect(lastReq.Header.Get("Authorization")).To(Equal("lin_api_x"))

			input := lastBody["variables"].(map[string]any)["input"].(map[string]any)
			Expect(input["teamId"]).To(Equal("team-1"))
			Expect(input["priority"]).To(BeNumerically("==", 4))
		})

		It("surfaces GraphQL errors", func() {
			respond = func(w http.ResponseWriter) {
				_, _ = w.Write([]byte(`{"errors":[{"message":"team not found"}]}`))
			}

			sink := issue_tracker.NewLinearSink(server.URL, "k", "missing", nil)
			_, err := sink.CreateTicket(ctx, sampleTicket())
			Expect(errors.Is(err, issue_tracker.ErrTrackerRejected)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("team not found"))
		})
	})

	Describe("NewSink", func() {
		It("returns nil when no provider is configured", func() {
			sink, err := issue_tracker.NewSink(config.TrackerConfig{})
			Expect(err).NotTo(HaveOccurred())
			Expect(sink).To(BeNil())
		})

		It("rejects unknown providers", func() {
			_, err := issue_tracker.NewSink(config.TrackerConfig{Provider: "trello"})
			Expect(err).To(HaveOccurred())
		})

		It("builds the configured provider", func() {
			sink, err := issue_tracker.NewSink(config.TrackerConfig{
				Provider: config.TrackerLinear,
				Linear:   config.LinearConfig{APIKey: "k", TeamID: "t"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(sink.Name()).To(Equal(config.TrackerLinear))
		})
	})

	Describe("NewSinkFor", func() {
		It("builds a provider other than the delivery default", func() {
			sink, err := issue_tracker.NewSinkFor(config.TrackerConfig{
				Provider: config.TrackerLinear,
				Linear:   config.LinearConfig{APIKey: "k", TeamID: "t"},
				Jira:     config.JiraConfig{BaseURL: server.URL, Email: "a", APIToken: "b", ProjectKey: "SUP"},
			}, config.TrackerJira)
			Expect(err).NotTo(HaveOccurred())
			Expect(sink.Name()).To(Equal(config.TrackerJira))
		})

		It("refuses providers without credentials", func() {
			_, err := issue_tracker.NewSinkFor(config.TrackerConfig{}, config.TrackerGitLab)
			Expect(errors.Is(err, issue_tracker.ErrTrackerNotConfigured)).To(BeTrue())
		})
	})
})
