package notify_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"
	"unicode/utf8"

	"basegraph.app/intake/internal/dialogue"
	"basegraph.app/intake/internal/model"
	"basegraph.app/intake/internal/service/notify"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type block struct {
	Type string `json:"type"`
	Text *struct {
		Text string `json:"text"`
	} `json:"text"`
	Fields []struct {
		Text string `json:"text"`
	} `json:"fields"`
}

var _ = Describe("Slack notifier", func() {
	var (
		ticket *model.Ticket
		server *httptest.Server
		blocks []block
		status int
	)

	BeforeEach(func() {
		status = http.StatusOK
		blocks = nil
		ticket = &model.Ticket{
			ID:                 "TICKET-5",
			Title:              "Export hangs",
			Description:        strings.Repeat("a", 310),
			Severity:           dialogue.SeverityHigh,
			AffectedComponents: []string{"Reports", "Export"},
			Status:             model.TicketStatusPending,
			CreatedAt:          time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		}
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, _ := io.ReadAll(r.Body)
			var msg struct {
				Blocks []block `json:"blocks"`
			}
			_ = json.Unmarshal(raw, &msg)
			blocks = msg.Blocks
			w.WriteHeader(status)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("posts header, fields, truncated description and components", func() {
		n := notify.NewSlackNotifier(server.URL, nil)
		Expect(n.NotifyTicket(context.Background(), ticket)).To(Succeed())

		Expect(blocks).To(HaveLen(4))
		Expect(blocks[0].Type).To(Equal("header"))
		Expect(blocks[0].Text.Text).To(Equal("New Ticket: Export hangs"))
		Expect(blocks[1].Fields).To(HaveLen(4))
		Expect(blocks[1].Fields[0].Text).To(Equal("*ID:* TICKET-5"))
		Expect(blocks[1].Fields[1].Text).To(Equal("*Severity:* high"))
		Expect(blocks[2].Text.Text).To(Equal("*Description:*\n" + strings.Repeat("a", 300) + "..."))
		Expect(blocks[3].Text.Text).To(Equal("*Affected Components:* Reports, Export"))
	})

	It("links the tracker issue when delivered", func() {
		url := "https://tracker.example.com/SUP-1"
		ticket.ExternalURL = &url

		n := notify.NewSlackNotifier(server.URL, nil)
		Expect(n.NotifyTicket(context.Background(), ticket)).To(Succeed())

		Expect(blocks).To(HaveLen(5))
		Expect(blocks[4].Text.Text).To(Equal("<https://tracker.example.com/SUP-1|View Ticket in Tracker>"))
	})

	It("keeps the header within the Slack limit for long titles", func() {
		ticket.Title = strings.Repeat("export never finishes ", 14)

		n := notify.NewSlackNotifier(server.URL, nil)
		Expect(n.NotifyTicket(context.Background(), ticket)).To(Succeed())

		Expect(blocks[0].Type).To(Equal("header"))
		Expect(utf8.RuneCountInString(blocks[0].Text.Text)).To(BeNumerically("<=", 150))
		Expect(blocks[0].Text.Text).To(HavePrefix("New Ticket: export never finishes"))
		Expect(blocks[0].Text.Text).To(HaveSuffix("..."))
	})

	It("fails on non-200 responses", func() {
		status = http.StatusForbidden

		n := notify.NewSlackNotifier(server.URL, nil)
		Expect(n.NotifyTicket(context.Background(), ticket)).To(MatchError(ContainSubstring("403")))
	})
})
