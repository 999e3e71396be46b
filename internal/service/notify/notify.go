package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"basegraph.app/intake/common"
	"basegraph.app/intake/internal/model"
	"github.com/slack-go/slack"
)

const (
	descriptionPreviewLimit = 300
	// Slack rejects header blocks whose plain_text exceeds 150 characters.
	headerLimit = 150
)

// Notifier announces a new ticket to the product team.
type Notifier interface {
	NotifyTicket(ctx context.Context, ticket *model.Ticket) error
}

type slackNotifier struct {
	webhookURL string
	httpClient *http.Client
}

// NewSlackNotifier posts Block Kit messages to an incoming webhook.
func NewSlackNotifier(webhookURL string, httpClient *http.Client) Notifier {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &slackNotifier{webhookURL: webhookURL, httpClient: httpClient}
}

func (n *slackNotifier) NotifyTicket(ctx context.Context, ticket *model.Ticket) error {
	msg := &slack.WebhookMessage{Blocks: ticketBlocks(ticket)}
	if err := slack.PostWebhookCustomHTTPContext(ctx, n.webhookURL, n.httpClient, msg); err != nil {
		return fmt.Errorf("posting to slack: %w", err)
	}
	return nil
}

func mrkdwn(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.MarkdownType, text, false, false)
}

// ticketBlocks renders the Slack announcement for ticket.
func ticketBlocks(ticket *model.Ticket) *slack.Blocks {
	header := common.Truncate("New Ticket: "+ticket.Title, headerLimit)
	description := ticket.Description
	if runes := []rune(description); len(runes) > descriptionPreviewLimit {
		description = string(runes[:descriptionPreviewLimit]) + "..."
	}

	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, header, true, false)),
		slack.NewSectionBlock(nil, []*slack.TextBlockObject{
			mrkdwn("*ID:* " + ticket.ID),
			mrkdwn("*Severity:* " + string(ticket.Severity)),
			mrkdwn("*Created:* " + ticket.CreatedAt.UTC().Format(time.RFC1123)),
			mrkdwn("*Status:* " + string(ticket.Status)),
		}, nil),
		slack.NewSectionBlock(mrkdwn("*Description:*\n"+description), nil, nil),
		slack.NewSectionBlock(mrkdwn("*Affected Components:* "+strings.Join(ticket.AffectedComponents, ", ")), nil, nil),
	}

	if link := ticket.ExternalLink(); link != "" {
		blocks = append(blocks, slack.NewSectionBlock(mrkdwn("<"+link+"|View Ticket in Tracker>"), nil, nil))
	}
	return &slack.Blocks{BlockSet: blocks}
}
