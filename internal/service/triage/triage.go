package triage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"basegraph.app/intake/common/llm"
	"basegraph.app/intake/internal/model"
)

const (
	DefaultTopic   = "Uncategorized"
	DefaultCluster = "General"
)

type TopicResponse struct {
	Topic   string `json:"topic" jsonschema_description:"Main technical topic, e.g. API Integration, Authentication, UI/UX, Performance"`
	Cluster string `json:"cluster" jsonschema_description:"Short cluster name the ticket belongs to, e.g. Frontend Bugs, Backend Issues, Security"`
}

var topicSchema = llm.GenerateSchema[TopicResponse]()

const topicSystemPrompt = `You analyze customer support tickets for a product team and categorize them.
Pick the single main technical topic and a concise cluster name that groups similar tickets.
Prefer reusing common cluster names over inventing near-duplicates.`

// Classifier assigns a topic and cluster so product managers can group tickets.
type Classifier interface {
	Classify(ctx context.Context, ticket *model.Ticket) (TopicResponse, error)
}

type Option func(*topicClassifier)

// WithRetryBase sets the first backoff delay; later attempts double it.
func WithRetryBase(d time.Duration) Option {
	return func(c *topicClassifier) {
		c.retryBase = d
	}
}

// WithMaxTokens caps the completion size of each classification call.
func WithMaxTokens(n int) Option {
	return func(c *topicClassifier) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

type topicClassifier struct {
	llm         llm.Client
	maxAttempts int
	maxTokens   int
	retryBase   time.Duration
}

func NewClassifier(client llm.Client, opts ...Option) Classifier {
	c := &topicClassifier{
		llm:         client,
		maxAttempts: 3,
		maxTokens:   200,
		retryBase:   time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *topicClassifier) Classify(ctx context.Context, ticket *model.Ticket) (TopicResponse, error) {
	prompt := buildPrompt(ticket)

	var response TopicResponse
	var err error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		_, err = c.llm.Chat(ctx, llm.Request{
			SystemPrompt: topicSystemPrompt,
			UserPrompt:   prompt,
			SchemaName:   "topic_response",
			Schema:       topicSchema,
			MaxTokens:    c.maxTokens,
			Temperature:  llm.Temp(0.3),
		}, &response)
		if err == nil {
			break
		}
		if !llm.IsRetryable(ctx, err) {
			return TopicResponse{}, fmt.Errorf("topic classification: %w", err)
		}
		if attempt == c.maxAttempts-1 {
			break
		}
		slog.WarnContext(ctx, "topic classification retry",
			"ticket_id", ticket.ID,
			"attempt", attempt+1,
			"error", err)

		select {
		case <-ctx.Done():
			return TopicResponse{}, ctx.Err()
		case <-time.After(c.retryBase << attempt):
		}
	}
	if err != nil {
		return TopicResponse{}, fmt.Errorf("topic classification after %d attempts: %w", c.maxAttempts, err)
	}

	response.Topic = strings.TrimSpace(response.Topic)
	response.Cluster = strings.TrimSpace(response.Cluster)
	if response.Topic == "" {
		response.Topic = DefaultTopic
	}
	if response.Cluster == "" {
		response.Cluster = DefaultCluster
	}

	slog.InfoContext(ctx, "ticket classified",
		"ticket_id", ticket.ID,
		"topic", response.Topic,
		"cluster", response.Cluster)

	return response, nil
}

func buildPrompt(ticket *model.Ticket) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ticket Title: %s\n", ticket.Title)
	fmt.Fprintf(&b, "Severity: %s\n", ticket.Severity)
	if len(ticket.AffectedComponents) > 0 {
		fmt.Fprintf(&b, "Affected Components: %s\n", strings.Join(ticket.AffectedComponents, ", "))
	}
	fmt.Fprintf(&b, "Ticket Description:\n%s\n", ticket.Description)
	return b.String()
}
