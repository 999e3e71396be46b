package issue_tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"basegraph.app/intake/core/config"
	"basegraph.app/intake/internal/model"
)

const LinearAPIURL = "https://api.linear.app/graphql"

const linearCreateIssue = `mutation CreateIssue($input: IssueCreateInput!) {
  issueCreate(input: $input) {
    success
    issue { id identifier url }
  }
}`

type linearSink struct {
	endpoint   string
	apiKey     string
	teamID     string
	httpClient *http.Client
}

// NewLinearSink files tickets through Linear's GraphQL API.
func NewLinearSink(endpoint, apiKey, teamID string, httpClient *http.Client) TicketSink {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &linearSink{
		endpoint:   endpoint,
		apiKey:     apiKey,
		teamID:     teamID,
		httpClient: httpClient,
	}
}

type linearRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type linearResponse struct {
	Data struct {
		IssueCreate struct {
			Success bool `json:"success"`
			Issue   struct {
				ID         string `json:"id"`
				Identifier string `json:"identifier"`
				URL        string `json:"url"`
			} `json:"issue"`
		} `json:"issueCreate"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (s *linearSink) Name() string {
	return config.TrackerLinear
}

func (s *linearSink) CreateTicket(ctx context.Context, ticket *model.Ticket) (*ExternalRef, error) {
	body, err := json.Marshal(linearRequest{
		Query: linearCreateIssue,
		Variables: map[string]any{
			"input": map[string]any{
				"teamId":      s.teamID,
				"title":       ticket.Title,
				"description": ticket.Description,
				"priority":    linearPriority(ticket.Severity),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding linear request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building linear request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("creating issue in linear: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: linear returned %d: %s", ErrTrackerRejected, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out linearResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding linear response: %w", err)
	}
	if len(out.Errors) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrTrackerRejected, out.Errors[0].Message)
	}
	if !out.Data.IssueCreate.Success {
		return nil, fmt.Errorf("%w: issueCreate reported failure", ErrTrackerRejected)
	}

	issue := out.Data.IssueCreate.Issue
	return &ExternalRef{
		Tracker: config.TrackerLinear,
		ID:      issue.Identifier,
		URL:     issue.URL,
	}, nil
}
