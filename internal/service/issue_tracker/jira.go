package issue_tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"basegraph.app/intake/common"
	"basegraph.app/intake/core/config"
	"basegraph.app/intake/internal/model"
)

type jiraSink struct {
	baseURL    string
	email      string
	apiToken   string
	projectKey string
	httpClient *http.Client
}

// NewJiraSink files tickets as Bugs through the Jira REST API v2.
func NewJiraSink(baseURL, email, apiToken, projectKey string, httpClient *http.Client) TicketSink {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &jiraSink{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		email:      email,
		apiToken:   apiToken,
		projectKey: projectKey,
		httpClient: httpClient,
	}
}

type jiraName struct {
	Name string `json:"name"`
}

type jiraIssueFields struct {
	Project     map[string]string `json:"project"`
	Summary     string            `json:"summary"`
	Description string            `json:"description"`
	IssueType   jiraName          `json:"issuetype"`
	Priority    jiraName          `json:"priority"`
	Labels      []string          `json:"labels"`
}

type jiraCreateResponse struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

func (s *jiraSink) Name() string {
	return config.TrackerJira
}

func (s *jiraSink) CreateTicket(ctx context.Context, ticket *model.Ticket) (*ExternalRef, error) {
	fields := jiraIssueFields{
		Project:     map[string]string{"key": s.projectKey},
		Summary:     common.Truncate(ticket.Title, maxSummaryLength),
		Description: ticket.Description,
		IssueType:   jiraName{Name: "Bug"},
		Priority:    jiraName{Name: jiraPriority(ticket.Severity)},
	}
	// Jira components must already exist in the project, labels need not.
	fields.Labels = append([]string{"intake"}, componentLabels("component-", ticket.AffectedComponents)...)

	body, err := json.Marshal(map[string]any{"fields": fields})
	if err != nil {
		return nil, fmt.Errorf("encoding jira issue: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/rest/api/2/issue", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building jira request: %w", err)
	}
	req.SetBasicAuth(s.email, s.apiToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("creating issue in jira: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: jira returned %d: %s", ErrTrackerRejected, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var created jiraCreateResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("decoding jira response: %w", err)
	}
	if created.Key == "" {
		return nil, fmt.Errorf("%w: jira response has no issue key", ErrTrackerRejected)
	}

	return &ExternalRef{
		Tracker: config.TrackerJira,
		ID:      created.Key,
		URL:     s.baseURL + "/browse/" + created.Key,
	}, nil
}
