package issue_tracker

import (
	"context"
	"fmt"
	"strings"

	"basegraph.app/intake/common"
	"basegraph.app/intake/core/config"
	"basegraph.app/intake/internal/model"
	gitlab "gitlab.com/gitlab-org/api/client-go"
)

type gitLabSink struct {
	client    *gitlab.Client
	projectID string
}

// NewGitLabSink files tickets as issues in one GitLab project. baseURL may be
// empty for gitlab.com or point at a self-hosted instance.
func NewGitLabSink(baseURL, token, projectID string) (TicketSink, error) {
	client, err := newGitLabClient(baseURL, token)
	if err != nil {
		return nil, fmt.Errorf("creating gitlab client: %w", err)
	}
	return &gitLabSink{client: client, projectID: projectID}, nil
}

func newGitLabClient(baseURL, token string) (*gitlab.Client, error) {
	if baseURL == "" {
		return gitlab.NewClient(token)
	}
	apiURL := strings.TrimSuffix(baseURL, "/") + "/api/v4"
	return gitlab.NewClient(token, gitlab.WithBaseURL(apiURL))
}

func (s *gitLabSink) Name() string {
	return config.TrackerGitLab
}

func (s *gitLabSink) CreateTicket(ctx context.Context, ticket *model.Ticket) (*ExternalRef, error) {
	labels := gitlab.LabelOptions(gitLabLabels(ticket))

	issue, _, err := s.client.Issues.CreateIssue(
		s.projectID,
		&gitlab.CreateIssueOptions{
			Title:       gitlab.Ptr(common.Truncate(ticket.Title, maxSummaryLength)),
			Description: gitlab.Ptr(ticket.Description),
			Labels:      &labels,
		},
		gitlab.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("creating issue in gitlab: %w", err)
	}

	return &ExternalRef{
		Tracker: config.TrackerGitLab,
		ID:      fmt.Sprint(issue.IID),
		URL:     issue.WebURL,
	}, nil
}

// Scoped labels so severity and components can be filtered on GitLab boards.
func gitLabLabels(ticket *model.Ticket) []string {
	labels := []string{"intake", "severity::" + string(ticket.Severity)}
	return append(labels, componentLabels("component::", ticket.AffectedComponents)...)
}
