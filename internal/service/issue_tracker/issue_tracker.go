package issue_tracker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"basegraph.app/intake/common"
	"basegraph.app/intake/core/config"
	"basegraph.app/intake/internal/dialogue"
	"basegraph.app/intake/internal/model"
)

var (
	ErrTrackerRejected      = errors.New("tracker rejected ticket")
	ErrTrackerNotConfigured = errors.New("tracker is not configured")
)

// Jira summaries and GitLab titles both cap at 255 characters.
const maxSummaryLength = 255

// ExternalRef points at the issue a ticket became in an external tracker.
type ExternalRef struct {
	Tracker string
	ID      string
	URL     string
}

// TicketSink files finalized tickets in an external tracker.
type TicketSink interface {
	Name() string
	CreateTicket(ctx context.Context, ticket *model.Ticket) (*ExternalRef, error)
}

// NewSink builds the sink for the configured provider. It returns nil when no
// tracker is configured.
func NewSink(cfg config.TrackerConfig) (TicketSink, error) {
	httpClient := &http.Client{Timeout: 15 * time.Second}

	switch cfg.Provider {
	case "":
		return nil, nil
	case config.TrackerGitLab:
		return NewGitLabSink(cfg.GitLab.BaseURL, cfg.GitLab.Token, cfg.GitLab.ProjectID)
	case config.TrackerJira:
		return NewJiraSink(cfg.Jira.BaseURL, cfg.Jira.Email, cfg.Jira.APIToken, cfg.Jira.ProjectKey, httpClient), nil
	case config.TrackerLinear:
		return NewLinearSink(LinearAPIURL, cfg.Linear.APIKey, cfg.Linear.TeamID, httpClient), nil
	default:
		return nil, fmt.Errorf("unknown tracker provider %q", cfg.Provider)
	}
}

// NewSinkFor builds the sink for provider regardless of which provider the
// worker is configured with, as long as its credentials are present.
func NewSinkFor(cfg config.TrackerConfig, provider string) (TicketSink, error) {
	if !cfg.Configured(provider) {
		return nil, fmt.Errorf("%w: %q", ErrTrackerNotConfigured, provider)
	}
	cfg.Provider = provider
	return NewSink(cfg)
}

func jiraPriority(s dialogue.Severity) string {
	switch s {
	case dialogue.SeverityCritical:
		return "Highest"
	case dialogue.SeverityHigh:
		return "High"
	case dialogue.SeverityLow:
		return "Low"
	default:
		return "Medium"
	}
}

// Linear: 1 urgent, 2 high, 3 medium, 4 low.
func linearPriority(s dialogue.Severity) int {
	switch s {
	case dialogue.SeverityCritical:
		return 1
	case dialogue.SeverityHigh:
		return 2
	case dialogue.SeverityLow:
		return 4
	default:
		return 3
	}
}

// componentLabels turns free-text component names into tracker labels,
// skipping duplicates and names with nothing left after slugging.
func componentLabels(prefix string, components []string) []string {
	seen := make(map[string]bool, len(components))
	var out []string
	for _, c := range components {
		label, err := common.Label(prefix, c)
		if err != nil || seen[label] {
			continue
		}
		seen[label] = true
		out = append(out, label)
	}
	return out
}
