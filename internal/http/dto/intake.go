package dto

import (
	"basegraph.app/intake/internal/dialogue"
)

type ChatAction string

const (
	ChatActionStart   ChatAction = "start"
	ChatActionRespond ChatAction = "respond"
	ChatActionConfirm ChatAction = "confirm"
)

// ChatRequest is one reporter turn. Only the data field matching the action is read.
type ChatRequest struct {
	SessionID string     `json:"session_id" binding:"max=128"`
	Action    ChatAction `json:"action" binding:"required,oneof=start respond confirm"`
	Data      ChatData   `json:"data"`
}

type ChatData struct {
	ProblemStatement *string `json:"problem_statement,omitempty"`
	Response         *string `json:"response,omitempty"`
	Confirmed        *bool   `json:"confirmed,omitempty"`
}

type ChatResponse struct {
	SessionID string         `json:"session_id"`
	NextStep  dialogue.Step  `json:"next_step"`
	Data      ChatResultData `json:"data"`
}

type ChatResultData struct {
	Question *QuestionResponse `json:"question,omitempty"`
	Summary  *SummaryResponse  `json:"summary,omitempty"`
	Ticket   *dialogue.Ticket  `json:"ticket,omitempty"`
}

type QuestionResponse struct {
	Field dialogue.Field `json:"field"`
	Text  string         `json:"text"`
}

type SummaryResponse struct {
	ProblemStatement   string            `json:"problem_statement"`
	Severity           dialogue.Severity `json:"severity"`
	Reproducibility    string            `json:"reproducibility"`
	Evidence           dialogue.Evidence `json:"evidence"`
	AffectedComponents []string          `json:"affected_components"`
	Text               string            `json:"text"`
}

func ToChatResponse(sessionID string, res dialogue.Result) *ChatResponse {
	resp := &ChatResponse{
		SessionID: sessionID,
		NextStep:  res.NextStep,
	}

	if q := res.Question; q != nil {
		resp.Data.Question = &QuestionResponse{Field: q.Field, Text: q.Text}
	}
	if s := res.Summary; s != nil {
		resp.Data.Summary = &SummaryResponse{
			ProblemStatement:   s.ProblemStatement,
			Severity:           s.Severity,
			Reproducibility:    s.Reproducibility,
			Evidence:           s.Evidence,
			AffectedComponents: s.AffectedComponents,
			Text:               s.Text,
		}
	}
	resp.Data.Ticket = res.Ticket

	return resp
}
