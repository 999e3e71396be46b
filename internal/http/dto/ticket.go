package dto

import (
	"time"

	"basegraph.app/intake/internal/dialogue"
	"basegraph.app/intake/internal/model"
	"basegraph.app/intake/internal/service"
	"basegraph.app/intake/internal/store"
)

type ListTicketsQuery struct {
	Status  string `form:"status"`
	Cluster string `form:"cluster"`
	Limit   int32  `form:"limit" binding:"omitempty,min=1,max=200"`
	Offset  int32  `form:"offset" binding:"omitempty,min=0"`
}

type UpdateTicketStatusRequest struct {
	IDs    []string `json:"ids" binding:"required,min=1,max=100,dive,required"`
	Status string   `json:"status" binding:"required"`
}

// UpdateTicketRequest edits one ticket. Omitted fields are left unchanged.
type UpdateTicketRequest struct {
	Title       *string `json:"title" binding:"omitempty,max=500"`
	Description *string `json:"description"`
	Severity    *string `json:"severity"`
	Status      *string `json:"status"`
	AssignedTo  *string `json:"assigned_to" binding:"omitempty,max=200"`
}

func (r UpdateTicketRequest) Params() store.UpdateTicketParams {
	params := store.UpdateTicketParams{
		Title:       r.Title,
		Description: r.Description,
		AssignedTo:  r.AssignedTo,
	}
	if r.Severity != nil {
		severity := dialogue.Severity(*r.Severity)
		params.Severity = &severity
	}
	if r.Status != nil {
		status := model.TicketStatus(*r.Status)
		params.Status = &status
	}
	return params
}

type PushTicketsRequest struct {
	TicketIDs []string `json:"ticket_ids" binding:"required,min=1,max=100,dive,required"`
	Tracker   string   `json:"tracker" binding:"required"`
}

type PushResult struct {
	TicketID string       `json:"ticket_id"`
	Success  bool         `json:"success"`
	External *ExternalRef `json:"external,omitempty"`
	Error    string       `json:"error,omitempty"`
}

type PushTicketsResponse struct {
	Results []PushResult `json:"results"`
}

func ToPushTicketsResponse(results []service.PushResult) PushTicketsResponse {
	out := PushTicketsResponse{Results: make([]PushResult, 0, len(results))}
	for _, r := range results {
		item := PushResult{TicketID: r.TicketID, Success: r.Err == nil}
		if r.Ref != nil {
			item.External = &ExternalRef{Tracker: r.Ref.Tracker, ID: r.Ref.ID, URL: r.Ref.URL}
		}
		if r.Err != nil {
			item.Error = r.Err.Error()
		}
		out.Results = append(out.Results, item)
	}
	return out
}

type TicketResponse struct {
	ID                 string             `json:"id"`
	SessionID          string             `json:"session_id"`
	Title              string             `json:"title"`
	Description        string             `json:"description"`
	Severity           dialogue.Severity  `json:"severity"`
	Reproducibility    string             `json:"reproducibility"`
	Evidence           dialogue.Evidence  `json:"evidence"`
	AffectedComponents []string           `json:"affected_components"`
	Status             model.TicketStatus `json:"status"`
	AssignedTo         *string            `json:"assigned_to,omitempty"`
	Topic              *string            `json:"topic,omitempty"`
	TopicCluster       *string            `json:"topic_cluster,omitempty"`
	External           *ExternalRef       `json:"external,omitempty"`
	NotifiedAt         *time.Time         `json:"notified_at,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

type ExternalRef struct {
	Tracker string `json:"tracker"`
	ID      string `json:"id"`
	URL     string `json:"url,omitempty"`
}

type TicketListResponse struct {
	Tickets []TicketResponse `json:"tickets"`
}

func ToTicketResponse(t *model.Ticket) TicketResponse {
	resp := TicketResponse{
		ID:                 t.ID,
		SessionID:          t.SessionID,
		Title:              t.Title,
		Description:        t.Description,
		Severity:           t.Severity,
		Reproducibility:    t.Reproducibility,
		Evidence:           t.Evidence,
		AffectedComponents: t.AffectedComponents,
		Status:             t.Status,
		AssignedTo:         t.AssignedTo,
		Topic:              t.Topic,
		TopicCluster:       t.TopicCluster,
		NotifiedAt:         t.NotifiedAt,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
	if resp.AffectedComponents == nil {
		resp.AffectedComponents = []string{}
	}

	if t.Delivered() {
		ref := &ExternalRef{ID: *t.ExternalID, URL: t.ExternalLink()}
		if t.Tracker != nil {
			ref.Tracker = *t.Tracker
		}
		resp.External = ref
	}

	return resp
}

func ToTicketListResponse(tickets []model.Ticket) TicketListResponse {
	out := TicketListResponse{Tickets: make([]TicketResponse, 0, len(tickets))}
	for i := range tickets {
		out.Tickets = append(out.Tickets, ToTicketResponse(&tickets[i]))
	}
	return out
}
