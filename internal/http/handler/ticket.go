package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"basegraph.app/intake/internal/http/dto"
	"basegraph.app/intake/internal/model"
	"basegraph.app/intake/internal/service"
	"basegraph.app/intake/internal/service/issue_tracker"
	"basegraph.app/intake/internal/store"
	"github.com/gin-gonic/gin"
)

// TicketHandler serves the product-manager view of finalized tickets.
type TicketHandler struct {
	tickets     service.TicketService
	adminAPIKey string
}

func NewTicketHandler(tickets service.TicketService, adminAPIKey string) *TicketHandler {
	return &TicketHandler{tickets: tickets, adminAPIKey: adminAPIKey}
}

func (h *TicketHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	var q dto.ListTicketsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	params := store.ListTicketsParams{Limit: q.Limit, Offset: q.Offset}
	if q.Status != "" {
		status := model.TicketStatus(q.Status)
		if !status.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
			return
		}
		params.Status = &status
	}
	if q.Cluster != "" {
		params.TopicCluster = &q.Cluster
	}

	tickets, err := h.tickets.List(ctx, params)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list tickets", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list tickets"})
		return
	}

	c.JSON(http.StatusOK, dto.ToTicketListResponse(tickets))
}

func (h *TicketHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	ticket, err := h.tickets.Get(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrTicketNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "ticket not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to get ticket", "error", err, "ticket_id", id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get ticket"})
		return
	}

	c.JSON(http.StatusOK, dto.ToTicketResponse(ticket))
}

// UpdateStatus moves a batch of tickets to a new status in one transaction.
func (h *TicketHandler) UpdateStatus(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.UpdateTicketStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: ids and status are required"})
		return
	}

	tickets, err := h.tickets.UpdateStatus(ctx, req.IDs, model.TicketStatus(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidStatus), errors.Is(err, service.ErrNoTickets):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrTicketNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "no matching tickets"})
		default:
			slog.ErrorContext(ctx, "failed to update ticket status", "error", err, "count", len(req.IDs))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update tickets"})
		}
		return
	}

	slog.InfoContext(ctx, "ticket status updated via admin API",
		"count", len(tickets),
		"status", req.Status,
	)

	c.JSON(http.StatusOK, dto.ToTicketListResponse(tickets))
}

// Update edits title, description, severity, status or assignee of one ticket.
func (h *TicketHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	var req dto.UpdateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ticket, err := h.tickets.Update(ctx, id, req.Params())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoChanges),
			errors.Is(err, service.ErrInvalidStatus),
			errors.Is(err, service.ErrInvalidSeverity):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrTicketNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "ticket not found"})
		default:
			slog.ErrorContext(ctx, "failed to update ticket", "error", err, "ticket_id", id)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update ticket"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToTicketResponse(ticket))
}

func (h *TicketHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	if err := h.tickets.Delete(ctx, id); err != nil {
		if errors.Is(err, service.ErrTicketNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "ticket not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to delete ticket", "error", err, "ticket_id", id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete ticket"})
		return
	}

	c.Status(http.StatusNoContent)
}

// Push files the selected tickets in the chosen tracker. Per-ticket failures
// are reported in the body with a 200.
func (h *TicketHandler) Push(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.PushTicketsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: ticket_ids and tracker are required"})
		return
	}

	results, err := h.tickets.PushToTracker(ctx, req.TicketIDs, req.Tracker)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidTracker),
			errors.Is(err, service.ErrNoTickets),
			errors.Is(err, issue_tracker.ErrTrackerNotConfigured):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrTicketNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "no matching tickets"})
		default:
			slog.ErrorContext(ctx, "failed to push tickets", "error", err, "tracker", req.Tracker)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to push tickets"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToPushTicketsResponse(results))
}

// RequireAdminAPIKey middleware checks for valid admin API key
func (h *TicketHandler) RequireAdminAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.adminAPIKey == "" {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "admin API not configured"})
			c.Abort()
			return
		}

		apiKey := c.GetHeader("X-Admin-API-Key")
		if apiKey == "" {
			apiKey = c.GetHeader("Authorization")
			if len(apiKey) > 7 && apiKey[:7] == "Bearer " {
				apiKey = apiKey[7:]
			}
		}

		if apiKey != h.adminAPIKey {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing API key"})
			c.Abort()
			return
		}

		c.Next()
	}
}
