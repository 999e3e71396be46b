package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"basegraph.app/intake/internal/dialogue"
	"basegraph.app/intake/internal/http/dto"
	"basegraph.app/intake/internal/service"
	"github.com/gin-gonic/gin"
)

var (
	errMissingData   = errors.New("missing data for action")
	errUnknownAction = errors.New("unknown action")
)

type IntakeHandler struct {
	intake service.IntakeService
}

func NewIntakeHandler(intake service.IntakeService) *IntakeHandler {
	return &IntakeHandler{intake: intake}
}

// Chat runs one reporter turn: start, respond or confirm.
func (h *IntakeHandler) Chat(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid chat request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: action must be one of start, respond, confirm"})
		return
	}

	resp, err := h.dispatch(ctx, req)
	if err != nil {
		status, msg := chatError(err)
		if status == http.StatusInternalServerError {
			slog.ErrorContext(ctx, "chat turn failed", "error", err, "action", req.Action)
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Resume returns the prompt the session is currently waiting on.
func (h *IntakeHandler) Resume(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := c.Param("session_id")

	res, err := h.intake.Resume(ctx, sessionID)
	if err != nil {
		status, msg := chatError(err)
		if status == http.StatusInternalServerError {
			slog.ErrorContext(ctx, "failed to resume session", "error", err, "session_id", sessionID)
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, dto.ToChatResponse(sessionID, res))
}

func (h *IntakeHandler) dispatch(ctx context.Context, req dto.ChatRequest) (*dto.ChatResponse, error) {
	switch req.Action {
	case dto.ChatActionStart:
		if req.Data.ProblemStatement == nil {
			return nil, errMissingData
		}
		sessionID, res, err := h.intake.Start(ctx, req.SessionID, *req.Data.ProblemStatement)
		if err != nil {
			return nil, err
		}
		return dto.ToChatResponse(sessionID, res), nil

	case dto.ChatActionRespond:
		if req.Data.Response == nil {
			return nil, errMissingData
		}
		res, err := h.intake.Respond(ctx, req.SessionID, *req.Data.Response)
		if err != nil {
			return nil, err
		}
		return dto.ToChatResponse(req.SessionID, res), nil

	case dto.ChatActionConfirm:
		if req.Data.Confirmed == nil {
			return nil, errMissingData
		}
		res, err := h.intake.Confirm(ctx, req.SessionID, *req.Data.Confirmed)
		if err != nil {
			return nil, err
		}
		return dto.ToChatResponse(req.SessionID, res), nil

	default:
		return nil, errUnknownAction
	}
}

func chatError(err error) (int, string) {
	switch {
	case errors.Is(err, errUnknownAction):
		return http.StatusBadRequest, "action must be one of start, respond, confirm"
	case errors.Is(err, errMissingData):
		return http.StatusBadRequest, "missing data: start needs problem_statement, respond needs response, confirm needs confirmed"
	case errors.Is(err, service.ErrInvalidSession):
		return http.StatusBadRequest, "session_id is required and must be at most 128 characters"
	case errors.Is(err, dialogue.ErrEmptyProblemStatement):
		return http.StatusBadRequest, "problem statement must not be empty"
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound, "session not found, start a new session"
	case errors.Is(err, service.ErrSessionBusy):
		return http.StatusConflict, "session is busy with another message"
	case errors.Is(err, dialogue.ErrPrecondition):
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
