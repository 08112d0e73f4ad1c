// Package handler exposes the conversation workflow over HTTP.
package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"buyerbot_backend/internal/conversation"
	"buyerbot_backend/internal/conversation/domain"
	"buyerbot_backend/internal/conversation/pause"
	"buyerbot_backend/internal/conversation/repository"
	"buyerbot_backend/internal/conversation/transport"
	"buyerbot_backend/platform/httpkit"
	"buyerbot_backend/platform/logger"
	"buyerbot_backend/platform/phone"
	"buyerbot_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for the conversation workflow.
type Handler struct {
	engine *conversation.Engine
	repo   *repository.Repository
	pauses *pause.Store
	val    *validator.Validator
	log    *logger.Logger
}

// New creates a new conversation handler.
func New(engine *conversation.Engine, repo *repository.Repository, pauses *pause.Store, val *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{engine: engine, repo: repo, pauses: pauses, val: val, log: log}
}

// RegisterRoutes mounts the conversation endpoints on the given group.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST("/conversations/process", h.ProcessMessage)
	r.GET("/conversations/manual-review", h.ListManualReview)
	r.GET("/conversations/:id", h.GetConversation)
	r.POST("/conversations/:id/resume", h.ResumeConversation)
}

// ProcessMessage runs one inbound turn through the workflow engine and
// persists the resulting snapshot.
// POST /api/v1/conversations/process
func (h *Handler) ProcessMessage(c *gin.Context) {
	var req transport.ProcessMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	if req.Phone != "" {
		req.Phone = phone.NormalizeE164(req.Phone)
		if !phone.IsSMSCapable(req.Phone) {
			httpkit.Error(c, http.StatusBadRequest, "phone is not a valid SMS destination", nil)
			return
		}
	}

	history := make([]domain.Message, 0, len(req.History))
	for _, msg := range req.History {
		history = append(history, domain.Message{Role: domain.Role(msg.Role), Text: msg.Text})
	}

	result := h.engine.Process(c.Request.Context(), conversation.ProcessRequest{
		ConversationID: req.ConversationID,
		Message:        req.Message,
		Name:           req.Name,
		History:        history,
		HandoffContext: req.HandoffContext,
	})

	if result.State == nil && result.Error != "" {
		status := http.StatusBadRequest
		if strings.Contains(result.Error, "in progress") {
			status = http.StatusConflict
		}
		httpkit.Error(c, status, result.Error, nil)
		return
	}

	if result.State != nil {
		if err := h.repo.SaveSnapshot(c.Request.Context(), result.State, string(result.Temperature), result.IsQualified); err != nil {
			// The turn already happened; a persistence failure must not
			// suppress the reply the buyer is about to receive.
			h.log.DatabaseError("save conversation snapshot", err)
		}
	}

	httpkit.OK(c, result)
}

// GetConversation returns the latest snapshot for a conversation.
// GET /api/v1/conversations/:id
func (h *Handler) GetConversation(c *gin.Context) {
	snap, err := h.repo.GetSnapshot(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repository.ErrSnapshotNotFound) {
		httpkit.Error(c, http.StatusNotFound, "conversation not found", nil)
		return
	}
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toSnapshotResponse(snap))
}

// ListManualReview returns conversations waiting on a human decision.
// GET /api/v1/conversations/manual-review
func (h *Handler) ListManualReview(c *gin.Context) {
	var req transport.ListManualReviewRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	limit := req.Limit
	if limit == 0 {
		limit = 50
	}

	snaps, err := h.repo.ListManualReview(c.Request.Context(), limit)
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]transport.SnapshotResponse, 0, len(snaps))
	for _, snap := range snaps {
		items = append(items, toSnapshotResponse(snap))
	}
	httpkit.OK(c, transport.SnapshotListResponse{Items: items, Total: len(items)})
}

// ResumeConversation clears a compliance hold so automation can message the
// contact again. Opt outs are permanent and cannot be cleared here.
// POST /api/v1/conversations/:id/resume
func (h *Handler) ResumeConversation(c *gin.Context) {
	id := c.Param("id")
	if err := h.pauses.Resume(c.Request.Context(), id); err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "resume failed", nil)
		return
	}
	h.log.Info("automation resumed", "conversation_id", id)
	httpkit.OK(c, gin.H{"conversationId": id, "resumed": true})
}

func toSnapshotResponse(snap repository.Snapshot) transport.SnapshotResponse {
	return transport.SnapshotResponse{
		ConversationID:          snap.ConversationID,
		ContactName:             snap.ContactName,
		Step:                    snap.Step,
		FinancingStatus:         snap.FinancingStatus,
		FinancialReadinessScore: snap.FinancialReadinessScore,
		MotivationScore:         snap.MotivationScore,
		Temperature:             snap.Temperature,
		IsQualified:             snap.IsQualified,
		RequiresManualReview:    snap.RequiresManualReview,
		UpdatedAt:               snap.UpdatedAt.Format(time.RFC3339),
	}
}
