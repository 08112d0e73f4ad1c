// Package repository provides data access for the conversation workflow:
// per-conversation state snapshots, escalation tickets, and the compliance
// audit log.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"buyerbot_backend/internal/conversation/domain"
	"buyerbot_backend/internal/resilience"
)

var (
	ErrSnapshotNotFound = errors.New("conversation snapshot not found")
	ErrTicketNotFound   = errors.New("escalation ticket not found")
)

// Snapshot is the persisted record of a conversation after a turn. The full
// state is stored as JSON; the flat columns exist for querying and reporting.
type Snapshot struct {
	ConversationID          string
	ContactName             string
	Step                    string
	FinancingStatus         string
	FinancialReadinessScore float64
	MotivationScore         float64
	Temperature             string
	IsQualified             bool
	RequiresManualReview    bool
	State                   *domain.ConversationState
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// Repository provides data access for conversation workflow records.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new conversation repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveSnapshot upserts the post-turn state for a conversation. The snapshot
// is the authoritative record the next turn's history is rebuilt from.
func (r *Repository) SaveSnapshot(ctx context.Context, state *domain.ConversationState, temperature string, qualified bool) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO conversation_snapshots (
			conversation_id, contact_name, step, financing_status,
			financial_readiness_score, motivation_score, temperature,
			is_qualified, requires_manual_review, state
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (conversation_id) DO UPDATE SET
			contact_name = EXCLUDED.contact_name,
			step = EXCLUDED.step,
			financing_status = EXCLUDED.financing_status,
			financial_readiness_score = EXCLUDED.financial_readiness_score,
			motivation_score = EXCLUDED.motivation_score,
			temperature = EXCLUDED.temperature,
			is_qualified = EXCLUDED.is_qualified,
			requires_manual_review = EXCLUDED.requires_manual_review,
			state = EXCLUDED.state,
			updated_at = now()
	`, state.ConversationID, state.ContactName, state.Step, state.FinancingStatus,
		state.FinancialReadinessScore, state.MotivationScore, temperature,
		qualified, state.RequiresManualReview, stateJSON)
	return err
}

// GetSnapshot loads the latest snapshot for a conversation.
func (r *Repository) GetSnapshot(ctx context.Context, conversationID string) (Snapshot, error) {
	var (
		snap      Snapshot
		stateJSON []byte
	)
	err := r.pool.QueryRow(ctx, `
		SELECT conversation_id, contact_name, step, financing_status,
		       financial_readiness_score, motivation_score, temperature,
		       is_qualified, requires_manual_review, state, created_at, updated_at
		FROM conversation_snapshots
		WHERE conversation_id = $1
	`, conversationID).Scan(
		&snap.ConversationID, &snap.ContactName, &snap.Step, &snap.FinancingStatus,
		&snap.FinancialReadinessScore, &snap.MotivationScore, &snap.Temperature,
		&snap.IsQualified, &snap.RequiresManualReview, &stateJSON,
		&snap.CreatedAt, &snap.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, ErrSnapshotNotFound
	}
	if err != nil {
		return Snapshot{}, err
	}
	var state domain.ConversationState
	if err := json.Unmarshal(stateJSON, &state); err != nil {
		return Snapshot{}, err
	}
	snap.State = &state
	return snap, nil
}

// ListManualReview returns snapshots flagged for manual review, newest first.
func (r *Repository) ListManualReview(ctx context.Context, limit int) ([]Snapshot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT conversation_id, contact_name, step, financing_status,
		       financial_readiness_score, motivation_score, temperature,
		       is_qualified, requires_manual_review, created_at, updated_at
		FROM conversation_snapshots
		WHERE requires_manual_review = true
		ORDER BY updated_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(
			&snap.ConversationID, &snap.ContactName, &snap.Step, &snap.FinancingStatus,
			&snap.FinancialReadinessScore, &snap.MotivationScore, &snap.Temperature,
			&snap.IsQualified, &snap.RequiresManualReview, &snap.CreatedAt, &snap.UpdatedAt,
		); err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// TicketRepository persists escalation tickets and the compliance audit log.
// It implements the resilience layer's TicketStore.
type TicketRepository struct {
	pool *pgxpool.Pool
}

func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{pool: pool}
}

// SaveTicket upserts a ticket. Redelivery updates the same row, so a queued
// ticket that later lands transitions to escalated in place.
func (r *TicketRepository) SaveTicket(ctx context.Context, ticket *resilience.Ticket) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO escalation_tickets (
			id, subject_id, reason, severity, category, status,
			tag_applied, note_added, event_published, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			tag_applied = EXCLUDED.tag_applied,
			note_added = EXCLUDED.note_added,
			event_published = EXCLUDED.event_published,
			updated_at = now()
	`, ticket.ID, ticket.SubjectID, ticket.Reason, ticket.Severity, ticket.Category,
		ticket.Status, ticket.TagApplied, ticket.NoteAdded, ticket.EventPublished,
		ticket.CreatedAt)
	return err
}

// SaveAuditRecord appends an immutable compliance audit entry. Audit rows are
// never updated or deleted.
func (r *TicketRepository) SaveAuditRecord(ctx context.Context, ticket *resilience.Ticket, detail string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO compliance_audit (ticket_id, subject_id, category, severity, detail)
		VALUES ($1, $2, $3, $4, $5)
	`, ticket.ID, ticket.SubjectID, ticket.Category, ticket.Severity, detail)
	return err
}

// GetTicket loads one ticket by ID.
func (r *TicketRepository) GetTicket(ctx context.Context, id uuid.UUID) (*resilience.Ticket, error) {
	var ticket resilience.Ticket
	err := r.pool.QueryRow(ctx, `
		SELECT id, subject_id, reason, COALESCE(severity, ''), COALESCE(category, ''),
		       status, tag_applied, note_added, event_published, created_at
		FROM escalation_tickets
		WHERE id = $1
	`, id).Scan(
		&ticket.ID, &ticket.SubjectID, &ticket.Reason, &ticket.Severity, &ticket.Category,
		&ticket.Status, &ticket.TagApplied, &ticket.NoteAdded, &ticket.EventPublished,
		&ticket.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// ListQueuedTickets returns tickets still waiting for redelivery, oldest
// first, so the worker drains them in order.
func (r *TicketRepository) ListQueuedTickets(ctx context.Context, limit int) ([]*resilience.Ticket, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, subject_id, reason, COALESCE(severity, ''), COALESCE(category, ''),
		       status, tag_applied, note_added, event_published, created_at
		FROM escalation_tickets
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`, resilience.StatusQueued, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []*resilience.Ticket
	for rows.Next() {
		var ticket resilience.Ticket
		if err := rows.Scan(
			&ticket.ID, &ticket.SubjectID, &ticket.Reason, &ticket.Severity, &ticket.Category,
			&ticket.Status, &ticket.TagApplied, &ticket.NoteAdded, &ticket.EventPublished,
			&ticket.CreatedAt,
		); err != nil {
			return nil, err
		}
		tickets = append(tickets, &ticket)
	}
	return tickets, rows.Err()
}
