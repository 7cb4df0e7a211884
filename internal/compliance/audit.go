// Package compliance records health answers and declines and owns the
// disclaimer attached to health replies.
package compliance

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditEventType represents the type of compliance event.
type AuditEventType string

const (
	// EventHealthAnswered is logged when a grounded health answer is returned.
	EventHealthAnswered AuditEventType = "health.answered"
	// EventHealthDeclined is logged when a health question is declined.
	EventHealthDeclined AuditEventType = "health.declined"
)

// AuditEvent represents an immutable compliance audit record.
type AuditEvent struct {
	ID        string          `json:"id"`
	EventType AuditEventType  `json:"event_type"`
	SessionID string          `json:"session_id,omitempty"`
	Question  string          `json:"question,omitempty"`
	Answer    string          `json:"answer,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// AuditDetails contains event-specific details.
type AuditDetails struct {
	MatchedTerms []string `json:"matched_terms,omitempty"`

	// For answered questions
	SourceURLs []string `json:"source_urls,omitempty"`

	// For declined questions
	DeclineReason string `json:"decline_reason,omitempty"`
}

// AuditService handles compliance audit logging.
type AuditService struct {
	db *sql.DB
}

// NewAuditService creates a new audit service.
func NewAuditService(db *sql.DB) *AuditService {
	return &AuditService{db: db}
}

// LogEvent records a compliance audit event.
func (s *AuditService) LogEvent(ctx context.Context, event AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO health_audit_events (
			id, event_type, session_id, question, answer, details, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		nullString(event.SessionID),
		nullString(event.Question),
		nullString(event.Answer),
		event.Details,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("compliance: failed to log audit event: %w", err)
	}

	return nil
}

// LogHealthAnswered logs a grounded answer and the sources behind it.
func (s *AuditService) LogHealthAnswered(ctx context.Context, sessionID, question, answer string, terms, sourceURLs []string) error {
	detailsJSON, _ := json.Marshal(AuditDetails{
		MatchedTerms: terms,
		SourceURLs:   sourceURLs,
	})

	return s.LogEvent(ctx, AuditEvent{
		EventType: EventHealthAnswered,
		SessionID: sessionID,
		Question:  question,
		Answer:    answer,
		Details:   detailsJSON,
	})
}

// LogHealthDeclined logs a health question that got the decline reply.
func (s *AuditService) LogHealthDeclined(ctx context.Context, sessionID, question string, terms []string, reason string) error {
	detailsJSON, _ := json.Marshal(AuditDetails{
		MatchedTerms:  terms,
		DeclineReason: reason,
	})

	return s.LogEvent(ctx, AuditEvent{
		EventType: EventHealthDeclined,
		SessionID: sessionID,
		Question:  question,
		Details:   detailsJSON,
	})
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
