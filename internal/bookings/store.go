// Package bookings persists finalized bookings to PostgreSQL for long-term
// record keeping. Session stores expire; this archive does not.
package bookings

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bookbotclinic/bookbot/internal/dialogue"
)

// Store archives finalized bookings. A nil Store is a no-op archiver.
type Store struct {
	db *sql.DB
}

// NewStore creates a booking archive store. Returns nil when db is nil so
// callers can pass the result straight to the engine.
func NewStore(db *sql.DB) *Store {
	if db == nil {
		return nil
	}
	return &Store{db: db}
}

// Archive inserts a finalized booking. Replays of the same booking id are
// ignored so retries stay safe.
func (s *Store) Archive(ctx context.Context, sessionID string, b dialogue.Booking) error {
	if s == nil || s.db == nil {
		return nil
	}

	details, err := json.Marshal(b.Details)
	if err != nil {
		return fmt.Errorf("bookings: marshal details: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO bookings_archive (
			id, session_id, booking_type, details, status, summary,
			created_at, updated_at, archived_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`, b.ID, sessionID, b.BookingType, details, b.Status, b.ConfirmationSummary,
		b.CreatedAt, b.UpdatedAt, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("bookings: insert archive row: %w", err)
	}
	return nil
}

// ArchivedBooking is one archived row.
type ArchivedBooking struct {
	ID          string                    `json:"id"`
	SessionID   string                    `json:"session_id"`
	BookingType string                    `json:"booking_type"`
	Details     map[dialogue.Field]string `json:"details"`
	Status      string                    `json:"status"`
	Summary     string                    `json:"summary"`
	CreatedAt   time.Time                 `json:"created_at"`
	ArchivedAt  time.Time                 `json:"archived_at"`
}

// ListBySession returns archived bookings for a session, newest first.
func (s *Store) ListBySession(ctx context.Context, sessionID string) ([]ArchivedBooking, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, booking_type, details, status, summary, created_at, archived_at
		FROM bookings_archive
		WHERE session_id = $1
		ORDER BY archived_at DESC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("bookings: query archive: %w", err)
	}
	defer rows.Close()

	var out []ArchivedBooking
	for rows.Next() {
		var (
			row        ArchivedBooking
			rawDetails []byte
		)
		if err := rows.Scan(&row.ID, &row.SessionID, &row.BookingType, &rawDetails,
			&row.Status, &row.Summary, &row.CreatedAt, &row.ArchivedAt); err != nil {
			return nil, fmt.Errorf("bookings: scan archive row: %w", err)
		}
		if len(rawDetails) > 0 {
			if err := json.Unmarshal(rawDetails, &row.Details); err != nil {
				return nil, fmt.Errorf("bookings: unmarshal details: %w", err)
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bookings: iterate archive rows: %w", err)
	}
	return out, nil
}
