package dialogue

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrBookingNotFound indicates the requested booking id does not exist.
var ErrBookingNotFound = errors.New("dialogue: booking not found")

// Snapshot returns the stored session, or ErrSessionNotFound.
func (e *Engine) Snapshot(ctx context.Context, sessionID string) (*Session, error) {
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()
	return e.store.Get(ctx, sessionID)
}

// ListBookings returns the session's finalized bookings, oldest first. A
// fresh session id yields an empty list rather than an error.
func (e *Engine) ListBookings(ctx context.Context, sessionID string) ([]Booking, error) {
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := e.store.Get(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return []Booking{}, nil
	}
	if err != nil {
		return nil, err
	}
	if session.Bookings == nil {
		return []Booking{}, nil
	}
	return session.Bookings, nil
}

// GetBooking fetches one booking by id.
func (e *Engine) GetBooking(ctx context.Context, sessionID, bookingID string) (Booking, error) {
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return Booking{}, err
	}
	for _, b := range session.Bookings {
		if b.ID == bookingID {
			return b, nil
		}
	}
	return Booking{}, ErrBookingNotFound
}

// UpdateBooking applies a partial edit to a finalized booking. Every supplied
// field is re-validated exactly as during collection; the first invalid field
// rejects the whole update and nothing is persisted.
func (e *Engine) UpdateBooking(ctx context.Context, sessionID, bookingID string, updates map[Field]string) (Booking, error) {
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return Booking{}, err
	}
	session.Normalize()

	idx := -1
	for i, b := range session.Bookings {
		if b.ID == bookingID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Booking{}, ErrBookingNotFound
	}

	cat := e.resolveCatalog(ctx)
	booking := session.Bookings[idx]
	details := make(map[Field]string, len(booking.Details))
	for k, v := range booking.Details {
		details[k] = v
	}

	// Location applies before time so the hours check sees the new value.
	patchOrder := []Field{FieldService, FieldLocation, FieldDate, FieldTime, FieldContact}
	for _, f := range patchOrder {
		raw, ok := updates[f]
		if !ok || raw == "" {
			continue
		}
		v, verr := ValidateField(f, raw, cat, details[FieldLocation])
		if verr != nil {
			return Booking{}, verr
		}
		if v.Suggestion != "" {
			// Edits take no confirmation detour; near-misses are invalid.
			return Booking{}, invalidFor(f)
		}
		details[f] = v.Value
	}

	booking.Details = details
	booking.UpdatedAt = time.Now().UTC()
	session.Bookings[idx] = booking

	if err := e.saveSession(ctx, session); err != nil {
		return Booking{}, fmt.Errorf("dialogue: save session: %w", err)
	}
	return booking, nil
}

// DeleteBooking removes a booking by id.
func (e *Engine) DeleteBooking(ctx context.Context, sessionID, bookingID string) error {
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	kept := session.Bookings[:0]
	found := false
	for _, b := range session.Bookings {
		if b.ID == bookingID {
			found = true
			continue
		}
		kept = append(kept, b)
	}
	if !found {
		return ErrBookingNotFound
	}
	session.Bookings = kept

	if err := e.saveSession(ctx, session); err != nil {
		return fmt.Errorf("dialogue: save session: %w", err)
	}
	return nil
}

// ClearHistory drops a session's transcript, keeping the draft and bookings.
func (e *Engine) ClearHistory(ctx context.Context, sessionID string) error {
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	session.History = nil

	if err := e.saveSession(ctx, session); err != nil {
		return fmt.Errorf("dialogue: save session: %w", err)
	}
	return nil
}
