package dialogue

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func bookedSession(t *testing.T, e *Engine, store SessionStore, sid string) Booking {
	t.Helper()
	seedCompleteSession(t, e, store, sid, false)
	reply := turn(t, e, sid, "confirm")
	if !strings.HasPrefix(reply, "Booking confirmed!") {
		t.Fatalf("seed finalize reply = %q", reply)
	}
	s := loadSession(t, store, sid)
	if len(s.Bookings) != 1 {
		t.Fatalf("seed bookings = %d", len(s.Bookings))
	}
	return s.Bookings[0]
}

func TestListBookings(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()

	got, err := e.ListBookings(ctx, "unknown")
	if err != nil || len(got) != 0 {
		t.Fatalf("unknown session: %v %v", got, err)
	}

	b := bookedSession(t, e, store, "s1")
	got, err = e.ListBookings(ctx, "s1")
	if err != nil || len(got) != 1 || got[0].ID != b.ID {
		t.Fatalf("ListBookings = %v, %v", got, err)
	}
}

func TestGetBooking(t *testing.T) {
	e, store := newTestEngine(t)
	b := bookedSession(t, e, store, "s1")

	got, err := e.GetBooking(context.Background(), "s1", b.ID)
	if err != nil || got.ID != b.ID {
		t.Fatalf("GetBooking = %+v, %v", got, err)
	}
	_, err = e.GetBooking(context.Background(), "s1", "nope")
	if !errors.Is(err, ErrBookingNotFound) {
		t.Errorf("err = %v, want ErrBookingNotFound", err)
	}
	_, err = e.GetBooking(context.Background(), "ghost", b.ID)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestUpdateBookingRevalidates(t *testing.T) {
	e, store := newTestEngine(t)
	b := bookedSession(t, e, store, "s1")
	ctx := context.Background()

	got, err := e.UpdateBooking(ctx, "s1", b.ID, map[Field]string{
		FieldService: "physiotherapy",
		FieldTime:    "2pm",
	})
	if err != nil {
		t.Fatalf("UpdateBooking: %v", err)
	}
	if got.Details[FieldService] != "Physiotherapy" || got.Details[FieldTime] != "2pm" {
		t.Errorf("details = %v", got.Details)
	}

	s := loadSession(t, store, "s1")
	if s.Bookings[0].Details[FieldService] != "Physiotherapy" {
		t.Error("update not persisted")
	}
}

func TestUpdateBookingFirstInvalidRejectsAll(t *testing.T) {
	e, store := newTestEngine(t)
	b := bookedSession(t, e, store, "s1")
	ctx := context.Background()

	_, err := e.UpdateBooking(ctx, "s1", b.ID, map[Field]string{
		FieldService: "massage therapy",
		FieldContact: "New Contact 999",
	})
	if !errors.Is(err, ErrInvalidService) {
		t.Fatalf("err = %v, want ErrInvalidService", err)
	}

	s := loadSession(t, store, "s1")
	if s.Bookings[0].Details[FieldContact] != "Tan, 91234567" {
		t.Error("rejected update must not mutate the booking")
	}
}

func TestUpdateBookingFuzzyIsInvalid(t *testing.T) {
	e, store := newTestEngine(t)
	b := bookedSession(t, e, store, "s1")

	_, err := e.UpdateBooking(context.Background(), "s1", b.ID, map[Field]string{
		FieldLocation: "orchird",
	})
	if !errors.Is(err, ErrInvalidLocation) {
		t.Fatalf("err = %v, want ErrInvalidLocation", err)
	}
}

func TestUpdateBookingTimeSeesNewLocation(t *testing.T) {
	e, store := newTestEngine(t)
	b := bookedSession(t, e, store, "s1")

	// Orchard opens at 10:00, so 9:30 is valid only at the old location.
	_, err := e.UpdateBooking(context.Background(), "s1", b.ID, map[Field]string{
		FieldLocation: "Orchard",
		FieldTime:     "9:30",
	})
	if !errors.Is(err, ErrTimeOutsideHours) {
		t.Fatalf("err = %v, want ErrTimeOutsideHours", err)
	}

	got, err := e.UpdateBooking(context.Background(), "s1", b.ID, map[Field]string{
		FieldLocation: "Orchard",
		FieldTime:     "10:30",
	})
	if err != nil {
		t.Fatalf("UpdateBooking: %v", err)
	}
	if got.Details[FieldLocation] != "Orchard" || got.Details[FieldTime] != "10:30" {
		t.Errorf("details = %v", got.Details)
	}
}

func TestDeleteBooking(t *testing.T) {
	e, store := newTestEngine(t)
	b := bookedSession(t, e, store, "s1")
	ctx := context.Background()

	if err := e.DeleteBooking(ctx, "s1", "nope"); !errors.Is(err, ErrBookingNotFound) {
		t.Fatalf("err = %v, want ErrBookingNotFound", err)
	}
	if err := e.DeleteBooking(ctx, "s1", b.ID); err != nil {
		t.Fatalf("DeleteBooking: %v", err)
	}
	s := loadSession(t, store, "s1")
	if len(s.Bookings) != 0 {
		t.Errorf("bookings = %d", len(s.Bookings))
	}
}

func TestClearHistoryKeepsDraftAndBookings(t *testing.T) {
	e, store := newTestEngine(t)
	b := bookedSession(t, e, store, "s1")
	turn(t, e, "s1", "dental cleaning") // start a new draft, add history

	if err := e.ClearHistory(context.Background(), "s1"); err != nil {
		t.Fatalf("ClearHistory: %v", err)
	}
	s := loadSession(t, store, "s1")
	if len(s.History) != 0 {
		t.Errorf("history = %d entries", len(s.History))
	}
	if len(s.Bookings) != 1 || s.Bookings[0].ID != b.ID {
		t.Error("bookings must survive a history clear")
	}
	if s.Draft.PendingField != FieldService {
		t.Errorf("draft must survive a history clear, pending = %q", s.Draft.PendingField)
	}
}

type recordingArchiver struct {
	sessionID string
	booking   Booking
	err       error
	calls     int
}

func (r *recordingArchiver) Archive(_ context.Context, sessionID string, b Booking) error {
	r.calls++
	r.sessionID = sessionID
	r.booking = b
	return r.err
}

func TestFinalizeArchivesBooking(t *testing.T) {
	arch := &recordingArchiver{}
	store := NewMemorySessionStore()
	e := NewEngine(store, nil, nil, nil, arch, nil)
	sid := "archived"

	seedCompleteSession(t, e, store, sid, false)
	turn(t, e, sid, "confirm")

	if arch.calls != 1 || arch.sessionID != sid || arch.booking.ID == "" {
		t.Errorf("archive call = %d %q %+v", arch.calls, arch.sessionID, arch.booking)
	}
}

func TestFinalizeSurvivesArchiverFailure(t *testing.T) {
	arch := &recordingArchiver{err: errors.New("db down")}
	store := NewMemorySessionStore()
	e := NewEngine(store, nil, nil, nil, arch, nil)
	sid := "archive-fail"

	seedCompleteSession(t, e, store, sid, false)
	reply := turn(t, e, sid, "confirm")
	if !strings.HasPrefix(reply, "Booking confirmed!") {
		t.Fatalf("reply = %q", reply)
	}
	s := loadSession(t, store, sid)
	if len(s.Bookings) != 1 {
		t.Error("archiver failure must not block the booking")
	}
}
