package bookings

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookbotclinic/bookbot/internal/dialogue"
)

func sampleBooking() dialogue.Booking {
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	return dialogue.Booking{
		ID:          "bk-1",
		BookingType: "appointment",
		Details: map[dialogue.Field]string{
			dialogue.FieldService:  "Dental Cleaning",
			dialogue.FieldDate:     "2026-02-10",
			dialogue.FieldTime:     "10:30",
			dialogue.FieldLocation: "Raffles Place",
			dialogue.FieldContact:  "alice@example.com",
		},
		Status:              dialogue.StatusBooked,
		ConfirmationSummary: "summary",
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

func TestStoreArchive(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)
	b := sampleBooking()

	mock.ExpectExec("INSERT INTO bookings_archive").
		WithArgs(b.ID, "sess-1", b.BookingType, sqlmock.AnyArg(), b.Status,
			b.ConfirmationSummary, b.CreatedAt, b.UpdatedAt, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = store.Archive(context.Background(), "sess-1", b)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreArchiveNilStore(t *testing.T) {
	var store *Store
	assert.NoError(t, store.Archive(context.Background(), "sess-1", sampleBooking()))
}

func TestStoreListBySession(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)
	b := sampleBooking()
	details, err := json.Marshal(b.Details)
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{
		"id", "session_id", "booking_type", "details", "status", "summary", "created_at", "archived_at",
	}).AddRow(b.ID, "sess-1", b.BookingType, details, b.Status, b.ConfirmationSummary, b.CreatedAt, b.CreatedAt)

	mock.ExpectQuery("SELECT id, session_id, booking_type").
		WithArgs("sess-1").
		WillReturnRows(rows)

	got, err := store.ListBySession(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, b.ID, got[0].ID)
	assert.Equal(t, "Dental Cleaning", got[0].Details[dialogue.FieldService])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreArchiveInsertError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)
	mock.ExpectExec("INSERT INTO bookings_archive").
		WillReturnError(assert.AnError)

	err = store.Archive(context.Background(), "sess-1", sampleBooking())
	assert.Error(t, err)
}
