package dialogue

import "time"

// Field identifies one of the booking fields collected during a conversation.
type Field string

const (
	FieldService  Field = "service"
	FieldDate     Field = "date"
	FieldTime     Field = "time"
	FieldLocation Field = "location"
	FieldContact  Field = "contact"
)

// RequiredFields lists every field a booking needs, in collection order.
var RequiredFields = []Field{FieldService, FieldDate, FieldTime, FieldLocation, FieldContact}

// Draft statuses.
const (
	StatusDraft  = "draft"
	StatusBooked = "booked"
)

// Draft is the in-progress booking being assembled across turns. Details only
// ever holds validated, normalized values; candidate values sit in
// PendingValue until the user confirms them.
type Draft struct {
	BookingType          string           `json:"booking_type"`
	Details              map[Field]string `json:"details"`
	Status               string           `json:"status"`
	MissingFields        []Field          `json:"missing_fields"`
	PendingField         Field            `json:"pending_field,omitempty"`
	PendingValue         string           `json:"pending_value,omitempty"`
	AwaitingConfirmation bool             `json:"awaiting_confirmation"`
	ConfirmationSummary  string           `json:"confirmation_summary,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

// NewDraft returns an empty draft with every required field missing.
func NewDraft() *Draft {
	now := time.Now().UTC()
	d := &Draft{
		BookingType: "appointment",
		Details:     map[Field]string{},
		Status:      StatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	d.RecomputeMissing()
	return d
}

// RecomputeMissing rebuilds MissingFields as the required fields without a
// committed value, in collection order.
func (d *Draft) RecomputeMissing() {
	missing := make([]Field, 0, len(RequiredFields))
	for _, f := range RequiredFields {
		if d.Details[f] == "" {
			missing = append(missing, f)
		}
	}
	d.MissingFields = missing
}

// Commit stores a validated value and clears any pending state for the field.
func (d *Draft) Commit(f Field, value string) {
	if d.Details == nil {
		d.Details = map[Field]string{}
	}
	d.Details[f] = value
	if d.PendingField == f {
		d.PendingField = ""
		d.PendingValue = ""
	}
	d.UpdatedAt = time.Now().UTC()
	d.RecomputeMissing()
}

// SetPending stages a candidate value awaiting the user's yes/no. Staging a
// field confirmation always cancels a final confirmation in progress.
func (d *Draft) SetPending(f Field, value string) {
	d.PendingField = f
	d.PendingValue = value
	d.AwaitingConfirmation = false
}

// ClearPending discards any staged candidate.
func (d *Draft) ClearPending() {
	d.PendingField = ""
	d.PendingValue = ""
}

// Complete reports whether every required field has a committed value.
func (d *Draft) Complete() bool {
	return len(d.MissingFields) == 0
}

// NextMissing returns the first field still missing, or "" when complete.
func (d *Draft) NextMissing() Field {
	if len(d.MissingFields) == 0 {
		return ""
	}
	return d.MissingFields[0]
}

// Booking is a finalized appointment. Immutable once created except through
// the explicit edit operation, which re-validates touched fields.
type Booking struct {
	ID                  string           `json:"id"`
	BookingType         string           `json:"booking_type"`
	Details             map[Field]string `json:"details"`
	Status              string           `json:"status"`
	ConfirmationSummary string           `json:"confirmation_summary,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// HistoryEntry is one message in a session transcript.
type HistoryEntry struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the whole per-conversation state: the current draft, finalized
// bookings, the last field the assistant asked about, and the transcript.
type Session struct {
	ID           string         `json:"id"`
	Draft        *Draft         `json:"draft"`
	Bookings     []Booking      `json:"bookings"`
	LastQuestion Field          `json:"last_question,omitempty"`
	History      []HistoryEntry `json:"history,omitempty"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// NewSession returns a fresh session with an empty draft.
func NewSession(id string) *Session {
	return &Session{ID: id, Draft: NewDraft()}
}

// Normalize repairs a session deserialized from storage so every invariant
// the engine relies on holds again.
func (s *Session) Normalize() {
	if s.Draft == nil {
		s.Draft = NewDraft()
	}
	if s.Draft.Details == nil {
		s.Draft.Details = map[Field]string{}
	}
	s.Draft.RecomputeMissing()
	if s.Draft.PendingField != "" {
		s.Draft.AwaitingConfirmation = false
	}
	if !s.Draft.Complete() {
		s.Draft.AwaitingConfirmation = false
	}
}
