package dialogue

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/bookbotclinic/bookbot/internal/catalog"
)

type stubGenerator struct {
	reply string
	err   error
	calls int
}

func (s *stubGenerator) Generate(_ context.Context, _ string, _ any) (string, error) {
	s.calls++
	return s.reply, s.err
}

func newTestEngine(t *testing.T) (*Engine, *MemorySessionStore) {
	t.Helper()
	store := NewMemorySessionStore()
	return NewEngine(store, nil, nil, nil, nil, nil), store
}

func turn(t *testing.T, e *Engine, sid, msg string) string {
	t.Helper()
	res, err := e.Turn(context.Background(), sid, msg)
	if err != nil {
		t.Fatalf("Turn(%q): %v", msg, err)
	}
	return res.Reply
}

func loadSession(t *testing.T, store SessionStore, sid string) *Session {
	t.Helper()
	s, err := store.Get(context.Background(), sid)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	return s
}

func TestTurnEmptyMessage(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.Turn(context.Background(), "s1", "   ")
	if !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("err = %v, want ErrEmptyMessage", err)
	}
}

func TestTurnGeneratesSessionID(t *testing.T) {
	e, _ := newTestEngine(t)
	res, err := e.Turn(context.Background(), "", "i want physiotherapy")
	if err != nil {
		t.Fatalf("Turn: %v", err)
	}
	if res.SessionID == "" {
		t.Error("expected a generated session id")
	}
}

func TestServiceInferenceFromFreeText(t *testing.T) {
	e, store := newTestEngine(t)

	reply := turn(t, e, "s1", "I'd like a dental cleaning")
	if reply != "Did you want to book **Dental Cleaning**? (yes/no)" {
		t.Fatalf("reply = %q", reply)
	}
	s := loadSession(t, store, "s1")
	if s.Draft.PendingField != FieldService || s.Draft.PendingValue != "Dental Cleaning" {
		t.Errorf("pending = %q/%q", s.Draft.PendingField, s.Draft.PendingValue)
	}

	reply = turn(t, e, "s1", "yes")
	if reply != "What date would you like? (e.g., 21 Dec)" {
		t.Fatalf("reply = %q", reply)
	}
	s = loadSession(t, store, "s1")
	if s.Draft.Details[FieldService] != "Dental Cleaning" {
		t.Errorf("service = %q", s.Draft.Details[FieldService])
	}
	if s.Draft.PendingField != "" {
		t.Errorf("pending not cleared: %q", s.Draft.PendingField)
	}
}

func TestFullBookingFlow(t *testing.T) {
	e, store := newTestEngine(t)
	sid := "flow"

	turn(t, e, sid, "vaccination please")
	turn(t, e, sid, "yes")

	reply := turn(t, e, sid, "21 Dec")
	if reply != "Got it. Please confirm date: 21 Dec (yes/no)" {
		t.Fatalf("date reply = %q", reply)
	}
	turn(t, e, sid, "yes")

	// The 24-hour token wins extraction even when an am/pm suffix follows.
	reply = turn(t, e, sid, "10:30 am")
	if reply != "Got it. Please confirm time: 10:30 (yes/no)" {
		t.Fatalf("time reply = %q", reply)
	}
	turn(t, e, sid, "yes")

	reply = turn(t, e, sid, "rafles place")
	if reply != "Did you mean Raffles Place? (yes/no)" {
		t.Fatalf("location reply = %q", reply)
	}
	turn(t, e, sid, "yes")

	reply = turn(t, e, sid, "Tan, 91234567")
	if reply != "Got it. Please confirm contact: Tan, 91234567 (yes/no)" {
		t.Fatalf("contact reply = %q", reply)
	}

	reply = turn(t, e, sid, "yes")
	if !strings.HasPrefix(reply, confirmPromptIntro) {
		t.Fatalf("expected final confirmation prompt, got %q", reply)
	}
	s := loadSession(t, store, sid)
	if !s.Draft.AwaitingConfirmation || s.Draft.PendingField != "" {
		t.Fatalf("gate state: awaiting=%v pending=%q", s.Draft.AwaitingConfirmation, s.Draft.PendingField)
	}

	reply = turn(t, e, sid, "confirm")
	if !strings.HasPrefix(reply, "Booking confirmed!") {
		t.Fatalf("finalize reply = %q", reply)
	}
	if !strings.Contains(reply, "**service:** Vaccination") {
		t.Errorf("finalize reply missing details: %q", reply)
	}

	s = loadSession(t, store, sid)
	if len(s.Bookings) != 1 {
		t.Fatalf("bookings = %d", len(s.Bookings))
	}
	b := s.Bookings[0]
	if b.Status != StatusBooked || b.ID == "" || b.Details[FieldContact] != "Tan, 91234567" {
		t.Errorf("booking = %+v", b)
	}
	// Draft resets after finalize.
	if len(s.Draft.Details) != 0 || s.Draft.Status != StatusDraft {
		t.Errorf("draft not reset: %+v", s.Draft)
	}
	if len(s.Draft.MissingFields) != len(RequiredFields) {
		t.Errorf("missing = %v", s.Draft.MissingFields)
	}

	reply = turn(t, e, sid, "what did i book")
	if !strings.Contains(reply, "**service:** Vaccination") || !strings.Contains(reply, "**status:** booked") {
		t.Errorf("status reply = %q", reply)
	}
}

func TestPendingDeclineReasksField(t *testing.T) {
	e, store := newTestEngine(t)
	sid := "decline"

	turn(t, e, sid, "physiotherapy")
	reply := turn(t, e, sid, "no")
	if !strings.HasPrefix(reply, "What service would you like to book? Options: ") {
		t.Fatalf("reply = %q", reply)
	}
	s := loadSession(t, store, sid)
	if s.Draft.PendingField != "" || s.LastQuestion != FieldService {
		t.Errorf("state: pending=%q lastq=%q", s.Draft.PendingField, s.LastQuestion)
	}
	if len(s.Draft.Details) != 0 {
		t.Errorf("decline must not commit: %v", s.Draft.Details)
	}
}

func TestValidatorFailureKeepsQuestion(t *testing.T) {
	e, store := newTestEngine(t)
	sid := "badtime"

	turn(t, e, sid, "vaccination")
	turn(t, e, sid, "yes")
	turn(t, e, sid, "21 Dec")
	turn(t, e, sid, "yes")

	reply := turn(t, e, sid, "whenever works")
	if reply != replyInvalidTime {
		t.Fatalf("reply = %q", reply)
	}
	s := loadSession(t, store, sid)
	if s.LastQuestion != FieldTime {
		t.Errorf("last question = %q, want time", s.LastQuestion)
	}
	if _, ok := s.Draft.Details[FieldTime]; ok {
		t.Error("invalid time must not be committed")
	}
}

func seedCompleteSession(t *testing.T, e *Engine, store SessionStore, sid string, awaiting bool) {
	t.Helper()
	s := NewSession(sid)
	s.Draft.Commit(FieldService, "General Consultation")
	s.Draft.Commit(FieldDate, "21 Dec")
	s.Draft.Commit(FieldTime, "10:30")
	s.Draft.Commit(FieldLocation, "Raffles Place")
	s.Draft.Commit(FieldContact, "Tan, 91234567")
	s.Draft.AwaitingConfirmation = awaiting
	if awaiting {
		s.Draft.ConfirmationSummary = renderDraft(s.Draft)
	}
	if err := store.Put(context.Background(), sid, s); err != nil {
		t.Fatalf("seed session: %v", err)
	}
}

func TestAdHocTimeEditAtFinalGate(t *testing.T) {
	e, store := newTestEngine(t)
	sid := "edit-time"
	seedCompleteSession(t, e, store, sid, true)

	reply := turn(t, e, sid, "12pm")
	if !strings.HasPrefix(reply, confirmPromptIntro) {
		t.Fatalf("reply = %q", reply)
	}
	s := loadSession(t, store, sid)
	if s.Draft.Details[FieldTime] != "12pm" {
		t.Errorf("time = %q", s.Draft.Details[FieldTime])
	}
	if s.Draft.AwaitingConfirmation {
		t.Error("awaiting_confirmation must reset after an ad-hoc edit")
	}

	// A bare confirm now finalizes even though the gate was reset.
	reply = turn(t, e, sid, "yes")
	if !strings.HasPrefix(reply, "Booking confirmed!") {
		t.Fatalf("reply = %q", reply)
	}
}

func TestAdHocTimeEditOutsideHours(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	catStore := catalog.NewStore(client)
	narrow := catalog.Default()
	narrow.Locations[0].Hours.MonFri = "09:00-11:00"
	if err := catStore.Set(context.Background(), narrow); err != nil {
		t.Fatalf("set catalog: %v", err)
	}

	store := NewMemorySessionStore()
	e := NewEngine(store, catalog.NewResolver(catStore), nil, nil, nil, nil)
	sid := "edit-outside"
	seedCompleteSession(t, e, store, sid, true)

	reply := turn(t, e, sid, "12pm")
	if reply != replyOutsideHours {
		t.Fatalf("reply = %q", reply)
	}
	s := loadSession(t, store, sid)
	if s.Draft.Details[FieldTime] != "10:30" {
		t.Errorf("time changed to %q", s.Draft.Details[FieldTime])
	}
	if !s.Draft.AwaitingConfirmation {
		t.Error("awaiting_confirmation must be untouched on a failed edit")
	}
}

func TestFinalGateDeclineReopensCollection(t *testing.T) {
	e, store := newTestEngine(t)
	sid := "gate-decline"
	seedCompleteSession(t, e, store, sid, true)

	reply := turn(t, e, sid, "no")
	if reply != replyAskEdit {
		t.Fatalf("reply = %q", reply)
	}
	s := loadSession(t, store, sid)
	if s.Draft.AwaitingConfirmation {
		t.Error("gate must close on decline")
	}
	if len(s.Draft.Details) != len(RequiredFields) {
		t.Error("decline must keep details")
	}
}

func TestFinalGateInfoQueryAnswersFromCatalog(t *testing.T) {
	e, store := newTestEngine(t)
	sid := "gate-info"
	seedCompleteSession(t, e, store, sid, true)

	reply := turn(t, e, sid, "what are your opening hours")
	if !strings.Contains(reply, "BookBot Clinic") || !strings.Contains(reply, "Mon-Fri: 09:00-18:00") {
		t.Fatalf("reply = %q", reply)
	}
	s := loadSession(t, store, sid)
	if !s.Draft.AwaitingConfirmation {
		t.Error("info query must leave the gate open")
	}
	if len(s.Draft.Details) != len(RequiredFields) {
		t.Errorf("details mutated: %v", s.Draft.Details)
	}

	reply = turn(t, e, sid, "confirm")
	if !strings.HasPrefix(reply, "Booking confirmed!") {
		t.Fatalf("reply = %q", reply)
	}
}

func TestFinalGateStatusQueryFallsThrough(t *testing.T) {
	e, store := newTestEngine(t)
	sid := "gate-status"
	seedCompleteSession(t, e, store, sid, true)

	if reply := turn(t, e, sid, "what did i book"); reply != replyNoBookings {
		t.Fatalf("reply = %q", reply)
	}
	s := loadSession(t, store, sid)
	if !s.Draft.AwaitingConfirmation {
		t.Error("status query must leave the gate open")
	}
}

func TestGateOpensWithNoDanglingQuestion(t *testing.T) {
	e, store := newTestEngine(t)
	sid := "gate-clean"

	msgs := []string{
		"vaccination", "yes", "21 Dec", "yes", "10:30", "yes",
		"raffles place", "yes", "Tan, 91234567",
	}
	for _, m := range msgs {
		turn(t, e, sid, m)
	}

	// Unrecognized input while the contact is pending re-asks the field
	// and leaves an open question behind.
	turn(t, e, sid, "hmm maybe later")
	s := loadSession(t, store, sid)
	if s.Draft.PendingField != FieldContact || s.LastQuestion != FieldContact {
		t.Fatalf("state: pending=%q lastq=%q", s.Draft.PendingField, s.LastQuestion)
	}

	reply := turn(t, e, sid, "yes")
	if !strings.HasPrefix(reply, confirmPromptIntro) {
		t.Fatalf("reply = %q", reply)
	}
	s = loadSession(t, store, sid)
	if !s.Draft.AwaitingConfirmation || s.LastQuestion != "" {
		t.Fatalf("gate state: awaiting=%v lastq=%q", s.Draft.AwaitingConfirmation, s.LastQuestion)
	}

	// The closing confirm finalizes instead of being read as an answer.
	reply = turn(t, e, sid, "confirm")
	if !strings.HasPrefix(reply, "Booking confirmed!") {
		t.Fatalf("reply = %q", reply)
	}
	s = loadSession(t, store, sid)
	if len(s.Bookings) != 1 {
		t.Fatalf("bookings = %d", len(s.Bookings))
	}
	if s.Bookings[0].Details[FieldContact] != "Tan, 91234567" {
		t.Errorf("contact = %q", s.Bookings[0].Details[FieldContact])
	}
}

func TestDirectConfirmWithoutGate(t *testing.T) {
	e, store := newTestEngine(t)
	sid := "direct"
	seedCompleteSession(t, e, store, sid, false)

	reply := turn(t, e, sid, "confirm")
	if !strings.HasPrefix(reply, "Booking confirmed!") {
		t.Fatalf("reply = %q", reply)
	}
	s := loadSession(t, store, sid)
	if len(s.Bookings) != 1 {
		t.Errorf("bookings = %d", len(s.Bookings))
	}
}

func TestConfirmWithMissingFieldsAsksNext(t *testing.T) {
	e, store := newTestEngine(t)
	sid := "confirm-early"

	reply := turn(t, e, sid, "ok sure")
	if !strings.HasPrefix(reply, "What service would you like to book? Options: ") {
		t.Fatalf("reply = %q", reply)
	}
	s := loadSession(t, store, sid)
	if s.LastQuestion != FieldService {
		t.Errorf("last question = %q", s.LastQuestion)
	}
}

func TestStatusQueryWithoutBookings(t *testing.T) {
	e, _ := newTestEngine(t)
	if reply := turn(t, e, "s1", "what did i book"); reply != replyNoBookings {
		t.Fatalf("reply = %q", reply)
	}
}

func TestInfoQueryLeavesDraftUntouched(t *testing.T) {
	e, store := newTestEngine(t)
	sid := "info"

	turn(t, e, sid, "vaccination")
	turn(t, e, sid, "yes") // asks date
	before := loadSession(t, store, sid)

	reply := turn(t, e, sid, "what are your opening hours")
	if !strings.Contains(reply, "BookBot Clinic") || !strings.Contains(reply, "Mon-Fri: 09:00-18:00") {
		t.Fatalf("reply = %q", reply)
	}

	after := loadSession(t, store, sid)
	if after.Draft.Details[FieldService] != before.Draft.Details[FieldService] {
		t.Error("draft mutated by info query")
	}
	if after.LastQuestion != before.LastQuestion {
		t.Errorf("last question changed: %q -> %q", before.LastQuestion, after.LastQuestion)
	}
	if after.Draft.PendingField != "" || after.Draft.AwaitingConfirmation {
		t.Error("info query must not open gates")
	}
}

func TestFreeChatUsesGenerator(t *testing.T) {
	gen := &stubGenerator{reply: "We're a small clinic in Singapore."}
	store := NewMemorySessionStore()
	e := NewEngine(store, nil, gen, nil, nil, nil)

	reply := turn(t, e, "s1", "tell me about yourselves")
	if reply != "We're a small clinic in Singapore." {
		t.Fatalf("reply = %q", reply)
	}
	if gen.calls != 1 {
		t.Errorf("generator calls = %d", gen.calls)
	}
	s := loadSession(t, store, "s1")
	if len(s.History) != 2 {
		t.Errorf("history = %d entries", len(s.History))
	}
}

func TestFreeChatGeneratorFailureFallsBack(t *testing.T) {
	gen := &stubGenerator{err: errors.New("timeout")}
	e := NewEngine(NewMemorySessionStore(), nil, gen, nil, nil, nil)

	if reply := turn(t, e, "s1", "tell me a story"); reply != freeChatFallback {
		t.Fatalf("reply = %q", reply)
	}
}

func TestExtractorStagesProposal(t *testing.T) {
	stub := &stubLLMClient{resp: LLMResponse{
		Text: `{"intent":"book","details":{"date":"21 Dec"}}`,
	}}
	store := NewMemorySessionStore()
	e := NewEngine(store, nil, nil, NewFieldExtractor(stub, "m"), nil, nil)
	sid := "extract"

	// Commit a service first so inference does not swallow the message.
	turn(t, e, sid, "vaccination")
	turn(t, e, sid, "yes")    // asks date
	turn(t, e, sid, "21 Dec") // staged via direct answer
	turn(t, e, sid, "yes")    // asks time

	s := loadSession(t, store, sid)
	s.LastQuestion = ""
	if err := store.Put(context.Background(), sid, s); err != nil {
		t.Fatalf("put: %v", err)
	}

	// Booking-related text with no open question goes through the
	// extractor, whose proposal lands as a pending confirmation.
	stub.resp.Text = `{"intent":"book","details":{"time":"10:30"}}`
	reply := turn(t, e, sid, "schedule it in the morning please")
	if reply != "Got it. Please confirm time: 10:30 (yes/no)" {
		t.Fatalf("reply = %q", reply)
	}
	s = loadSession(t, store, sid)
	if s.Draft.PendingField != FieldTime || s.Draft.PendingValue != "10:30" {
		t.Errorf("pending = %q/%q", s.Draft.PendingField, s.Draft.PendingValue)
	}
}

func TestGateExclusivityAcrossFlow(t *testing.T) {
	e, store := newTestEngine(t)
	sid := "invariants"

	msgs := []string{
		"dental cleaning", "yes", "21 Dec", "yes", "10:30", "yes",
		"orchard", "yes", "Tan 9123", "yes", "confirm",
	}
	for _, m := range msgs {
		turn(t, e, sid, m)
		s := loadSession(t, store, sid)
		if s.Draft.PendingField != "" && s.Draft.AwaitingConfirmation {
			t.Fatalf("after %q: pending and awaiting both set", m)
		}
		if s.Draft.AwaitingConfirmation && len(s.Draft.MissingFields) != 0 {
			t.Fatalf("after %q: awaiting with missing fields %v", m, s.Draft.MissingFields)
		}
		// Recomputing missing fields is idempotent.
		before := append([]Field(nil), s.Draft.MissingFields...)
		s.Draft.RecomputeMissing()
		s.Draft.RecomputeMissing()
		if len(before) != len(s.Draft.MissingFields) {
			t.Fatalf("after %q: recompute changed missing fields", m)
		}
	}
}

func TestConcurrentTurnsDifferentSessions(t *testing.T) {
	e, store := newTestEngine(t)
	done := make(chan string, 8)
	for i := 0; i < 8; i++ {
		sid := string(rune('a' + i))
		go func(sid string) {
			e.Turn(context.Background(), sid, "vaccination please")
			e.Turn(context.Background(), sid, "yes")
			done <- sid
		}(sid)
	}
	for i := 0; i < 8; i++ {
		sid := <-done
		s := loadSession(t, store, sid)
		if s.Draft.Details[FieldService] != "Vaccination" {
			t.Errorf("session %s: service = %q", sid, s.Draft.Details[FieldService])
		}
	}
}
