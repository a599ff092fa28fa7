package dialogue

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bookbotclinic/bookbot/internal/catalog"
	"github.com/bookbotclinic/bookbot/pkg/logging"
)

// ErrEmptyMessage rejects a turn with no text in it.
var ErrEmptyMessage = errors.New("dialogue: message is required")

const (
	freeChatPrompt = "You are a helpful assistant. Answer the user's question. " +
		"If they ask about the clinic or booking data, use the provided JSON.\n" +
		"Be concise and clear."
	freeChatFallback = "Sorry, I do not have that."

	replyNoBookings    = "No bookings yet. Want to make one?"
	replyAskService    = "What service would you like to book?"
	replyAskEdit       = "Okay, what would you like to change?"
	confirmPromptIntro = "Please confirm your booking details (yes/no):\n"
)

// BookingArchiver receives finalized bookings for out-of-band record keeping.
// Archive failures never fail the turn.
type BookingArchiver interface {
	Archive(ctx context.Context, sessionID string, b Booking) error
}

// TurnResult is what one processed utterance yields.
type TurnResult struct {
	Reply     string `json:"reply"`
	SessionID string `json:"session_id"`
}

// Engine owns the per-session draft state machine. One Engine serves all
// sessions; turns for the same session id are serialized, turns for different
// ids run in parallel.
type Engine struct {
	store     SessionStore
	catalogs  *catalog.Resolver
	generator TextGenerator
	extractor *FieldExtractor
	archiver  BookingArchiver
	logger    *logging.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEngine wires an engine. generator, extractor and archiver may be nil;
// catalogs falling back to the built-in catalog when nil.
func NewEngine(store SessionStore, catalogs *catalog.Resolver, generator TextGenerator, extractor *FieldExtractor, archiver BookingArchiver, logger *logging.Logger) *Engine {
	if store == nil {
		panic("dialogue: session store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{
		store:     store,
		catalogs:  catalogs,
		generator: generator,
		extractor: extractor,
		archiver:  archiver,
		logger:    logger,
		locks:     map[string]*sync.Mutex{},
	}
}

// sessionLock returns the mutex serializing turns for one session id.
func (e *Engine) sessionLock(id string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[id]
	if !ok {
		l = &sync.Mutex{}
		e.locks[id] = l
	}
	return l
}

func (e *Engine) loadSession(ctx context.Context, id string) (*Session, error) {
	s, err := e.store.Get(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		return NewSession(id), nil
	}
	if err != nil {
		return nil, err
	}
	s.ID = id
	s.Normalize()
	return s, nil
}

func (e *Engine) saveSession(ctx context.Context, s *Session) error {
	s.UpdatedAt = time.Now().UTC()
	return e.store.Put(ctx, s.ID, s)
}

// Turn processes one user utterance for a session and returns the reply. An
// empty session id starts a fresh session under a generated id.
func (e *Engine) Turn(ctx context.Context, sessionID, message string) (TurnResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return TurnResult{}, ErrEmptyMessage
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := e.loadSession(ctx, sessionID)
	if err != nil {
		return TurnResult{}, fmt.Errorf("dialogue: load session: %w", err)
	}

	cat := e.resolveCatalog(ctx)
	reply := e.step(ctx, session, cat, message)

	session.History = append(session.History,
		HistoryEntry{Role: ChatRoleUser, Content: message, Timestamp: time.Now().UTC()},
		HistoryEntry{Role: ChatRoleAssistant, Content: reply, Timestamp: time.Now().UTC()},
	)

	if err := e.saveSession(ctx, session); err != nil {
		return TurnResult{}, fmt.Errorf("dialogue: save session: %w", err)
	}
	return TurnResult{Reply: reply, SessionID: sessionID}, nil
}

func (e *Engine) resolveCatalog(ctx context.Context) *catalog.Catalog {
	if e.catalogs == nil {
		return catalog.Default()
	}
	return e.catalogs.Resolve(ctx)
}

// step runs the priority-ordered turn rules and mutates the session in place.
func (e *Engine) step(ctx context.Context, session *Session, cat *catalog.Catalog, msg string) string {
	draft := session.Draft

	// Service stated inside free text, before anything else. The service
	// may arrive embedded in an otherwise free-form message.
	if draft.Details[FieldService] == "" {
		if inferred := inferService(msg, cat); inferred != "" {
			draft.SetPending(FieldService, inferred)
			session.LastQuestion = ""
			return fmt.Sprintf("Did you want to book **%s**? (yes/no)", inferred)
		}
	}

	// A staged value waiting on yes/no.
	if draft.PendingField != "" {
		if isConfirmIntent(msg) {
			field := draft.PendingField
			draft.Commit(field, draft.PendingValue)
			if next := draft.NextMissing(); next != "" {
				session.LastQuestion = next
				return questionFor(next, cat)
			}
			draft.AwaitingConfirmation = true
			draft.ConfirmationSummary = renderDraft(draft)
			session.LastQuestion = ""
			return confirmPromptIntro + draft.ConfirmationSummary
		}
		if isDeclineIntent(msg) {
			field := draft.PendingField
			draft.ClearPending()
			session.LastQuestion = field
			return questionFor(field, cat)
		}
		// Anything else falls through to the rules below.
	}

	// Direct answer to the question we just asked.
	if session.LastQuestion != "" && !isStatusQuery(msg) && !isInfoRequest(msg) {
		field := session.LastQuestion
		v, verr := ValidateField(field, msg, cat, draft.Details[FieldLocation])
		if verr != nil {
			return verr.Reply
		}
		if v.Suggestion != "" {
			draft.SetPending(field, v.Suggestion)
			session.LastQuestion = ""
			return fmt.Sprintf("Did you mean %s? (yes/no)", v.Suggestion)
		}
		draft.SetPending(field, v.Value)
		session.LastQuestion = ""
		return fmt.Sprintf("Got it. Please confirm %s: %s (yes/no)", field, v.Value)
	}

	// The final gate is open. Status and info questions pass through to
	// their own rules without touching the draft.
	if draft.AwaitingConfirmation && !isStatusQuery(msg) && !isInfoRequest(msg) {
		if extractTimeToken(msg) != "" {
			v, verr := validateTime(msg, cat, draft.Details[FieldLocation])
			if verr != nil {
				return verr.Reply
			}
			draft.Commit(FieldTime, v.Value)
			draft.AwaitingConfirmation = false
			draft.ConfirmationSummary = renderDraft(draft)
			return confirmPromptIntro + draft.ConfirmationSummary
		}
		if isConfirmIntent(msg) {
			return e.finalize(ctx, session)
		}
		if isDeclineIntent(msg) {
			draft.AwaitingConfirmation = false
			return replyAskEdit
		}
		// Unrecognized input at the gate: show the summary again.
		return confirmPromptIntro + renderDraft(draft)
	}

	// Confirm with nothing staged: finalize a complete draft on the spot.
	if isConfirmIntent(msg) {
		if draft.Complete() {
			return e.finalize(ctx, session)
		}
		next := draft.NextMissing()
		session.LastQuestion = next
		return questionFor(next, cat)
	}

	if isStatusQuery(msg) {
		if len(session.Bookings) == 0 {
			return replyNoBookings
		}
		latest := session.Bookings[len(session.Bookings)-1]
		return renderBooking(latest)
	}

	if isInfoRequest(msg) {
		return cat.Summary()
	}

	// Off-topic chat goes to the generator, grounded on session state.
	if !isBookingRelated(msg) && session.LastQuestion == "" && draft.PendingField == "" {
		return e.freeChat(ctx, session, cat, msg)
	}

	// Booking-related but nothing captured yet: let the extractor take a
	// pass at the raw text before asking field by field.
	if !draft.Complete() && e.extractor != nil && isBookingRelated(msg) {
		if reply, ok := e.extractorPass(ctx, session, cat, msg); ok {
			return reply
		}
	}

	// Auto-advance.
	if draft.Complete() {
		draft.AwaitingConfirmation = true
		draft.ConfirmationSummary = renderDraft(draft)
		session.LastQuestion = ""
		return confirmPromptIntro + draft.ConfirmationSummary
	}
	if next := draft.NextMissing(); next != "" {
		session.LastQuestion = next
		return questionFor(next, cat)
	}
	return replyAskService
}

// inferService finds a catalog service named inside the utterance, falling
// back to a fuzzy match over the whole text.
func inferService(msg string, cat *catalog.Catalog) string {
	lower := strings.ToLower(msg)
	for _, name := range cat.ServiceNames() {
		if strings.Contains(lower, strings.ToLower(name)) {
			return name
		}
	}
	if match, _, ok := bestMatch(msg, cat.ServiceNames(), fuzzyThreshold); ok {
		return match
	}
	return ""
}

// extractorPass asks the advisory extractor for field proposals and stages
// the earliest missing one as a pending confirmation. Returns ok=false when
// nothing useful came back.
func (e *Engine) extractorPass(ctx context.Context, session *Session, cat *catalog.Catalog, msg string) (string, bool) {
	extraction, err := e.extractor.Extract(ctx, msg, cat, session.Draft)
	if err != nil {
		e.logger.Warn("field extraction failed", "error", err.Error())
		return "", false
	}
	for _, f := range session.Draft.MissingFields {
		if v, ok := extraction.Details[f]; ok {
			session.Draft.SetPending(f, v)
			session.LastQuestion = ""
			return fmt.Sprintf("Got it. Please confirm %s: %s (yes/no)", f, v), true
		}
		if s, ok := extraction.Suggestions[f]; ok {
			session.Draft.SetPending(f, s)
			session.LastQuestion = ""
			return fmt.Sprintf("Did you mean %s? (yes/no)", s), true
		}
	}
	return "", false
}

// finalize turns the draft into a booking and resets the session's draft.
func (e *Engine) finalize(ctx context.Context, session *Session) string {
	draft := session.Draft
	summary := draft.ConfirmationSummary
	if summary == "" {
		summary = renderDraft(draft)
	}

	now := time.Now().UTC()
	details := make(map[Field]string, len(draft.Details))
	for k, v := range draft.Details {
		details[k] = v
	}
	booking := Booking{
		ID:                  uuid.NewString(),
		BookingType:         draft.BookingType,
		Details:             details,
		Status:              StatusBooked,
		ConfirmationSummary: summary,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	session.Bookings = append(session.Bookings, booking)
	session.Draft = NewDraft()
	session.LastQuestion = ""

	if e.archiver != nil {
		if err := e.archiver.Archive(ctx, session.ID, booking); err != nil {
			e.logger.Warn("booking archive failed", "booking_id", booking.ID, "error", err.Error())
		}
	}
	e.logger.Info("booking finalized", "session_id", session.ID, "booking_id", booking.ID)

	return "Booking confirmed!\n" + renderBooking(booking)
}

// freeChat delegates to the text generator with session grounding, falling
// back to a literal reply on any generator failure.
func (e *Engine) freeChat(ctx context.Context, session *Session, cat *catalog.Catalog, msg string) string {
	if e.generator == nil {
		return freeChatFallback
	}
	reply, err := e.generator.Generate(ctx, freeChatPrompt, map[string]any{
		"user_message":    msg,
		"clinic_kb":       cat,
		"current_booking": session.Draft,
		"booking_count":   len(session.Bookings),
	})
	if err != nil {
		e.logger.Warn("free chat generation failed", "session_id", session.ID, "error", err.Error())
		return freeChatFallback
	}
	return reply
}

func questionFor(field Field, cat *catalog.Catalog) string {
	switch field {
	case FieldService:
		if names := cat.ServiceNames(); len(names) > 0 {
			return "What service would you like to book? Options: " + strings.Join(names, ", ")
		}
		return replyAskService
	case FieldLocation:
		if names := cat.LocationNames(); len(names) > 0 {
			return "Which location do you prefer? Options: " + strings.Join(names, ", ")
		}
		return "Which location do you prefer?"
	case FieldDate:
		return "What date would you like? (e.g., 21 Dec)"
	case FieldTime:
		return "What time works for you? (e.g., 10:30 AM)"
	case FieldContact:
		return "What contact should we use? (name and phone/email)"
	}
	return fmt.Sprintf("Please provide %s.", field)
}

// detailLines renders details with the required fields first, extras sorted.
func detailLines(details map[Field]string) []string {
	var lines []string
	seen := map[Field]bool{}
	for _, f := range RequiredFields {
		if v := details[f]; v != "" {
			lines = append(lines, fmt.Sprintf("**%s:** %s", f, v))
		}
		seen[f] = true
	}
	var extras []string
	for f, v := range details {
		if !seen[f] && v != "" {
			extras = append(extras, fmt.Sprintf("**%s:** %s", f, v))
		}
	}
	sort.Strings(extras)
	return append(lines, extras...)
}

func renderDraft(d *Draft) string {
	lines := []string{fmt.Sprintf("**Booking type:** %s", d.BookingType)}
	lines = append(lines, detailLines(d.Details)...)
	if d.Status != "" {
		lines = append(lines, fmt.Sprintf("**status:** %s", d.Status))
	}
	return strings.Join(lines, "\n")
}

func renderBooking(b Booking) string {
	lines := []string{fmt.Sprintf("**Booking type:** %s", b.BookingType)}
	lines = append(lines, detailLines(b.Details)...)
	if b.Status != "" {
		lines = append(lines, fmt.Sprintf("**status:** %s", b.Status))
	}
	return strings.Join(lines, "\n")
}
