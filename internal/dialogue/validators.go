package dialogue

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/bookbotclinic/bookbot/internal/catalog"
)

// User-facing re-prompts for validation failures.
const (
	replyInvalidService  = "Invalid service. Please re-enter a valid service from the list."
	replyInvalidLocation = "Invalid location. Please re-enter a valid location from the list."
	replyInvalidTime     = "Invalid time format. Please re-enter (e.g., 10:30 AM)."
	replyOutsideHours    = "That time is outside the location's operating hours. Please enter a time within hours."
	replyInvalidDate     = "Invalid date format. Please re-enter (e.g., 21 Dec or 2026-02-10)."
	replyInvalidContact  = "Invalid contact. Please re-enter your name and phone/email."
)

var (
	time24RE   = regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)\b`)
	time12RE   = regexp.MustCompile(`\b(\d{1,2})(?::([0-5]\d))?\s*(am|pm)\b`)
	dateISORE  = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	dateTextRE = regexp.MustCompile(`\b\d{1,2}\s*[a-z]{3,9}\b`)
)

// Validation is the outcome of running a field validator: either a normalized
// value ready to stage, or a fuzzy suggestion that needs the user's yes/no
// before it can be staged at all.
type Validation struct {
	Value      string
	Suggestion string
}

// ValidateField runs the validator for field f over the raw utterance. The
// catalog supplies the reference names and hour windows; location is the
// already-committed location, if any, used for the time window check.
func ValidateField(f Field, raw string, cat *catalog.Catalog, location string) (Validation, *ValidationError) {
	switch f {
	case FieldService:
		return validateService(raw, cat)
	case FieldLocation:
		return validateLocation(raw, cat)
	case FieldTime:
		return validateTime(raw, cat, location)
	case FieldDate:
		return validateDate(raw)
	case FieldContact:
		return validateContact(raw)
	}
	// Unknown fields pass through verbatim. Externally-suggested extra
	// attributes are accepted without validation.
	return Validation{Value: strings.TrimSpace(raw)}, nil
}

func validateService(raw string, cat *catalog.Catalog) (Validation, *ValidationError) {
	if match := cat.FindService(raw); match != "" {
		return Validation{Value: match}, nil
	}
	if suggestion, _, ok := bestMatch(raw, cat.ServiceNames(), fuzzyThreshold); ok {
		return Validation{Suggestion: suggestion}, nil
	}
	return Validation{}, newValidationError(FieldService, ErrInvalidService, replyInvalidService)
}

func validateLocation(raw string, cat *catalog.Catalog) (Validation, *ValidationError) {
	if match := cat.FindLocation(raw); match != "" {
		return Validation{Value: match}, nil
	}
	if suggestion, _, ok := bestMatch(raw, cat.LocationNames(), fuzzyThreshold); ok {
		return Validation{Suggestion: suggestion}, nil
	}
	return Validation{}, newValidationError(FieldLocation, ErrInvalidLocation, replyInvalidLocation)
}

func validateTime(raw string, cat *catalog.Catalog, location string) (Validation, *ValidationError) {
	token := extractTimeToken(raw)
	if token == "" {
		return Validation{}, newValidationError(FieldTime, ErrInvalidTimeFormat, replyInvalidTime)
	}
	if location != "" && !timeWithinHours(token, location, cat) {
		return Validation{}, newValidationError(FieldTime, ErrTimeOutsideHours, replyOutsideHours)
	}
	return Validation{Value: token}, nil
}

func validateDate(raw string) (Validation, *ValidationError) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if dateISORE.MatchString(v) || dateTextRE.MatchString(v) {
		return Validation{Value: strings.TrimSpace(raw)}, nil
	}
	return Validation{}, newValidationError(FieldDate, ErrInvalidDateFormat, replyInvalidDate)
}

func validateContact(raw string) (Validation, *ValidationError) {
	v := strings.TrimSpace(raw)
	if len(v) >= 3 {
		return Validation{Value: v}, nil
	}
	return Validation{}, newValidationError(FieldContact, ErrInvalidContact, replyInvalidContact)
}

// extractTimeToken pulls the first recognizable time token out of free text.
// 24-hour H:MM wins over am/pm forms. Returns "" when none is present.
func extractTimeToken(raw string) string {
	v := strings.ToLower(strings.TrimSpace(raw))
	if m := time24RE.FindString(v); m != "" {
		return m
	}
	if m := time12RE.FindString(v); m != "" {
		return m
	}
	return ""
}

// parseTimeToMinutes converts a time token to minutes since midnight.
// Returns -1 when the token does not parse.
func parseTimeToMinutes(raw string) int {
	v := strings.ToLower(strings.TrimSpace(raw))
	if m := time24RE.FindStringSubmatch(v); m != nil {
		h, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		return h*60 + min
	}
	if m := time12RE.FindStringSubmatch(v); m != nil {
		h, _ := strconv.Atoi(m[1])
		h %= 12
		min := 0
		if m[2] != "" {
			min, _ = strconv.Atoi(m[2])
		}
		if m[3] == "pm" {
			h += 12
		}
		return h*60 + min
	}
	return -1
}

// timeWithinHours checks a time token against the location's weekday window,
// bounds inclusive. The weekday window is used for every date. An unknown
// location or an unparseable window imposes no constraint.
func timeWithinHours(token, location string, cat *catalog.Catalog) bool {
	minutes := parseTimeToMinutes(token)
	if minutes < 0 {
		return false
	}
	open, close, ok := cat.WeekdayWindow(location)
	if !ok {
		return true
	}
	return open <= minutes && minutes <= close
}
