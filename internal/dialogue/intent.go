package dialogue

import "regexp"

// Intent predicates are independent, a message may satisfy several at once.
// The turn loop's rule ordering, not the predicates, resolves the overlap.
var (
	infoRE    = regexp.MustCompile(`(?i)\b(services|service list|opening hours|hours|locations|price|pricing|clinic info|clinic information)\b`)
	bookingRE = regexp.MustCompile(`(?i)\b(book|booking|appointment|schedule|reschedule|cancel|change|edit)\b`)
	confirmRE = regexp.MustCompile(`(?i)\b(confirm|confirmed|yes|okay|ok|sure)\b`)
	declineRE = regexp.MustCompile(`(?i)\b(no|change|edit|wrong|incorrect)\b`)
	statusRE  = regexp.MustCompile(`(?i)\b(my booking|booking details|booking status|what did i book)\b`)
)

func isInfoRequest(text string) bool { return infoRE.MatchString(text) }

func isBookingRelated(text string) bool { return bookingRE.MatchString(text) }

func isConfirmIntent(text string) bool { return confirmRE.MatchString(text) }

func isDeclineIntent(text string) bool { return declineRE.MatchString(text) }

func isStatusQuery(text string) bool { return statusRE.MatchString(text) }
