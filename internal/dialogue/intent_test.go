package dialogue

import "testing"

func TestIntentPredicates(t *testing.T) {
	cases := []struct {
		text                                    string
		info, booking, confirm, decline, status bool
	}{
		{"what are your opening hours", true, false, false, false, false},
		{"I want to book an appointment", false, true, false, false, false},
		{"yes please", false, false, true, false, false},
		{"ok confirm", false, false, true, false, false},
		{"no, that's wrong", false, false, false, true, false},
		{"change the time", false, true, false, true, false},
		{"what did i book", false, true, false, false, true},
		{"my booking details", false, true, false, false, true},
		{"tell me a joke", false, false, false, false, false},
	}
	for _, c := range cases {
		if got := isInfoRequest(c.text); got != c.info {
			t.Errorf("isInfoRequest(%q) = %v", c.text, got)
		}
		if got := isBookingRelated(c.text); got != c.booking {
			t.Errorf("isBookingRelated(%q) = %v", c.text, got)
		}
		if got := isConfirmIntent(c.text); got != c.confirm {
			t.Errorf("isConfirmIntent(%q) = %v", c.text, got)
		}
		if got := isDeclineIntent(c.text); got != c.decline {
			t.Errorf("isDeclineIntent(%q) = %v", c.text, got)
		}
		if got := isStatusQuery(c.text); got != c.status {
			t.Errorf("isStatusQuery(%q) = %v", c.text, got)
		}
	}
}

func TestIntentsOverlap(t *testing.T) {
	// A single message may satisfy several predicates at once.
	msg := "yes, book my booking details"
	if !isConfirmIntent(msg) || !isBookingRelated(msg) || !isStatusQuery(msg) {
		t.Error("expected overlapping predicates to all match")
	}
}
