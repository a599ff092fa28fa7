// Package main runs E2E tests of the chat booking flow against a live server.
//
// Scenarios cover:
//   - Happy-path multi-turn booking through final confirmation
//   - Implicit service inference from a first utterance
//   - Fuzzy location disambiguation ("did you mean")
//   - Ad-hoc time change at the confirmation gate
//   - Info and status queries mid-flow
//
// Usage:
//
//	API_BASE_URL=http://localhost:8080 go run scripts/e2e/run_e2e.go              # runs all
//	API_BASE_URL=http://localhost:8080 go run scripts/e2e/run_e2e.go happy-path   # runs one
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

var apiBase string

type step struct {
	send   string
	expect string // substring the reply must contain
}

type scenario struct {
	name  string
	steps []step
}

var scenarios = []scenario{
	{
		name: "happy-path",
		steps: []step{
			{"I want to book a dental cleaning", "Did you want to book **Dental Cleaning**?"},
			{"yes", "What date would you like?"},
			{"2026-03-05", "confirm date"},
			{"yes", "What time works for you?"},
			{"10:30", "confirm time"},
			{"yes", "Which location do you prefer?"},
			{"Raffles Place", "confirm location"},
			{"yes", "What contact should we use?"},
			{"alice@example.com", "confirm contact"},
			{"yes", "Please confirm your booking details"},
			{"yes", "Booking confirmed!"},
		},
	},
	{
		name: "fuzzy-location",
		steps: []step{
			{"book a vaccination", "Did you want to book **Vaccination**?"},
			{"yes", "What date would you like?"},
			{"21 Dec", "confirm date"},
			{"yes", "What time works for you?"},
			{"11:00", "confirm time"},
			{"yes", "Which location do you prefer?"},
			{"rafles place", "Did you mean Raffles Place?"},
			{"yes", "What contact should we use?"},
		},
	},
	{
		name: "time-change-at-gate",
		steps: []step{
			{"book a general consultation", "Did you want to book **General Consultation**?"},
			{"yes", "What date would you like?"},
			{"2026-03-06", "confirm date"},
			{"yes", "What time works for you?"},
			{"09:30", "confirm time"},
			{"yes", "Which location do you prefer?"},
			{"Tampines", "confirm location"},
			{"yes", "What contact should we use?"},
			{"+65 8123 4567", "confirm contact"},
			{"yes", "Please confirm your booking details"},
			{"actually make it 14:00", "Please confirm your booking details"},
			{"yes", "Booking confirmed!"},
		},
	},
	{
		name: "info-and-status",
		steps: []step{
			{"what are your opening hours?", "Locations and Hours"},
			{"what did I book", "No bookings yet"},
		},
	},
}

func main() {
	apiBase = strings.TrimRight(os.Getenv("API_BASE_URL"), "/")
	if apiBase == "" {
		apiBase = "http://localhost:8080"
	}

	only := ""
	if len(os.Args) > 1 {
		only = os.Args[1]
	}

	failed := 0
	for _, sc := range scenarios {
		if only != "" && sc.name != only {
			continue
		}
		if err := runScenario(sc); err != nil {
			fmt.Printf("FAIL %s: %v\n", sc.name, err)
			failed++
		} else {
			fmt.Printf("PASS %s\n", sc.name)
		}
	}

	if failed > 0 {
		os.Exit(1)
	}
}

func runScenario(sc scenario) error {
	sessionID := fmt.Sprintf("e2e-%s-%d", sc.name, time.Now().UnixNano())
	for i, st := range sc.steps {
		reply, err := sendMessage(sessionID, st.send)
		if err != nil {
			return fmt.Errorf("step %d (%q): %w", i+1, st.send, err)
		}
		if !strings.Contains(reply, st.expect) {
			return fmt.Errorf("step %d (%q): expected reply to contain %q, got %q",
				i+1, st.send, st.expect, reply)
		}
	}
	return nil
}

func sendMessage(sessionID, text string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"message":    text,
		"session_id": sessionID,
	})
	if err != nil {
		return "", err
	}

	resp, err := http.Post(apiBase+"/chat", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}

	var out struct {
		Reply string `json:"reply"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	return out.Reply, nil
}
