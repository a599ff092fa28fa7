package catalog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Catalog is the immutable clinic reference data a session is validated
// against: bookable services, locations with operating hours, and policies.
type Catalog struct {
	ClinicName string     `json:"clinic_name"`
	Services   []Service  `json:"services"`
	Locations  []Location `json:"locations"`
	TimePolicy string     `json:"time_policy"`
	DatePolicy string     `json:"date_policy"`
}

// Service is a single bookable service.
type Service struct {
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	PriceSGD        int    `json:"price_sgd"`
}

// Location is a clinic site with per-day operating hours.
type Location struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Hours   Hours  `json:"hours"`
}

// Hours holds operating windows per day group, as "HH:MM-HH:MM" or "closed".
type Hours struct {
	MonFri string `json:"mon_fri"`
	Sat    string `json:"sat"`
	Sun    string `json:"sun"`
}

var windowRE = regexp.MustCompile(`(\d{1,2}):(\d{2})\s*-\s*(\d{1,2}):(\d{2})`)

// ServiceNames returns the catalog's service names in declaration order.
func (c *Catalog) ServiceNames() []string {
	names := make([]string, 0, len(c.Services))
	for _, s := range c.Services {
		if s.Name != "" {
			names = append(names, s.Name)
		}
	}
	return names
}

// LocationNames returns the catalog's location names in declaration order.
func (c *Catalog) LocationNames() []string {
	names := make([]string, 0, len(c.Locations))
	for _, l := range c.Locations {
		if l.Name != "" {
			names = append(names, l.Name)
		}
	}
	return names
}

// FindService resolves a name to its canonical catalog spelling by exact
// case-insensitive match. Returns "" when not found.
func (c *Catalog) FindService(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, s := range c.Services {
		if strings.ToLower(strings.TrimSpace(s.Name)) == name {
			return strings.TrimSpace(s.Name)
		}
	}
	return ""
}

// FindLocation resolves a name to its canonical catalog spelling by exact
// case-insensitive match. Returns "" when not found.
func (c *Catalog) FindLocation(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, l := range c.Locations {
		if strings.ToLower(strings.TrimSpace(l.Name)) == name {
			return strings.TrimSpace(l.Name)
		}
	}
	return ""
}

// WeekdayWindow parses a location's Mon-Fri window into open/close minutes
// since midnight. ok is false when the location is unknown or the window has
// no parseable range (treated by callers as "no constraint").
func (c *Catalog) WeekdayWindow(locationName string) (open, close int, ok bool) {
	name := strings.ToLower(strings.TrimSpace(locationName))
	for _, l := range c.Locations {
		if strings.ToLower(strings.TrimSpace(l.Name)) != name {
			continue
		}
		m := windowRE.FindStringSubmatch(l.Hours.MonFri)
		if m == nil {
			return 0, 0, false
		}
		oh, _ := strconv.Atoi(m[1])
		om, _ := strconv.Atoi(m[2])
		ch, _ := strconv.Atoi(m[3])
		cm, _ := strconv.Atoi(m[4])
		return oh*60 + om, ch*60 + cm, true
	}
	return 0, 0, false
}

// Summary renders the catalog as a plain-text reply for info requests.
func (c *Catalog) Summary() string {
	var lines []string
	if c.ClinicName != "" {
		lines = append(lines, fmt.Sprintf("Clinic: %s", c.ClinicName))
	}
	if len(c.Services) > 0 {
		lines = append(lines, "Services:")
		for _, s := range c.Services {
			bits := []string{s.Name}
			if s.DurationMinutes > 0 {
				bits = append(bits, fmt.Sprintf("%d min", s.DurationMinutes))
			}
			if s.PriceSGD > 0 {
				bits = append(bits, fmt.Sprintf("SGD %d", s.PriceSGD))
			}
			lines = append(lines, " - "+strings.Join(bits, " | "))
		}
	}
	if len(c.Locations) > 0 {
		lines = append(lines, "Locations and Hours:")
		for _, l := range c.Locations {
			lines = append(lines, fmt.Sprintf(" - %s: %s", l.Name, l.Address))
			lines = append(lines, "   Mon-Fri: "+orNA(l.Hours.MonFri))
			lines = append(lines, "   Sat: "+orNA(l.Hours.Sat))
			lines = append(lines, "   Sun: "+orNA(l.Hours.Sun))
		}
	}
	if c.TimePolicy != "" {
		lines = append(lines, "Time policy: "+c.TimePolicy)
	}
	if c.DatePolicy != "" {
		lines = append(lines, "Date policy: "+c.DatePolicy)
	}
	if len(lines) == 0 {
		return "No clinic info available."
	}
	return strings.Join(lines, "\n")
}

func orNA(window string) string {
	if strings.TrimSpace(window) == "" {
		return "n/a"
	}
	return window
}
