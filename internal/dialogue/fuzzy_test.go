package dialogue

import "testing"

func TestRatioIdentity(t *testing.T) {
	for _, s := range []string{"", "a", "dental cleaning", "Physiotherapy"} {
		if got := ratio(s, s); got != 1 {
			t.Errorf("ratio(%q,%q) = %v, want 1", s, s, got)
		}
	}
}

func TestRatioSymmetric(t *testing.T) {
	pairs := [][2]string{
		{"dental", "dentl"},
		{"orchard", "orchird"},
		{"vaccination", "vacination"},
		{"abc", "xyz"},
	}
	for _, p := range pairs {
		if ratio(p[0], p[1]) != ratio(p[1], p[0]) {
			t.Errorf("ratio not symmetric for %q/%q", p[0], p[1])
		}
	}
}

func TestRatioCaseInsensitive(t *testing.T) {
	if ratio("Dental Cleaning", "dental cleaning") != 1 {
		t.Error("expected case-insensitive identity")
	}
}

func TestRatioDisjoint(t *testing.T) {
	if got := ratio("abc", "xyz"); got != 0 {
		t.Errorf("ratio disjoint = %v, want 0", got)
	}
}

func TestBestMatchTypo(t *testing.T) {
	services := []string{"General Consultation", "Dental Cleaning", "Physiotherapy", "Vaccination"}
	match, score, ok := bestMatch("dentl cleaning", services, fuzzyThreshold)
	if !ok {
		t.Fatalf("expected a match, best score %v", score)
	}
	if match != "Dental Cleaning" {
		t.Errorf("match = %q, want Dental Cleaning", match)
	}
}

func TestBestMatchBelowThreshold(t *testing.T) {
	services := []string{"General Consultation", "Dental Cleaning"}
	if _, _, ok := bestMatch("zzzzzz", services, fuzzyThreshold); ok {
		t.Error("expected no match for gibberish")
	}
}

func TestBestMatchFirstOptionWinsTies(t *testing.T) {
	match, _, ok := bestMatch("ab", []string{"abx", "aby"}, 0.1)
	if !ok || match != "abx" {
		t.Errorf("match = %q ok=%v, want abx with first-wins tie", match, ok)
	}
}
