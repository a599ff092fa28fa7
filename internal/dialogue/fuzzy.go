package dialogue

import "strings"

// fuzzyThreshold is the minimum similarity for a catalog suggestion.
const fuzzyThreshold = 0.78

// ratio computes Ratcliff/Obershelp similarity between two strings in [0,1].
// It is symmetric, returns 1 for identical inputs, and is deterministic for a
// given pair.
func ratio(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	matched := matchingBlocks([]rune(a), []rune(b))
	return 2 * float64(matched) / float64(len([]rune(a))+len([]rune(b)))
}

// matchingBlocks returns the total length of matched characters found by
// recursively splitting around the longest common substring.
func matchingBlocks(a, b []rune) int {
	ai, bi, size := longestCommonSubstring(a, b)
	if size == 0 {
		return 0
	}
	total := size
	total += matchingBlocks(a[:ai], b[:bi])
	total += matchingBlocks(a[ai+size:], b[bi+size:])
	return total
}

func longestCommonSubstring(a, b []rune) (ai, bi, size int) {
	// prev[j] holds the match run length ending at a[i-1], b[j-1].
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > size {
					size = cur[j]
					ai = i - size
					bi = j - size
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	return ai, bi, size
}

// bestMatch returns the option most similar to value, first option winning
// ties. ok is false when no option reaches the threshold.
func bestMatch(value string, options []string, threshold float64) (match string, score float64, ok bool) {
	best := -1.0
	for _, opt := range options {
		if s := ratio(value, opt); s > best {
			best = s
			match = opt
		}
	}
	if best < threshold {
		return "", best, false
	}
	return match, best, true
}
