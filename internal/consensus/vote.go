// Package consensus aggregates redundant model generations into one answer
// using first-to-ahead-by-k voting.
package consensus

import "strings"

// Normalize returns the grouping key for a candidate: trimmed, lower-cased
// and with one trailing period removed.
func Normalize(candidate string) string {
	s := strings.ToLower(strings.TrimSpace(candidate))
	return strings.TrimSuffix(s, ".")
}

// Tally counts candidates by normalized group and declares a winner as soon
// as one group leads every other group by at least k. Once decided it
// ignores further candidates. A Tally is not safe for concurrent use.
type Tally struct {
	k       int
	counts  map[string]int
	reps    map[string]string
	order   []string
	total   int
	winner  string
	decided bool
}

// NewTally creates a tally with margin k. k < 1 is treated as 1.
func NewTally(k int) *Tally {
	if k < 1 {
		k = 1
	}
	return &Tally{
		k:      k,
		counts: make(map[string]int),
		reps:   make(map[string]string),
	}
}

// Add admits one candidate and reports the winner if the margin is reached.
// After a decision Add is a no-op returning the decided winner.
func (t *Tally) Add(candidate string) (string, bool) {
	if t.decided {
		return t.winner, true
	}

	key := Normalize(candidate)
	if _, seen := t.counts[key]; !seen {
		t.order = append(t.order, key)
		t.reps[key] = candidate
	}
	t.counts[key]++
	t.total++

	if t.counts[key] >= t.maxOther(key)+t.k {
		t.winner = t.reps[key]
		t.decided = true
		return t.winner, true
	}
	return "", false
}

func (t *Tally) maxOther(key string) int {
	best := 0
	for other, c := range t.counts {
		if other != key && c > best {
			best = c
		}
	}
	return best
}

// Decided reports whether a group reached the margin.
func (t *Tally) Decided() bool { return t.decided }

// Admitted returns how many candidates were counted.
func (t *Tally) Admitted() int { return t.total }

// Winner returns the decided winner or, failing that, the representative of
// the highest-count group. Ties go to the group seen first. Returns false
// when nothing was admitted.
func (t *Tally) Winner() (string, bool) {
	if t.decided {
		return t.winner, true
	}
	if len(t.order) == 0 {
		return "", false
	}

	best := t.order[0]
	for _, key := range t.order[1:] {
		if t.counts[key] > t.counts[best] {
			best = key
		}
	}
	return t.reps[best], true
}

// Vote runs first-to-ahead-by-k over candidates in order. It stops reading
// at the first decision. Returns false only for an empty input.
func Vote(candidates []string, k int) (string, bool) {
	t := NewTally(k)
	for _, c := range candidates {
		if w, ok := t.Add(c); ok {
			return w, true
		}
	}
	return t.Winner()
}
