package consensus

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"4", "4"},
		{"  Paris. ", "paris"},
		{"PARIS", "paris"},
		{"etc..", "etc."},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestVote(t *testing.T) {
	tests := []struct {
		name       string
		candidates []string
		k          int
		want       string
		wantOK     bool
	}{
		{"empty input", nil, 2, "", false},
		{"single candidate falls back", []string{"A"}, 2, "A", true},
		{"margin reached early", []string{"4", "4", "5"}, 2, "4", true},
		{"normalized groups share votes", []string{"Paris.", "paris", " PARIS "}, 2, "Paris.", true},
		{"late leader", []string{"a", "b", "b", "b"}, 2, "b", true},
		{"k of one takes first", []string{"x", "y"}, 1, "x", true},
		{"fallback picks highest count", []string{"a", "b", "b", "a", "c", "b"}, 3, "b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Vote(tt.candidates, tt.k)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Vote(%q, %d) = %q, %v, want %q, %v", tt.candidates, tt.k, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestVote_AllTiedIsDeterministic(t *testing.T) {
	candidates := []string{"A", "B", "C"}

	first, ok := Vote(candidates, 2)
	if !ok {
		t.Fatal("Vote returned no winner for non-empty input")
	}
	if first != "A" {
		t.Errorf("tie went to %q, want first-seen %q", first, "A")
	}
	for i := 0; i < 20; i++ {
		if got, _ := Vote(candidates, 2); got != first {
			t.Fatalf("Vote is not deterministic: %q then %q", first, got)
		}
	}
}

func TestVote_WinnerIsMemberOfInput(t *testing.T) {
	inputs := [][]string{
		{"x"},
		{"a", "B", "b.", "c"},
		{"one", "two", "two", "three", "three", "three"},
		{" 42 ", "42.", "41"},
	}

	for _, candidates := range inputs {
		got, ok := Vote(candidates, 2)
		if !ok {
			t.Errorf("Vote(%q) returned no winner", candidates)
			continue
		}
		found := false
		for _, c := range candidates {
			if c == got || Normalize(c) == Normalize(got) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Vote(%q) = %q, not a member of the input", candidates, got)
		}
	}
}

func TestTally_StopsAtDecision(t *testing.T) {
	tally := NewTally(2)

	if _, ok := tally.Add("4"); ok {
		t.Fatal("one vote should not reach margin 2")
	}
	w, ok := tally.Add("4")
	if !ok || w != "4" {
		t.Fatalf("Add(4) = %q, %v, want decided 4", w, ok)
	}
	if tally.Admitted() != 2 {
		t.Errorf("Admitted() = %d, want 2", tally.Admitted())
	}

	// Decided state is sticky.
	for _, c := range []string{"5", "5", "5", "5"} {
		if w, ok := tally.Add(c); !ok || w != "4" {
			t.Errorf("Add(%q) after decision = %q, %v", c, w, ok)
		}
	}
	if tally.Admitted() != 2 {
		t.Errorf("Admitted() = %d after decision, want 2", tally.Admitted())
	}
}

func TestRedFlagFilter(t *testing.T) {
	f := NewRedFlagFilter(0)

	tests := []struct {
		name      string
		candidate string
		want      bool
	}{
		{"short answer", "352", false},
		{"exactly at ceiling", strings.Repeat("a", DefaultRedFlagMaxChars), false},
		{"over ceiling", strings.Repeat("a", DefaultRedFlagMaxChars+1), true},
		{"apology alone", "I apologize for the confusion.", false},
		{"retry alone", "Let me try again with more care.", false},
		{"confusion loop", "I apologize, let me try again. The answer is 4.", true},
		{"confusion loop any case", "i APOLOGIZE... LET ME TRY AGAIN", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.IsFlagged(tt.candidate); got != tt.want {
				t.Errorf("IsFlagged(%.30q) = %v, want %v", tt.candidate, got, tt.want)
			}
		})
	}
}

func TestRedFlagFilter_Reason(t *testing.T) {
	f := NewRedFlagFilter(10)
	if reason, ok := f.Reason("this is far too long"); !ok || reason != "too_long" {
		t.Errorf("Reason = %q, %v, want too_long", reason, ok)
	}
	if reason, ok := f.Reason("fine"); ok || reason != "" {
		t.Errorf("Reason(fine) = %q, %v", reason, ok)
	}
}
