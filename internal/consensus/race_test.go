package consensus

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Adr1an04/boomai/internal/provider"
)

func newRunner(fake *provider.Fake) *provider.Runner {
	return provider.NewRunner("test", fake, provider.DefaultRunnerConfig())
}

func TestRace_AgreementDecidesEarly(t *testing.T) {
	fake := provider.NewFake("4")
	token := provider.NewCancelToken()

	var admits atomic.Int32
	r := Racer{OnAdmit: func(int) { admits.Add(1) }}
	res := r.Race(context.Background(), newRunner(fake), "2+2?", 5, 2, token)

	if res.Answer != "4" || !res.Decided {
		t.Fatalf("Race = %+v, want decided 4", res)
	}
	if res.Admitted != 2 {
		t.Errorf("Admitted = %d, want 2", res.Admitted)
	}
	if got := admits.Load(); got != 2 {
		t.Errorf("OnAdmit called %d times, want 2", got)
	}
	if !token.Cancelled() {
		t.Error("decision should trigger the shared token")
	}
}

func TestRace_AllFail(t *testing.T) {
	fake := provider.NewFake()
	fake.Respond = func(int, provider.ModelRequest) (string, error) {
		return "", errors.New("backend down")
	}

	got := Race(context.Background(), newRunner(fake), "hi", 4, 2, provider.NewCancelToken())
	if got != "" {
		t.Errorf("Race = %q, want empty when every attempt fails", got)
	}
	if fake.Calls() != 4 {
		t.Errorf("provider called %d times, want 4", fake.Calls())
	}
}

func TestRace_DiscardsEmptyAndOversized(t *testing.T) {
	fake := provider.NewFake()
	fake.Respond = func(call int, _ provider.ModelRequest) (string, error) {
		if call%2 == 0 {
			return "   ", nil
		}
		return strings.Repeat("x", DefaultMaxCandidateChars+1), nil
	}

	var r Racer
	res := r.Race(context.Background(), newRunner(fake), "hi", 4, 2, nil)
	if res.Answer != "" || res.Admitted != 0 {
		t.Errorf("Race = %+v, want nothing admitted", res)
	}
	if res.Discarded != 4 {
		t.Errorf("Discarded = %d, want 4", res.Discarded)
	}
}

func TestRace_RedFlagFilter(t *testing.T) {
	fake := provider.NewFake()
	fake.Respond = func(call int, _ provider.ModelRequest) (string, error) {
		if call < 3 {
			return "I apologize, let me try again", nil
		}
		return "42", nil
	}

	r := Racer{Filter: NewRedFlagFilter(0)}
	res := r.Race(context.Background(), newRunner(fake), "hi", 5, 2, nil)
	if res.Answer != "42" {
		t.Errorf("Answer = %q, want 42", res.Answer)
	}
	if res.Discarded != 3 {
		t.Errorf("Discarded = %d, want 3", res.Discarded)
	}
}

func TestRace_SplitFallsBack(t *testing.T) {
	answers := []string{"A", "B", "C"}
	fake := provider.NewFake(answers...)

	var r Racer
	res := r.Race(context.Background(), newRunner(fake), "pick", 3, 2, nil)
	if res.Decided {
		t.Errorf("split pool should not reach margin: %+v", res)
	}
	found := false
	for _, a := range answers {
		if res.Answer == a {
			found = true
		}
	}
	if !found {
		t.Errorf("Answer = %q, want one of %v", res.Answer, answers)
	}
}

func TestRace_PreCancelledTokenAdmitsNothing(t *testing.T) {
	fake := provider.NewFake("4")
	token := provider.NewCancelToken()
	token.Cancel()

	var r Racer
	res := r.Race(context.Background(), newRunner(fake), "hi", 5, 2, token)
	if res.Answer != "" || res.Admitted != 0 || !res.Cancelled {
		t.Errorf("Race = %+v, want cancelled with nothing admitted", res)
	}
	if fake.Calls() != 0 {
		t.Errorf("provider called %d times after cancellation, want 0", fake.Calls())
	}
}

func TestRace_ExternalCancelStopsAdmission(t *testing.T) {
	token := provider.NewCancelToken()
	fake := provider.NewFake()
	fake.Respond = func(call int, _ provider.ModelRequest) (string, error) {
		if call == 0 {
			return "first", nil
		}
		token.Cancel()
		return "first", nil
	}
	fake.Delay = 10 * time.Millisecond

	runner := provider.NewRunner("serial", fake, provider.RunnerConfig{MaxConcurrent: 1})
	var r Racer
	res := r.Race(context.Background(), runner, "hi", 3, 3, token)

	if !res.Cancelled {
		t.Fatalf("Race = %+v, want cancelled", res)
	}
	if res.Admitted > 1 {
		t.Errorf("Admitted = %d, want at most 1 before cancellation", res.Admitted)
	}
}

func TestRace_ZeroAttempts(t *testing.T) {
	fake := provider.NewFake("4")
	if got := Race(context.Background(), newRunner(fake), "hi", 0, 2, nil); got != "" {
		t.Errorf("Race with n=0 = %q, want empty", got)
	}
	if fake.Calls() != 0 {
		t.Errorf("provider called %d times, want 0", fake.Calls())
	}
}

func TestRace_ParentContextCancelled(t *testing.T) {
	fake := provider.NewFake("4")
	fake.Delay = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	got := Race(ctx, newRunner(fake), "hi", 3, 2, nil)
	if got != "" {
		t.Errorf("Race = %q, want empty", got)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("race did not stop promptly on parent cancellation")
	}
}
