package consensus

import (
	"context"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/Adr1an04/boomai/internal/provider"
)

// DefaultMaxCandidateChars is the fixed ceiling for race candidates.
const DefaultMaxCandidateChars = 1000

// Executor runs one model request. *provider.Runner satisfies it.
type Executor interface {
	Execute(ctx context.Context, req provider.ModelRequest) (provider.ModelResponse, error)
}

// Racer runs consensus races. The zero value uses the default ceiling and
// no red-flag filter.
type Racer struct {
	// MaxCandidateChars discards longer candidates.
	MaxCandidateChars int
	// Filter, when set, rejects red-flagged candidates before voting.
	Filter *RedFlagFilter
	// OnAdmit is called from the collecting goroutine after each admitted
	// candidate with the running count.
	OnAdmit func(admitted int)
}

// RaceResult describes how a race ended.
type RaceResult struct {
	Answer    string
	Decided   bool
	Admitted  int
	Failed    int
	Discarded int
	Cancelled bool
	// Err is the last attempt failure, if any.
	Err       error
}

type attempt struct {
	content string
	err     error
}

// Race launches n attempts at prompt and returns the first candidate to
// lead by k, or the highest-count candidate once every attempt resolved.
// The answer is empty when no attempt produced a usable candidate.
//
// token is shared by every attempt. Race triggers it on a decision; if it
// fires from elsewhere the race stops admitting candidates and returns an
// empty answer. Attempts still running are abandoned.
func (r *Racer) Race(ctx context.Context, exec Executor, prompt string, n, k int, token *provider.CancelToken) RaceResult {
	if n <= 0 {
		return RaceResult{}
	}
	if token == nil {
		token = provider.NewCancelToken()
	}
	maxChars := r.MaxCandidateChars
	if maxChars <= 0 {
		maxChars = DefaultMaxCandidateChars
	}

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-token.Done():
			cancel()
		case <-raceCtx.Done():
		}
	}()

	results := make(chan attempt, n)
	for i := 0; i < n; i++ {
		go func() {
			if token.Cancelled() {
				results <- attempt{err: context.Canceled}
				return
			}
			resp, err := exec.Execute(raceCtx, provider.NewRequest(prompt))
			results <- attempt{content: resp.Content, err: err}
		}()
	}

	tally := NewTally(k)
	var res RaceResult
	for received := 0; received < n; received++ {
		var a attempt
		select {
		case a = <-results:
		case <-ctx.Done():
			token.Cancel()
			res.Cancelled = true
			return res
		}

		if token.Cancelled() {
			log.Printf("[race] cancelled externally after %d admitted", tally.Admitted())
			res.Cancelled = true
			res.Admitted = tally.Admitted()
			return res
		}

		if a.err != nil {
			res.Failed++
			res.Err = a.err
			log.Printf("[race] attempt failed: %v", a.err)
			continue
		}
		content := strings.TrimSpace(a.content)
		if content == "" || utf8.RuneCountInString(content) > maxChars {
			res.Discarded++
			continue
		}
		if r.Filter != nil {
			if reason, flagged := r.Filter.Reason(content); flagged {
				res.Discarded++
				log.Printf("[race] red flag %s", reason)
				continue
			}
		}

		winner, decided := tally.Add(content)
		if r.OnAdmit != nil {
			r.OnAdmit(tally.Admitted())
		}
		if decided {
			token.Cancel()
			res.Answer = winner
			res.Decided = true
			res.Admitted = tally.Admitted()
			return res
		}
	}

	res.Admitted = tally.Admitted()
	res.Answer, _ = tally.Winner()
	return res
}

// Race runs a race with the default Racer and returns only the answer.
func Race(ctx context.Context, exec Executor, prompt string, n, k int, token *provider.CancelToken) string {
	var r Racer
	return r.Race(ctx, exec, prompt, n, k, token).Answer
}
