package provider

import (
	"context"
	"sync"
	"time"
)

// Fake is a scripted, in-process provider. It backs the "fake" provider
// kind for offline use and is used throughout the tests.
type Fake struct {
	// Delay is applied before every reply, honoring ctx.
	Delay time.Duration
	// Respond, when set, produces the reply for each call.
	Respond func(call int, req ModelRequest) (string, error)

	mu      sync.Mutex
	replies []string
	calls   int
}

// NewFake returns a provider cycling through replies. With no replies it
// echoes the last message.
func NewFake(replies ...string) *Fake {
	return &Fake{replies: replies}
}

// Chat implements Provider.
func (f *Fake) Chat(ctx context.Context, req ModelRequest) (ModelResponse, error) {
	f.mu.Lock()
	call := f.calls
	f.calls++
	f.mu.Unlock()

	if f.Delay > 0 {
		timer := time.NewTimer(f.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ModelResponse{}, ctx.Err()
		case <-timer.C:
		}
	}

	var content string
	switch {
	case f.Respond != nil:
		out, err := f.Respond(call, req)
		if err != nil {
			return ModelResponse{}, err
		}
		content = out
	case len(f.replies) > 0:
		content = f.replies[call%len(f.replies)]
	case len(req.Messages) > 0:
		content = req.Messages[len(req.Messages)-1].Content
	}

	return ModelResponse{
		Content:      content,
		FinishReason: FinishStop,
		ModelID:      "fake",
		Usage:        Usage{CompletionTokens: len(content) / 4, TotalTokens: len(content) / 4},
	}, nil
}

// Calls returns how many times Chat was invoked.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
