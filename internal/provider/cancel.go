package provider

import "sync"

// CancelToken is a one-shot broadcast signal. Once cancelled it stays
// cancelled. Use NewCancelToken; a nil token is never cancelled.
type CancelToken struct {
	once sync.Once
	ch   chan struct{}
}

// NewCancelToken creates an untriggered token.
func NewCancelToken() *CancelToken {
	return &CancelToken{ch: make(chan struct{})}
}

// Cancel triggers the token. It reports true only for the call that
// actually triggered it.
func (t *CancelToken) Cancel() bool {
	if t == nil {
		return false
	}
	fired := false
	t.once.Do(func() {
		close(t.ch)
		fired = true
	})
	return fired
}

// Cancelled reports whether the token has been triggered.
func (t *CancelToken) Cancelled() bool {
	if t == nil {
		return false
	}
	select {
	case <-t.ch:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when the token is triggered.
func (t *CancelToken) Done() <-chan struct{} {
	if t == nil {
		return nil
	}
	return t.ch
}
