// Package cancel implements the process-wide cooperative cancellation
// flag the orchestrator polls between units of work. The flag has a
// single external writer (a keyboard watcher, out of scope for this
// package) and many readers.
package cancel

import "sync/atomic"

// Token is a single-writer/many-reader cancellation flag.
type Token struct {
	flag atomic.Bool
}

// New returns a fresh, unset Token.
func New() *Token {
	return &Token{}
}

// RequestCancel sets the flag. Safe to call from any goroutine,
// including an external keyboard listener.
func (t *Token) RequestCancel() {
	t.flag.Store(true)
}

// IsCancelled reports whether RequestCancel has been called since the
// last ResetCancel.
func (t *Token) IsCancelled() bool {
	return t.flag.Load()
}

// ResetCancel clears the flag, allowing the token to be reused across
// a subsequent invocation.
func (t *Token) ResetCancel() {
	t.flag.Store(false)
}
