package audio

import "sync"

// PlayResult is the outcome of a playback start request. The output may
// accept or refuse playback asynchronously; Done is closed once either
// has happened and Err reports which.
type PlayResult struct {
	once sync.Once
	done chan struct{}
	err  error
}

// NewPlayResult returns an unresolved result.
func NewPlayResult() *PlayResult {
	return &PlayResult{done: make(chan struct{})}
}

// Resolved returns a result that has already completed with err.
func Resolved(err error) *PlayResult {
	r := NewPlayResult()
	r.Resolve(err)
	return r
}

// Resolve completes the result. Only the first call has any effect.
func (r *PlayResult) Resolve(err error) {
	r.once.Do(func() {
		r.err = err
		close(r.done)
	})
}

// Done returns a channel closed when the result is resolved.
func (r *PlayResult) Done() <-chan struct{} {
	return r.done
}

// Ready reports whether the result has been resolved, without blocking.
func (r *PlayResult) Ready() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Err returns the rejection reason, or nil if playback started.
// It must only be called after Done is closed.
func (r *PlayResult) Err() error {
	<-r.done
	return r.err
}
