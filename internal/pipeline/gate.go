package pipeline

import (
	"context"
	"sync"
	"time"
)

// ReadyGate is a one-shot signal from the setup stage to the orchestrator.
// Only the first Fire has an effect.
type ReadyGate struct {
	once sync.Once
	ch   chan struct{}
}

// NewReadyGate returns an unfired gate.
func NewReadyGate() *ReadyGate {
	return &ReadyGate{ch: make(chan struct{})}
}

// Fire marks the scene ready.
func (g *ReadyGate) Fire() {
	g.once.Do(func() { close(g.ch) })
}

// Fired reports whether Fire has been called.
func (g *ReadyGate) Fired() bool {
	select {
	case <-g.ch:
		return true
	default:
		return false
	}
}

// Done is closed once the gate fires.
func (g *ReadyGate) Done() <-chan struct{} {
	return g.ch
}

// Wait blocks until the gate fires, setup reports an error on failed, the
// timeout elapses or ctx is done. A nil failed channel is never selected.
func (g *ReadyGate) Wait(ctx context.Context, timeout time.Duration, failed <-chan error) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-g.ch:
		return nil
	case err := <-failed:
		if g.Fired() {
			return nil
		}
		return err
	case <-timer.C:
		if g.Fired() {
			return nil
		}
		return &ReadinessTimeoutError{After: timeout}
	case <-ctx.Done():
		return ctx.Err()
	}
}
