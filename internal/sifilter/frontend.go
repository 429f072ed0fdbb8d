// Package sifilter defines the narrow interfaces this engine consumes from
// the tuner/frontend driver and the demux/section-filter primitive. Neither
// interface is implemented here: production callers supply a real frontend
// and demux; tests supply fakes (fakeFrontend/fakeDemux in the scanner
// package's tests, scriptedDemux in the orchestrator package's tests).
package sifilter

import (
	"context"

	"github.com/plextuner/dvbscan/internal/tuning"
)

// FrontendState mirrors iDVBFrontend's get_state() result.
type FrontendState int

const (
	StateIdle FrontendState = iota
	StateTuning
	StateLocked
	StateFailed
)

// FrontendDataKind selects which frontend reading read_frontend_data returns.
type FrontendDataKind int

const (
	KindFrequency FrontendDataKind = iota
	KindBitErrorRate
	KindSNRValue
	KindSignalPower
)

// StateChange is delivered to a subscriber whenever the frontend's state
// transitions, asynchronously with respect to the call that triggered it.
type StateChange struct {
	State FrontendState
}

// Frontend is the tuner driver this engine consumes. It tunes to parameters,
// reports lock/failure asynchronously via Subscribe, and exposes
// signal-quality readings.
type Frontend interface {
	// Tune requests the frontend retune to params. The result is delivered
	// asynchronously to subscribers of StateChange, not as a return value.
	Tune(ctx context.Context, params tuning.Params) error

	// State returns the frontend's current state.
	State() FrontendState

	// CurrentParams returns the parameters the frontend is presently tuned
	// to (or attempting to tune to).
	CurrentParams() tuning.Params

	// ReadFrontendData returns a signal-quality reading of the given kind.
	ReadFrontendData(kind FrontendDataKind) int

	// Subscribe registers ch to receive state-change notifications. The
	// returned unsubscribe func must be called exactly once, typically on
	// scan destruction, so the frontend's notification list never grows
	// unbounded across scan lifetimes.
	Subscribe(ch chan<- StateChange) (unsubscribe func())
}
