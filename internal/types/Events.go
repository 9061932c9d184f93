/*

This file contains the observable event stream emitted by the core. Events exist
for audit and testing; they are not an RPC surface. The Recorder keeps an
in-memory append log so tests and the dashboard can assert on what happened.

*/

package types

import (
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
)

// EventType enumerates the observable events of the core.
type EventType string

const (
	EventDepositRecorded       EventType = "deposit_recorded"
	EventWithdrawRecorded      EventType = "withdraw_recorded"
	EventHarvestExecuted       EventType = "harvest_executed"
	EventDonationSent          EventType = "donation_sent"
	EventDonationQueued        EventType = "donation_queued"
	EventRiskViolationRejected EventType = "risk_violation_rejected"
	EventAdapterPaused         EventType = "adapter_paused"
	EventAdapterUnpaused       EventType = "adapter_unpaused"
)

// Event is a single observable occurrence in an adapter or the router.
type Event struct {
	Type      EventType   `json:"type"`
	AdapterID string      `json:"adapter_id"`
	Depositor string      `json:"depositor,omitempty"`
	Amount    sdkmath.Int `json:"amount"`
	Gain      sdkmath.Int `json:"gain"`
	Reason    string      `json:"reason,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Recorder is a concurrency-safe append log of events.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder returns an empty event recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends an event, stamping it with the current time if unset.
func (r *Recorder) Record(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	if ev.Amount.IsNil() {
		ev.Amount = sdkmath.ZeroInt()
	}
	if ev.Gain.IsNil() {
		ev.Gain = sdkmath.ZeroInt()
	}
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

// Events returns a copy of all recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// EventsOfType returns all recorded events of the given type.
func (r *Recorder) EventsOfType(t EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}
