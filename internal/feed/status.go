package feed

import (
	"fmt"
	"sync"
	"time"

	"perpdesk/internal/market"
)

// TerminalMessage is shown once automatic reconnects are exhausted.
const TerminalMessage = "Connection lost. Tap reconnect to retry."

// StatusView is a point-in-time copy of a Status.
type StatusView struct {
	State     market.ConnectionState `json:"state"`
	Message   string                 `json:"message,omitempty"`
	Retries   int                    `json:"retries"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// Status holds the ConnectionState of one subscription. It is safe for
// concurrent use; listeners run synchronously on every change.
type Status struct {
	mu        sync.Mutex
	view      StatusView
	listeners []func(StatusView)
	now       func() time.Time
}

func NewStatus() *Status {
	s := &Status{now: time.Now}
	s.view = StatusView{State: market.StateLoading, UpdatedAt: s.now()}
	return s
}

// OnChange registers a listener for state or message changes.
func (s *Status) OnChange(fn func(StatusView)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Status) View() StatusView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

func (s *Status) State() market.ConnectionState {
	return s.View().State
}

// Loading marks an in-flight (re)subscribe.
func (s *Status) Loading(msg string) {
	s.set(market.StateLoading, msg, -1)
}

// Reconnecting is Loading with the "Reconnecting (n/max)" message.
func (s *Status) Reconnecting(n, max int) {
	s.set(market.StateLoading, fmt.Sprintf("Reconnecting (%d/%d)", n, max), n)
}

// Open marks a live subscription and clears the retry counter.
func (s *Status) Open() {
	s.set(market.StateOpen, "", 0)
}

func (s *Status) Fail(msg string) {
	s.set(market.StateError, msg, -1)
}

// set updates the view; retries < 0 keeps the current counter.
func (s *Status) set(state market.ConnectionState, msg string, retries int) {
	s.mu.Lock()
	prev := s.view
	next := prev
	next.State = state
	next.Message = msg
	if retries >= 0 {
		next.Retries = retries
	}
	if next.State == prev.State && next.Message == prev.Message && next.Retries == prev.Retries {
		s.mu.Unlock()
		return
	}
	next.UpdatedAt = s.now()
	s.view = next
	listeners := append([]func(StatusView){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(next)
	}
}
