package ami

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/enmanuelbasulto/fop2-clone/internal/metrics"
)

// Phase is the supervisor's view of the control-channel link.
type Phase string

const (
	PhaseDisconnected Phase = "disconnected"
	PhaseConnecting   Phase = "connecting"
	PhaseConnected    Phase = "connected"
)

const (
	// Retry delays match the exchange-side expectations: errors back off
	// longer than clean closes. There is no retry cap; the link is expected
	// to come back eventually.
	errorRetryDelay = 10 * time.Second
	closeRetryDelay = 5 * time.Second
)

// ErrNotConnected is returned by Do while no link is up.
var ErrNotConnected = errors.New("ami: not connected")

// Supervisor owns the Link lifecycle: it dials, re-subscribes after every
// successful connect, forwards events to a single ordered stream, and retries
// indefinitely on failure.
type Supervisor struct {
	dial   Dialer
	logger *log.Logger

	mu         sync.RWMutex
	link       Link
	phase      Phase
	retryCount int

	events chan RawEvent
	stop   chan struct{}
	done   chan struct{}
}

// SupervisorOption configures a Supervisor.
type SupervisorOption func(*Supervisor)

// WithLogger injects a custom logger implementation.
func WithLogger(l *log.Logger) SupervisorOption {
	return func(s *Supervisor) {
		s.logger = l
	}
}

// NewSupervisor builds a supervisor around the given dialer. Run must be
// called to start it.
func NewSupervisor(dial Dialer, opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		dial:   dial,
		logger: log.Default(),
		phase:  PhaseDisconnected,
		events: make(chan RawEvent, 256),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Events is the single ordered event stream spanning reconnects.
func (s *Supervisor) Events() <-chan RawEvent {
	return s.events
}

// Phase reports the current link phase.
func (s *Supervisor) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// Connected reports whether a link is currently up.
func (s *Supervisor) Connected() bool {
	return s.Phase() == PhaseConnected
}

// Retries is the number of connect attempts since the link last came up.
// It reads 0 while connected.
func (s *Supervisor) Retries() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.retryCount
}

// Do submits an action over the current link.
func (s *Supervisor) Do(ctx context.Context, a Action) (*Response, error) {
	s.mu.RLock()
	link := s.link
	s.mu.RUnlock()
	if link == nil {
		return nil, ErrNotConnected
	}
	return link.Do(ctx, a)
}

// Run drives the connect/retry loop until ctx is cancelled or Stop is
// called. It blocks; run it on its own goroutine.
func (s *Supervisor) Run(ctx context.Context) {
	defer close(s.done)
	defer close(s.events)

	for {
		s.setPhase(PhaseConnecting, nil)
		link, err := s.dial(ctx)
		if err != nil {
			s.logger.Printf("ami: connection failed: %v", err)
			s.setPhase(PhaseDisconnected, nil)
			metrics.Get().LinkFailures.Inc()
			if !s.sleep(ctx, errorRetryDelay) {
				return
			}
			continue
		}

		s.setPhase(PhaseConnected, link)
		metrics.Get().LinkConnects.Inc()
		s.logger.Printf("ami: connected to exchange")

		if err := s.subscribe(ctx, link); err != nil {
			s.logger.Printf("ami: initial subscribe failed: %v", err)
		}

		delay := s.pump(ctx, link)
		s.setPhase(PhaseDisconnected, nil)
		link.Close()
		if delay == 0 {
			return
		}
		if !s.sleep(ctx, delay) {
			return
		}
	}
}

// Stop terminates the run loop and waits for it to exit.
func (s *Supervisor) Stop() {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	<-s.done
}

// subscribe issues the idempotent post-connect actions: event subscription,
// initial queue status and the full extension status list.
func (s *Supervisor) subscribe(ctx context.Context, link Link) error {
	actions := []Action{
		{Name: "Events", Fields: map[string]string{"EventMask": "on"}},
		{Name: "QueueStatus", Fields: map[string]string{"Queue": ""}},
		{Name: "ExtensionStateList", Fields: nil},
	}
	for _, a := range actions {
		if _, err := link.Do(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// pump forwards link events into the shared stream until the link dies or
// shutdown starts. It returns the retry delay for the next attempt, or 0 to
// stop retrying.
func (s *Supervisor) pump(ctx context.Context, link Link) time.Duration {
	for {
		select {
		case <-ctx.Done():
			return 0
		case <-s.stop:
			return 0
		case <-link.Done():
			if err := link.Err(); err != nil {
				s.logger.Printf("ami: link error: %v, retrying in %s", err, errorRetryDelay)
				metrics.Get().LinkFailures.Inc()
				return errorRetryDelay
			}
			s.logger.Printf("ami: link closed, reconnecting in %s", closeRetryDelay)
			return closeRetryDelay
		case ev, ok := <-link.Events():
			if !ok {
				s.logger.Printf("ami: event stream closed, reconnecting in %s", closeRetryDelay)
				return closeRetryDelay
			}
			select {
			case s.events <- ev:
			case <-ctx.Done():
				return 0
			case <-s.stop:
				return 0
			}
		}
	}
}

func (s *Supervisor) setPhase(p Phase, link Link) {
	s.mu.Lock()
	s.phase = p
	s.link = link
	if p == PhaseConnecting {
		s.retryCount++
	} else if p == PhaseConnected {
		s.retryCount = 0
	}
	s.mu.Unlock()
}

func (s *Supervisor) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	case <-s.stop:
		return false
	}
}
