// Package state holds the live view of extensions, queues and calls and
// applies normalized domain events as transitions.
package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/enmanuelbasulto/fop2-clone/internal/models"
)

// Store is the panel's entity state. Apply runs on the single event-
// processing goroutine; the mutex only shields readers taking snapshots.
type Store struct {
	mu         sync.RWMutex
	extensions map[string]*models.Extension
	queues     map[string]*models.Queue
	calls      []*models.Call // live calls in insertion order
	completed  []models.CompletedCall
	now        func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore builds an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		extensions: make(map[string]*models.Extension),
		queues:     make(map[string]*models.Queue),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Apply transitions the store for one domain event.
func (s *Store) Apply(ev models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch e := ev.(type) {
	case models.ExtensionStatusChanged:
		s.applyExtensionStatus(e)
	case models.QueueMemberChanged:
		s.applyQueueMember(e)
	case models.QueueEntryChanged:
		s.applyQueueEntry(e)
	case models.QueueStatsChanged:
		s.applyQueueStats(e)
	case models.ChannelRinging:
		s.applyRinging(e)
	case models.ChannelBridged:
		s.applyBridged(e)
	case models.ChannelHungUp:
		s.applyHungUp(e)
	}
}

func (s *Store) applyExtensionStatus(e models.ExtensionStatusChanged) {
	ext := s.extension(e.Extension)
	change := models.StatusChange{Timestamp: s.now(), From: ext.Status, To: e.Status}
	ext.StatusHistory = append(ext.StatusHistory, change)
	if len(ext.StatusHistory) > models.MaxStatusHistory {
		ext.StatusHistory = ext.StatusHistory[len(ext.StatusHistory)-models.MaxStatusHistory:]
	}
	ext.Status = e.Status
}

func (s *Store) applyQueueMember(e models.QueueMemberChanged) {
	q := s.queue(e.Queue)
	q.Members[e.Member] = models.QueueMember{
		Name:       e.Member,
		Status:     e.Status,
		Paused:     e.Paused,
		CallsTaken: e.CallsTaken,
	}
}

// applyQueueEntry removes any existing entry for the caller before appending
// the new one. The resulting order is last-write order, not position order;
// the exchange re-reports positions on its own cadence and the panel mirrors
// that behavior.
func (s *Store) applyQueueEntry(e models.QueueEntryChanged) {
	q := s.queue(e.Queue)
	kept := q.WaitingEntries[:0]
	for _, entry := range q.WaitingEntries {
		if entry.CallerID != e.CallerID {
			kept = append(kept, entry)
		}
	}
	q.WaitingEntries = append(kept, models.QueueEntry{
		CallerID:    e.CallerID,
		Position:    e.Position,
		WaitSeconds: e.WaitSeconds,
	})
}

func (s *Store) applyQueueStats(e models.QueueStatsChanged) {
	q := s.queue(e.Queue)
	if e.Members != nil {
		q.AgentsTotal = *e.Members
	}
	if e.Calls != nil {
		q.CallsWaiting = *e.Calls
	}
	if e.Completed != nil {
		q.CallsAnswered = *e.Completed
	}
}

// applyRinging creates a live call unless one already covers the channel. A
// ringing event never regresses a call that went active. Anonymous rings
// carry no caller id and are not tracked.
func (s *Store) applyRinging(e models.ChannelRinging) {
	if e.CallerIDNum == "" {
		return
	}
	if s.findByChannel(e.Channel) != nil {
		return
	}
	caller, callee := e.CallerIDNum, e.Extension
	now := s.now()
	call := &models.Call{
		ID:        fmt.Sprintf("%s-%s-%d", caller, callee, now.UnixMilli()),
		Caller:    caller,
		Callee:    callee,
		Channel:   e.Channel,
		State:     models.CallRinging,
		Direction: e.Direction,
		StartedAt: now,
	}
	s.calls = append(s.calls, call)
}

// applyBridged marks the matching live call active. Channel names differ
// between the ringing and bridge legs, so the match is on the extension pair
// in either order; first insertion-order hit wins.
func (s *Store) applyBridged(e models.ChannelBridged) {
	call := s.findByPair(e.CallerExt, e.CalleeExt)
	if call == nil || call.State != models.CallRinging {
		return
	}
	now := s.now()
	call.State = models.CallActive
	call.AnsweredAt = &now
}

func (s *Store) applyHungUp(e models.ChannelHungUp) {
	call := s.findByChannel(e.Channel)
	if call == nil && e.Extension != "" {
		call = s.findByExtension(e.Extension)
	}
	if call == nil {
		return
	}
	now := s.now()
	call.State = models.CallCompleted
	call.EndedAt = &now

	ring, talk, total := call.Durations(now)
	done := models.CompletedCall{
		Call:          *call,
		Reason:        e.CauseText,
		RingDuration:  ring,
		TalkDuration:  talk,
		TotalDuration: total,
	}

	kept := s.calls[:0]
	for _, c := range s.calls {
		if c != call {
			kept = append(kept, c)
		}
	}
	s.calls = kept

	s.completed = append(s.completed, done)
	if len(s.completed) > models.MaxCompletedCalls {
		s.completed = s.completed[len(s.completed)-models.MaxCompletedCalls:]
	}
}

func (s *Store) extension(id string) *models.Extension {
	ext, ok := s.extensions[id]
	if !ok {
		ext = &models.Extension{ID: id, Status: models.StatusUnknown}
		s.extensions[id] = ext
	}
	return ext
}

func (s *Store) queue(name string) *models.Queue {
	q, ok := s.queues[name]
	if !ok {
		q = &models.Queue{
			Name:      name,
			Members:   make(map[string]models.QueueMember),
			LastReset: s.now(),
		}
		s.queues[name] = q
	}
	return q
}

func (s *Store) findByChannel(channel string) *models.Call {
	for _, c := range s.calls {
		if c.Channel == channel {
			return c
		}
	}
	return nil
}

func (s *Store) findByPair(ext1, ext2 string) *models.Call {
	for _, c := range s.calls {
		if (c.Caller == ext1 && c.Callee == ext2) || (c.Caller == ext2 && c.Callee == ext1) {
			return c
		}
	}
	return nil
}

func (s *Store) findByExtension(ext string) *models.Call {
	for _, c := range s.calls {
		if c.Caller == ext || c.Callee == ext {
			return c
		}
	}
	return nil
}
