package state

import (
	"sort"

	"github.com/enmanuelbasulto/fop2-clone/internal/models"
)

// QueueView is the read snapshot of one queue with members flattened out of
// the internal map.
type QueueView struct {
	models.Queue
	Agents []models.QueueMember `json:"agents"`
}

// Extensions returns copies of every tracked extension, sorted by id.
func (s *Store) Extensions() []models.Extension {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Extension, 0, len(s.extensions))
	for _, ext := range s.extensions {
		c := *ext
		c.StatusHistory = append([]models.StatusChange(nil), ext.StatusHistory...)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Extension returns a copy of one extension, or false when it was never seen.
func (s *Store) Extension(id string) (models.Extension, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ext, ok := s.extensions[id]
	if !ok {
		return models.Extension{}, false
	}
	c := *ext
	c.StatusHistory = append([]models.StatusChange(nil), ext.StatusHistory...)
	return c, true
}

// Queues returns snapshots of every tracked queue, sorted by name.
func (s *Store) Queues() []QueueView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]QueueView, 0, len(s.queues))
	for _, q := range s.queues {
		out = append(out, snapshotQueue(q))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Queue returns the snapshot of one queue, or false when it was never seen.
func (s *Store) Queue(name string) (QueueView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.queues[name]
	if !ok {
		return QueueView{}, false
	}
	return snapshotQueue(q), true
}

// ActiveCalls returns copies of the live calls in insertion order.
func (s *Store) ActiveCalls() []models.Call {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Call, 0, len(s.calls))
	for _, c := range s.calls {
		out = append(out, *c)
	}
	return out
}

// RecentCalls returns up to limit completed calls, most recent last.
func (s *Store) RecentCalls(limit int) []models.CompletedCall {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := 0
	if limit > 0 && len(s.completed) > limit {
		start = len(s.completed) - limit
	}
	return append([]models.CompletedCall(nil), s.completed[start:]...)
}

// CompletedCount reports how many completed calls are retained.
func (s *Store) CompletedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.completed)
}

func snapshotQueue(q *models.Queue) QueueView {
	view := QueueView{Queue: *q}
	view.Queue.WaitingEntries = append([]models.QueueEntry(nil), q.WaitingEntries...)
	view.Agents = make([]models.QueueMember, 0, len(q.Members))
	for _, m := range q.Members {
		view.Agents = append(view.Agents, m)
	}
	sort.Slice(view.Agents, func(i, j int) bool { return view.Agents[i].Name < view.Agents[j].Name })
	view.Queue.Members = nil
	return view
}
