package models

import "time"

// QueueMember is one agent belonging to a call queue.
type QueueMember struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	Paused     bool   `json:"paused"`
	CallsTaken int    `json:"callsTaken"`
}

// QueueEntry is a caller waiting in a queue, in exchange-reported order.
type QueueEntry struct {
	CallerID    string `json:"callerId"`
	Position    int    `json:"position"`
	WaitSeconds int    `json:"wait"`
}

// Queue is the live view of one call-distribution group. Created lazily per
// distinct queue name.
type Queue struct {
	Name           string                 `json:"name"`
	Members        map[string]QueueMember `json:"-"`
	WaitingEntries []QueueEntry           `json:"waiting,omitempty"`
	AgentsTotal    int                    `json:"agentsTotal"`
	CallsWaiting   int                    `json:"callsWaiting"`
	CallsAnswered  int                    `json:"callsAnswered"`
	CallsAbandoned int                    `json:"callsAbandoned"`
	LastReset      time.Time              `json:"lastReset"`
}
