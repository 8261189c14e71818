package models

import "time"

// CallState is the lifecycle state of a tracked call. State only moves
// forward: ringing, then active, then completed.
type CallState string

const (
	CallRinging   CallState = "ringing"
	CallActive    CallState = "active"
	CallCompleted CallState = "completed"
)

// CallDirection distinguishes panel-originated calls from incoming ones.
type CallDirection string

const (
	DirectionInbound  CallDirection = "inbound"
	DirectionOutbound CallDirection = "outbound"
)

// MaxCompletedCalls bounds the completed-call history; oldest entries are
// evicted first.
const MaxCompletedCalls = 1000

// Call tracks one call observed on the control channel. The exchange never
// supplies a stable call identifier across ringing, bridge and hangup, so
// calls are correlated heuristically by channel name and extension pair.
type Call struct {
	ID         string        `json:"id"`
	Caller     string        `json:"caller"`
	Callee     string        `json:"callee"`
	Channel    string        `json:"channel"`
	State      CallState     `json:"status"`
	Direction  CallDirection `json:"direction"`
	StartedAt  time.Time     `json:"startTime"`
	AnsweredAt *time.Time    `json:"answeredTime,omitempty"`
	EndedAt    *time.Time    `json:"endTime,omitempty"`
}

// CompletedCall is the immutable snapshot kept in history once a call ends.
type CompletedCall struct {
	Call
	Reason        string  `json:"completionReason"`
	RingDuration  float64 `json:"ringDuration"`
	TalkDuration  float64 `json:"talkDuration"`
	TotalDuration float64 `json:"totalDuration"`
}

// Durations derives ring, talk and total duration in seconds for a call that
// ended at the given time.
func (c *Call) Durations(endedAt time.Time) (ring, talk, total float64) {
	if c.AnsweredAt != nil {
		ring = c.AnsweredAt.Sub(c.StartedAt).Seconds()
		talk = endedAt.Sub(*c.AnsweredAt).Seconds()
	}
	total = endedAt.Sub(c.StartedAt).Seconds()
	return ring, talk, total
}
