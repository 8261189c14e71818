// Package stats keeps running call-center counters. The aggregator consumes
// the same domain events as the state store but shares no state with it, so
// counters stay correct even when a call cannot be correlated there.
package stats

import (
	"math"
	"sync"
	"time"

	"github.com/enmanuelbasulto/fop2-clone/internal/models"
)

// ExtensionCounters are the per-extension running totals.
type ExtensionCounters struct {
	Extension        string     `json:"extension"`
	TotalCalls       int        `json:"totalCalls"`
	AnsweredCalls    int        `json:"answeredCalls"`
	MissedCalls      int        `json:"missedCalls"`
	TotalTalkTime    float64    `json:"totalTalkTime"`
	CurrentCallStart *time.Time `json:"currentCallStart,omitempty"`
}

// QueueCounters are the per-queue running totals.
type QueueCounters struct {
	Name           string    `json:"name"`
	CallsWaiting   int       `json:"callsWaiting"`
	CallsAnswered  int       `json:"callsAnswered"`
	CallsAbandoned int       `json:"callsAbandoned"`
	ServiceLevel   int       `json:"serviceLevel"`
	LastReset      time.Time `json:"lastReset"`
}

// trackedCall is the aggregator's own minimal call record, correlated the
// same heuristic way the store does it but kept separate on purpose.
type trackedCall struct {
	caller   string
	callee   string
	channel  string
	started  time.Time
	answered *time.Time
}

// Aggregator maintains the derived statistics.
type Aggregator struct {
	mu         sync.RWMutex
	extensions map[string]*ExtensionCounters
	statuses   map[string]models.ExtensionStatus
	queues     map[string]*QueueCounters
	calls      []*trackedCall

	startup    time.Time
	totalCalls int
	peakCalls  int
	now        func() time.Time
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// NewAggregator builds an empty aggregator; uptime counts from now.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{
		extensions: make(map[string]*ExtensionCounters),
		statuses:   make(map[string]models.ExtensionStatus),
		queues:     make(map[string]*QueueCounters),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.startup = a.now()
	return a
}

// Apply updates counters for one domain event.
func (a *Aggregator) Apply(ev models.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch e := ev.(type) {
	case models.ExtensionStatusChanged:
		a.statuses[e.Extension] = e.Status
	case models.QueueStatsChanged:
		q := a.queue(e.Queue)
		if e.Calls != nil {
			q.CallsWaiting = *e.Calls
		}
		if e.Completed != nil {
			q.CallsAnswered = *e.Completed
		}
	case models.ChannelRinging:
		a.callStarted(e)
	case models.ChannelBridged:
		a.callAnswered(e)
	case models.ChannelHungUp:
		a.callCompleted(e)
	}
}

func (a *Aggregator) callStarted(e models.ChannelRinging) {
	// Anonymous rings carry no caller id; they are broadcast to panels but
	// never counted.
	if e.CallerIDNum == "" {
		return
	}
	// A repeated ringing event for a channel already tracked is not a new
	// call.
	for _, c := range a.calls {
		if c.channel == e.Channel {
			return
		}
	}
	now := a.now()
	call := &trackedCall{
		caller:  e.CallerIDNum,
		callee:  e.Extension,
		channel: e.Channel,
		started: now,
	}
	a.calls = append(a.calls, call)
	a.totalCalls++
	if len(a.calls) > a.peakCalls {
		a.peakCalls = len(a.calls)
	}

	caller := a.extension(e.CallerIDNum)
	caller.TotalCalls++
	caller.CurrentCallStart = &now

	// The callee only counts the call once its device actually rings.
	if a.statuses[e.Extension] == models.StatusRinging {
		a.extension(e.Extension).TotalCalls++
	}
}

func (a *Aggregator) callAnswered(e models.ChannelBridged) {
	call := a.findByPair(e.CallerExt, e.CalleeExt)
	if call == nil || call.answered != nil {
		return
	}
	now := a.now()
	call.answered = &now

	a.extension(call.caller).AnsweredCalls++
	callee := a.extension(call.callee)
	callee.AnsweredCalls++
	callee.CurrentCallStart = &now
}

func (a *Aggregator) callCompleted(e models.ChannelHungUp) {
	idx := -1
	for i, c := range a.calls {
		if c.channel == e.Channel || (e.Extension != "" && (c.caller == e.Extension || c.callee == e.Extension)) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	call := a.calls[idx]
	a.calls = append(a.calls[:idx], a.calls[idx+1:]...)

	now := a.now()
	var ring, talk float64
	if call.answered != nil {
		ring = call.answered.Sub(call.started).Seconds()
		talk = now.Sub(*call.answered).Seconds()
	} else {
		ring = now.Sub(call.started).Seconds()
	}

	for _, id := range []string{call.caller, call.callee} {
		if id == "" {
			continue
		}
		ext := a.extension(id)
		ext.TotalTalkTime += talk
		ext.CurrentCallStart = nil
		if talk == 0 && ring > 0 {
			ext.MissedCalls++
		}
	}
}

func (a *Aggregator) findByPair(ext1, ext2 string) *trackedCall {
	for _, c := range a.calls {
		if (c.caller == ext1 && c.callee == ext2) || (c.caller == ext2 && c.callee == ext1) {
			return c
		}
	}
	return nil
}

func (a *Aggregator) extension(id string) *ExtensionCounters {
	ext, ok := a.extensions[id]
	if !ok {
		ext = &ExtensionCounters{Extension: id}
		a.extensions[id] = ext
	}
	return ext
}

func (a *Aggregator) queue(name string) *QueueCounters {
	q, ok := a.queues[name]
	if !ok {
		q = &QueueCounters{Name: name, LastReset: a.now()}
		a.queues[name] = q
	}
	return q
}

// ServiceLevel is answered / (answered + abandoned) rounded to the nearest
// percent and capped at 100. A queue with no answered calls reads 0.
func (a *Aggregator) ServiceLevel(queue string) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return serviceLevel(a.queues[queue])
}

func serviceLevel(q *QueueCounters) int {
	if q == nil || q.CallsAnswered == 0 {
		return 0
	}
	level := int(math.Round(float64(q.CallsAnswered) / float64(q.CallsAnswered+q.CallsAbandoned) * 100))
	if level > 100 {
		level = 100
	}
	return level
}

// Reset clears every counter and restarts the uptime-independent totals.
// Uptime itself is process-lifetime and is not reset.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.extensions = make(map[string]*ExtensionCounters)
	a.queues = make(map[string]*QueueCounters)
	a.calls = nil
	a.totalCalls = 0
	a.peakCalls = 0
}
