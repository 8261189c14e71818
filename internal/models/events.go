package models

// Event is one normalized domain event produced from a raw exchange event.
// The set of implementations is closed; the normalizer emits nothing else.
type Event interface {
	isEvent()
}

// ExtensionStatusChanged reports a device state change for one extension.
type ExtensionStatusChanged struct {
	Extension string
	Status    ExtensionStatus
}

// QueueMemberChanged reports a queue membership update; the member entry is
// replaced wholesale, not merged.
type QueueMemberChanged struct {
	Queue      string
	Member     string
	Status     string
	Paused     bool
	CallsTaken int
}

// QueueEntryChanged reports a caller waiting in a queue. A new entry for a
// caller replaces any existing one in the same queue.
type QueueEntryChanged struct {
	Queue       string
	CallerID    string
	Position    int
	WaitSeconds int
}

// QueueStatsChanged carries queue aggregate counters. Nil fields were absent
// from the raw event and leave the stored value untouched.
type QueueStatsChanged struct {
	Queue     string
	Members   *int
	Calls     *int
	Completed *int
}

// ChannelRinging reports a new ringing channel. Direction is outbound for
// panel-originated Local channels with a known caller, inbound otherwise.
type ChannelRinging struct {
	Channel      string
	CallerIDNum  string
	CallerIDName string
	Extension    string
	Direction    CallDirection
}

// ChannelBridged reports two channels joined, i.e. a call answered.
type ChannelBridged struct {
	Channel1  string
	Channel2  string
	CallerExt string
	CalleeExt string
	CallerID1 string
	CallerID2 string
}

// ChannelHungUp reports a channel torn down. Extension may be empty when the
// channel name matched no known naming convention; correlation then falls
// back to the channel name alone.
type ChannelHungUp struct {
	Channel   string
	Extension string
	Cause     string
	CauseText string
	Duration  string
}

func (ExtensionStatusChanged) isEvent() {}
func (QueueMemberChanged) isEvent()     {}
func (QueueEntryChanged) isEvent()      {}
func (QueueStatsChanged) isEvent()      {}
func (ChannelRinging) isEvent()         {}
func (ChannelBridged) isEvent()         {}
func (ChannelHungUp) isEvent()          {}
