package models

// Server-to-operator message types. Every outbound websocket frame is one
// JSON object tagged by "type".
const (
	TypeAuthSuccess     = "auth_success"
	TypeAuthFailed      = "auth_failed"
	TypeExtensionStatus = "extensionStatus"
	TypeQueueMember     = "queueMember"
	TypeQueueEntry      = "queueEntry"
	TypeQueueStatus     = "queueStatus"
	TypeCallStart       = "callStart"
	TypeCallProgress    = "callProgress"
	TypeCallConnected   = "callConnected"
	TypeCallEnded       = "callEnded"
	TypeDialFailed      = "dialFailed"
	TypeIncomingCall    = "incomingCall"
	TypeCallAnswered    = "callAnswered"
	TypeCallCompleted   = "callCompleted"
	TypeStatsUpdate     = "statsUpdate"
	TypeError           = "error"
)

// Operator-to-server actions.
const (
	ActionAuthenticate = "authenticate"
	ActionDial         = "dial"
	ActionHangup       = "hangup"
	ActionTransfer     = "transfer"
	ActionSpy          = "spy"
	ActionWhisper      = "whisper"
	ActionPause        = "pause"
	ActionAnswer       = "answer"
)

// ClientMessage is one operator command as received on the websocket. Only
// the fields relevant to the given action are populated.
type ClientMessage struct {
	Action    string `json:"action"`
	Extension string `json:"extension,omitempty"`
	Password  string `json:"password,omitempty"`
	Channel   string `json:"channel,omitempty"`
	Target    string `json:"target,omitempty"`
	Queue     string `json:"queue,omitempty"`
	Pause     *bool  `json:"pause,omitempty"`
}

// AuthSuccessMsg acknowledges a successful websocket authentication.
type AuthSuccessMsg struct {
	Type string   `json:"type"`
	User AuthUser `json:"user"`
}

// AuthUser identifies the authenticated operator.
type AuthUser struct {
	Extension string `json:"extension"`
	Name      string `json:"name"`
}

// AuthFailedMsg rejects an authentication attempt; the socket is closed
// right after it is sent.
type AuthFailedMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ErrorMsg reports a per-command error to the originating session only.
type ErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ExtensionStatusMsg announces a device state change to all sessions.
type ExtensionStatusMsg struct {
	Type      string `json:"type"`
	Extension string `json:"extension"`
	Status    string `json:"status"`
}

// QueueMemberMsg announces a queue member update to all sessions.
type QueueMemberMsg struct {
	Type       string `json:"type"`
	Queue      string `json:"queue"`
	Member     string `json:"member"`
	Status     string `json:"status"`
	Paused     bool   `json:"paused"`
	CallsTaken int    `json:"callsTaken"`
}

// QueueEntryMsg announces a waiting caller to all sessions.
type QueueEntryMsg struct {
	Type     string `json:"type"`
	Queue    string `json:"queue"`
	Position int    `json:"position"`
	CallerID string `json:"callerId"`
	Wait     int    `json:"wait"`
}

// QueueStatusMsg announces queue aggregate counters to all sessions.
type QueueStatusMsg struct {
	Type      string `json:"type"`
	Queue     string `json:"queue"`
	Members   int    `json:"members"`
	Calls     int    `json:"calls"`
	Completed int    `json:"completed"`
}

// CallProgressMsg tracks an outbound dial attempt for the calling operator.
type CallProgressMsg struct {
	Type      string `json:"type"`
	Extension string `json:"extension"`
	Status    string `json:"status"`
}

// CallConnectedMsg tells the calling operator the far end picked up.
type CallConnectedMsg struct {
	Type          string `json:"type"`
	Extension     string `json:"extension"`
	CallerID      string `json:"callerId,omitempty"`
	ConnectedLine string `json:"connectedLine,omitempty"`
}

// CallEndedMsg tells the involved operator their call finished.
type CallEndedMsg struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
	Reason  string `json:"reason"`
}

// DialFailedMsg reports a failed dial attempt to the calling operator.
type DialFailedMsg struct {
	Type      string `json:"type"`
	Extension string `json:"extension"`
	Reason    string `json:"reason"`
}

// IncomingCallMsg announces an inbound ringing call to all sessions.
type IncomingCallMsg struct {
	Type         string `json:"type"`
	Extension    string `json:"extension"`
	Channel      string `json:"channel"`
	CallerID     string `json:"callerId"`
	CallerIDName string `json:"callerIdName"`
}

// CallAnsweredMsg announces a bridged call to all sessions.
type CallAnsweredMsg struct {
	Type            string `json:"type"`
	CallerExtension string `json:"callerExtension"`
	CalleeExtension string `json:"calleeExtension"`
	Channel1        string `json:"channel1"`
	Channel2        string `json:"channel2"`
}

// CallCompletedMsg announces a finished call to all sessions.
type CallCompletedMsg struct {
	Type      string `json:"type"`
	Extension string `json:"extension"`
	Channel   string `json:"channel"`
	Duration  string `json:"duration"`
	Reason    string `json:"reason"`
}

// StatsUpdateMsg carries the periodic statistics snapshot.
type StatsUpdateMsg struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}
