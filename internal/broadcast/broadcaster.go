// Package broadcast fans domain updates out to operator sessions.
package broadcast

import (
	"log"

	"github.com/enmanuelbasulto/fop2-clone/internal/metrics"
	"github.com/enmanuelbasulto/fop2-clone/internal/models"
	"github.com/enmanuelbasulto/fop2-clone/internal/sessions"
)

// Broadcaster delivers messages to the matching subset of authenticated
// sessions. Delivery is fire-and-forget per session: one dead socket never
// blocks the others, and nothing is retried — the next state change
// resynchronizes a reconnecting client.
type Broadcaster struct {
	registry *sessions.Registry
	logger   *log.Logger
}

// New builds a broadcaster over the given registry.
func New(registry *sessions.Registry, logger *log.Logger) *Broadcaster {
	if logger == nil {
		logger = log.Default()
	}
	return &Broadcaster{registry: registry, logger: logger}
}

// BroadcastAll sends a message to every authenticated session.
func (b *Broadcaster) BroadcastAll(msg any) {
	for _, s := range b.registry.Authenticated() {
		b.send(s, msg)
	}
}

// BroadcastToUser sends a message to every authenticated session logged in
// as the given extension.
func (b *Broadcaster) BroadcastToUser(extension string, msg any) {
	for _, s := range b.registry.ForExtension(extension) {
		b.send(s, msg)
	}
}

func (b *Broadcaster) send(s *sessions.Session, msg any) {
	if s.Send(msg) {
		metrics.Get().BroadcastsSent.Inc()
		return
	}
	metrics.Get().BroadcastsDropped.Inc()
	b.logger.Printf("broadcast: dropped message for extension %s (slow or closed socket)", s.Extension)
}

// Dispatch translates one domain event into its panel messages and routes
// each globally or per-user.
func (b *Broadcaster) Dispatch(ev models.Event) {
	switch e := ev.(type) {
	case models.ExtensionStatusChanged:
		b.BroadcastAll(models.ExtensionStatusMsg{
			Type:      models.TypeExtensionStatus,
			Extension: e.Extension,
			Status:    string(e.Status),
		})

	case models.QueueMemberChanged:
		b.BroadcastAll(models.QueueMemberMsg{
			Type:       models.TypeQueueMember,
			Queue:      e.Queue,
			Member:     e.Member,
			Status:     e.Status,
			Paused:     e.Paused,
			CallsTaken: e.CallsTaken,
		})

	case models.QueueEntryChanged:
		b.BroadcastAll(models.QueueEntryMsg{
			Type:     models.TypeQueueEntry,
			Queue:    e.Queue,
			Position: e.Position,
			CallerID: e.CallerID,
			Wait:     e.WaitSeconds,
		})

	case models.QueueStatsChanged:
		msg := models.QueueStatusMsg{Type: models.TypeQueueStatus, Queue: e.Queue}
		if e.Members != nil {
			msg.Members = *e.Members
		}
		if e.Calls != nil {
			msg.Calls = *e.Calls
		}
		if e.Completed != nil {
			msg.Completed = *e.Completed
		}
		b.BroadcastAll(msg)

	case models.ChannelRinging:
		if e.Direction == models.DirectionOutbound {
			b.BroadcastToUser(e.CallerIDNum, models.CallProgressMsg{
				Type:      models.TypeCallProgress,
				Extension: e.Extension,
				Status:    "Ringing",
			})
			return
		}
		callerID := e.CallerIDNum
		if callerID == "" {
			callerID = "Unknown"
		}
		callerName := e.CallerIDName
		if callerName == "" {
			callerName = "Unknown"
		}
		b.BroadcastAll(models.IncomingCallMsg{
			Type:         models.TypeIncomingCall,
			Extension:    e.Extension,
			Channel:      e.Channel,
			CallerID:     callerID,
			CallerIDName: callerName,
		})

	case models.ChannelBridged:
		b.BroadcastToUser(e.CallerExt, models.CallConnectedMsg{
			Type:          models.TypeCallConnected,
			Extension:     e.CalleeExt,
			CallerID:      e.CallerID1,
			ConnectedLine: e.CallerID2,
		})
		b.BroadcastAll(models.CallAnsweredMsg{
			Type:            models.TypeCallAnswered,
			CallerExtension: e.CallerExt,
			CalleeExtension: e.CalleeExt,
			Channel1:        e.Channel1,
			Channel2:        e.Channel2,
		})

	case models.ChannelHungUp:
		if e.Extension != "" {
			b.BroadcastToUser(e.Extension, models.CallEndedMsg{
				Type:    models.TypeCallEnded,
				Channel: e.Channel,
				Reason:  e.CauseText,
			})
		}
		duration := e.Duration
		if duration == "" {
			duration = "0"
		}
		b.BroadcastAll(models.CallCompletedMsg{
			Type:      models.TypeCallCompleted,
			Extension: e.Extension,
			Channel:   e.Channel,
			Duration:  duration,
			Reason:    e.CauseText,
		})
	}
}
