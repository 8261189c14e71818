// Package commands validates operator commands and turns them into
// control-channel actions.
package commands

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"time"

	"github.com/enmanuelbasulto/fop2-clone/internal/ami"
	"github.com/enmanuelbasulto/fop2-clone/internal/broadcast"
	"github.com/enmanuelbasulto/fop2-clone/internal/metrics"
	"github.com/enmanuelbasulto/fop2-clone/internal/models"
	"github.com/enmanuelbasulto/fop2-clone/internal/sessions"
)

var extensionPattern = regexp.MustCompile(`^\d+$`)

// DialContext is the dialplan context panel calls run through.
const DialContext = "from-internal"

// actionTimeout bounds how long a command waits for the exchange's reply.
// There is no cancellation of the action itself; a slow reply just completes
// late and its effect stands.
const actionTimeout = 30 * time.Second

// Router translates authenticated operator commands into exchange actions
// and routes results back to the originating session.
type Router struct {
	link        ami.ActionSender
	broadcaster *broadcast.Broadcaster
	logger      *log.Logger
}

// NewRouter builds a command router.
func NewRouter(link ami.ActionSender, b *broadcast.Broadcaster, logger *log.Logger) *Router {
	if logger == nil {
		logger = log.Default()
	}
	return &Router{link: link, broadcaster: b, logger: logger}
}

// Handle processes one operator command. Unauthenticated sessions get an
// error reply and nothing reaches the exchange.
func (r *Router) Handle(s *sessions.Session, msg models.ClientMessage) {
	if !s.Authenticated {
		s.Send(models.ErrorMsg{Type: models.TypeError, Message: "Not authenticated"})
		return
	}
	metrics.Get().Commands.WithLabelValues(msg.Action).Inc()

	switch msg.Action {
	case models.ActionDial:
		r.dial(s, msg.Extension)
	case models.ActionHangup:
		r.hangup(s, msg.Channel)
	case models.ActionTransfer:
		r.transfer(s, msg.Channel, msg.Target)
	case models.ActionSpy:
		r.spy(s, msg.Channel, "spy")
	case models.ActionWhisper:
		r.spy(s, msg.Channel, "whisper")
	case models.ActionPause:
		r.pause(s, msg.Queue, msg.Pause)
	case models.ActionAnswer:
		r.answer(s, msg.Channel, msg.Extension)
	default:
		r.logger.Printf("commands: unknown action %q from %s", msg.Action, s.Extension)
		s.Send(models.ErrorMsg{
			Type:    models.TypeError,
			Message: fmt.Sprintf("Unknown action: %s", msg.Action),
		})
	}
}

// dial originates a call from the operator to the target extension. The
// caller sees callProgress right away; success is then narrated by exchange
// events, only failures come back directly.
func (r *Router) dial(s *sessions.Session, target string) {
	caller := s.Extension
	if !extensionPattern.MatchString(target) {
		r.logger.Printf("commands: dial rejected, invalid target %q from %s", target, caller)
		r.broadcaster.BroadcastToUser(caller, models.DialFailedMsg{
			Type:      models.TypeDialFailed,
			Extension: target,
			Reason:    "Invalid extension format - numbers only",
		})
		return
	}

	r.broadcaster.BroadcastToUser(caller, models.CallProgressMsg{
		Type:      models.TypeCallProgress,
		Extension: target,
		Status:    "Dialing...",
	})

	action := ami.Action{
		Name: "Originate",
		Fields: map[string]string{
			"Channel":  fmt.Sprintf("Local/%s@%s", target, DialContext),
			"Context":  DialContext,
			"Exten":    "s",
			"Priority": "1",
			"CallerID": fmt.Sprintf("Operator %s <%s>", caller, caller),
			"Timeout":  "30000",
			"Async":    "yes",
		},
	}
	r.submit(action, func(err error) {
		if err == nil {
			r.logger.Printf("commands: dial %s -> %s submitted", caller, target)
			return
		}
		r.logger.Printf("commands: dial %s -> %s failed: %v", caller, target, err)
		r.broadcaster.BroadcastToUser(caller, models.DialFailedMsg{
			Type:      models.TypeDialFailed,
			Extension: target,
			Reason:    err.Error(),
		})
	})
}

func (r *Router) hangup(s *sessions.Session, channel string) {
	action := ami.Action{
		Name:   "Hangup",
		Fields: map[string]string{"Channel": channel},
	}
	r.submit(action, func(err error) {
		if err != nil {
			r.logger.Printf("commands: hangup of %s by %s failed: %v", channel, s.Extension, err)
		}
	})
}

func (r *Router) transfer(s *sessions.Session, channel, target string) {
	if target == "" {
		s.Send(models.ErrorMsg{Type: models.TypeError, Message: "Transfer target required"})
		return
	}
	action := ami.Action{
		Name: "Redirect",
		Fields: map[string]string{
			"Channel":  channel,
			"Context":  DialContext,
			"Exten":    target,
			"Priority": "1",
		},
	}
	r.submit(action, func(err error) {
		if err != nil {
			r.logger.Printf("commands: transfer of %s to %s by %s failed: %v", channel, target, s.Extension, err)
		}
	})
}

// spy originates a listen-in channel toward the operator; mode selects the
// dialplan entry ("spy" is silent, "whisper" can talk to the agent).
func (r *Router) spy(s *sessions.Session, channel, mode string) {
	if channel == "" {
		s.Send(models.ErrorMsg{Type: models.TypeError, Message: "Target channel required"})
		return
	}
	callerLabel := "Spy"
	if mode == "whisper" {
		callerLabel = "Coach"
	}
	action := ami.Action{
		Name: "Originate",
		Fields: map[string]string{
			"Channel":  fmt.Sprintf("Local/%s@%s", s.Extension, DialContext),
			"Context":  DialContext,
			"Exten":    mode,
			"Priority": "1",
			"CallerID": fmt.Sprintf("%s <%s>", callerLabel, s.Extension),
			"Variable": fmt.Sprintf("SPY_CHANNEL=%s", channel),
		},
	}
	r.submit(action, func(err error) {
		if err != nil {
			r.logger.Printf("commands: %s on %s by %s failed: %v", mode, channel, s.Extension, err)
		}
	})
}

func (r *Router) pause(s *sessions.Session, queue string, pause *bool) {
	if queue == "" {
		s.Send(models.ErrorMsg{Type: models.TypeError, Message: "Queue name required"})
		return
	}
	paused := "1"
	if pause != nil && !*pause {
		paused = "0"
	}
	action := ami.Action{
		Name: "QueuePause",
		Fields: map[string]string{
			"Interface": fmt.Sprintf("Local/%s@%s", s.Extension, DialContext),
			"Queue":     queue,
			"Paused":    paused,
		},
	}
	r.submit(action, func(err error) {
		if err != nil {
			r.logger.Printf("commands: queue pause for %s in %s failed: %v", s.Extension, queue, err)
		}
	})
}

func (r *Router) answer(s *sessions.Session, channel, extension string) {
	if channel == "" || extension == "" {
		s.Send(models.ErrorMsg{Type: models.TypeError, Message: "Channel and extension required"})
		return
	}
	action := ami.Action{
		Name: "Redirect",
		Fields: map[string]string{
			"Channel":  channel,
			"Context":  DialContext,
			"Exten":    extension,
			"Priority": "1",
		},
	}
	r.submit(action, func(err error) {
		if err != nil {
			r.logger.Printf("commands: answer of %s at %s by %s failed: %v", channel, extension, s.Extension, err)
		}
	})
}

// submit runs the action off the caller's goroutine so command handling
// never blocks on the exchange. done always runs, with the action error or
// nil; the exchange may still reject an accepted action later, which then
// surfaces as events.
func (r *Router) submit(action ami.Action, done func(error)) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		resp, err := r.link.Do(ctx, action)
		if err == nil && !resp.Success {
			err = fmt.Errorf("%s", resp.Message)
		}
		done(err)
	}()
}
