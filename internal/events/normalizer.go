// Package events turns raw exchange events into the panel's typed domain
// events. Anything that cannot be mapped is dropped and logged, never
// propagated.
package events

import (
	"log"
	"regexp"
	"strconv"
	"strings"

	"github.com/enmanuelbasulto/fop2-clone/internal/ami"
	"github.com/enmanuelbasulto/fop2-clone/internal/models"
)

// channelMatchers extract the extension from a raw channel name. Order is the
// match priority: the Local pattern wins over the trunk technologies.
var channelMatchers = []*regexp.Regexp{
	regexp.MustCompile(`Local/(\d+)@`),
	regexp.MustCompile(`PJSIP/(\d+)`),
	regexp.MustCompile(`SIP/(\d+)`),
	regexp.MustCompile(`DAHDI/(\d+)`),
}

// ExtensionFromChannel pulls the extension out of a channel name using the
// known naming conventions. Returns "" when none match.
func ExtensionFromChannel(channel string) string {
	for _, re := range channelMatchers {
		if m := re.FindStringSubmatch(channel); m != nil {
			return m[1]
		}
	}
	return ""
}

// StatusFromCode maps the exchange's numeric device state to a panel status.
// The table is fixed; unlisted codes map to unknown.
func StatusFromCode(code string) models.ExtensionStatus {
	switch code {
	case "0":
		return models.StatusIdle
	case "1":
		return models.StatusInUse
	case "2":
		return models.StatusBusy
	case "4", "8":
		return models.StatusRinging
	case "16":
		return models.StatusUnavailable
	default:
		return models.StatusUnknown
	}
}

// Normalizer maps raw exchange events onto the closed domain event set.
type Normalizer struct {
	logger *log.Logger
}

// NewNormalizer builds a normalizer. A nil logger falls back to the default.
func NewNormalizer(logger *log.Logger) *Normalizer {
	if logger == nil {
		logger = log.Default()
	}
	return &Normalizer{logger: logger}
}

// Normalize produces zero or one domain event for a raw exchange event. The
// second return is false when the event carries nothing the panel tracks.
func (n *Normalizer) Normalize(raw ami.RawEvent) (models.Event, bool) {
	switch strings.ToLower(raw.Name) {
	case "extensionstatus":
		return n.extensionStatus(raw)
	case "queuemember", "queuememberstatus":
		return n.queueMember(raw)
	case "queueentry":
		return n.queueEntry(raw)
	case "queuestatus", "queueparams":
		return n.queueStats(raw)
	case "newchannel":
		return n.newChannel(raw)
	case "newstate":
		return n.newState(raw)
	case "bridge", "bridgestate":
		return n.bridge(raw)
	case "hangup":
		return n.hangup(raw)
	default:
		return nil, false
	}
}

func (n *Normalizer) extensionStatus(raw ami.RawEvent) (models.Event, bool) {
	ext := raw.Get("exten")
	if ext == "" {
		n.logger.Printf("events: extension status without exten field, dropping")
		return nil, false
	}
	return models.ExtensionStatusChanged{
		Extension: ext,
		Status:    StatusFromCode(raw.Get("status")),
	}, true
}

func (n *Normalizer) queueMember(raw ami.RawEvent) (models.Event, bool) {
	queue := raw.Get("queue")
	member := raw.Get("membername")
	if member == "" {
		member = raw.Get("member")
	}
	if queue == "" || member == "" {
		n.logger.Printf("events: incomplete queue member event, dropping")
		return nil, false
	}
	taken, _ := strconv.Atoi(raw.Get("callstaken"))
	return models.QueueMemberChanged{
		Queue:      queue,
		Member:     member,
		Status:     raw.Get("status"),
		Paused:     raw.Get("paused") == "1",
		CallsTaken: taken,
	}, true
}

func (n *Normalizer) queueEntry(raw ami.RawEvent) (models.Event, bool) {
	queue := raw.Get("queue")
	caller := raw.Get("callerid")
	if caller == "" {
		caller = raw.Get("calleridnum")
	}
	if queue == "" || caller == "" {
		n.logger.Printf("events: incomplete queue entry event, dropping")
		return nil, false
	}
	position, _ := strconv.Atoi(raw.Get("position"))
	wait, _ := strconv.Atoi(raw.Get("wait"))
	return models.QueueEntryChanged{
		Queue:       queue,
		CallerID:    caller,
		Position:    position,
		WaitSeconds: wait,
	}, true
}

func (n *Normalizer) queueStats(raw ami.RawEvent) (models.Event, bool) {
	queue := raw.Get("queue")
	if queue == "" {
		return nil, false
	}
	ev := models.QueueStatsChanged{Queue: queue}
	if v, ok := raw.Fields["members"]; ok {
		if x, err := strconv.Atoi(v); err == nil {
			ev.Members = &x
		}
	}
	if v, ok := raw.Fields["calls"]; ok {
		if x, err := strconv.Atoi(v); err == nil {
			ev.Calls = &x
		}
	}
	if v, ok := raw.Fields["completed"]; ok {
		if x, err := strconv.Atoi(v); err == nil {
			ev.Completed = &x
		}
	}
	return ev, true
}

// newChannel recognizes two call starts: a panel-originated Local channel
// with a known caller (outbound), and a channel already ringing with caller
// id (inbound).
func (n *Normalizer) newChannel(raw ami.RawEvent) (models.Event, bool) {
	channel := raw.Get("channel")
	callerID := raw.Get("calleridnum")

	if strings.HasPrefix(channel, "Local/") && callerID != "" {
		target := localTarget(channel)
		if target == "" {
			n.logger.Printf("events: unparseable Local channel %q, dropping", channel)
			return nil, false
		}
		return models.ChannelRinging{
			Channel:      channel,
			CallerIDNum:  callerID,
			CallerIDName: raw.Get("calleridname"),
			Extension:    target,
			Direction:    models.DirectionOutbound,
		}, true
	}

	state := raw.Get("channelstate")
	if (state == "4" || state == "5") && callerID != "" {
		return n.ringingChannel(raw)
	}
	return nil, false
}

func (n *Normalizer) newState(raw ami.RawEvent) (models.Event, bool) {
	state := raw.Get("channelstate")
	if state != "4" && state != "5" {
		return nil, false
	}
	return n.ringingChannel(raw)
}

func (n *Normalizer) ringingChannel(raw ami.RawEvent) (models.Event, bool) {
	channel := raw.Get("channel")
	ext := ExtensionFromChannel(channel)
	if ext == "" {
		n.logger.Printf("events: no extension in channel %q, dropping", channel)
		return nil, false
	}
	return models.ChannelRinging{
		Channel:      channel,
		CallerIDNum:  raw.Get("calleridnum"),
		CallerIDName: raw.Get("calleridname"),
		Extension:    ext,
		Direction:    models.DirectionInbound,
	}, true
}

func (n *Normalizer) bridge(raw ami.RawEvent) (models.Event, bool) {
	if !strings.EqualFold(raw.Get("bridgestate"), "Link") {
		return nil, false
	}
	ch1 := raw.Get("channel1")
	ch2 := raw.Get("channel2")
	callerExt := ExtensionFromChannel(ch1)
	calleeExt := ExtensionFromChannel(ch2)
	if callerExt == "" || calleeExt == "" {
		n.logger.Printf("events: bridge with unmatchable channels %q/%q, dropping", ch1, ch2)
		return nil, false
	}
	return models.ChannelBridged{
		Channel1:  ch1,
		Channel2:  ch2,
		CallerExt: callerExt,
		CalleeExt: calleeExt,
		CallerID1: raw.Get("callerid1"),
		CallerID2: raw.Get("callerid2"),
	}, true
}

// hangup keeps the event even when the channel matches no naming convention:
// the channel name alone still correlates the call. Extension stays empty in
// that case and per-user delivery is skipped downstream.
func (n *Normalizer) hangup(raw ami.RawEvent) (models.Event, bool) {
	channel := raw.Get("channel")
	if channel == "" {
		n.logger.Printf("events: hangup without channel, dropping")
		return nil, false
	}
	cause := raw.Get("cause")
	causeText := raw.Get("cause-txt")
	if causeText == "" {
		causeText = CauseText(cause)
	}
	return models.ChannelHungUp{
		Channel:   channel,
		Extension: ExtensionFromChannel(channel),
		Cause:     cause,
		CauseText: causeText,
		Duration:  raw.Get("duration"),
	}, true
}

// localTarget extracts the dialed extension from "Local/<ext>@<context>...".
func localTarget(channel string) string {
	rest := strings.TrimPrefix(channel, "Local/")
	target, _, found := strings.Cut(rest, "@")
	if !found {
		return ""
	}
	return target
}
