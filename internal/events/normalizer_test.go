package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enmanuelbasulto/fop2-clone/internal/ami"
	"github.com/enmanuelbasulto/fop2-clone/internal/models"
)

func TestStatusFromCode(t *testing.T) {
	cases := map[string]models.ExtensionStatus{
		"0":   models.StatusIdle,
		"1":   models.StatusInUse,
		"2":   models.StatusBusy,
		"4":   models.StatusRinging,
		"8":   models.StatusRinging,
		"16":  models.StatusUnavailable,
		"32":  models.StatusUnknown,
		"-1":  models.StatusUnknown,
		"":    models.StatusUnknown,
		"abc": models.StatusUnknown,
	}
	for code, want := range cases {
		assert.Equal(t, want, StatusFromCode(code), "code %q", code)
	}
}

func TestExtensionFromChannel(t *testing.T) {
	cases := map[string]string{
		"Local/1002@from-internal-0001;2": "1002",
		"PJSIP/1001-00000042":             "1001",
		"SIP/1003-0000000a":               "1003",
		"DAHDI/1004-1":                    "1004",
		"IAX2/provider-1234":              "",
		"":                                "",
	}
	for channel, want := range cases {
		assert.Equal(t, want, ExtensionFromChannel(channel), "channel %q", channel)
	}

	// Local must win over an embedded technology match.
	assert.Equal(t, "1002", ExtensionFromChannel("Local/1002@ctx;SIP/9999"))
}

func TestNormalizeExtensionStatus(t *testing.T) {
	n := NewNormalizer(nil)

	ev, ok := n.Normalize(ami.RawEvent{
		Name:   "ExtensionStatus",
		Fields: map[string]string{"exten": "1001", "status": "1"},
	})
	require.True(t, ok)
	changed, ok := ev.(models.ExtensionStatusChanged)
	require.True(t, ok)
	assert.Equal(t, "1001", changed.Extension)
	assert.Equal(t, models.StatusInUse, changed.Status)

	_, ok = n.Normalize(ami.RawEvent{Name: "ExtensionStatus", Fields: map[string]string{"status": "1"}})
	assert.False(t, ok, "missing exten should drop the event")
}

func TestNormalizeQueueEvents(t *testing.T) {
	n := NewNormalizer(nil)

	t.Run("member", func(t *testing.T) {
		ev, ok := n.Normalize(ami.RawEvent{
			Name: "QueueMemberStatus",
			Fields: map[string]string{
				"queue": "support", "membername": "1001",
				"status": "1", "paused": "1", "callstaken": "7",
			},
		})
		require.True(t, ok)
		m := ev.(models.QueueMemberChanged)
		assert.Equal(t, "support", m.Queue)
		assert.Equal(t, "1001", m.Member)
		assert.True(t, m.Paused)
		assert.Equal(t, 7, m.CallsTaken)
	})

	t.Run("entry", func(t *testing.T) {
		ev, ok := n.Normalize(ami.RawEvent{
			Name: "QueueEntry",
			Fields: map[string]string{
				"queue": "support", "calleridnum": "5551234",
				"position": "2", "wait": "45",
			},
		})
		require.True(t, ok)
		e := ev.(models.QueueEntryChanged)
		assert.Equal(t, "5551234", e.CallerID)
		assert.Equal(t, 2, e.Position)
		assert.Equal(t, 45, e.WaitSeconds)
	})

	t.Run("params with partial fields", func(t *testing.T) {
		ev, ok := n.Normalize(ami.RawEvent{
			Name:   "QueueParams",
			Fields: map[string]string{"queue": "support", "calls": "3"},
		})
		require.True(t, ok)
		st := ev.(models.QueueStatsChanged)
		require.NotNil(t, st.Calls)
		assert.Equal(t, 3, *st.Calls)
		assert.Nil(t, st.Members, "absent field must stay nil")
		assert.Nil(t, st.Completed)
	})
}

func TestNormalizeNewChannel(t *testing.T) {
	n := NewNormalizer(nil)

	t.Run("outbound local origination", func(t *testing.T) {
		ev, ok := n.Normalize(ami.RawEvent{
			Name: "Newchannel",
			Fields: map[string]string{
				"channel":     "Local/1002@from-internal-0001;1",
				"calleridnum": "1001",
			},
		})
		require.True(t, ok)
		r := ev.(models.ChannelRinging)
		assert.Equal(t, models.DirectionOutbound, r.Direction)
		assert.Equal(t, "1002", r.Extension)
		assert.Equal(t, "1001", r.CallerIDNum)
	})

	t.Run("inbound ringing channel", func(t *testing.T) {
		ev, ok := n.Normalize(ami.RawEvent{
			Name: "Newchannel",
			Fields: map[string]string{
				"channel":      "PJSIP/1003-00000001",
				"channelstate": "5",
				"calleridnum":  "5551234",
				"calleridname": "Outside Caller",
			},
		})
		require.True(t, ok)
		r := ev.(models.ChannelRinging)
		assert.Equal(t, models.DirectionInbound, r.Direction)
		assert.Equal(t, "1003", r.Extension)
	})

	t.Run("idle channel ignored", func(t *testing.T) {
		_, ok := n.Normalize(ami.RawEvent{
			Name:   "Newchannel",
			Fields: map[string]string{"channel": "PJSIP/1003-00000001", "channelstate": "0"},
		})
		assert.False(t, ok)
	})
}

func TestNormalizeBridge(t *testing.T) {
	n := NewNormalizer(nil)

	ev, ok := n.Normalize(ami.RawEvent{
		Name: "Bridge",
		Fields: map[string]string{
			"bridgestate": "Link",
			"channel1":    "PJSIP/1001-00000001",
			"channel2":    "PJSIP/1002-00000002",
		},
	})
	require.True(t, ok)
	b := ev.(models.ChannelBridged)
	assert.Equal(t, "1001", b.CallerExt)
	assert.Equal(t, "1002", b.CalleeExt)

	_, ok = n.Normalize(ami.RawEvent{
		Name:   "Bridge",
		Fields: map[string]string{"bridgestate": "Unlink", "channel1": "PJSIP/1001-1", "channel2": "PJSIP/1002-2"},
	})
	assert.False(t, ok, "only Link bridges are call answers")
}

func TestNormalizeHangup(t *testing.T) {
	n := NewNormalizer(nil)

	t.Run("known channel", func(t *testing.T) {
		ev, ok := n.Normalize(ami.RawEvent{
			Name:   "Hangup",
			Fields: map[string]string{"channel": "PJSIP/1001-00000001", "cause": "16", "duration": "42"},
		})
		require.True(t, ok)
		h := ev.(models.ChannelHungUp)
		assert.Equal(t, "1001", h.Extension)
		assert.Equal(t, "Normal hangup", h.CauseText)
		assert.Equal(t, "42", h.Duration)
	})

	t.Run("unmatchable channel still emitted", func(t *testing.T) {
		ev, ok := n.Normalize(ami.RawEvent{
			Name:   "Hangup",
			Fields: map[string]string{"channel": "IAX2/provider-1234", "cause": "17"},
		})
		require.True(t, ok)
		h := ev.(models.ChannelHungUp)
		assert.Empty(t, h.Extension)
		assert.Equal(t, "Destination busy", h.CauseText)
	})

	t.Run("no channel dropped", func(t *testing.T) {
		_, ok := n.Normalize(ami.RawEvent{Name: "Hangup", Fields: map[string]string{"cause": "16"}})
		assert.False(t, ok)
	})
}

func TestNormalizeUnknownEvent(t *testing.T) {
	n := NewNormalizer(nil)
	_, ok := n.Normalize(ami.RawEvent{Name: "FullyBooted", Fields: map[string]string{}})
	assert.False(t, ok)
}
