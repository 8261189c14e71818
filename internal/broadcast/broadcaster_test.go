package broadcast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enmanuelbasulto/fop2-clone/internal/models"
	"github.com/enmanuelbasulto/fop2-clone/internal/sessions"
)

type stubConn struct {
	sent []any
	full bool
}

func (c *stubConn) Send(msg any) bool {
	if c.full {
		return false
	}
	c.sent = append(c.sent, msg)
	return true
}

func (c *stubConn) Close(code int, reason string) {}

func setup(t *testing.T) (*Broadcaster, *stubConn, *stubConn, *stubConn) {
	t.Helper()
	reg := sessions.NewRegistry()
	alice, bob := &stubConn{}, &stubConn{}
	pending := &stubConn{}

	sa := reg.Register("t1", "", alice)
	require.NoError(t, reg.Authenticate(sa, "1001", "Alice"))
	sb := reg.Register("t2", "", bob)
	require.NoError(t, reg.Authenticate(sb, "1002", "Bob"))
	reg.Register("t3", "", pending)

	return New(reg, nil), alice, bob, pending
}

func TestExtensionStatusGoesToEveryone(t *testing.T) {
	b, alice, bob, pending := setup(t)

	b.Dispatch(models.ExtensionStatusChanged{Extension: "1003", Status: models.StatusInUse})

	require.Len(t, alice.sent, 1)
	require.Len(t, bob.sent, 1)
	assert.Empty(t, pending.sent, "unauthenticated sessions receive nothing")

	msg := alice.sent[0].(models.ExtensionStatusMsg)
	assert.Equal(t, models.TypeExtensionStatus, msg.Type)
	assert.Equal(t, "inuse", msg.Status)
}

func TestOutboundRingingOnlyReachesCaller(t *testing.T) {
	b, alice, bob, _ := setup(t)

	b.Dispatch(models.ChannelRinging{
		Channel: "Local/1002@ctx;1", CallerIDNum: "1001",
		Extension: "1002", Direction: models.DirectionOutbound,
	})

	require.Len(t, alice.sent, 1)
	assert.Empty(t, bob.sent)
	msg := alice.sent[0].(models.CallProgressMsg)
	assert.Equal(t, "Ringing", msg.Status)
	assert.Equal(t, "1002", msg.Extension)
}

func TestInboundRingingAnnouncedToAll(t *testing.T) {
	b, alice, bob, _ := setup(t)

	b.Dispatch(models.ChannelRinging{
		Channel: "PJSIP/1002-1", Extension: "1002",
		Direction: models.DirectionInbound,
	})

	require.Len(t, alice.sent, 1)
	require.Len(t, bob.sent, 1)
	msg := bob.sent[0].(models.IncomingCallMsg)
	assert.Equal(t, "Unknown", msg.CallerID, "missing caller id reads Unknown")
	assert.Equal(t, "Unknown", msg.CallerIDName)
}

func TestBridgeMessages(t *testing.T) {
	b, alice, bob, _ := setup(t)

	b.Dispatch(models.ChannelBridged{
		Channel1: "PJSIP/1001-1", Channel2: "PJSIP/1002-2",
		CallerExt: "1001", CalleeExt: "1002",
	})

	// Caller gets callConnected plus the global callAnswered.
	require.Len(t, alice.sent, 2)
	connected := alice.sent[0].(models.CallConnectedMsg)
	assert.Equal(t, "1002", connected.Extension)
	// Everyone else just gets callAnswered.
	require.Len(t, bob.sent, 1)
	answered := bob.sent[0].(models.CallAnsweredMsg)
	assert.Equal(t, "1001", answered.CallerExtension)
}

func TestHangupMessages(t *testing.T) {
	b, alice, bob, _ := setup(t)

	t.Run("with extension", func(t *testing.T) {
		b.Dispatch(models.ChannelHungUp{
			Channel: "PJSIP/1001-1", Extension: "1001",
			CauseText: "Normal hangup", Duration: "42",
		})
		require.Len(t, alice.sent, 2, "involved operator gets callEnded and callCompleted")
		ended := alice.sent[0].(models.CallEndedMsg)
		assert.Equal(t, "Normal hangup", ended.Reason)
		require.Len(t, bob.sent, 1)
	})

	t.Run("without extension", func(t *testing.T) {
		alice.sent, bob.sent = nil, nil
		b.Dispatch(models.ChannelHungUp{Channel: "IAX2/trunk-1", CauseText: "Normal hangup"})
		require.Len(t, alice.sent, 1, "no per-user delivery without an extension")
		completed := alice.sent[0].(models.CallCompletedMsg)
		assert.Equal(t, "0", completed.Duration, "missing duration defaults to 0")
	})
}

func TestSlowSocketDoesNotBlockOthers(t *testing.T) {
	b, alice, bob, _ := setup(t)
	alice.full = true

	b.Dispatch(models.ExtensionStatusChanged{Extension: "1003", Status: models.StatusIdle})

	assert.Empty(t, alice.sent)
	assert.Len(t, bob.sent, 1, "drop on one session never affects another")
}
