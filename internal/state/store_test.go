package state

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enmanuelbasulto/fop2-clone/internal/models"
)

// testClock returns a clock that advances one second per call.
func testClock() func() time.Time {
	t := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func TestExtensionStatusTransitions(t *testing.T) {
	s := NewStore(WithClock(testClock()))

	s.Apply(models.ExtensionStatusChanged{Extension: "1001", Status: models.StatusRinging})
	s.Apply(models.ExtensionStatusChanged{Extension: "1001", Status: models.StatusInUse})

	ext, ok := s.Extension("1001")
	require.True(t, ok)
	assert.Equal(t, models.StatusInUse, ext.Status)
	require.Len(t, ext.StatusHistory, 2)
	assert.Equal(t, models.StatusUnknown, ext.StatusHistory[0].From, "lazily created extension starts unknown")
	assert.Equal(t, models.StatusRinging, ext.StatusHistory[1].From)
	assert.Equal(t, models.StatusInUse, ext.StatusHistory[1].To)
}

func TestStatusHistoryBounded(t *testing.T) {
	s := NewStore(WithClock(testClock()))

	for i := 0; i < models.MaxStatusHistory+25; i++ {
		status := models.StatusIdle
		if i%2 == 0 {
			status = models.StatusInUse
		}
		s.Apply(models.ExtensionStatusChanged{Extension: "1001", Status: status})
	}

	ext, ok := s.Extension("1001")
	require.True(t, ok)
	assert.Len(t, ext.StatusHistory, models.MaxStatusHistory)
}

func TestQueueEntryReplacesExisting(t *testing.T) {
	s := NewStore(WithClock(testClock()))

	s.Apply(models.QueueEntryChanged{Queue: "support", CallerID: "555", Position: 1, WaitSeconds: 10})
	s.Apply(models.QueueEntryChanged{Queue: "support", CallerID: "666", Position: 2, WaitSeconds: 5})
	s.Apply(models.QueueEntryChanged{Queue: "support", CallerID: "555", Position: 2, WaitSeconds: 40})

	qv, ok := s.Queue("support")
	require.True(t, ok)
	require.Len(t, qv.WaitingEntries, 2, "re-reported caller must replace, not duplicate")

	// Order is last-write, not position order.
	assert.Equal(t, "666", qv.WaitingEntries[0].CallerID)
	assert.Equal(t, "555", qv.WaitingEntries[1].CallerID)
	assert.Equal(t, 40, qv.WaitingEntries[1].WaitSeconds)
}

func TestQueueMemberReplaced(t *testing.T) {
	s := NewStore(WithClock(testClock()))

	s.Apply(models.QueueMemberChanged{Queue: "support", Member: "1001", Status: "1", Paused: true, CallsTaken: 3})
	s.Apply(models.QueueMemberChanged{Queue: "support", Member: "1001", Status: "0", CallsTaken: 4})

	qv, ok := s.Queue("support")
	require.True(t, ok)
	require.Len(t, qv.Agents, 1)
	assert.False(t, qv.Agents[0].Paused, "replace semantics must clear fields absent from the update")
	assert.Equal(t, 4, qv.Agents[0].CallsTaken)
}

func TestQueueStatsPartialUpdate(t *testing.T) {
	s := NewStore(WithClock(testClock()))

	members, calls := 5, 2
	s.Apply(models.QueueStatsChanged{Queue: "support", Members: &members, Calls: &calls})
	s.Apply(models.QueueStatsChanged{Queue: "support", Calls: intPtr(0)})

	qv, ok := s.Queue("support")
	require.True(t, ok)
	assert.Equal(t, 5, qv.Queue.AgentsTotal, "absent field leaves stored value untouched")
	assert.Equal(t, 0, qv.Queue.CallsWaiting)
}

func TestCallLifecycle(t *testing.T) {
	s := NewStore(WithClock(testClock()))

	s.Apply(models.ChannelRinging{
		Channel: "Local/1002@from-internal-0001;1", CallerIDNum: "1001",
		Extension: "1002", Direction: models.DirectionOutbound,
	})
	require.Len(t, s.ActiveCalls(), 1)
	assert.Equal(t, models.CallRinging, s.ActiveCalls()[0].State)

	s.Apply(models.ChannelBridged{
		Channel1: "PJSIP/1001-1", Channel2: "PJSIP/1002-2",
		CallerExt: "1001", CalleeExt: "1002",
	})
	call := s.ActiveCalls()[0]
	assert.Equal(t, models.CallActive, call.State)
	require.NotNil(t, call.AnsweredAt)

	s.Apply(models.ChannelHungUp{
		Channel: "Local/1002@from-internal-0001;1", Extension: "1002",
		CauseText: "Normal hangup",
	})
	assert.Empty(t, s.ActiveCalls())

	recent := s.RecentCalls(10)
	require.Len(t, recent, 1)
	done := recent[0]
	assert.Equal(t, models.CallCompleted, done.State)
	assert.Equal(t, "Normal hangup", done.Reason)
	assert.Greater(t, done.TalkDuration, 0.0)
	assert.Greater(t, done.TotalDuration, done.TalkDuration)
}

func TestRingingDoesNotDuplicateOrRegress(t *testing.T) {
	s := NewStore(WithClock(testClock()))

	ring := models.ChannelRinging{
		Channel: "PJSIP/1002-1", CallerIDNum: "1001",
		Extension: "1002", Direction: models.DirectionInbound,
	}
	s.Apply(ring)
	s.Apply(models.ChannelBridged{CallerExt: "1001", CalleeExt: "1002"})
	s.Apply(ring)

	calls := s.ActiveCalls()
	require.Len(t, calls, 1, "repeated ringing must not create a second call")
	assert.Equal(t, models.CallActive, calls[0].State, "ringing must not regress an active call")
}

func TestAnonymousRingNotTracked(t *testing.T) {
	s := NewStore(WithClock(testClock()))

	s.Apply(models.ChannelRinging{
		Channel: "PJSIP/1003-00000042", CallerIDNum: "",
		Extension: "1003", Direction: models.DirectionInbound,
	})

	assert.Empty(t, s.ActiveCalls(), "a ring without a caller id must not create a call")
}

func TestBridgeWithoutRingingIgnored(t *testing.T) {
	s := NewStore(WithClock(testClock()))
	s.Apply(models.ChannelBridged{CallerExt: "1001", CalleeExt: "1002"})
	assert.Empty(t, s.ActiveCalls())
}

func TestHangupFallsBackToExtension(t *testing.T) {
	s := NewStore(WithClock(testClock()))

	s.Apply(models.ChannelRinging{
		Channel: "Local/1002@from-internal-0001;1", CallerIDNum: "1001",
		Extension: "1002", Direction: models.DirectionOutbound,
	})
	// The hangup arrives on the other call leg; the extension still matches.
	s.Apply(models.ChannelHungUp{Channel: "PJSIP/1002-00000002", Extension: "1002"})

	assert.Empty(t, s.ActiveCalls())
	assert.Equal(t, 1, s.CompletedCount())
}

func TestCompletedHistoryBounded(t *testing.T) {
	s := NewStore(WithClock(testClock()))

	overflow := 5
	for i := 0; i < models.MaxCompletedCalls+overflow; i++ {
		channel := fmt.Sprintf("PJSIP/1002-%d", i)
		s.Apply(models.ChannelRinging{
			Channel: channel, CallerIDNum: fmt.Sprintf("c%d", i),
			Extension: "1002", Direction: models.DirectionInbound,
		})
		s.Apply(models.ChannelHungUp{Channel: channel, Extension: "1002"})
	}

	assert.Equal(t, models.MaxCompletedCalls, s.CompletedCount())

	// Oldest entries are the ones evicted.
	recent := s.RecentCalls(models.MaxCompletedCalls)
	assert.Equal(t, fmt.Sprintf("c%d", overflow), recent[0].Caller)
}

func TestRecentCallsLimit(t *testing.T) {
	s := NewStore(WithClock(testClock()))

	for i := 0; i < 60; i++ {
		channel := fmt.Sprintf("PJSIP/1002-%d", i)
		s.Apply(models.ChannelRinging{Channel: channel, CallerIDNum: "x", Extension: "1002", Direction: models.DirectionInbound})
		s.Apply(models.ChannelHungUp{Channel: channel, Extension: "1002"})
	}

	assert.Len(t, s.RecentCalls(50), 50)
	assert.Len(t, s.RecentCalls(0), 60, "zero limit returns everything")
}

func intPtr(v int) *int { return &v }
