package game

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatRateLimitMute(t *testing.T) {
	h := newHarness(t, nil)
	h.privateRoom(t)

	for i := 1; i <= 5; i++ {
		require.NoError(t, h.e.Relay(1, fmt.Sprintf("m%d", i)))
		h.clk.Advance(100 * time.Millisecond)
	}
	for i := 1; i <= 4; i++ {
		assert.Equal(t, 1, h.count(2, fmt.Sprintf("@u1: m%d", i)), "m%d", i)
	}
	assert.Equal(t, 0, h.count(2, "@u1: m5"))
	assert.Equal(t, 1, h.count(1, msgMuted))

	h.clk.Advance(1500 * time.Millisecond)
	require.NoError(t, h.e.Relay(1, "m6"))
	assert.Equal(t, 0, h.count(3, "@u1: m6"))
	assert.Equal(t, 1, h.count(1, msgMuted))
	assert.Equal(t, 0, h.count(1, msgVisibleAgain))

	h.clk.Advance(4 * time.Second)
	require.NoError(t, h.e.Relay(1, "back"))
	assert.Equal(t, 1, h.count(2, "@u1: back"))
	assert.Equal(t, 1, h.count(1, msgVisibleAgain))

	require.NoError(t, h.e.Relay(1, "again"))
	assert.Equal(t, 1, h.count(1, msgVisibleAgain))
}

func TestChatVisibleAgainWaitsForAdmittedMessage(t *testing.T) {
	h := newHarness(t, nil)
	h.privateRoom(t)

	for i := 1; i <= 5; i++ {
		require.NoError(t, h.e.Relay(1, fmt.Sprintf("m%d", i)))
		h.clk.Advance(100 * time.Millisecond)
	}
	require.Equal(t, 1, h.count(1, msgMuted))

	h.clk.Advance(6 * time.Second)
	long := strings.Repeat("я", 121)
	assert.ErrorIs(t, h.e.Relay(1, long), ErrMessageTooLong)
	assert.Equal(t, 0, h.count(1, msgVisibleAgain))

	require.NoError(t, h.e.Relay(1, "ok"))
	assert.Equal(t, 1, h.count(2, "@u1: ok"))
	assert.Equal(t, 1, h.count(1, msgVisibleAgain))

	require.NoError(t, h.e.Relay(1, "ok2"))
	assert.Equal(t, 1, h.count(1, msgVisibleAgain))
}

func TestRateStateWindowSlides(t *testing.T) {
	s := &rateState{}
	at := func(ms int) time.Time { return testStart.Add(time.Duration(ms) * time.Millisecond) }
	check := func(ms int) verdict { return s.check(at(ms), time.Second, 4, 5*time.Second) }

	for _, ms := range []int{0, 300, 600, 900} {
		assert.Equal(t, verdictAdmit, check(ms))
	}
	// 0ms のメッセージは窓から外れている
	assert.Equal(t, verdictAdmit, check(1050))
	assert.Equal(t, verdictMute, check(1100))
	assert.Equal(t, verdictDrop, check(2000))
	assert.Equal(t, verdictDrop, check(6099))
	assert.Equal(t, verdictAdmit, check(6100))
	assert.True(t, s.visibleAgain)
}

func TestChatLengthAndAdminExemption(t *testing.T) {
	h := newHarness(t, nil)
	r := h.privateRoom(t)

	long := strings.Repeat("я", 121)
	assert.ErrorIs(t, h.e.Relay(2, long), ErrMessageTooLong)
	assert.Equal(t, 0, h.count(1, "@u2: "+long))
	require.NoError(t, h.e.Relay(2, strings.Repeat("я", 120)))

	h.e.SetAdmins([]int64{1})
	for i := 0; i < 105; i++ {
		require.NoError(t, h.e.Relay(1, fmt.Sprintf("%d %s", i, long)))
	}
	assert.Equal(t, 0, h.count(1, msgMuted))
	assert.Equal(t, 1, h.count(3, "@u1: 104 "+long))

	assert.Len(t, r.Messages, 100)
	assert.Equal(t, "@u1: 5 "+long, r.Messages[0])
	assert.Equal(t, "@u1: 104 "+long, r.Messages[99])
}

func TestChatUsesCallsignDuringRound(t *testing.T) {
	h := newHarness(t, nil)
	r := h.privateRoom(t)
	h.startWith(t, r, 2, "Банк")

	require.NoError(t, h.e.Relay(2, "привет"))
	assert.Equal(t, 1, h.count(1, Callsigns[1]+": привет"))
	assert.Equal(t, 0, h.count(2, Callsigns[1]+": привет"))

	h.advance(1081 * time.Second)
	require.True(t, r.LastMinuteChat)
	require.NoError(t, h.e.Relay(3, "кто?"))
	assert.Equal(t, 1, h.count(1, Callsigns[2]+": кто?"))
}

func TestChatFanOutSurvivesTransportFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.privateRoom(t)
	h.rec.Fail[2] = errors.New("blocked by user")

	require.NoError(t, h.e.Relay(1, "hi"))
	assert.Equal(t, 1, h.count(3, "@u1: hi"))
	assert.Equal(t, 0, h.count(2, "@u1: hi"))
}

func TestChatOutsideRoomAndNonText(t *testing.T) {
	h := newHarness(t, nil)

	assert.ErrorIs(t, h.e.Relay(7, "hello"), ErrNotInRoom)
	h.e.RejectNonText(7)
	assert.Equal(t, 1, h.count(7, msgTextOnly))
}
