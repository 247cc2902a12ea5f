package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poker-canvas/internal/config"
)

func newTimerFixture(t *testing.T) (*Server, *fakeClock, string) {
	t.Helper()
	srv := New(nil, config.Default())
	clock := newFakeClock()
	srv.now = clock.Now
	room := srv.CreateRoom("Timer room", DefaultRoomOptions())
	return srv, clock, room.ID
}

func TestTimerStartPauseRoundTrip(t *testing.T) {
	srv, clock, roomID := newTimerFixture(t)

	state, err := srv.UpdateTimer(roomID, nodeIDTimer, timerActionStart, "user-1")
	require.NoError(t, err)
	assert.True(t, state.IsRunning)
	assert.Equal(t, 0, state.CurrentSeconds)
	assert.Equal(t, "0:00", state.DisplayTime)

	clock.Advance(5 * time.Second)
	state, err = srv.GetTimerState(roomID, nodeIDTimer)
	require.NoError(t, err)
	assert.Equal(t, 5, state.CurrentSeconds)
	assert.Equal(t, "0:05", state.DisplayTime)

	state, err = srv.UpdateTimer(roomID, nodeIDTimer, timerActionPause, "user-1")
	require.NoError(t, err)
	assert.False(t, state.IsRunning)
	assert.Equal(t, 5, state.CurrentSeconds)

	// A paused timer does not accumulate.
	clock.Advance(30 * time.Second)
	state, err = srv.GetTimerState(roomID, nodeIDTimer)
	require.NoError(t, err)
	assert.Equal(t, 5, state.CurrentSeconds)
}

func TestTimerResumeAccumulates(t *testing.T) {
	srv, clock, roomID := newTimerFixture(t)

	_, err := srv.UpdateTimer(roomID, nodeIDTimer, timerActionStart, "user-1")
	require.NoError(t, err)
	clock.Advance(5 * time.Second)
	_, err = srv.UpdateTimer(roomID, nodeIDTimer, timerActionPause, "user-1")
	require.NoError(t, err)

	_, err = srv.UpdateTimer(roomID, nodeIDTimer, timerActionStart, "user-2")
	require.NoError(t, err)
	clock.Advance(65 * time.Second)

	state, err := srv.GetTimerState(roomID, nodeIDTimer)
	require.NoError(t, err)
	assert.Equal(t, 70, state.CurrentSeconds)
	assert.Equal(t, "1:10", state.DisplayTime)
}

func TestTimerReset(t *testing.T) {
	srv, clock, roomID := newTimerFixture(t)

	_, err := srv.UpdateTimer(roomID, nodeIDTimer, timerActionStart, "user-1")
	require.NoError(t, err)
	clock.Advance(42 * time.Second)

	state, err := srv.UpdateTimer(roomID, nodeIDTimer, timerActionReset, "user-1")
	require.NoError(t, err)
	assert.False(t, state.IsRunning)
	assert.Equal(t, 0, state.CurrentSeconds)
	assert.Equal(t, "0:00", state.DisplayTime)
}

func TestTimerInvalidTransitions(t *testing.T) {
	srv, _, roomID := newTimerFixture(t)

	_, err := srv.UpdateTimer(roomID, nodeIDTimer, timerActionPause, "user-1")
	assert.ErrorIs(t, err, ErrTimerNotRunning)

	_, err = srv.UpdateTimer(roomID, nodeIDTimer, timerActionStart, "user-1")
	require.NoError(t, err)
	_, err = srv.UpdateTimer(roomID, nodeIDTimer, timerActionStart, "user-2")
	assert.ErrorIs(t, err, ErrTimerRunning)
}

func TestTimerFlooredOnPause(t *testing.T) {
	srv, clock, roomID := newTimerFixture(t)

	_, err := srv.UpdateTimer(roomID, nodeIDTimer, timerActionStart, "user-1")
	require.NoError(t, err)
	clock.Advance(1500 * time.Millisecond)

	state, err := srv.UpdateTimer(roomID, nodeIDTimer, timerActionPause, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, state.CurrentSeconds)
}

func TestTimerUnknownNode(t *testing.T) {
	srv, _, roomID := newTimerFixture(t)

	_, err := srv.UpdateTimer(roomID, "ghost", timerActionStart, "user-1")
	assert.ErrorIs(t, err, ErrNodeNotFound)

	// A node that exists but is not a timer is treated the same way.
	_, err = srv.GetTimerState(roomID, nodeIDSession)
	assert.ErrorIs(t, err, ErrNodeNotFound)
}
