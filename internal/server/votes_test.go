package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poker-canvas/internal/config"
)

func TestSanitizeVotes(t *testing.T) {
	label := "8"
	value := 8.0
	votes := []Vote{
		{RoomID: "r", UserID: "u1", CardLabel: &label, CardValue: &value},
		{RoomID: "r", UserID: "u2"},
	}

	hidden := sanitizeVotes(votes, false)
	require.Len(t, hidden, 2)
	assert.True(t, hidden[0].HasVoted)
	assert.Nil(t, hidden[0].CardLabel)
	assert.Nil(t, hidden[0].CardValue)
	assert.False(t, hidden[1].HasVoted)

	revealed := sanitizeVotes(votes, true)
	require.NotNil(t, revealed[0].CardLabel)
	assert.Equal(t, "8", *revealed[0].CardLabel)
	assert.Equal(t, 8.0, *revealed[0].CardValue)
	assert.Nil(t, revealed[1].CardLabel)
}

func TestAllVotesInExcludesSpectators(t *testing.T) {
	users := []User{
		{ID: "voter", IsSpectator: false},
		{ID: "watcher", IsSpectator: true},
	}

	assert.False(t, allVotesIn(users, nil))
	assert.True(t, allVotesIn(users, []Vote{{UserID: "voter"}}))

	// A room with only spectators is trivially complete.
	assert.True(t, allVotesIn([]User{{ID: "watcher", IsSpectator: true}}, nil))
}

func TestPickCardUnknownTargets(t *testing.T) {
	srv := New(nil, config.Default())
	room := srv.CreateRoom("Votes", DefaultRoomOptions())

	err := srv.PickCard("nope", "someone", "5", 5, nil)
	assert.ErrorIs(t, err, ErrRoomNotFound)

	err = srv.PickCard(room.ID, "ghost", "5", 5, nil)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestPickCardWithoutAutoCompleteKeepsRoomOpen(t *testing.T) {
	srv := New(nil, config.Default())
	room := srv.CreateRoom("Votes", DefaultRoomOptions())
	ada, err := srv.JoinRoom(room.ID, "Ada", false)
	require.NoError(t, err)
	grace, err := srv.JoinRoom(room.ID, "Grace", false)
	require.NoError(t, err)

	require.NoError(t, srv.PickCard(room.ID, ada.ID, "5", 5, nil))
	require.NoError(t, srv.PickCard(room.ID, grace.ID, "8", 8, nil))

	assert.True(t, srv.AreAllVotesIn(room.ID))
	current, ok := srv.store.GetRoom(room.ID)
	require.True(t, ok)
	assert.False(t, current.IsGameOver)
}

func TestPickCardAutoCompleteReveals(t *testing.T) {
	srv := New(nil, config.Default())
	room := srv.CreateRoom("Votes", RoomOptions{VotingCategorized: true, AutoCompleteVoting: true})
	ada, err := srv.JoinRoom(room.ID, "Ada", false)
	require.NoError(t, err)
	grace, err := srv.JoinRoom(room.ID, "Grace", false)
	require.NoError(t, err)
	_, err = srv.JoinRoom(room.ID, "Watcher", true)
	require.NoError(t, err)

	require.NoError(t, srv.PickCard(room.ID, ada.ID, "5", 5, nil))
	current, ok := srv.store.GetRoom(room.ID)
	require.True(t, ok)
	assert.False(t, current.IsGameOver)

	require.NoError(t, srv.PickCard(room.ID, grace.ID, "8", 8, nil))
	current, ok = srv.store.GetRoom(room.ID)
	require.True(t, ok)
	assert.True(t, current.IsGameOver)
}
