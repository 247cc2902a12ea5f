package server

import (
	log "github.com/sirupsen/logrus"
)

type RoomOptions struct {
	VotingCategorized  bool
	AutoCompleteVoting bool
}

func DefaultRoomOptions() RoomOptions {
	return RoomOptions{VotingCategorized: true, AutoCompleteVoting: false}
}

// CreateRoom creates a room and provisions its permanent canvas nodes.
func (s *Server) CreateRoom(name string, opts RoomOptions) Room {
	room := s.store.CreateRoom(name, opts.VotingCategorized, opts.AutoCompleteVoting, s.now())
	s.persistRoom(room)
	s.initializeCanvasNodes(room.ID)
	log.Infof("room created room_id=%s name=%q", room.ID, room.Name)
	return room
}

// RoomSnapshot joins the room with its users and sanitized votes. It is
// side-effect free and safe to poll arbitrarily often.
type RoomSnapshot struct {
	Room       Room
	Users      []User
	Votes      []SanitizedVote
	AllVotesIn bool
}

func (s *Server) GetRoomWithRelatedData(roomID string) (RoomSnapshot, bool) {
	room, ok := s.store.GetRoom(roomID)
	if !ok {
		return RoomSnapshot{}, false
	}
	users := s.store.UsersByRoom(roomID)
	votes := s.store.VotesByRoom(roomID)
	return RoomSnapshot{
		Room:       room,
		Users:      users,
		Votes:      sanitizeVotes(votes, room.IsGameOver),
		AllVotesIn: allVotesIn(users, votes),
	}, true
}

// touchRoom bumps the room's activity timestamp in the live store and the
// mirror. Every mutating operation calls it at its own call site.
func (s *Server) touchRoom(roomID string) {
	now := s.now()
	if s.store.TouchRoom(roomID, now) {
		s.touchRoomRecord(roomID, now)
	}
}

// ShowCards reveals the votes and lazily creates the results node.
func (s *Server) ShowCards(roomID string) error {
	now := s.now()
	room, ok := s.store.PatchRoom(roomID, func(room *Room) {
		room.IsGameOver = true
		if now.After(room.LastActivityAt) {
			room.LastActivityAt = now
		}
	})
	if !ok {
		return ErrRoomNotFound
	}
	s.persistRoomState(room)
	s.upsertResultsNode(roomID)
	log.Infof("cards revealed room_id=%s", roomID)
	s.broadcastRoomUpdate(roomID)
	return nil
}

// ResetGame hides the cards and removes every vote. Player and voting-card
// nodes survive into the next round.
func (s *Server) ResetGame(roomID string) error {
	now := s.now()
	room, ok := s.store.PatchRoom(roomID, func(room *Room) {
		room.IsGameOver = false
		if now.After(room.LastActivityAt) {
			room.LastActivityAt = now
		}
	})
	if !ok {
		return ErrRoomNotFound
	}
	deleted := s.store.DeleteVotesByRoom(roomID)
	s.persistRoomState(room)
	s.deleteVoteRecordsByRoom(roomID)
	log.Infof("game reset room_id=%s votes_cleared=%d", roomID, deleted)
	s.broadcastRoomUpdate(roomID)
	return nil
}
