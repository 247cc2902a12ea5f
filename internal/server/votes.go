package server

import (
	log "github.com/sirupsen/logrus"
)

// PickCard records or replaces the user's vote. When the room has
// auto-complete voting enabled and this cast completes the non-spectator set,
// the cards are revealed immediately.
func (s *Server) PickCard(roomID, userID string, cardLabel string, cardValue float64, cardIcon *string) error {
	room, ok := s.store.GetRoom(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	if _, ok := s.store.GetUser(userID); !ok {
		return ErrUserNotFound
	}
	s.touchRoom(roomID)
	vote := s.store.UpsertVote(roomID, userID, cardLabel, cardValue, cardIcon)
	s.persistVote(vote)

	if room.AutoCompleteVoting && !room.IsGameOver && s.AreAllVotesIn(roomID) {
		log.Infof("voting complete room_id=%s reason=auto_complete", roomID)
		return s.ShowCards(roomID)
	}
	s.broadcastRoomUpdate(roomID)
	return nil
}

// RemoveCard withdraws the user's vote. A missing vote is a no-op, not an
// error.
func (s *Server) RemoveCard(roomID, userID string) error {
	if !s.store.RoomExists(roomID) {
		return ErrRoomNotFound
	}
	s.touchRoom(roomID)
	if s.store.DeleteVote(roomID, userID) {
		s.deleteVoteRecord(roomID, userID)
	}
	s.broadcastRoomUpdate(roomID)
	return nil
}

// AreAllVotesIn reports whether every non-spectator in the room has a vote
// record. Spectators never count against completeness.
func (s *Server) AreAllVotesIn(roomID string) bool {
	return allVotesIn(s.store.UsersByRoom(roomID), s.store.VotesByRoom(roomID))
}

func allVotesIn(users []User, votes []Vote) bool {
	voted := make(map[string]struct{}, len(votes))
	for _, vote := range votes {
		voted[vote.UserID] = struct{}{}
	}
	for _, user := range users {
		if user.IsSpectator {
			continue
		}
		if _, ok := voted[user.ID]; !ok {
			return false
		}
	}
	return true
}

// sanitizeVotes strips card values until the reveal. Raw votes must never
// cross a read boundary while the game is still open.
func sanitizeVotes(votes []Vote, isGameOver bool) []SanitizedVote {
	sanitized := make([]SanitizedVote, 0, len(votes))
	for _, vote := range votes {
		out := SanitizedVote{
			RoomID:   vote.RoomID,
			UserID:   vote.UserID,
			HasVoted: vote.CardLabel != nil,
		}
		if isGameOver {
			out.CardLabel = vote.CardLabel
			out.CardValue = vote.CardValue
			out.CardIcon = vote.CardIcon
		}
		sanitized = append(sanitized, out)
	}
	return sanitized
}
