package server

import (
	log "github.com/sirupsen/logrus"
)

// JoinRoom adds a user and provisions their canvas nodes: a player badge for
// everyone, a voting-card row for non-spectators.
func (s *Server) JoinRoom(roomID, name string, isSpectator bool) (User, error) {
	if !s.store.RoomExists(roomID) {
		return User{}, ErrRoomNotFound
	}
	s.touchRoom(roomID)
	user := s.store.CreateUser(roomID, name, isSpectator, s.now())
	s.persistUser(user)
	s.upsertPlayerNode(roomID, user.ID, nil)
	if !isSpectator {
		s.createVotingCardNodes(roomID, user.ID)
	}
	log.Infof("user joined room_id=%s user_id=%s spectator=%t", roomID, user.ID, isSpectator)
	s.broadcastRoomUpdate(roomID)
	return user, nil
}

// EditUser patches the user's name and spectator flag. Flipping the spectator
// flag also reconciles the user's vote and voting-card nodes.
func (s *Server) EditUser(userID string, name *string, isSpectator *bool) (User, error) {
	before, ok := s.store.GetUser(userID)
	if !ok {
		return User{}, ErrUserNotFound
	}
	s.touchRoom(before.RoomID)
	user, ok := s.store.PatchUser(userID, func(user *User) {
		if name != nil {
			user.Name = *name
		}
		if isSpectator != nil {
			user.IsSpectator = *isSpectator
		}
	})
	if !ok {
		return User{}, ErrUserNotFound
	}
	s.persistUserPatch(user)

	if isSpectator != nil && before.IsSpectator != user.IsSpectator {
		if user.IsSpectator {
			if s.store.DeleteVote(user.RoomID, userID) {
				s.deleteVoteRecord(user.RoomID, userID)
			}
			s.removeVotingCardNodes(user.RoomID, userID)
		} else {
			s.createVotingCardNodes(user.RoomID, userID)
		}
	}
	s.broadcastRoomUpdate(user.RoomID)
	return user, nil
}

// LeaveRoom removes the user and cascades to their vote, their player and
// voting-card nodes, and their presence record. Each delete commits on its
// own; a partial run leaves only records a later sweep can finish off.
func (s *Server) LeaveRoom(userID string) error {
	user, ok := s.store.GetUser(userID)
	if !ok {
		return ErrUserNotFound
	}
	if s.store.DeleteVote(user.RoomID, userID) {
		s.deleteVoteRecord(user.RoomID, userID)
	}
	removed := s.removePlayerNodeAndCards(user.RoomID, userID)
	s.markUserInactive(user.RoomID, userID)
	s.store.DeleteUser(userID)
	s.deleteUserRecord(userID)
	s.touchRoom(user.RoomID)
	log.Infof("user left room_id=%s user_id=%s nodes_removed=%d", user.RoomID, userID, removed)
	s.broadcastRoomUpdate(user.RoomID)
	return nil
}

// removeVotingCardNodes deletes only the user's card nodes, keeping the player
// badge. Used when a voter becomes a spectator.
func (s *Server) removeVotingCardNodes(roomID, userID string) {
	for _, node := range s.store.NodesByRoom(roomID) {
		if node.Type != nodeTypeVotingCard {
			continue
		}
		data, ok := node.Data.(*VotingCardData)
		if !ok || data.UserID != userID {
			continue
		}
		if s.store.DeleteNode(roomID, node.NodeID) {
			s.deleteNodeRecord(roomID, node.NodeID)
		}
	}
}
