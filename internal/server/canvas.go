package server

import "strconv"

// The canvas node manager owns the mapping from room layout to persisted node
// records. Every operation here is idempotent against re-invocation.

// initializeCanvasNodes provisions the two permanent nodes of a fresh room. It
// is a no-op when any node already exists for the room.
func (s *Server) initializeCanvasNodes(roomID string) {
	if s.store.HasNodes(roomID) {
		return
	}
	now := s.now()
	timer := CanvasNode{
		RoomID:        roomID,
		NodeID:        nodeIDTimer,
		Type:          nodeTypeTimer,
		Position:      Position{X: timerNodeX, Y: timerNodeY},
		Data:          &TimerData{},
		LastUpdatedAt: now,
	}
	session := CanvasNode{
		RoomID:        roomID,
		NodeID:        nodeIDSession,
		Type:          nodeTypeSession,
		Position:      Position{X: canvasCenterX - 140, Y: sessionNodeY},
		Data:          &SessionData{},
		LastUpdatedAt: now,
	}
	if s.store.InsertNode(timer) {
		s.persistNode(timer)
	}
	if s.store.InsertNode(session) {
		s.persistNode(session)
	}
}

// upsertPlayerNode returns without touching anything when the player node
// already exists. A missing position defaults to the next slot of a centered
// horizontal row below the canvas origin.
func (s *Server) upsertPlayerNode(roomID, userID string, position *Position) {
	nodeID := "player-" + userID
	if _, ok := s.store.GetNode(roomID, nodeID); ok {
		return
	}
	pos := Position{}
	if position != nil {
		pos = *position
	} else {
		playerCount := s.store.CountNodesByType(roomID, nodeTypePlayer)
		totalWidth := float64(playerCount) * playerSpacing
		startX := canvasCenterX - totalWidth/2
		pos = Position{X: startX + float64(playerCount)*playerSpacing, Y: playersRowY}
	}
	node := CanvasNode{
		RoomID:        roomID,
		NodeID:        nodeID,
		Type:          nodeTypePlayer,
		Position:      pos,
		Data:          &PlayerData{UserID: userID},
		LastUpdatedAt: s.now(),
	}
	if s.store.InsertNode(node) {
		s.persistNode(node)
	}
}

// createVotingCardNodes lays out one card node per deck entry as a centered
// row. The user's card-0 node doubles as the existence marker.
func (s *Server) createVotingCardNodes(roomID, userID string) {
	if _, ok := s.store.GetNode(roomID, votingCardNodeID(userID, 0)); ok {
		return
	}
	now := s.now()
	totalWidth := float64(len(defaultCards)-1) * votingCardSpacing
	startX := canvasCenterX - totalWidth/2
	for index, card := range defaultCards {
		node := CanvasNode{
			RoomID:   roomID,
			NodeID:   votingCardNodeID(userID, index),
			Type:     nodeTypeVotingCard,
			Position: Position{X: startX + float64(index)*votingCardSpacing, Y: votingCardRowY},
			Data: &VotingCardData{
				Card:   CardFace{Value: card},
				UserID: userID,
				Index:  index,
			},
			LastUpdatedAt: now,
		}
		if s.store.InsertNode(node) {
			s.persistNode(node)
		}
	}
}

func votingCardNodeID(userID string, index int) string {
	return "card-" + userID + "-" + strconv.Itoa(index)
}

// upsertResultsNode creates the singleton results node on first reveal.
func (s *Server) upsertResultsNode(roomID string) {
	if _, ok := s.store.GetNode(roomID, nodeIDResults); ok {
		return
	}
	node := CanvasNode{
		RoomID:        roomID,
		NodeID:        nodeIDResults,
		Type:          nodeTypeResults,
		Position:      Position{X: resultsNodeX, Y: resultsNodeY},
		Data:          &ResultsData{},
		LastUpdatedAt: s.now(),
	}
	if s.store.InsertNode(node) {
		s.persistNode(node)
	}
}

// removePlayerNodeAndCards deletes the player node and every voting card whose
// payload references the user, computed from one scan over the room's nodes.
func (s *Server) removePlayerNodeAndCards(roomID, userID string) int {
	playerNodeID := "player-" + userID
	removed := 0
	for _, node := range s.store.NodesByRoom(roomID) {
		doomed := node.NodeID == playerNodeID
		if !doomed && node.Type == nodeTypeVotingCard {
			if data, ok := node.Data.(*VotingCardData); ok && data.UserID == userID {
				doomed = true
			}
		}
		if !doomed {
			continue
		}
		if s.store.DeleteNode(roomID, node.NodeID) {
			s.deleteNodeRecord(roomID, node.NodeID)
			removed++
		}
	}
	return removed
}

// UpdateNodePosition applies a single independent position write. Rapid
// back-to-back calls are safe; the last write wins.
func (s *Server) UpdateNodePosition(roomID, nodeID string, position Position, userID string) (CanvasNode, error) {
	now := s.now()
	node, err := s.store.PatchNode(roomID, nodeID, func(node *CanvasNode) error {
		if node.IsLocked {
			return ErrNodeLocked
		}
		node.Position = position
		node.LastUpdatedBy = userID
		node.LastUpdatedAt = now
		return nil
	})
	if err != nil {
		return CanvasNode{}, err
	}
	s.store.TouchRoom(roomID, now)
	s.persistNodePatch(node)
	s.touchRoomRecord(roomID, now)
	s.broadcastRoomUpdate(roomID)
	return node, nil
}

// ToggleNodeLock flips the lock flag. Locking needs no ownership check.
func (s *Server) ToggleNodeLock(roomID, nodeID string, locked bool) (CanvasNode, error) {
	now := s.now()
	node, err := s.store.PatchNode(roomID, nodeID, func(node *CanvasNode) error {
		node.IsLocked = locked
		node.LastUpdatedAt = now
		return nil
	})
	if err != nil {
		return CanvasNode{}, err
	}
	s.store.TouchRoom(roomID, now)
	s.persistNodePatch(node)
	s.touchRoomRecord(roomID, now)
	s.broadcastRoomUpdate(roomID)
	return node, nil
}

func (s *Server) GetCanvasNodes(roomID string) ([]CanvasNode, error) {
	if !s.store.RoomExists(roomID) {
		return nil, ErrRoomNotFound
	}
	return s.store.NodesByRoom(roomID), nil
}

// UpdateViewport upserts the per-user viewport record.
func (s *Server) UpdateViewport(roomID, userID string, x, y, zoom float64) (ViewportState, error) {
	if !s.store.RoomExists(roomID) {
		return ViewportState{}, ErrRoomNotFound
	}
	state := s.store.UpsertViewport(roomID, userID, x, y, zoom, s.now())
	s.persistViewport(state)
	return state, nil
}

func (s *Server) GetViewports(roomID string) ([]ViewportState, error) {
	if !s.store.RoomExists(roomID) {
		return nil, ErrRoomNotFound
	}
	return s.store.ViewportsByRoom(roomID), nil
}

// UpdatePresence refreshes a user's cursor and active flag.
func (s *Server) UpdatePresence(roomID, userID string, cursor *Position, isActive *bool) (Presence, error) {
	if !s.store.RoomExists(roomID) {
		return Presence{}, ErrRoomNotFound
	}
	record := s.store.UpsertPresence(roomID, userID, cursor, isActive, s.now())
	s.persistPresence(record)
	return record, nil
}

func (s *Server) GetPresence(roomID string) ([]Presence, error) {
	if !s.store.RoomExists(roomID) {
		return nil, ErrRoomNotFound
	}
	return s.store.PresenceByRoom(roomID, true), nil
}

func (s *Server) markUserInactive(roomID, userID string) {
	if s.store.MarkPresenceInactive(roomID, userID, s.now()) {
		s.persistPresenceInactive(roomID, userID)
	}
}
