package server

// roomPayload builds the wire shape shared by the GET room endpoint and the
// websocket push. It is assembled from independent index reads; votes are
// sanitized before anything leaves the store.
func (s *Server) roomPayload(roomID string) (map[string]any, bool) {
	snapshot, ok := s.GetRoomWithRelatedData(roomID)
	if !ok {
		return nil, false
	}
	users := make([]map[string]any, 0, len(snapshot.Users))
	for _, user := range snapshot.Users {
		users = append(users, map[string]any{
			"user_id":      user.ID,
			"name":         user.Name,
			"is_spectator": user.IsSpectator,
			"joined_at":    user.JoinedAt,
		})
	}
	return map[string]any{
		"room": map[string]any{
			"room_id":              snapshot.Room.ID,
			"name":                 snapshot.Room.Name,
			"voting_categorized":   snapshot.Room.VotingCategorized,
			"auto_complete_voting": snapshot.Room.AutoCompleteVoting,
			"is_game_over":         snapshot.Room.IsGameOver,
			"created_at":           snapshot.Room.CreatedAt,
			"last_activity_at":     snapshot.Room.LastActivityAt,
		},
		"users":        users,
		"votes":        snapshot.Votes,
		"all_votes_in": snapshot.AllVotesIn,
		"nodes":        nodePayloads(s.store.NodesByRoom(roomID)),
	}, true
}

func nodePayloads(nodes []CanvasNode) []map[string]any {
	payloads := make([]map[string]any, 0, len(nodes))
	for _, node := range nodes {
		payloads = append(payloads, nodePayload(node))
	}
	return payloads
}

func nodePayload(node CanvasNode) map[string]any {
	payload := map[string]any{
		"node_id":         node.NodeID,
		"type":            node.Type,
		"position":        node.Position,
		"data":            node.Data,
		"is_locked":       node.IsLocked,
		"last_updated_at": node.LastUpdatedAt,
	}
	if node.LastUpdatedBy != "" {
		payload["last_updated_by"] = node.LastUpdatedBy
	}
	return payload
}
