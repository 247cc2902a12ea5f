package server

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// The maintenance service garbage-collects inactive rooms and orphaned child
// records. Every delete is idempotent, so a sweep interrupted part-way leaves
// nothing a later pass cannot finish.

type CleanupResult struct {
	RoomsDeleted       int `json:"rooms_deleted"`
	UsersDeleted       int `json:"users_deleted"`
	VotesDeleted       int `json:"votes_deleted"`
	CanvasNodesDeleted int `json:"canvas_nodes_deleted"`
	ViewportsDeleted   int `json:"viewports_deleted"`
	PresenceDeleted    int `json:"presence_deleted"`
}

type OrphanCleanupResult struct {
	OrphanedVotes     int `json:"orphaned_votes"`
	OrphanedUsers     int `json:"orphaned_users"`
	OrphanedNodes     int `json:"orphaned_nodes"`
	OrphanedViewports int `json:"orphaned_viewports"`
	OrphanedPresence  int `json:"orphaned_presence"`
}

// RemoveInactiveRooms deletes every room idle longer than inactiveDays, along
// with all of its child records.
func (s *Server) RemoveInactiveRooms(inactiveDays int) CleanupResult {
	if inactiveDays <= 0 {
		inactiveDays = s.cfg.InactiveRoomDays
	}
	cutoff := s.now().Add(-time.Duration(inactiveDays) * 24 * time.Hour)
	inactive := s.store.InactiveRooms(cutoff)

	result := CleanupResult{}
	for _, room := range inactive {
		stats := s.cleanupRoom(room.ID)
		result.UsersDeleted += stats.UsersDeleted
		result.VotesDeleted += stats.VotesDeleted
		result.CanvasNodesDeleted += stats.CanvasNodesDeleted
		result.ViewportsDeleted += stats.ViewportsDeleted
		result.PresenceDeleted += stats.PresenceDeleted
		result.RoomsDeleted += stats.RoomsDeleted
		log.WithFields(log.Fields{
			"room_id": room.ID,
			"name":    room.Name,
			"idle":    s.now().Sub(room.LastActivityAt).Round(time.Minute).String(),
		}).Info("inactive room removed")
	}
	if result.RoomsDeleted > 0 {
		log.WithFields(log.Fields{
			"rooms":  result.RoomsDeleted,
			"users":  result.UsersDeleted,
			"votes":  result.VotesDeleted,
			"nodes":  result.CanvasNodesDeleted,
			"cutoff": cutoff.Format(time.RFC3339),
		}).Info("inactive room sweep complete")
	}
	return result
}

// cleanupRoom cascades a single room deletion. Children go first so a crash
// mid-way produces orphans (recoverable) rather than a childless live room.
func (s *Server) cleanupRoom(roomID string) CleanupResult {
	result := CleanupResult{
		VotesDeleted:       s.store.DeleteVotesByRoom(roomID),
		CanvasNodesDeleted: s.store.DeleteNodesByRoom(roomID),
		ViewportsDeleted:   s.store.DeleteViewportsByRoom(roomID),
		PresenceDeleted:    s.store.DeletePresenceByRoom(roomID),
	}
	for _, user := range s.store.UsersByRoom(roomID) {
		if s.store.DeleteUser(user.ID) {
			result.UsersDeleted++
		}
	}
	if s.store.DeleteRoom(roomID) {
		result.RoomsDeleted = 1
	}
	s.deleteRoomRecords(roomID)
	return result
}

// CleanupOrphanedData removes child records whose room no longer exists.
// Records scoped to a live room are never touched.
func (s *Server) CleanupOrphanedData() OrphanCleanupResult {
	voteRooms, orphanUsers, nodeRooms, viewportRooms, presenceRooms := s.store.OrphanedRoomIDs()

	result := OrphanCleanupResult{}
	for _, roomID := range voteRooms {
		result.OrphanedVotes += s.store.DeleteVotesByRoom(roomID)
	}
	for _, userID := range orphanUsers {
		if s.store.DeleteUser(userID) {
			result.OrphanedUsers++
		}
	}
	for _, roomID := range nodeRooms {
		result.OrphanedNodes += s.store.DeleteNodesByRoom(roomID)
	}
	for _, roomID := range viewportRooms {
		result.OrphanedViewports += s.store.DeleteViewportsByRoom(roomID)
	}
	for _, roomID := range presenceRooms {
		result.OrphanedPresence += s.store.DeletePresenceByRoom(roomID)
	}
	s.deleteOrphanedRecords()

	if result != (OrphanCleanupResult{}) {
		log.WithFields(log.Fields{
			"votes":     result.OrphanedVotes,
			"users":     result.OrphanedUsers,
			"nodes":     result.OrphanedNodes,
			"viewports": result.OrphanedViewports,
			"presence":  result.OrphanedPresence,
		}).Info("orphaned data cleanup complete")
	}
	return result
}

// CleanupStalePresence marks presence records inactive after five minutes
// without a ping.
func (s *Server) CleanupStalePresence() int {
	cutoff := s.now().Add(-time.Duration(s.cfg.PresenceStaleMinutes) * time.Minute)
	flipped := s.store.MarkStalePresenceInactive(cutoff)
	if flipped > 0 {
		log.WithFields(log.Fields{"records": flipped}).Info("stale presence marked inactive")
	}
	return flipped
}

// StartSweeper runs the maintenance passes on a fixed interval until the
// returned stop function is called. Sweeps are safe to run concurrently with
// live traffic.
func (s *Server) StartSweeper(interval time.Duration) (stop func()) {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				s.RemoveInactiveRooms(s.cfg.InactiveRoomDays)
				s.CleanupOrphanedData()
				s.CleanupStalePresence()
			case <-done:
				return
			}
		}
	}()
	return func() {
		ticker.Stop()
		close(done)
	}
}
