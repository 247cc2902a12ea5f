package server

import (
	"encoding/json"
	"errors"
	"time"

	"poker-canvas/internal/db"

	"github.com/jackc/pgconn"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm/clause"
)

// The Postgres mirror is best-effort durability behind the live store. A nil
// *gorm.DB disables it entirely. Mirror failures are logged, never retried,
// and never fail the live mutation; later sweeps reconcile leftovers.

func (s *Server) persistRoom(room Room) {
	if s.db == nil {
		return
	}
	record := db.Room{
		ID:                 room.ID,
		Name:               room.Name,
		VotingCategorized:  room.VotingCategorized,
		AutoCompleteVoting: room.AutoCompleteVoting,
		IsGameOver:         room.IsGameOver,
		CreatedAt:          room.CreatedAt,
		LastActivityAt:     room.LastActivityAt,
	}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error; err != nil {
		log.Warnf("persist room failed room_id=%s error=%v", room.ID, err)
	}
}

func (s *Server) persistRoomState(room Room) {
	if s.db == nil {
		return
	}
	updates := map[string]any{
		"is_game_over":     room.IsGameOver,
		"last_activity_at": room.LastActivityAt,
	}
	if err := s.db.Model(&db.Room{}).Where("id = ?", room.ID).Updates(updates).Error; err != nil {
		log.Warnf("persist room state failed room_id=%s error=%v", room.ID, err)
	}
}

func (s *Server) touchRoomRecord(roomID string, now time.Time) {
	if s.db == nil {
		return
	}
	err := s.db.Model(&db.Room{}).
		Where("id = ? AND last_activity_at < ?", roomID, now).
		Update("last_activity_at", now).Error
	if err != nil {
		log.Warnf("touch room failed room_id=%s error=%v", roomID, err)
	}
}

func (s *Server) persistUser(user User) {
	if s.db == nil {
		return
	}
	record := db.User{
		ID:          user.ID,
		RoomID:      user.RoomID,
		Name:        user.Name,
		IsSpectator: user.IsSpectator,
		JoinedAt:    user.JoinedAt,
	}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error; err != nil {
		log.Warnf("persist user failed user_id=%s error=%v", user.ID, err)
	}
}

func (s *Server) persistUserPatch(user User) {
	if s.db == nil {
		return
	}
	updates := map[string]any{
		"name":         user.Name,
		"is_spectator": user.IsSpectator,
	}
	if err := s.db.Model(&db.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		log.Warnf("persist user patch failed user_id=%s error=%v", user.ID, err)
	}
}

func (s *Server) deleteUserRecord(userID string) {
	if s.db == nil {
		return
	}
	if err := s.db.Where("id = ?", userID).Delete(&db.User{}).Error; err != nil {
		log.Warnf("delete user failed user_id=%s error=%v", userID, err)
	}
}

func (s *Server) persistVote(vote Vote) {
	if s.db == nil {
		return
	}
	record := db.Vote{
		RoomID:    vote.RoomID,
		UserID:    vote.UserID,
		CardLabel: vote.CardLabel,
		CardValue: vote.CardValue,
		CardIcon:  vote.CardIcon,
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "room_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"card_label", "card_value", "card_icon", "updated_at"}),
	}).Create(&record).Error
	if err != nil && !isUniqueViolation(err) {
		log.Warnf("persist vote failed room_id=%s user_id=%s error=%v", vote.RoomID, vote.UserID, err)
	}
}

func (s *Server) deleteVoteRecord(roomID, userID string) {
	if s.db == nil {
		return
	}
	err := s.db.Where("room_id = ? AND user_id = ?", roomID, userID).Delete(&db.Vote{}).Error
	if err != nil {
		log.Warnf("delete vote failed room_id=%s user_id=%s error=%v", roomID, userID, err)
	}
}

func (s *Server) deleteVoteRecordsByRoom(roomID string) {
	if s.db == nil {
		return
	}
	if err := s.db.Where("room_id = ?", roomID).Delete(&db.Vote{}).Error; err != nil {
		log.Warnf("delete room votes failed room_id=%s error=%v", roomID, err)
	}
}

func (s *Server) persistNode(node CanvasNode) {
	if s.db == nil {
		return
	}
	record := db.CanvasNode{
		RoomID:        node.RoomID,
		NodeID:        node.NodeID,
		Type:          node.Type,
		X:             node.Position.X,
		Y:             node.Position.Y,
		Data:          encodeNodeData(node.Data),
		IsLocked:      node.IsLocked,
		LastUpdatedAt: node.LastUpdatedAt,
	}
	if node.LastUpdatedBy != "" {
		by := node.LastUpdatedBy
		record.LastUpdatedBy = &by
	}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error; err != nil {
		log.Warnf("persist node failed room_id=%s node_id=%s error=%v", node.RoomID, node.NodeID, err)
	}
}

func (s *Server) persistNodePatch(node CanvasNode) {
	if s.db == nil {
		return
	}
	updates := map[string]any{
		"x":               node.Position.X,
		"y":               node.Position.Y,
		"data":            encodeNodeData(node.Data),
		"is_locked":       node.IsLocked,
		"last_updated_at": node.LastUpdatedAt,
	}
	if node.LastUpdatedBy != "" {
		updates["last_updated_by"] = node.LastUpdatedBy
	}
	err := s.db.Model(&db.CanvasNode{}).
		Where("room_id = ? AND node_id = ?", node.RoomID, node.NodeID).
		Updates(updates).Error
	if err != nil {
		log.Warnf("persist node patch failed room_id=%s node_id=%s error=%v", node.RoomID, node.NodeID, err)
	}
}

func (s *Server) deleteNodeRecord(roomID, nodeID string) {
	if s.db == nil {
		return
	}
	err := s.db.Where("room_id = ? AND node_id = ?", roomID, nodeID).Delete(&db.CanvasNode{}).Error
	if err != nil {
		log.Warnf("delete node failed room_id=%s node_id=%s error=%v", roomID, nodeID, err)
	}
}

func (s *Server) persistViewport(state ViewportState) {
	if s.db == nil {
		return
	}
	record := db.ViewportState{
		RoomID:        state.RoomID,
		UserID:        state.UserID,
		X:             state.X,
		Y:             state.Y,
		Zoom:          state.Zoom,
		LastUpdatedAt: state.LastUpdatedAt,
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "room_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"x", "y", "zoom", "last_updated_at"}),
	}).Create(&record).Error
	if err != nil {
		log.Warnf("persist viewport failed room_id=%s user_id=%s error=%v", state.RoomID, state.UserID, err)
	}
}

func (s *Server) persistPresence(record Presence) {
	if s.db == nil {
		return
	}
	row := db.Presence{
		RoomID:   record.RoomID,
		UserID:   record.UserID,
		IsActive: record.IsActive,
		LastPing: record.LastPing,
	}
	if record.Cursor != nil {
		x, y := record.Cursor.X, record.Cursor.Y
		row.CursorX = &x
		row.CursorY = &y
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "room_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"cursor_x", "cursor_y", "is_active", "last_ping"}),
	}).Create(&row).Error
	if err != nil {
		log.Warnf("persist presence failed room_id=%s user_id=%s error=%v", record.RoomID, record.UserID, err)
	}
}

func (s *Server) persistPresenceInactive(roomID, userID string) {
	if s.db == nil {
		return
	}
	err := s.db.Model(&db.Presence{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Update("is_active", false).Error
	if err != nil {
		log.Warnf("persist presence inactive failed room_id=%s user_id=%s error=%v", roomID, userID, err)
	}
}

// deleteRoomRecords cascades a room deletion through the mirror, children
// first. Each table deletes independently; a partial run leaves rows the
// orphan cleanup removes later.
func (s *Server) deleteRoomRecords(roomID string) {
	if s.db == nil {
		return
	}
	for _, model := range []any{&db.Vote{}, &db.CanvasNode{}, &db.ViewportState{}, &db.Presence{}, &db.User{}} {
		if err := s.db.Where("room_id = ?", roomID).Delete(model).Error; err != nil {
			log.Warnf("delete room records failed room_id=%s error=%v", roomID, err)
		}
	}
	if err := s.db.Where("id = ?", roomID).Delete(&db.Room{}).Error; err != nil {
		log.Warnf("delete room failed room_id=%s error=%v", roomID, err)
	}
}

// deleteOrphanedRecords purges mirror rows whose room row is gone.
func (s *Server) deleteOrphanedRecords() {
	if s.db == nil {
		return
	}
	sub := s.db.Model(&db.Room{}).Select("id")
	for _, model := range []any{&db.Vote{}, &db.CanvasNode{}, &db.ViewportState{}, &db.Presence{}, &db.User{}} {
		if err := s.db.Where("room_id NOT IN (?)", sub).Delete(model).Error; err != nil {
			log.Warnf("delete orphaned records failed error=%v", err)
		}
	}
}

func encodeNodeData(data NodeData) datatypes.JSON {
	if data == nil {
		return datatypes.JSON([]byte("{}"))
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(raw)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
