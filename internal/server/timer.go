package server

import (
	"fmt"
	"math"
	"time"

	log "github.com/sirupsen/logrus"
)

// TimerState is the read snapshot clients extrapolate from between syncs.
type TimerState struct {
	CurrentSeconds int    `json:"current_seconds"`
	IsRunning      bool   `json:"is_running"`
	DisplayTime    string `json:"display_time"`
}

// timerStateAt derives the live state from persisted fields and a server-side
// clock. Elapsed time is anchored to server timestamps only, so client clock
// drift never skews it.
func timerStateAt(data *TimerData, now time.Time) TimerState {
	currentSeconds := data.ElapsedSeconds
	if data.IsRunning && data.StartedAt != nil {
		currentSeconds += now.Sub(*data.StartedAt).Seconds()
	}
	minutes := int(currentSeconds) / 60
	seconds := int(currentSeconds) % 60
	return TimerState{
		CurrentSeconds: int(math.Floor(currentSeconds)),
		IsRunning:      data.IsRunning,
		DisplayTime:    fmt.Sprintf("%d:%02d", minutes, seconds),
	}
}

// UpdateTimer applies a start/pause/reset transition to the room's timer node.
// Start on a running timer and pause on a stopped one are rejected; reset is
// always legal. Concurrent calls race by last-write-wins on the node, but each
// transition recomputes elapsed time from the server clock at call time, so a
// losing race still lands on a state some serialization would produce.
func (s *Server) UpdateTimer(roomID, nodeID, action, userID string) (TimerState, error) {
	now := s.now()
	var state TimerState
	node, err := s.store.PatchNode(roomID, nodeID, func(node *CanvasNode) error {
		data, ok := node.Data.(*TimerData)
		if !ok {
			return ErrNodeNotFound
		}
		current := timerStateAt(data, now)
		switch action {
		case timerActionStart:
			if data.IsRunning {
				return ErrTimerRunning
			}
			started := now
			data.IsRunning = true
			data.StartedAt = &started
			data.PausedAt = nil
		case timerActionPause:
			if !data.IsRunning {
				return ErrTimerNotRunning
			}
			paused := now
			data.IsRunning = false
			data.StartedAt = nil
			data.PausedAt = &paused
			data.ElapsedSeconds = float64(current.CurrentSeconds)
		case timerActionReset:
			data.IsRunning = false
			data.StartedAt = nil
			data.PausedAt = nil
			data.ElapsedSeconds = 0
		default:
			return fmt.Errorf("invalid timer action: %s", action)
		}
		data.LastAction = action
		data.LastUpdatedBy = userID
		node.LastUpdatedBy = userID
		node.LastUpdatedAt = now
		state = timerStateAt(data, now)
		return nil
	})
	if err != nil {
		return TimerState{}, err
	}
	s.store.TouchRoom(roomID, now)
	s.persistNodePatch(node)
	s.touchRoomRecord(roomID, now)
	log.Infof("timer %s room_id=%s node_id=%s user_id=%s", action, roomID, nodeID, userID)
	s.broadcastRoomUpdate(roomID)
	return state, nil
}

// GetTimerState returns the persisted snapshot. Display smoothing between
// snapshots is the client's concern.
func (s *Server) GetTimerState(roomID, nodeID string) (TimerState, error) {
	node, ok := s.store.GetNode(roomID, nodeID)
	if !ok {
		return TimerState{}, ErrNodeNotFound
	}
	data, ok := node.Data.(*TimerData)
	if !ok {
		return TimerState{}, ErrNodeNotFound
	}
	return timerStateAt(data, s.now()), nil
}
