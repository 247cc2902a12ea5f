package server

import "errors"

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrUserNotFound = errors.New("user not found")
	ErrNodeNotFound = errors.New("node not found")

	ErrNodeLocked = errors.New("node is locked")

	ErrTimerRunning    = errors.New("timer is already running")
	ErrTimerNotRunning = errors.New("timer is not running")

	ErrNotRevealed = errors.New("cards are not revealed yet")
)
