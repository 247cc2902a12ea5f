package db

import (
	"time"

	"gorm.io/datatypes"
)

type Room struct {
	ID                 string    `gorm:"primaryKey;size:36"`
	Name               string    `gorm:"size:64;not null"`
	VotingCategorized  bool      `gorm:"not null;default:true"`
	AutoCompleteVoting bool      `gorm:"not null;default:false"`
	IsGameOver         bool      `gorm:"not null;default:false"`
	CreatedAt          time.Time `gorm:"not null;index:idx_rooms_created"`
	LastActivityAt     time.Time `gorm:"not null;index:idx_rooms_activity"`
}

type User struct {
	ID          string    `gorm:"primaryKey;size:36"`
	RoomID      string    `gorm:"size:36;index;not null"`
	Name        string    `gorm:"size:64;not null"`
	IsSpectator bool      `gorm:"not null;default:false"`
	JoinedAt    time.Time `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

type Vote struct {
	ID        uint     `gorm:"primaryKey"`
	RoomID    string   `gorm:"size:36;index;not null;uniqueIndex:idx_votes_room_user"`
	UserID    string   `gorm:"size:36;index;not null;uniqueIndex:idx_votes_room_user"`
	CardLabel *string   `gorm:"size:16"`
	CardValue *float64  `gorm:"type:double precision"`
	CardIcon  *string   `gorm:"size:32"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type CanvasNode struct {
	ID            uint           `gorm:"primaryKey"`
	RoomID        string         `gorm:"size:36;index;not null;uniqueIndex:idx_nodes_room_node"`
	NodeID        string         `gorm:"size:64;not null;uniqueIndex:idx_nodes_room_node"`
	Type          string         `gorm:"size:16;not null;index:idx_nodes_room_type"`
	X             float64        `gorm:"not null"`
	Y             float64        `gorm:"not null"`
	Data          datatypes.JSON `gorm:"type:jsonb;not null"`
	IsLocked      bool           `gorm:"not null;default:false"`
	LastUpdatedBy *string        `gorm:"size:36"`
	LastUpdatedAt time.Time      `gorm:"not null;index:idx_nodes_updated"`
	CreatedAt     time.Time      `gorm:"not null"`
	UpdatedAt     time.Time      `gorm:"not null"`
}

type ViewportState struct {
	ID            uint      `gorm:"primaryKey"`
	RoomID        string    `gorm:"size:36;index;not null;uniqueIndex:idx_viewports_room_user"`
	UserID        string    `gorm:"size:36;not null;uniqueIndex:idx_viewports_room_user"`
	X             float64   `gorm:"not null"`
	Y             float64   `gorm:"not null"`
	Zoom          float64   `gorm:"not null;default:1"`
	LastUpdatedAt time.Time `gorm:"not null"`
}

type Presence struct {
	ID       uint   `gorm:"primaryKey"`
	RoomID   string `gorm:"size:36;index;not null;uniqueIndex:idx_presence_room_user"`
	UserID   string `gorm:"size:36;not null;uniqueIndex:idx_presence_room_user"`
	CursorX  *float64
	CursorY  *float64
	IsActive bool      `gorm:"not null;default:true"`
	LastPing time.Time `gorm:"not null;index:idx_presence_ping"`
}
