package server

import "time"

const (
	nodeTypePlayer     = "player"
	nodeTypeSession    = "session"
	nodeTypeTimer      = "timer"
	nodeTypeVotingCard = "votingCard"
	nodeTypeResults    = "results"
	nodeTypeStory      = "story"
)

const (
	nodeIDTimer   = "timer"
	nodeIDSession = "session-current"
	nodeIDResults = "results"
)

const (
	timerActionStart = "start"
	timerActionPause = "pause"
	timerActionReset = "reset"
)

// Default canvas layout. Player badges and voting cards are laid out as
// centered horizontal rows; the remaining nodes sit at fixed offsets.
const (
	canvasCenterX     = 0.0
	timerNodeX        = -500.0
	timerNodeY        = -250.0
	sessionNodeY      = -300.0
	playersRowY       = 200.0
	playerSpacing     = 200.0
	votingCardRowY    = 450.0
	votingCardSpacing = 70.0
	resultsNodeX      = canvasCenterX + 400.0
	resultsNodeY      = sessionNodeY + 100.0
)

var defaultCards = []string{"0", "1", "2", "3", "5", "8", "13", "21", "?"}

type Room struct {
	ID                 string
	Name               string
	VotingCategorized  bool
	AutoCompleteVoting bool
	IsGameOver         bool
	CreatedAt          time.Time
	LastActivityAt     time.Time
}

type User struct {
	ID          string
	RoomID      string
	Name        string
	IsSpectator bool
	JoinedAt    time.Time
}

// Vote is the raw record. A nil CardLabel means the user has not voted yet.
type Vote struct {
	RoomID    string
	UserID    string
	CardLabel *string
	CardValue *float64
	CardIcon  *string
}

// SanitizedVote is the only vote shape that leaves the server. While the room
// is not revealed the card fields are nil and HasVoted carries the signal.
type SanitizedVote struct {
	RoomID    string   `json:"room_id"`
	UserID    string   `json:"user_id"`
	HasVoted  bool     `json:"has_voted"`
	CardLabel *string  `json:"card_label"`
	CardValue *float64 `json:"card_value"`
	CardIcon  *string  `json:"card_icon"`
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type CanvasNode struct {
	RoomID        string
	NodeID        string
	Type          string
	Position      Position
	Data          NodeData
	IsLocked      bool
	LastUpdatedBy string
	LastUpdatedAt time.Time
}

// NodeData is the per-type payload of a canvas node. The concrete type always
// matches the node's Type field.
type NodeData interface {
	cloneData() NodeData
}

type PlayerData struct {
	UserID string `json:"userId"`
}

type CardFace struct {
	Value string `json:"value"`
}

type VotingCardData struct {
	Card   CardFace `json:"card"`
	UserID string   `json:"userId"`
	Index  int      `json:"index"`
}

type TimerData struct {
	IsRunning      bool       `json:"isRunning"`
	StartedAt      *time.Time `json:"startedAt"`
	PausedAt       *time.Time `json:"pausedAt"`
	ElapsedSeconds float64    `json:"elapsedSeconds"`
	LastAction     string     `json:"lastAction,omitempty"`
	LastUpdatedBy  string     `json:"lastUpdatedBy,omitempty"`
}

type SessionData struct{}

type ResultsData struct{}

type StoryData struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (d *PlayerData) cloneData() NodeData     { c := *d; return &c }
func (d *VotingCardData) cloneData() NodeData { c := *d; return &c }
func (d *TimerData) cloneData() NodeData      { c := *d; return &c }
func (d *SessionData) cloneData() NodeData    { c := *d; return &c }
func (d *ResultsData) cloneData() NodeData    { c := *d; return &c }
func (d *StoryData) cloneData() NodeData      { c := *d; return &c }

func (n CanvasNode) clone() CanvasNode {
	if n.Data != nil {
		n.Data = n.Data.cloneData()
	}
	return n
}

type ViewportState struct {
	RoomID        string    `json:"room_id"`
	UserID        string    `json:"user_id"`
	X             float64   `json:"x"`
	Y             float64   `json:"y"`
	Zoom          float64   `json:"zoom"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

type Presence struct {
	RoomID   string    `json:"room_id"`
	UserID   string    `json:"user_id"`
	Cursor   *Position `json:"cursor,omitempty"`
	IsActive bool      `json:"is_active"`
	LastPing time.Time `json:"last_ping"`
}

func timeNowUTC() time.Time {
	return time.Now().UTC()
}
