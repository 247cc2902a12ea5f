package server

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the live entity store. Every method is atomic at single-record
// granularity; cross-entity operations are composed from independent calls and
// tolerate partial completion.
type Store struct {
	mu        sync.Mutex
	rooms     map[string]*Room
	users     map[string]*User
	votes     map[string]map[string]*Vote       // roomID -> userID
	nodes     map[string]map[string]*CanvasNode // roomID -> nodeID
	viewports map[string]map[string]*ViewportState
	presence  map[string]map[string]*Presence
}

func NewStore() *Store {
	return &Store{
		rooms:     make(map[string]*Room),
		users:     make(map[string]*User),
		votes:     make(map[string]map[string]*Vote),
		nodes:     make(map[string]map[string]*CanvasNode),
		viewports: make(map[string]map[string]*ViewportState),
		presence:  make(map[string]map[string]*Presence),
	}
}

func (s *Store) CreateRoom(name string, categorized, autoComplete bool, now time.Time) Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	room := &Room{
		ID:                 uuid.NewString(),
		Name:               name,
		VotingCategorized:  categorized,
		AutoCompleteVoting: autoComplete,
		IsGameOver:         false,
		CreatedAt:          now,
		LastActivityAt:     now,
	}
	s.rooms[room.ID] = room
	return *room
}

func (s *Store) GetRoom(id string) (Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return Room{}, false
	}
	return *room, true
}

func (s *Store) PatchRoom(id string, update func(room *Room)) (Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return Room{}, false
	}
	update(room)
	return *room, true
}

// TouchRoom bumps the activity timestamp. The timestamp never moves backwards.
func (s *Store) TouchRoom(id string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return false
	}
	if now.After(room.LastActivityAt) {
		room.LastActivityAt = now
	}
	return true
}

func (s *Store) DeleteRoom(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[id]; !ok {
		return false
	}
	delete(s.rooms, id)
	return true
}

func (s *Store) RoomExists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rooms[id]
	return ok
}

func (s *Store) InactiveRooms(cutoff time.Time) []Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]Room, 0)
	for _, room := range s.rooms {
		if room.LastActivityAt.Before(cutoff) {
			list = append(list, *room)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].LastActivityAt.Before(list[j].LastActivityAt)
	})
	return list
}

func (s *Store) CreateUser(roomID, name string, isSpectator bool, now time.Time) User {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := &User{
		ID:          uuid.NewString(),
		RoomID:      roomID,
		Name:        name,
		IsSpectator: isSpectator,
		JoinedAt:    now,
	}
	s.users[user.ID] = user
	return *user
}

func (s *Store) GetUser(id string) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return User{}, false
	}
	return *user, true
}

func (s *Store) PatchUser(id string, update func(user *User)) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return User{}, false
	}
	update(user)
	return *user, true
}

func (s *Store) DeleteUser(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return false
	}
	delete(s.users, id)
	return true
}

func (s *Store) UsersByRoom(roomID string) []User {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]User, 0)
	for _, user := range s.users {
		if user.RoomID == roomID {
			list = append(list, *user)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].JoinedAt.Equal(list[j].JoinedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].JoinedAt.Before(list[j].JoinedAt)
	})
	return list
}

// UpsertVote applies find-or-create-or-update semantics on the unique
// (roomID, userID) pair. Duplicate vote rows cannot exist by construction.
func (s *Store) UpsertVote(roomID, userID string, label string, value float64, icon *string) Vote {
	s.mu.Lock()
	defer s.mu.Unlock()
	byUser := s.votes[roomID]
	if byUser == nil {
		byUser = make(map[string]*Vote)
		s.votes[roomID] = byUser
	}
	vote, ok := byUser[userID]
	if !ok {
		vote = &Vote{RoomID: roomID, UserID: userID}
		byUser[userID] = vote
	}
	vote.CardLabel = &label
	vote.CardValue = &value
	vote.CardIcon = icon
	return *vote
}

func (s *Store) GetVote(roomID, userID string) (Vote, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vote, ok := s.votes[roomID][userID]
	if !ok {
		return Vote{}, false
	}
	return *vote, true
}

func (s *Store) DeleteVote(roomID, userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	byUser := s.votes[roomID]
	if _, ok := byUser[userID]; !ok {
		return false
	}
	delete(byUser, userID)
	if len(byUser) == 0 {
		delete(s.votes, roomID)
	}
	return true
}

func (s *Store) VotesByRoom(roomID string) []Vote {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]Vote, 0)
	for _, vote := range s.votes[roomID] {
		list = append(list, *vote)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].UserID < list[j].UserID
	})
	return list
}

func (s *Store) DeleteVotesByRoom(roomID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := len(s.votes[roomID])
	delete(s.votes, roomID)
	return count
}

// InsertNode adds a node unless the (roomID, nodeID) pair already exists, in
// which case it reports false and leaves the existing node untouched.
func (s *Store) InsertNode(node CanvasNode) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	byNode := s.nodes[node.RoomID]
	if byNode == nil {
		byNode = make(map[string]*CanvasNode)
		s.nodes[node.RoomID] = byNode
	}
	if _, ok := byNode[node.NodeID]; ok {
		return false
	}
	stored := node.clone()
	byNode[node.NodeID] = &stored
	return true
}

func (s *Store) GetNode(roomID, nodeID string) (CanvasNode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	node, ok := s.nodes[roomID][nodeID]
	if !ok {
		return CanvasNode{}, false
	}
	return node.clone(), true
}

func (s *Store) PatchNode(roomID, nodeID string, update func(node *CanvasNode) error) (CanvasNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	node, ok := s.nodes[roomID][nodeID]
	if !ok {
		return CanvasNode{}, ErrNodeNotFound
	}
	if err := update(node); err != nil {
		return CanvasNode{}, err
	}
	return node.clone(), nil
}

func (s *Store) DeleteNode(roomID, nodeID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	byNode := s.nodes[roomID]
	if _, ok := byNode[nodeID]; !ok {
		return false
	}
	delete(byNode, nodeID)
	if len(byNode) == 0 {
		delete(s.nodes, roomID)
	}
	return true
}

func (s *Store) NodesByRoom(roomID string) []CanvasNode {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]CanvasNode, 0)
	for _, node := range s.nodes[roomID] {
		list = append(list, node.clone())
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].NodeID < list[j].NodeID
	})
	return list
}

func (s *Store) HasNodes(roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.nodes[roomID]) > 0
}

func (s *Store) CountNodesByType(roomID, nodeType string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, node := range s.nodes[roomID] {
		if node.Type == nodeType {
			count++
		}
	}
	return count
}

func (s *Store) DeleteNodesByRoom(roomID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := len(s.nodes[roomID])
	delete(s.nodes, roomID)
	return count
}

func (s *Store) UpsertViewport(roomID, userID string, x, y, zoom float64, now time.Time) ViewportState {
	s.mu.Lock()
	defer s.mu.Unlock()
	byUser := s.viewports[roomID]
	if byUser == nil {
		byUser = make(map[string]*ViewportState)
		s.viewports[roomID] = byUser
	}
	state, ok := byUser[userID]
	if !ok {
		state = &ViewportState{RoomID: roomID, UserID: userID}
		byUser[userID] = state
	}
	state.X = x
	state.Y = y
	state.Zoom = zoom
	state.LastUpdatedAt = now
	return *state
}

func (s *Store) ViewportsByRoom(roomID string) []ViewportState {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]ViewportState, 0)
	for _, state := range s.viewports[roomID] {
		list = append(list, *state)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].UserID < list[j].UserID
	})
	return list
}

func (s *Store) DeleteViewportsByRoom(roomID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := len(s.viewports[roomID])
	delete(s.viewports, roomID)
	return count
}

// UpsertPresence refreshes a user's presence record. Nil cursor or isActive
// leaves the stored value alone; the ping timestamp always advances.
func (s *Store) UpsertPresence(roomID, userID string, cursor *Position, isActive *bool, now time.Time) Presence {
	s.mu.Lock()
	defer s.mu.Unlock()
	byUser := s.presence[roomID]
	if byUser == nil {
		byUser = make(map[string]*Presence)
		s.presence[roomID] = byUser
	}
	record, ok := byUser[userID]
	if !ok {
		record = &Presence{RoomID: roomID, UserID: userID, IsActive: true}
		byUser[userID] = record
	}
	if cursor != nil {
		c := *cursor
		record.Cursor = &c
	}
	if isActive != nil {
		record.IsActive = *isActive
	}
	record.LastPing = now
	return *record
}

func (s *Store) MarkPresenceInactive(roomID, userID string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.presence[roomID][userID]
	if !ok {
		return false
	}
	record.IsActive = false
	record.LastPing = now
	return true
}

func (s *Store) PresenceByRoom(roomID string, activeOnly bool) []Presence {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]Presence, 0)
	for _, record := range s.presence[roomID] {
		if activeOnly && !record.IsActive {
			continue
		}
		list = append(list, *record)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].UserID < list[j].UserID
	})
	return list
}

// MarkStalePresenceInactive flips every presence record that has not pinged
// since the cutoff and reports how many were flipped.
func (s *Store) MarkStalePresenceInactive(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, byUser := range s.presence {
		for _, record := range byUser {
			if record.IsActive && record.LastPing.Before(cutoff) {
				record.IsActive = false
				count++
			}
		}
	}
	return count
}

func (s *Store) DeletePresenceByRoom(roomID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := len(s.presence[roomID])
	delete(s.presence, roomID)
	return count
}

// OrphanedRoomIDs reports, per child table, the room ids referenced by records
// whose room no longer exists.
func (s *Store) OrphanedRoomIDs() (votes, users, nodes, viewports, presence []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for roomID := range s.votes {
		if _, ok := s.rooms[roomID]; !ok {
			votes = append(votes, roomID)
		}
	}
	for _, user := range s.users {
		if _, ok := s.rooms[user.RoomID]; !ok {
			users = append(users, user.ID)
		}
	}
	for roomID := range s.nodes {
		if _, ok := s.rooms[roomID]; !ok {
			nodes = append(nodes, roomID)
		}
	}
	for roomID := range s.viewports {
		if _, ok := s.rooms[roomID]; !ok {
			viewports = append(viewports, roomID)
		}
	}
	for roomID := range s.presence {
		if _, ok := s.rooms[roomID]; !ok {
			presence = append(presence, roomID)
		}
	}
	return votes, users, nodes, viewports, presence
}
