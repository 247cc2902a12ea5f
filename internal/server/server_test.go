package server

import (
	"net/http"
	"testing"
)

func TestCreateRoomValidation(t *testing.T) {
	_, ts := newTestServer(t)

	resp := doRequest(t, ts, http.MethodPost, "/api/rooms", map[string]any{"name": ""})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/rooms", map[string]any{
		"name": "  Refinement  ",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}
}

func TestGetRoomNotFound(t *testing.T) {
	_, ts := newTestServer(t)

	resp := doRequest(t, ts, http.MethodGet, "/api/rooms/nope", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestJoinUnknownRoom(t *testing.T) {
	_, ts := newTestServer(t)

	resp := doRequest(t, ts, http.MethodPost, "/api/rooms/nope/join", map[string]any{
		"name": "Ada",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestRoomInitialNodes(t *testing.T) {
	_, ts := newTestServer(t)
	roomID := createRoom(t, ts)

	nodes := fetchNodes(t, ts, roomID)
	if len(nodes) != 2 {
		t.Fatalf("expected 2 initial nodes, got %d", len(nodes))
	}
	byID := nodesByID(t, nodes)
	if _, ok := byID["timer"]; !ok {
		t.Error("missing timer node")
	}
	if _, ok := byID["session-current"]; !ok {
		t.Error("missing session node")
	}
}

func TestJoinProvisionsNodes(t *testing.T) {
	_, ts := newTestServer(t)
	roomID := createRoom(t, ts)

	voterID := joinUser(t, ts, roomID, "Ada", false)
	spectatorID := joinUser(t, ts, roomID, "Grace", true)

	nodes := fetchNodes(t, ts, roomID)
	// timer + session + 2 player badges + 9 voting cards for the voter only
	if len(nodes) != 13 {
		t.Fatalf("expected 13 nodes, got %d", len(nodes))
	}
	byID := nodesByID(t, nodes)
	if _, ok := byID["player-"+voterID]; !ok {
		t.Error("missing voter player node")
	}
	if _, ok := byID["player-"+spectatorID]; !ok {
		t.Error("missing spectator player node")
	}
	if _, ok := byID["card-"+voterID+"-0"]; !ok {
		t.Error("missing voter card node")
	}
	if _, ok := byID["card-"+spectatorID+"-0"]; ok {
		t.Error("spectator should not have card nodes")
	}
}

func TestVoteSanitizationAcrossReveal(t *testing.T) {
	_, ts := newTestServer(t)
	roomID := createRoom(t, ts)
	userID := joinUser(t, ts, roomID, "Ada", false)

	pickCard(t, ts, roomID, userID, "8", 8)

	body := fetchRoom(t, ts, roomID)
	votes := roomVotes(t, body)
	if len(votes) != 1 {
		t.Fatalf("expected 1 vote, got %d", len(votes))
	}
	if votes[0]["has_voted"] != true {
		t.Error("expected has_voted=true before reveal")
	}
	if votes[0]["card_label"] != nil {
		t.Errorf("card_label leaked before reveal: %v", votes[0]["card_label"])
	}

	resp := doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/show", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	body = fetchRoom(t, ts, roomID)
	if body["room"].(map[string]any)["is_game_over"] != true {
		t.Error("expected is_game_over=true after reveal")
	}
	votes = roomVotes(t, body)
	if votes[0]["card_label"] != "8" {
		t.Errorf("expected card_label 8 after reveal, got %v", votes[0]["card_label"])
	}

	byID := nodesByID(t, fetchNodes(t, ts, roomID))
	if _, ok := byID["results"]; !ok {
		t.Error("missing results node after reveal")
	}
}

func TestVoteReplacedNotDuplicated(t *testing.T) {
	_, ts := newTestServer(t)
	roomID := createRoom(t, ts)
	userID := joinUser(t, ts, roomID, "Ada", false)

	pickCard(t, ts, roomID, userID, "3", 3)
	pickCard(t, ts, roomID, userID, "13", 13)

	doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/show", nil)
	votes := roomVotes(t, fetchRoom(t, ts, roomID))
	if len(votes) != 1 {
		t.Fatalf("expected 1 vote after re-pick, got %d", len(votes))
	}
	if votes[0]["card_label"] != "13" {
		t.Errorf("expected latest card 13, got %v", votes[0]["card_label"])
	}
}

func TestRemoveCard(t *testing.T) {
	_, ts := newTestServer(t)
	roomID := createRoom(t, ts)
	userID := joinUser(t, ts, roomID, "Ada", false)
	pickCard(t, ts, roomID, userID, "5", 5)

	resp := doRequest(t, ts, http.MethodDelete, "/api/rooms/"+roomID+"/votes/"+userID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if votes := roomVotes(t, fetchRoom(t, ts, roomID)); len(votes) != 0 {
		t.Fatalf("expected no votes after removal, got %d", len(votes))
	}

	// Withdrawing an absent vote is a no-op, not an error.
	resp = doRequest(t, ts, http.MethodDelete, "/api/rooms/"+roomID+"/votes/"+userID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
}

func TestResetGameKeepsNodes(t *testing.T) {
	_, ts := newTestServer(t)
	roomID := createRoom(t, ts)
	userID := joinUser(t, ts, roomID, "Ada", false)
	pickCard(t, ts, roomID, userID, "5", 5)
	doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/show", nil)

	nodesBefore := len(fetchNodes(t, ts, roomID))

	resp := doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/reset", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	body := fetchRoom(t, ts, roomID)
	if body["room"].(map[string]any)["is_game_over"] != false {
		t.Error("expected is_game_over=false after reset")
	}
	if votes := roomVotes(t, body); len(votes) != 0 {
		t.Fatalf("expected votes cleared on reset, got %d", len(votes))
	}
	if nodesAfter := len(fetchNodes(t, ts, roomID)); nodesAfter != nodesBefore {
		t.Fatalf("expected %d nodes to survive reset, got %d", nodesBefore, nodesAfter)
	}
}

func TestSpectatorFlipReconcilesCards(t *testing.T) {
	_, ts := newTestServer(t)
	roomID := createRoom(t, ts)
	userID := joinUser(t, ts, roomID, "Ada", false)
	pickCard(t, ts, roomID, userID, "5", 5)

	resp := doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/users/"+userID, map[string]any{
		"is_spectator": true,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	byID := nodesByID(t, fetchNodes(t, ts, roomID))
	if _, ok := byID["card-"+userID+"-0"]; ok {
		t.Error("card nodes should be removed when user becomes spectator")
	}
	if _, ok := byID["player-"+userID]; !ok {
		t.Error("player badge should survive spectator flip")
	}
	if votes := roomVotes(t, fetchRoom(t, ts, roomID)); len(votes) != 0 {
		t.Fatalf("expected vote dropped on spectator flip, got %d", len(votes))
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/users/"+userID, map[string]any{
		"is_spectator": false,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	byID = nodesByID(t, fetchNodes(t, ts, roomID))
	if _, ok := byID["card-"+userID+"-0"]; !ok {
		t.Error("card nodes should be recreated when spectator becomes voter")
	}
}

func TestLeaveRoomCascades(t *testing.T) {
	_, ts := newTestServer(t)
	roomID := createRoom(t, ts)
	leaverID := joinUser(t, ts, roomID, "Ada", false)
	stayerID := joinUser(t, ts, roomID, "Grace", false)
	pickCard(t, ts, roomID, leaverID, "5", 5)
	pickCard(t, ts, roomID, stayerID, "8", 8)

	resp := doRequest(t, ts, http.MethodDelete, "/api/rooms/"+roomID+"/users/"+leaverID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	body := fetchRoom(t, ts, roomID)
	users := body["users"].([]any)
	if len(users) != 1 {
		t.Fatalf("expected 1 remaining user, got %d", len(users))
	}
	votes := roomVotes(t, body)
	if len(votes) != 1 || votes[0]["user_id"] != stayerID {
		t.Fatalf("expected only the staying user's vote, got %v", votes)
	}
	byID := nodesByID(t, fetchNodes(t, ts, roomID))
	if _, ok := byID["player-"+leaverID]; ok {
		t.Error("leaver's player node should be gone")
	}
	if _, ok := byID["card-"+leaverID+"-0"]; ok {
		t.Error("leaver's card nodes should be gone")
	}
	if _, ok := byID["card-"+stayerID+"-0"]; !ok {
		t.Error("stayer's card nodes should survive")
	}

	resp = doRequest(t, ts, http.MethodDelete, "/api/rooms/"+roomID+"/users/"+leaverID, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d on double leave, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestAutoCompleteReveal(t *testing.T) {
	_, ts := newTestServer(t)
	resp := doRequest(t, ts, http.MethodPost, "/api/rooms", map[string]any{
		"name":                 "Sprint 12",
		"auto_complete_voting": true,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}
	roomID := decodeBody(t, resp)["room_id"].(string)

	aliceID := joinUser(t, ts, roomID, "Alice", false)
	bobID := joinUser(t, ts, roomID, "Bob", false)
	joinUser(t, ts, roomID, "Watcher", true)

	pickCard(t, ts, roomID, aliceID, "5", 5)
	body := fetchRoom(t, ts, roomID)
	if body["room"].(map[string]any)["is_game_over"] != false {
		t.Fatal("reveal fired before all voters were in")
	}

	// The spectator never votes; the second voter completes the set.
	pickCard(t, ts, roomID, bobID, "8", 8)
	body = fetchRoom(t, ts, roomID)
	if body["room"].(map[string]any)["is_game_over"] != true {
		t.Fatal("expected auto reveal when the last voter cast")
	}
	if body["all_votes_in"] != true {
		t.Fatal("expected all_votes_in=true")
	}
}

func TestNodeLockBlocksMoves(t *testing.T) {
	_, ts := newTestServer(t)
	roomID := createRoom(t, ts)
	userID := joinUser(t, ts, roomID, "Ada", false)

	resp := doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/nodes/timer/lock", map[string]any{
		"locked": true,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/nodes/timer/position", map[string]any{
		"user_id":  userID,
		"position": map[string]any{"x": 10, "y": 20},
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected status %d for locked node, got %d", http.StatusConflict, resp.StatusCode)
	}

	doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/nodes/timer/lock", map[string]any{
		"locked": false,
	})
	resp = doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/nodes/timer/position", map[string]any{
		"user_id":  userID,
		"position": map[string]any{"x": 10, "y": 20},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d after unlock, got %d", http.StatusOK, resp.StatusCode)
	}
	node := decodeBody(t, resp)
	pos := node["position"].(map[string]any)
	if pos["x"].(float64) != 10 || pos["y"].(float64) != 20 {
		t.Fatalf("position not applied: %v", pos)
	}
	if node["last_updated_by"] != userID {
		t.Errorf("expected last_updated_by=%s, got %v", userID, node["last_updated_by"])
	}
}

func TestNodePositionUnknownNode(t *testing.T) {
	_, ts := newTestServer(t)
	roomID := createRoom(t, ts)
	userID := joinUser(t, ts, roomID, "Ada", false)

	resp := doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/nodes/ghost/position", map[string]any{
		"user_id":  userID,
		"position": map[string]any{"x": 0, "y": 0},
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestTimerEndpoints(t *testing.T) {
	_, ts := newTestServer(t)
	roomID := createRoom(t, ts)
	userID := joinUser(t, ts, roomID, "Ada", false)

	resp := doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/timer/rewind", map[string]any{
		"user_id": userID,
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d for unknown action, got %d", http.StatusNotFound, resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/timer/start", map[string]any{
		"user_id": userID,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	state := decodeBody(t, resp)
	if state["is_running"] != true {
		t.Fatal("expected timer running after start")
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/timer/start", map[string]any{
		"user_id": userID,
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected status %d for double start, got %d", http.StatusConflict, resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodGet, "/api/rooms/"+roomID+"/timer", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if decodeBody(t, resp)["is_running"] != true {
		t.Fatal("expected running state from read endpoint")
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/timer/pause", map[string]any{
		"user_id": userID,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/timer/pause", map[string]any{
		"user_id": userID,
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected status %d for pause while stopped, got %d", http.StatusConflict, resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/timer/reset", map[string]any{
		"user_id": userID,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	state = decodeBody(t, resp)
	if state["current_seconds"].(float64) != 0 || state["display_time"] != "0:00" {
		t.Fatalf("expected zeroed timer after reset, got %v", state)
	}
}

func TestAnalysisEndpoint(t *testing.T) {
	_, ts := newTestServer(t)
	roomID := createRoom(t, ts)
	aliceID := joinUser(t, ts, roomID, "Alice", false)
	bobID := joinUser(t, ts, roomID, "Bob", false)
	pickCard(t, ts, roomID, aliceID, "5", 5)
	pickCard(t, ts, roomID, bobID, "5", 5)

	resp := doRequest(t, ts, http.MethodGet, "/api/rooms/"+roomID+"/analysis", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected status %d before reveal, got %d", http.StatusConflict, resp.StatusCode)
	}

	doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/show", nil)
	resp = doRequest(t, ts, http.MethodGet, "/api/rooms/"+roomID+"/analysis", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	agreement := body["agreement_quality"].(map[string]any)
	if agreement["consensus_strength"].(float64) != 100 {
		t.Errorf("expected consensus 100 for identical votes, got %v", agreement["consensus_strength"])
	}
	if body["participation_rate"].(float64) != 100 {
		t.Errorf("expected full participation, got %v", body["participation_rate"])
	}
}

func TestViewportRoundTrip(t *testing.T) {
	_, ts := newTestServer(t)
	roomID := createRoom(t, ts)
	userID := joinUser(t, ts, roomID, "Ada", false)

	resp := doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/viewport", map[string]any{
		"user_id": userID,
		"x":       120.5,
		"y":       -40,
		"zoom":    0.75,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodGet, "/api/rooms/"+roomID+"/viewports", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	viewports := decodeBody(t, resp)["viewports"].([]any)
	if len(viewports) != 1 {
		t.Fatalf("expected 1 viewport, got %d", len(viewports))
	}
	state := viewports[0].(map[string]any)
	if state["zoom"].(float64) != 0.75 {
		t.Errorf("expected zoom 0.75, got %v", state["zoom"])
	}
}

func TestPresenceRoundTrip(t *testing.T) {
	_, ts := newTestServer(t)
	roomID := createRoom(t, ts)
	userID := joinUser(t, ts, roomID, "Ada", false)

	resp := doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/presence", map[string]any{
		"user_id": userID,
		"cursor":  map[string]any{"x": 33, "y": 44},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodGet, "/api/rooms/"+roomID+"/presence", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	presence := decodeBody(t, resp)["presence"].([]any)
	if len(presence) != 1 {
		t.Fatalf("expected 1 presence record, got %d", len(presence))
	}
	record := presence[0].(map[string]any)
	if record["is_active"] != true {
		t.Error("expected presence to default to active")
	}
	cursor := record["cursor"].(map[string]any)
	if cursor["x"].(float64) != 33 {
		t.Errorf("expected cursor x 33, got %v", cursor["x"])
	}
}

func TestMaintenanceEndpoints(t *testing.T) {
	_, ts := newTestServer(t)
	createRoom(t, ts)

	resp := doRequest(t, ts, http.MethodPost, "/api/maintenance/sweep", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if decodeBody(t, resp)["rooms_deleted"].(float64) != 0 {
		t.Error("fresh room should not be swept")
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/maintenance/orphans", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
}

func nodesByID(t *testing.T, nodes []any) map[string]map[string]any {
	t.Helper()
	byID := make(map[string]map[string]any, len(nodes))
	for _, entry := range nodes {
		node := entry.(map[string]any)
		byID[node["node_id"].(string)] = node
	}
	return byID
}
