package game

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/mafia-night/backend/internal/gamestate"
	"github.com/mafia-night/backend/internal/mafia"
	"github.com/mafia-night/backend/internal/protocol"
	"github.com/mafia-night/backend/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUniverse is a minimal in-memory double for the game.Universe
// back-reference, enough to exercise Actor without the real universe.
type fakeUniverse struct {
	mu            sync.Mutex
	users         map[protocol.UserId]bool // value: authenticated
	nicknames     map[protocol.UserId]string
	gameOf        map[protocol.UserId]protocol.GameId
	inbox         map[protocol.UserId][]protocol.Message
	stored        []store.GameRecord
	removedGameID *protocol.GameId
}

func newFakeUniverse(userIDs ...protocol.UserId) *fakeUniverse {
	u := &fakeUniverse{
		users:     map[protocol.UserId]bool{},
		nicknames: map[protocol.UserId]string{},
		gameOf:    map[protocol.UserId]protocol.GameId{},
		inbox:     map[protocol.UserId][]protocol.Message{},
	}
	for _, id := range userIDs {
		u.users[id] = true
		u.nicknames[id] = id.String()[:8]
	}
	return u
}

func (u *fakeUniverse) SetUserGameId(userID protocol.UserId, gameID *protocol.GameId) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.users[userID]; !ok {
		return false
	}
	if gameID == nil {
		delete(u.gameOf, userID)
	} else {
		u.gameOf[userID] = *gameID
	}
	return true
}

func (u *fakeUniverse) GetUser(userID protocol.UserId) (gamestate.PlayerInfo, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.users[userID]; !ok {
		return gamestate.PlayerInfo{}, false
	}
	return gamestate.PlayerInfo{UserID: userID, Nickname: u.nicknames[userID]}, true
}

func (u *fakeUniverse) Send(userID protocol.UserId, msg protocol.Message) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.inbox[userID] = append(u.inbox[userID], msg)
}

func (u *fakeUniverse) StoreState(record store.GameRecord) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.stored = append(u.stored, record)
	return true
}

func (u *fakeUniverse) RemoveGame(gameID protocol.GameId) {
	u.mu.Lock()
	defer u.mu.Unlock()
	id := gameID
	u.removedGameID = &id
}

func (u *fakeUniverse) IsAuthenticated(userID protocol.UserId) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.users[userID]
}

func TestActor_AddPlayer(t *testing.T) {
	alice := uuid.New()
	universe := newFakeUniverse(alice)
	actor, err := New(uuid.New(), "AB12", universe, mafia.New, nil)
	require.NoError(t, err)

	actor.AddPlayer(alice)

	assert.Contains(t, universe.gameOf, alice)
	require.Len(t, universe.inbox[alice], 1)
	assert.Equal(t, protocol.MsgPlayerConnected, messageTag(t, universe.inbox[alice][0]))
	require.Len(t, universe.stored, 1)
	assert.Equal(t, actor.ID(), universe.stored[0].Info.GameID)
	assert.Contains(t, string(universe.stored[0].State), alice.String(),
		"the persisted record carries the full state, not a redacted view")
}

func TestActor_AddPlayer_UnknownUserIsSilentNoOp(t *testing.T) {
	universe := newFakeUniverse() // no users registered
	actor, err := New(uuid.New(), "AB12", universe, mafia.New, nil)
	require.NoError(t, err)

	actor.AddPlayer(uuid.New())

	assert.Empty(t, universe.stored)
	assert.True(t, actor.IsEmpty())
}

func TestActor_RemoveUser_EmptiesGame(t *testing.T) {
	alice := uuid.New()
	universe := newFakeUniverse(alice)
	actor, err := New(uuid.New(), "AB12", universe, mafia.New, nil)
	require.NoError(t, err)

	actor.AddPlayer(alice)
	actor.RemoveUser(alice)

	assert.True(t, actor.IsEmpty())
	require.NotNil(t, universe.removedGameID)
	assert.Equal(t, actor.ID(), *universe.removedGameID)

	// Only PlayerConnected: PlayerDisconnected goes to the players still in
	// the game, and alice was the last one.
	require.Len(t, universe.inbox[alice], 1)
	assert.Equal(t, protocol.MsgPlayerConnected, messageTag(t, universe.inbox[alice][0]))
}

func TestActor_RemoveUser_NonMemberIsSilentNoOp(t *testing.T) {
	alice := uuid.New()
	universe := newFakeUniverse(alice)
	actor, err := New(uuid.New(), "AB12", universe, mafia.New, nil)
	require.NoError(t, err)

	actor.RemoveUser(alice) // never joined

	assert.Empty(t, universe.inbox[alice])
	assert.Nil(t, universe.removedGameID)
}

func TestActor_ConnectedPlayers_FiltersByAuthentication(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	universe := newFakeUniverse(alice, bob)
	actor, err := New(uuid.New(), "AB12", universe, mafia.New, nil)
	require.NoError(t, err)

	actor.AddPlayer(alice)
	actor.AddPlayer(bob)
	universe.users[bob] = false // bob disconnected but still a player

	connected := actor.ConnectedPlayers()
	assert.ElementsMatch(t, []protocol.UserId{alice}, connected)
}

func TestActor_Players_SurvivesDisconnect(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	universe := newFakeUniverse(alice, bob)
	actor, err := New(uuid.New(), "AB12", universe, mafia.New, nil)
	require.NoError(t, err)

	actor.AddPlayer(alice)
	actor.AddPlayer(bob)
	universe.users[bob] = false // bob's socket dropped, but never left the game

	players := actor.Players()
	require.Len(t, players, 2)
	var ids []protocol.UserId
	for _, p := range players {
		ids = append(ids, p.UserID)
	}
	assert.ElementsMatch(t, []protocol.UserId{alice, bob}, ids)
}

func TestActor_PlayerInfo(t *testing.T) {
	alice := uuid.New()
	universe := newFakeUniverse(alice)
	actor, err := New(uuid.New(), "AB12", universe, mafia.New, nil)
	require.NoError(t, err)
	actor.AddPlayer(alice)

	info, ok := actor.PlayerInfo(alice)
	require.True(t, ok)
	assert.Equal(t, alice, info.UserID)
	assert.Equal(t, universe.nicknames[alice], info.Nickname)

	_, ok = actor.PlayerInfo(uuid.New())
	assert.False(t, ok)
}

func TestActor_BroadcastCurrentState_DoesNotPersist(t *testing.T) {
	alice := uuid.New()
	universe := newFakeUniverse(alice)
	actor, err := New(uuid.New(), "AB12", universe, mafia.New, nil)
	require.NoError(t, err)
	actor.AddPlayer(alice)

	before := len(universe.stored)
	actor.BroadcastCurrentState()
	assert.Equal(t, before, len(universe.stored))
}

// messageTag decodes a protocol.Message's "type" field back out, since the
// fields are unexported.
func messageTag(t *testing.T, msg protocol.Message) protocol.MessageTag {
	t.Helper()
	b, err := msg.MarshalJSON()
	require.NoError(t, err)
	var tagged struct {
		Type protocol.MessageTag `json:"type"`
	}
	require.NoError(t, json.Unmarshal(b, &tagged))
	return tagged.Type
}
