// Package game implements the per-game actor: one game's authoritative
// state behind an exclusive lock, player lifecycle, and snapshot fan-out.
package game

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mafia-night/backend/internal/gamestate"
	"github.com/mafia-night/backend/internal/protocol"
	"github.com/mafia-night/backend/internal/store"
)

// Universe is the back-reference a game needs to reach the universe's
// registries and outbound channels. It exists so this package never
// imports internal/universe: the universe owns games, not the reverse, and
// the import graph should say so. A game holds this as a non-owning
// reference: it is resolved freshly on every call, never cached across a
// lock boundary.
type Universe interface {
	// SetUserGameId records (or clears, if gameID is nil) the user's
	// current game. Reports whether the user exists.
	SetUserGameId(userID protocol.UserId, gameID *protocol.GameId) bool
	// GetUser returns the id/nickname pair backing userID, if it is still
	// a registered user of the universe.
	GetUser(userID protocol.UserId) (gamestate.PlayerInfo, bool)
	// Send enqueues msg on the user's outbound channel; failures are
	// swallowed, matching the universe's own send semantics.
	Send(userID protocol.UserId, msg protocol.Message)
	// StoreState asks the shared store to persist record.
	StoreState(record store.GameRecord) bool
	// RemoveGame drops the game from the universe's registries.
	RemoveGame(gameID protocol.GameId)
	// IsAuthenticated reports whether userID is a currently-authenticated
	// user of the universe.
	IsAuthenticated(userID protocol.UserId) bool
}

// Actor is one live game. Every method that touches state acquires mu for
// its critical section and releases it before any call back into universe,
// so the universe lock is never observed held while a game lock is held.
type Actor struct {
	mu       sync.Mutex
	id       protocol.GameId
	joinCode protocol.JoinCode
	universe Universe
	state    gamestate.State
}

// New creates a game's state, applies variant if given, and does not
// insert the game into the universe; the caller (universe.NewGame) owns
// that step.
func New(id protocol.GameId, joinCode protocol.JoinCode, universe Universe, factory gamestate.Factory, variant json.RawMessage) (*Actor, error) {
	st := factory()
	if len(variant) > 0 {
		if err := st.SetVariant(variant); err != nil {
			return nil, fmt.Errorf("game: apply variant: %w", err)
		}
	}
	return &Actor{id: id, joinCode: joinCode, universe: universe, state: st}, nil
}

func (a *Actor) ID() protocol.GameId         { return a.id }
func (a *Actor) JoinCode() protocol.JoinCode { return a.joinCode }

// AddPlayer records userID's game-id in the universe first; if the user no
// longer exists, it returns silently. It then re-fetches the user's current
// nickname from the universe (set_user_game_id alone does not return it)
// and stores that nickname inside the game-state itself, not just the
// universe, so a reconnecting player can recover it via Players even after
// their universe User entry is gone. Finally it clones the newly-inserted
// player's own snapshot, releases the lock, and broadcasts PlayerConnected.
func (a *Actor) AddPlayer(userID protocol.UserId) {
	if !a.universe.SetUserGameId(userID, &a.id) {
		return
	}
	info, ok := a.universe.GetUser(userID)
	if !ok {
		return
	}

	a.mu.Lock()
	a.state.AddPlayer(info)
	playerView := a.state.MakeSnapshot(userID)
	a.mu.Unlock()

	a.Broadcast(protocol.PlayerConnected(playerView))
}

// RemoveUser clears the user's game-id in the universe, then removes the
// player from the state if present. If that removal left the game empty, it
// asks the universe to remove it; removing a non-member leaves the game as
// it is.
func (a *Actor) RemoveUser(userID protocol.UserId) {
	a.universe.SetUserGameId(userID, nil)

	a.mu.Lock()
	removed := a.state.RemovePlayer(userID)
	empty := len(a.state.GetPlayers()) == 0
	a.mu.Unlock()

	if removed {
		a.Broadcast(protocol.PlayerDisconnected(userID))
	}
	if removed && empty {
		a.universe.RemoveGame(a.id)
	}
}

// Players returns the unfiltered player roster, including players whose
// sockets are currently disconnected. Reconnect resolution in the universe
// goes through PlayerInfo, the single-player lookup below.
func (a *Actor) Players() []gamestate.PlayerInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.GetPlayers()
}

// PlayerInfo reports whether userID is currently seated in this game, and
// if so, their id/nickname pair.
func (a *Actor) PlayerInfo(userID protocol.UserId) (gamestate.PlayerInfo, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, p := range a.state.GetPlayers() {
		if p.UserID == userID {
			return p, true
		}
	}
	return gamestate.PlayerInfo{}, false
}

func (a *Actor) MarkPlayerReady(userID protocol.UserId) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.SetPlayerReady(userID)
}

func (a *Actor) SetPlayerNotReady(userID protocol.UserId) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.SetPlayerNotReady(userID)
}

func (a *Actor) UpdateInitState() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.UpdateInitState()
}

func (a *Actor) SetPlayerRole(userID protocol.UserId, op json.RawMessage) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.SetPlayerRole(userID, op)
}

func (a *Actor) GetPlayerRole(userID protocol.UserId) (json.RawMessage, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.GetPlayerRole(userID)
}

func (a *Actor) ManageOperation(op json.RawMessage) (json.RawMessage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.ManageOperation(op)
}

// Broadcast sends msg to every current player, then asks the universe to
// persist the current state. Persistence does not block delivery: it runs
// after every send has been enqueued.
func (a *Actor) Broadcast(msg protocol.Message) {
	a.mu.Lock()
	players := a.state.GetPlayers()
	a.mu.Unlock()

	for _, p := range players {
		a.universe.Send(p.UserID, msg)
	}
	a.universe.StoreState(a.record())
}

// BroadcastCurrentState sends each player their own make_snapshot
// projection as a GameStateSnapshot message. Unlike Broadcast, this does
// not touch the store.
func (a *Actor) BroadcastCurrentState() {
	a.mu.Lock()
	players := a.state.GetPlayers()
	snapshots := make(map[protocol.UserId]json.RawMessage, len(players))
	for _, p := range players {
		snapshots[p.UserID] = a.state.MakeSnapshot(p.UserID)
	}
	a.mu.Unlock()

	for id, snap := range snapshots {
		a.universe.Send(id, protocol.GameStateSnapshot(snap))
	}
}

// Send unicasts msg to one player via the universe's outbound channel.
func (a *Actor) Send(userID protocol.UserId, msg protocol.Message) {
	a.universe.Send(userID, msg)
}

func (a *Actor) GameInfo() protocol.GameInfo {
	return protocol.GameInfo{GameID: a.id, JoinCode: a.joinCode}
}

func (a *Actor) GameExtendedInfo() protocol.GameExtendedInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	return protocol.GameExtendedInfo{
		GameInfo: protocol.GameInfo{GameID: a.id, JoinCode: a.joinCode},
		Joinable: a.state.IsJoinable(),
		Players:  len(a.state.GetPlayers()),
	}
}

func (a *Actor) IsEmpty() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.state.GetPlayers()) == 0
}

func (a *Actor) IsJoinable() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.IsJoinable()
}

// ConnectedPlayers returns only those in-game users who are currently
// authenticated on the universe.
func (a *Actor) ConnectedPlayers() []protocol.UserId {
	a.mu.Lock()
	players := a.state.GetPlayers()
	a.mu.Unlock()

	out := make([]protocol.UserId, 0, len(players))
	for _, p := range players {
		if a.universe.IsAuthenticated(p.UserID) {
			out = append(out, p.UserID)
		}
	}
	return out
}

// record clones the game's current full state for persistence. This goes
// through Serialize, not MakeSnapshot: the stored record is the
// authoritative state, not any player's redacted view of it.
func (a *Actor) record() store.GameRecord {
	a.mu.Lock()
	state := a.state.Serialize()
	a.mu.Unlock()
	return store.GameRecord{Info: a.GameInfo(), State: state}
}
