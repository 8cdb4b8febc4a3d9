// Package universe implements the session/universe runtime's central
// registry: every connected user, every live game, and the join-code
// directory that maps a short code to one of them. It owns the shared
// persistence store and is the only caller that may create or remove a
// game.Actor.
package universe

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mafia-night/backend/internal/game"
	"github.com/mafia-night/backend/internal/gamestate"
	"github.com/mafia-night/backend/internal/protocol"
	"github.com/mafia-night/backend/internal/store"
	"github.com/mafia-night/backend/pkg/joincode"
)

// UserInfo is a user's externally-visible identity and session state.
type UserInfo struct {
	ID            protocol.UserId
	Nickname      string
	Authenticated bool
	GameID        *protocol.GameId
}

// BotDialer writes a join code to the external bot bridge. Implemented by
// internal/bot; kept as an interface here so the universe never imports a
// concrete transport.
type BotDialer interface {
	Invite(joinCode protocol.JoinCode) error
}

type userEntry struct {
	id            protocol.UserId
	nickname      string
	authenticated bool
	gameID        *protocol.GameId
	outbound      chan<- protocol.Message
}

func (e *userEntry) info() UserInfo {
	return UserInfo{ID: e.id, Nickname: e.nickname, Authenticated: e.authenticated, GameID: e.gameID}
}

// Universe holds the registries behind one writer/many-reader lock:
// mutators take the
// exclusive mode for the shortest possible critical section, and lookups
// release the lock before doing any further work (network I/O, game-lock
// acquisition).
type Universe struct {
	mu            sync.RWMutex
	users         map[protocol.UserId]*userEntry
	games         map[protocol.GameId]*game.Actor
	joinableGames map[protocol.JoinCode]protocol.GameId

	store   store.Store
	factory gamestate.Factory
	bot     BotDialer
}

var _ game.Universe = (*Universe)(nil)

// New builds an empty universe backed by st, hosting games produced by
// factory, with join codes forwarded to bot when invited.
func New(st store.Store, factory gamestate.Factory, bot BotDialer) *Universe {
	return &Universe{
		users:         make(map[protocol.UserId]*userEntry),
		games:         make(map[protocol.GameId]*game.Actor),
		joinableGames: make(map[protocol.JoinCode]protocol.GameId),
		store:         st,
		factory:       factory,
		bot:           bot,
	}
}

// AddUser registers a freshly-connected socket. If claimed is true, the
// caller has parsed a reconnect attempt naming claimedGameID/claimedUserID
// (see protocol.ParseSessionID); AddUser accepts the claim only if that
// user is currently a seated player of that exact game, in which case it
// reuses their id and nickname and marks them authenticated. Otherwise it
// mints a fresh, unauthenticated user named "anonymous".
func (u *Universe) AddUser(outbound chan<- protocol.Message, claimedGameID protocol.GameId, claimedUserID protocol.UserId, claimed bool) (UserInfo, *protocol.GameId) {
	userID := protocol.NewUserId()
	nickname := "anonymous"
	authenticated := false
	var gameID *protocol.GameId

	if claimed {
		if g, ok := u.GetGame(claimedGameID); ok {
			if info, found := g.PlayerInfo(claimedUserID); found {
				userID = claimedUserID
				nickname = info.Nickname
				authenticated = true
				id := claimedGameID
				gameID = &id
			}
		}
	}

	u.mu.Lock()
	u.users[userID] = &userEntry{
		id:            userID,
		nickname:      nickname,
		authenticated: authenticated,
		gameID:        gameID,
		outbound:      outbound,
	}
	u.mu.Unlock()

	return UserInfo{ID: userID, Nickname: nickname, Authenticated: authenticated, GameID: gameID}, gameID
}

// AuthenticateUser trims and validates nickname, then marks userID
// authenticated. A second authentication attempt is rejected.
func (u *Universe) AuthenticateUser(userID protocol.UserId, nickname string) (UserInfo, error) {
	nickname = trimNickname(nickname)
	if nickname == "" || len(nickname) > 16 {
		return UserInfo{}, protocol.NewProtocolError(protocol.BadInput, "nickname must be 1 to 16 characters")
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	entry, ok := u.users[userID]
	if !ok {
		return UserInfo{}, protocol.NewProtocolError(protocol.InternalError, "user not found")
	}
	if entry.authenticated {
		return UserInfo{}, protocol.NewProtocolError(protocol.AlreadyAuthenticated, "cannot authenticate twice")
	}
	entry.authenticated = true
	entry.nickname = nickname
	return entry.info(), nil
}

func trimNickname(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }

// IsAuthenticated reports whether userID is a currently-registered,
// authenticated user. Also satisfies game.Universe.
func (u *Universe) IsAuthenticated(userID protocol.UserId) bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	entry, ok := u.users[userID]
	return ok && entry.authenticated
}

// RemoveUser drops userID's entry unconditionally. It does not touch any
// game the user was seated in; callers that need that do
// RemoveUserFromGame first.
func (u *Universe) RemoveUser(userID protocol.UserId) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.users, userID)
}

// SetUserGameId records or clears userID's current game. Reports whether
// the user exists. Also satisfies game.Universe.
func (u *Universe) SetUserGameId(userID protocol.UserId, gameID *protocol.GameId) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	entry, ok := u.users[userID]
	if !ok {
		return false
	}
	entry.gameID = gameID
	return true
}

// GetUser returns the id/nickname pair backing userID. Satisfies
// game.Universe so *Universe can be passed directly to game.New.
func (u *Universe) GetUser(userID protocol.UserId) (gamestate.PlayerInfo, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	entry, ok := u.users[userID]
	if !ok {
		return gamestate.PlayerInfo{}, false
	}
	return gamestate.PlayerInfo{UserID: entry.id, Nickname: entry.nickname}, true
}

// GetUserInfo is the public registry accessor returning the full UserInfo,
// as distinct from GetUser's narrower gamestate.PlayerInfo view.
func (u *Universe) GetUserInfo(userID protocol.UserId) (UserInfo, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	entry, ok := u.users[userID]
	if !ok {
		return UserInfo{}, false
	}
	return entry.info(), true
}

// NewGame mints a join code (retrying on the rare collision), constructs a
// game.Actor, and inserts it into both registries.
func (u *Universe) NewGame(variant json.RawMessage) (*game.Actor, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	var code protocol.JoinCode
	for {
		code = protocol.JoinCode(joincode.Generate())
		if _, taken := u.joinableGames[code]; !taken {
			break
		}
	}

	g, err := game.New(protocol.NewGameId(), code, u, u.factory, variant)
	if err != nil {
		return nil, fmt.Errorf("universe: new_game: %w", err)
	}
	u.games[g.ID()] = g
	u.joinableGames[code] = g.ID()
	return g, nil
}

// JoinGame looks up code, verifies the game still accepts players, and
// adds userID to it. A stale joinableGames entry for a game that has
// since become unjoinable is lazily evicted here, so the directory only
// ever names joinable games as of the next lookup, not necessarily
// instantaneously on every internal transition.
func (u *Universe) JoinGame(userID protocol.UserId, code protocol.JoinCode) (*game.Actor, error) {
	u.mu.RLock()
	gameID, ok := u.joinableGames[code]
	u.mu.RUnlock()
	if !ok {
		return nil, protocol.NewProtocolError(protocol.NotFound, "no game with that join code")
	}

	g, ok := u.GetGame(gameID)
	if !ok {
		u.mu.Lock()
		delete(u.joinableGames, code)
		u.mu.Unlock()
		return nil, protocol.NewProtocolError(protocol.NotFound, "no game with that join code")
	}

	if !g.IsJoinable() {
		u.mu.Lock()
		delete(u.joinableGames, code)
		u.mu.Unlock()
		return nil, protocol.NewProtocolError(protocol.InvalidCommand, "game is currently not joinable")
	}

	g.AddPlayer(userID)
	return g, nil
}

// GetGame looks up a game by id.
func (u *Universe) GetGame(gameID protocol.GameId) (*game.Actor, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	g, ok := u.games[gameID]
	return g, ok
}

// RemoveGame drops gameID from both registries. Also satisfies
// game.Universe.
func (u *Universe) RemoveGame(gameID protocol.GameId) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if g, ok := u.games[gameID]; ok {
		delete(u.joinableGames, g.JoinCode())
	}
	delete(u.games, gameID)
}

// GetUserGame returns the game the user is currently recorded as being in,
// if any.
func (u *Universe) GetUserGame(userID protocol.UserId) (*game.Actor, bool) {
	u.mu.RLock()
	entry, ok := u.users[userID]
	if !ok || entry.gameID == nil {
		u.mu.RUnlock()
		return nil, false
	}
	gameID := *entry.gameID
	u.mu.RUnlock()
	return u.GetGame(gameID)
}

// FindUserGame reports whether userID is currently a seated player of
// gameID, and if so their id/nickname pair.
func (u *Universe) FindUserGame(gameID protocol.GameId, userID protocol.UserId) (gamestate.PlayerInfo, bool) {
	g, ok := u.GetGame(gameID)
	if !ok {
		return gamestate.PlayerInfo{}, false
	}
	return g.PlayerInfo(userID)
}

// RemoveUserFromGame makes userID leave whatever game they are in, if any.
func (u *Universe) RemoveUserFromGame(userID protocol.UserId) {
	if g, ok := u.GetUserGame(userID); ok {
		g.RemoveUser(userID)
	}
}

// Send enqueues msg on userID's outbound channel. A full channel or an
// unregistered user is a silent no-op: the disconnect path is responsible
// for cleanup, not this call. The read lock is held across the enqueue so
// the disconnect path cannot remove the entry and close its channel while
// a send is in flight; the enqueue never blocks, so the lock is held only
// briefly. Also satisfies game.Universe.
func (u *Universe) Send(userID protocol.UserId, msg protocol.Message) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	entry, ok := u.users[userID]
	if !ok {
		return
	}
	select {
	case entry.outbound <- msg:
	default:
	}
}

// StoreState asks the shared store to persist record. Also satisfies
// game.Universe.
func (u *Universe) StoreState(record store.GameRecord) bool {
	return u.store.Save(record)
}

// ShowGames is a diagnostic projection of every live game.
func (u *Universe) ShowGames() []protocol.GameExtendedInfo {
	u.mu.RLock()
	games := make([]*game.Actor, 0, len(u.games))
	for _, g := range u.games {
		games = append(games, g)
	}
	u.mu.RUnlock()

	out := make([]protocol.GameExtendedInfo, len(games))
	for i, g := range games {
		out[i] = g.GameExtendedInfo()
	}
	return out
}

// ShowStoredGames is a diagnostic projection of every record still in the
// store, i.e. not yet archived to disk.
func (u *Universe) ShowStoredGames() []store.GameRecord {
	var out []store.GameRecord
	u.store.Iterate(func(r store.GameRecord) bool {
		out = append(out, r)
		return true
	})
	return out
}

// ShowUsers lists every connected user id except excluding, for diagnostic
// use (and ShowUuid's Chat-shaped reply).
func (u *Universe) ShowUsers(excluding protocol.UserId) []protocol.UserId {
	u.mu.RLock()
	defer u.mu.RUnlock()
	out := make([]protocol.UserId, 0, len(u.users))
	for id := range u.users {
		if id != excluding {
			out = append(out, id)
		}
	}
	return out
}

// InviteBot forwards code to the bot bridge.
func (u *Universe) InviteBot(code protocol.JoinCode) error {
	if u.bot == nil {
		return protocol.NewProtocolError(protocol.NotFound, "bots not available")
	}
	if err := u.bot.Invite(code); err != nil {
		return protocol.NewProtocolError(protocol.NotFound, "bots not writable")
	}
	return nil
}

// DebugGame applies an opaque admin/debug operation to gameID's state.
func (u *Universe) DebugGame(gameID protocol.GameId, op json.RawMessage) (json.RawMessage, error) {
	g, ok := u.GetGame(gameID)
	if !ok {
		return nil, protocol.NewProtocolError(protocol.NotFound, "game does not exist")
	}
	return g.ManageOperation(op)
}
