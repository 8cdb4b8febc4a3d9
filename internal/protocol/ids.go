// Package protocol defines the wire types shared between the WebSocket
// session handler and its clients: identifiers, the tagged command and
// message envelopes, and the protocol error taxonomy.
package protocol

import (
	"strings"

	"github.com/google/uuid"
)

// GameId opaquely identifies one live or archived game.
type GameId = uuid.UUID

// UserId opaquely identifies one connected or previously-connected user.
type UserId = uuid.UUID

// NewGameId mints a fresh, random GameId.
func NewGameId() GameId { return uuid.New() }

// NewUserId mints a fresh, random UserId.
func NewUserId() UserId { return uuid.New() }

// JoinCode is a short, human-typable code that maps to a joinable game.
type JoinCode string

// ParseSessionID splits the "{session_guid}_{user_uuid}" WebSocket path
// parameter into a claimed game id and user id, a reconnection attempt. The
// leading half is itself a GameId, not an opaque token: a reconnecting
// client names the specific game it believes it is still seated in, and the
// universe accepts the claim only if that user is still a live player of
// that exact game. ok is false whenever either half fails to parse as a
// UUID (including a session-id with no "_", a fresh session), in which case
// the caller mints a new, unauthenticated user instead.
func ParseSessionID(sessionID string) (claimedGameID GameId, claimedUserID UserId, ok bool) {
	idx := strings.LastIndexByte(sessionID, '_')
	if idx < 0 {
		return uuid.Nil, uuid.Nil, false
	}
	gameID, err := uuid.Parse(sessionID[:idx])
	if err != nil {
		return uuid.Nil, uuid.Nil, false
	}
	userID, err := uuid.Parse(sessionID[idx+1:])
	if err != nil {
		return uuid.Nil, uuid.Nil, false
	}
	return gameID, userID, true
}
