// Package gamestate defines the abstract capability a concrete game must
// satisfy for the universe/game-actor core to host it. The core never
// inspects a variant, operation, or snapshot's contents; it only moves
// json.RawMessage payloads between the wire and the State implementation.
package gamestate

import (
	"encoding/json"

	"github.com/mafia-night/backend/internal/protocol"
)

// PlayerPos is an opaque token returned by AddPlayer and handed back to
// PlayerByPos; its only meaning is "the player just inserted".
type PlayerPos int

// PlayerInfo is what the core knows about a player and hands to AddPlayer.
// A concrete State retains at least this much per player for as long as
// the player is in the game, which is what lets a reconnecting user recover
// their nickname even after their universe-level User entry (and its
// nickname) has been removed by the disconnect path.
type PlayerInfo struct {
	UserID   protocol.UserId
	Nickname string
}

// State is one game's authoritative, game-specific state. Every method runs
// under the owning game.Actor's exclusive lock; implementations need no
// internal synchronization of their own.
type State interface {
	// SetVariant configures game parameters. Legal only before the first
	// player joins.
	SetVariant(variant json.RawMessage) error

	// IsJoinable reports whether more players may still be added in the
	// current phase.
	IsJoinable() bool

	// GetPlayers returns the current player set in stable iteration order,
	// so repeated broadcasts enumerate players consistently.
	GetPlayers() []PlayerInfo

	// AddPlayer inserts a new player and returns its position token.
	AddPlayer(info PlayerInfo) PlayerPos

	// RemovePlayer removes a player; it reports whether the player was
	// present.
	RemovePlayer(id protocol.UserId) bool

	// SetPlayerRole optionally assigns a role to a player; op is opaque to
	// the core and interpreted entirely by the implementation.
	SetPlayerRole(id protocol.UserId, op json.RawMessage) error

	// GetPlayerRole optionally reports a player's assigned role.
	GetPlayerRole(id protocol.UserId) (json.RawMessage, bool)

	// PlayerByPos reverse-looks-up the player at a position returned by a
	// prior AddPlayer call.
	PlayerByPos(pos PlayerPos) (protocol.UserId, bool)

	// MakeSnapshot returns viewer's per-player projection of the state,
	// hiding whatever information viewer should not see.
	MakeSnapshot(viewer protocol.UserId) json.RawMessage

	// Serialize returns the full, unredacted state for persistence. Unlike
	// MakeSnapshot it hides nothing: the store and the archive hold the
	// authoritative record, not any single player's view of it.
	Serialize() json.RawMessage

	// SetPlayerReady marks a player ready. It reports whether an init-phase
	// step may follow (i.e. every player is now ready).
	SetPlayerReady(id protocol.UserId) bool

	// UpdateInitState advances the init phase by one step. It reports
	// whether further steps remain.
	UpdateInitState() bool

	// SetPlayerNotReady clears a player's ready flag.
	SetPlayerNotReady(id protocol.UserId)

	// ManageOperation applies an opaque admin/debug operation and returns
	// an opaque result.
	ManageOperation(op json.RawMessage) (json.RawMessage, error)
}

// Factory constructs a fresh, default State with no players and no variant
// configured.
type Factory func() State
