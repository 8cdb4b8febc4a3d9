// Package store persists GameRecords: the unit the archiver promotes from
// the live key-value store to a JSON file once a game goes stale.
package store

import (
	"encoding/json"
	"time"

	"github.com/mafia-night/backend/internal/protocol"
)

// GameRecord is the archive's serialization unit. State is the opaque,
// game-specific state JSON produced by gamestate.State.Serialize. The
// store never interprets it.
type GameRecord struct {
	DateUpdated time.Time         `json:"date_updated"`
	Info        protocol.GameInfo `json:"info"`
	State       json.RawMessage   `json:"state"`
}

// Store is a keyed map of game-id to serialized game record, plus an
// iterator the archiver uses to find stale entries. Implementations must be
// safe for concurrent use; callers treat each call as atomic.
type Store interface {
	// Save replaces the record for record.Info.GameID, refreshing its
	// DateUpdated, and reports whether the write succeeded.
	Save(record GameRecord) bool

	// Delete removes the record for gameID, reporting whether the delete
	// succeeded; deleting an absent record also reports true.
	Delete(gameID protocol.GameId) bool

	// Iterate calls fn once per stored record in unspecified order,
	// stopping early if fn returns false.
	Iterate(fn func(GameRecord) bool) error

	// Close releases any resources the store holds open.
	Close() error
}
