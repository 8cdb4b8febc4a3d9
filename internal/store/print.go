package store

import (
	"log"

	"github.com/mafia-night/backend/internal/protocol"
)

// PrintStore is a no-op development store: every call is logged and
// nothing is retained, so Iterate never yields anything for the archiver
// to act on.
type PrintStore struct{}

// NewPrintStore returns a PrintStore. It exists purely so call sites read
// the same as NewBoltStore's.
func NewPrintStore() *PrintStore {
	return &PrintStore{}
}

func (s *PrintStore) Save(record GameRecord) bool {
	log.Printf("[store] save game=%s join_code=%s", record.Info.GameID, record.Info.JoinCode)
	return true
}

func (s *PrintStore) Delete(gameID protocol.GameId) bool {
	log.Printf("[store] delete game=%s", gameID)
	return true
}

func (s *PrintStore) Iterate(fn func(GameRecord) bool) error {
	log.Printf("[store] iterate: nothing to report (print store retains nothing)")
	return nil
}

func (s *PrintStore) Close() error {
	log.Printf("[store] close")
	return nil
}
