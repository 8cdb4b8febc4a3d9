package store

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/mafia-night/backend/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBoltStore(t *testing.T) *BoltStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "games.db")
	s, err := NewBoltStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBoltStore_SaveDeleteIterate(t *testing.T) {
	s := newTestBoltStore(t)
	gameID := uuid.New()

	t.Run("save then iterate finds the record", func(t *testing.T) {
		ok := s.Save(GameRecord{
			Info:  protocol.GameInfo{GameID: gameID, JoinCode: "AB12"},
			State: []byte(`{"phase":"lobby"}`),
		})
		require.True(t, ok)

		var found []GameRecord
		err := s.Iterate(func(r GameRecord) bool {
			found = append(found, r)
			return true
		})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, gameID, found[0].Info.GameID)
		assert.Equal(t, protocol.JoinCode("AB12"), found[0].Info.JoinCode)
		assert.False(t, found[0].DateUpdated.IsZero())
	})

	t.Run("save replaces the existing record", func(t *testing.T) {
		s.Save(GameRecord{Info: protocol.GameInfo{GameID: gameID, JoinCode: "ZZ99"}})

		var found []GameRecord
		s.Iterate(func(r GameRecord) bool {
			found = append(found, r)
			return true
		})
		require.Len(t, found, 1)
		assert.Equal(t, protocol.JoinCode("ZZ99"), found[0].Info.JoinCode)
	})

	t.Run("delete removes the record", func(t *testing.T) {
		ok := s.Delete(gameID)
		require.True(t, ok)

		var found []GameRecord
		s.Iterate(func(r GameRecord) bool {
			found = append(found, r)
			return true
		})
		assert.Empty(t, found)
	})
}

func TestPrintStore(t *testing.T) {
	t.Run("every call reports success but retains nothing", func(t *testing.T) {
		s := NewPrintStore()
		assert.True(t, s.Save(GameRecord{Info: protocol.GameInfo{GameID: uuid.New()}}))
		assert.True(t, s.Delete(uuid.New()))

		called := false
		require.NoError(t, s.Iterate(func(GameRecord) bool {
			called = true
			return true
		}))
		assert.False(t, called)
	})
}
