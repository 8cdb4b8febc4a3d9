package mafia

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/mafia-night/backend/internal/gamestate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func playerInfo(id uuid.UUID) gamestate.PlayerInfo {
	return gamestate.PlayerInfo{UserID: id, Nickname: id.String()[:8]}
}

func variantJSON(t *testing.T, roles ...RoleCount) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(Variant{Roles: roles})
	require.NoError(t, err)
	return b
}

func TestState_Lifecycle(t *testing.T) {
	t.Run("default state is joinable with no players", func(t *testing.T) {
		s := New()
		assert.True(t, s.IsJoinable())
		assert.Empty(t, s.GetPlayers())
	})

	t.Run("add and remove player", func(t *testing.T) {
		s := New()
		alice := uuid.New()
		pos := s.AddPlayer(playerInfo(alice))

		got, ok := s.PlayerByPos(pos)
		require.True(t, ok)
		assert.Equal(t, alice, got)

		assert.True(t, s.RemovePlayer(alice))
		assert.False(t, s.RemovePlayer(alice))
		assert.Empty(t, s.GetPlayers())
	})

	t.Run("set_variant rejects an unknown role slug", func(t *testing.T) {
		s := New()
		err := s.SetVariant(variantJSON(t, RoleCount{Slug: "no-such-role", Count: 1}))
		assert.Error(t, err)
	})

	t.Run("set_variant is locked out once a player has joined", func(t *testing.T) {
		s := New()
		s.AddPlayer(playerInfo(uuid.New()))
		err := s.SetVariant(variantJSON(t, RoleCount{Slug: "citizen", Count: 1}))
		assert.Error(t, err)
	})
}

func TestState_InitPhase(t *testing.T) {
	t.Run("deals roles once every player is ready and counts match", func(t *testing.T) {
		s := New()
		require.NoError(t, s.SetVariant(variantJSON(t,
			RoleCount{Slug: "mafia", Count: 1},
			RoleCount{Slug: "citizen", Count: 1},
		)))

		alice, bob := uuid.New(), uuid.New()
		s.AddPlayer(playerInfo(alice))
		s.AddPlayer(playerInfo(bob))

		assert.False(t, s.SetPlayerReady(alice))
		assert.True(t, s.SetPlayerReady(bob))

		more := s.UpdateInitState()
		assert.False(t, more, "this game has exactly one init step")
		assert.False(t, s.IsJoinable())

		_, hasRole := s.GetPlayerRole(alice)
		assert.True(t, hasRole)
	})

	t.Run("mismatched role count is a silent no-op", func(t *testing.T) {
		s := New()
		require.NoError(t, s.SetVariant(variantJSON(t, RoleCount{Slug: "mafia", Count: 1})))
		s.AddPlayer(playerInfo(uuid.New()))
		s.AddPlayer(playerInfo(uuid.New()))

		s.UpdateInitState()
		assert.True(t, s.IsJoinable(), "should remain in the lobby")
	})
}

func TestState_Snapshot(t *testing.T) {
	t.Run("hides other players' roles", func(t *testing.T) {
		s := New()
		require.NoError(t, s.SetVariant(variantJSON(t,
			RoleCount{Slug: "mafia", Count: 1},
			RoleCount{Slug: "citizen", Count: 1},
		)))
		alice, bob := uuid.New(), uuid.New()
		s.AddPlayer(playerInfo(alice))
		s.AddPlayer(playerInfo(bob))
		s.SetPlayerReady(alice)
		s.SetPlayerReady(bob)
		s.UpdateInitState()

		raw := s.MakeSnapshot(alice)
		var view snapshotView
		require.NoError(t, json.Unmarshal(raw, &view))

		assert.Len(t, view.Players, 2)
		require.NotNil(t, view.YourRole)
		assert.NotEmpty(t, view.YourRole.Slug)
	})
}

func TestState_Serialize_RetainsRoleAssignments(t *testing.T) {
	s := New()
	require.NoError(t, s.SetVariant(variantJSON(t,
		RoleCount{Slug: "mafia", Count: 1},
		RoleCount{Slug: "citizen", Count: 1},
	)))
	alice, bob := uuid.New(), uuid.New()
	s.AddPlayer(playerInfo(alice))
	s.AddPlayer(playerInfo(bob))
	s.SetPlayerReady(alice)
	s.SetPlayerReady(bob)
	s.UpdateInitState()

	var stored storedState
	require.NoError(t, json.Unmarshal(s.Serialize(), &stored))

	assert.Equal(t, "active", stored.Phase)
	assert.Len(t, stored.Variant.Roles, 2)
	require.Len(t, stored.Players, 2)
	for _, p := range stored.Players {
		require.NotNil(t, p.Role, "serialized state must keep every role a snapshot would hide")
		assert.True(t, p.Ready)
		assert.True(t, p.Alive)
	}
}

func TestState_ManageOperation(t *testing.T) {
	t.Run("reveal returns every assignment", func(t *testing.T) {
		s := New()
		require.NoError(t, s.SetVariant(variantJSON(t, RoleCount{Slug: "citizen", Count: 1})))
		alice := uuid.New()
		s.AddPlayer(playerInfo(alice))
		s.SetPlayerReady(alice)
		s.UpdateInitState()

		result, err := s.ManageOperation([]byte(`{"op":"reveal"}`))
		require.NoError(t, err)
		assert.Contains(t, string(result), alice.String())
	})

	t.Run("unknown operation is an error", func(t *testing.T) {
		s := New()
		_, err := s.ManageOperation([]byte(`{"op":"nonsense"}`))
		assert.Error(t, err)
	})
}
