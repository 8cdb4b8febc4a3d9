// Package mafia is a concrete gamestate.State: a Mafia-style party game
// where a role template names how many of each catalog role to deal once
// every player is ready. It exists to exercise the universe/game-actor core
// end to end; its rules are not the subject of this repository.
package mafia

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/mafia-night/backend/internal/gamestate"
	"github.com/mafia-night/backend/internal/protocol"
)

// RoleCount names how many of one catalog role a template deals.
type RoleCount struct {
	Slug  string `json:"slug"`
	Count int    `json:"count"`
}

// Variant is this game's Variant: a role template that must sum to exactly
// the eventual player count before the init phase can complete.
type Variant struct {
	Roles []RoleCount `json:"roles"`
}

func (v Variant) total() int {
	n := 0
	for _, rc := range v.Roles {
		n += rc.Count
	}
	return n
}

type phase int

const (
	phaseLobby phase = iota
	phaseActive
)

type player struct {
	id       protocol.UserId
	nickname string
	pos      gamestate.PlayerPos
	ready    bool
	alive    bool
	role     *Role
}

// State is the mafia reference implementation of gamestate.State.
type State struct {
	variant    Variant
	variantSet bool
	phase      phase
	nextPos    gamestate.PlayerPos
	players    []*player
	byID       map[protocol.UserId]*player
}

// New returns a default State with no players and no variant configured.
func New() gamestate.State {
	return &State{byID: make(map[protocol.UserId]*player)}
}

func (s *State) SetVariant(variant json.RawMessage) error {
	if len(s.players) > 0 {
		return fmt.Errorf("mafia: variant may only be set before the first player joins")
	}
	var v Variant
	if err := json.Unmarshal(variant, &v); err != nil {
		return fmt.Errorf("mafia: invalid variant: %w", err)
	}
	for _, rc := range v.Roles {
		if _, ok := RoleBySlug(rc.Slug); !ok {
			return fmt.Errorf("mafia: unknown role slug %q", rc.Slug)
		}
		if rc.Count < 0 {
			return fmt.Errorf("mafia: negative role count for %q", rc.Slug)
		}
	}
	s.variant = v
	s.variantSet = true
	return nil
}

func (s *State) IsJoinable() bool {
	return s.phase == phaseLobby
}

func (s *State) GetPlayers() []gamestate.PlayerInfo {
	infos := make([]gamestate.PlayerInfo, len(s.players))
	for i, p := range s.players {
		infos[i] = gamestate.PlayerInfo{UserID: p.id, Nickname: p.nickname}
	}
	return infos
}

func (s *State) AddPlayer(info gamestate.PlayerInfo) gamestate.PlayerPos {
	pos := s.nextPos
	s.nextPos++
	p := &player{id: info.UserID, nickname: info.Nickname, pos: pos, alive: true}
	s.players = append(s.players, p)
	s.byID[info.UserID] = p
	return pos
}

func (s *State) RemovePlayer(id protocol.UserId) bool {
	p, ok := s.byID[id]
	if !ok {
		return false
	}
	delete(s.byID, id)
	for i, pl := range s.players {
		if pl == p {
			s.players = append(s.players[:i], s.players[i+1:]...)
			break
		}
	}
	return true
}

// SetPlayerRole assigns the catalog role named by op, {"role_slug": "..."},
// to player id. The deal in UpdateInitState gives every player a role and
// replaces any role set here.
func (s *State) SetPlayerRole(id protocol.UserId, op json.RawMessage) error {
	p, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("mafia: player %s is not in this game", id)
	}
	var req struct {
		RoleSlug string `json:"role_slug"`
	}
	if err := json.Unmarshal(op, &req); err != nil {
		return fmt.Errorf("mafia: invalid set_player_role payload: %w", err)
	}
	role, ok := RoleBySlug(req.RoleSlug)
	if !ok {
		return fmt.Errorf("mafia: unknown role slug %q", req.RoleSlug)
	}
	p.role = &role
	return nil
}

func (s *State) GetPlayerRole(id protocol.UserId) (json.RawMessage, bool) {
	p, ok := s.byID[id]
	if !ok || p.role == nil {
		return nil, false
	}
	b, err := json.Marshal(p.role)
	if err != nil {
		return nil, false
	}
	return b, true
}

func (s *State) PlayerByPos(pos gamestate.PlayerPos) (protocol.UserId, bool) {
	for _, p := range s.players {
		if p.pos == pos {
			return p.id, true
		}
	}
	return uuid.Nil, false
}

type playerView struct {
	PlayerID protocol.UserId `json:"player_id"`
	Nickname string          `json:"nickname"`
	Alive    bool            `json:"alive"`
}

type snapshotView struct {
	Phase    string       `json:"phase"`
	Players  []playerView `json:"players"`
	YourRole *Role        `json:"your_role,omitempty"`
}

func (p phase) String() string {
	if p == phaseActive {
		return "active"
	}
	return "lobby"
}

// MakeSnapshot hides every player's role from viewer except their own.
func (s *State) MakeSnapshot(viewer protocol.UserId) json.RawMessage {
	snap := snapshotView{Phase: s.phase.String()}
	for _, p := range s.players {
		snap.Players = append(snap.Players, playerView{PlayerID: p.id, Nickname: p.nickname, Alive: p.alive})
	}
	if self, ok := s.byID[viewer]; ok {
		snap.YourRole = self.role
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return b
}

type storedPlayer struct {
	PlayerID protocol.UserId `json:"player_id"`
	Nickname string          `json:"nickname"`
	Ready    bool            `json:"ready"`
	Alive    bool            `json:"alive"`
	Role     *Role           `json:"role,omitempty"`
}

type storedState struct {
	Phase   string         `json:"phase"`
	Variant Variant        `json:"variant"`
	Players []storedPlayer `json:"players"`
}

// Serialize returns the full state, role assignments included. Persistence
// goes through this, never through MakeSnapshot, so an archived game
// retains everything a snapshot would have redacted.
func (s *State) Serialize() json.RawMessage {
	out := storedState{Phase: s.phase.String(), Variant: s.variant}
	for _, p := range s.players {
		out.Players = append(out.Players, storedPlayer{
			PlayerID: p.id,
			Nickname: p.nickname,
			Ready:    p.ready,
			Alive:    p.alive,
			Role:     p.role,
		})
	}
	b, err := json.Marshal(out)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return b
}

func (s *State) SetPlayerReady(id protocol.UserId) bool {
	p, ok := s.byID[id]
	if !ok {
		return false
	}
	p.ready = true
	return len(s.players) > 0 && s.allReady()
}

func (s *State) allReady() bool {
	for _, p := range s.players {
		if !p.ready {
			return false
		}
	}
	return true
}

func (s *State) SetPlayerNotReady(id protocol.UserId) {
	if p, ok := s.byID[id]; ok {
		p.ready = false
	}
}

// UpdateInitState performs the one-shot shuffle-and-deal. A mismatch
// between the role template's total and the current player count is a
// silent no-op: the game stays in the lobby so the moderator can adjust the
// template or wait for more players. Exactly one step exists, so this
// always reports false.
func (s *State) UpdateInitState() bool {
	total := s.variant.total()
	if !s.variantSet || total == 0 || total != len(s.players) {
		return false
	}

	roleList := make([]Role, 0, total)
	for _, rc := range s.variant.Roles {
		role, _ := RoleBySlug(rc.Slug)
		for i := 0; i < rc.Count; i++ {
			roleList = append(roleList, role)
		}
	}
	rand.Shuffle(len(roleList), func(i, j int) {
		roleList[i], roleList[j] = roleList[j], roleList[i]
	})
	for i, p := range s.players {
		role := roleList[i]
		p.role = &role
	}
	s.phase = phaseActive
	return false
}

// ManageOperation supports a single debug operation, "reveal", which
// returns every player's assigned role regardless of viewer.
func (s *State) ManageOperation(op json.RawMessage) (json.RawMessage, error) {
	var req struct {
		Op string `json:"op"`
	}
	if err := json.Unmarshal(op, &req); err != nil {
		return nil, fmt.Errorf("mafia: invalid operation: %w", err)
	}
	switch req.Op {
	case "reveal":
		type revealed struct {
			PlayerID protocol.UserId `json:"player_id"`
			Role     *Role           `json:"role"`
		}
		out := make([]revealed, len(s.players))
		for i, p := range s.players {
			out[i] = revealed{PlayerID: p.id, Role: p.role}
		}
		return json.Marshal(out)
	default:
		return nil, fmt.Errorf("mafia: unknown debug operation %q", req.Op)
	}
}
