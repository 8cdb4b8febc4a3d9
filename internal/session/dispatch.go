package session

import (
	"encoding/json"

	"github.com/mafia-night/backend/internal/protocol"
)

// dispatch routes one parsed command through the per-command auth-state
// table. Unauthenticated connections may only authenticate or run the
// diagnostic and debug commands; everything else requires authentication.
func (c *client) dispatch(cmd protocol.Command) error {
	u := c.handler.universe
	authenticated := u.IsAuthenticated(c.userID)

	if !authenticated {
		switch cmd.Cmd {
		case protocol.CmdAuthenticate:
			return c.onAuthenticate(cmd)
		case protocol.CmdShowServerStatus:
			return c.onShowServerStatus()
		case protocol.CmdShowServerGames:
			return c.onShowServerGames()
		case protocol.CmdShowUuid:
			return c.onShowUuid()
		case protocol.CmdDebugUi:
			return c.onDebugUi(cmd)
		case protocol.CmdDebugGame:
			return c.onDebugGame(cmd)
		default:
			return protocol.NewProtocolError(protocol.NotAuthenticated, "cannot perform this command unauthenticated")
		}
	}

	switch cmd.Cmd {
	case protocol.CmdAuthenticate:
		return protocol.NewProtocolError(protocol.AlreadyAuthenticated, "cannot authenticate twice")
	case protocol.CmdPing:
		u.Send(c.userID, protocol.Pong())
		return nil
	case protocol.CmdNewGame:
		return c.onNewGame(cmd)
	case protocol.CmdJoinGame:
		return c.onJoinGame(cmd)
	case protocol.CmdLeaveGame:
		return c.onLeaveGame()
	case protocol.CmdMarkReady:
		return c.onMarkReady()
	case protocol.CmdContinue:
		return c.onContinue()
	case protocol.CmdSendText:
		return c.onSendText(cmd)
	case protocol.CmdGamePlay:
		return c.onGamePlay(cmd)
	case protocol.CmdSetPlayerRole:
		return c.onSetPlayerRole(cmd)
	case protocol.CmdInviteBot:
		return c.onInviteBot()
	case protocol.CmdDebugUi:
		return c.onDebugUi(cmd)
	case protocol.CmdDebugGame:
		return c.onDebugGame(cmd)
	case protocol.CmdShowServerStatus:
		return c.onShowServerStatus()
	case protocol.CmdShowServerGames:
		return c.onShowServerGames()
	case protocol.CmdShowUuid:
		return c.onShowUuid()
	default:
		return protocol.NewProtocolError(protocol.InvalidCommand, "unrecognized command")
	}
}

func (c *client) onAuthenticate(cmd protocol.Command) error {
	payload, err := cmd.Authenticate()
	if err != nil {
		return err
	}
	info, err := c.handler.universe.AuthenticateUser(c.userID, payload.Nickname)
	if err != nil {
		return err
	}
	c.handler.universe.Send(c.userID, protocol.Authenticated(info.ID, info.Nickname))
	return nil
}

// onNewGame leaves whatever game the caller is in, creates a fresh one with
// the given variant, seats the caller in it, and fans out the new lobby
// state.
func (c *client) onNewGame(cmd protocol.Command) error {
	u := c.handler.universe
	u.RemoveUserFromGame(c.userID)

	g, err := u.NewGame(cmd.NewGameVariant())
	if err != nil {
		return protocol.NewProtocolError(protocol.InternalError, err.Error())
	}
	g.AddPlayer(c.userID)
	u.Send(c.userID, protocol.GameJoined(g.ID(), g.JoinCode()))
	g.BroadcastCurrentState()
	return nil
}

func (c *client) onJoinGame(cmd protocol.Command) error {
	payload, err := cmd.JoinGame()
	if err != nil {
		return err
	}
	u := c.handler.universe
	g, err := u.JoinGame(c.userID, payload.JoinCode)
	if err != nil {
		return err
	}
	u.Send(c.userID, protocol.GameJoined(g.ID(), g.JoinCode()))
	g.BroadcastCurrentState()
	return nil
}

func (c *client) onLeaveGame() error {
	u := c.handler.universe
	u.RemoveUserFromGame(c.userID)
	u.Send(c.userID, protocol.GameLeft())
	return nil
}

// onMarkReady marks the caller ready and, if every player is now ready,
// drives the init phase forward one step at a time, broadcasting the
// current state after every step.
func (c *client) onMarkReady() error {
	u := c.handler.universe
	g, ok := u.GetUserGame(c.userID)
	if !ok || !g.IsJoinable() {
		return nil
	}
	needsUpdate := g.MarkPlayerReady(c.userID)
	g.BroadcastCurrentState()
	for needsUpdate {
		needsUpdate = g.UpdateInitState()
		g.BroadcastCurrentState()
	}
	return nil
}

func (c *client) onContinue() error {
	g, ok := c.handler.universe.GetUserGame(c.userID)
	if !ok {
		return nil
	}
	g.MarkPlayerReady(c.userID)
	g.BroadcastCurrentState()
	return nil
}

func (c *client) onSendText(cmd protocol.Command) error {
	payload, err := cmd.SendText()
	if err != nil {
		return err
	}
	g, ok := c.handler.universe.GetUserGame(c.userID)
	if !ok {
		return protocol.NewProtocolError(protocol.BadState, "not in a game")
	}
	g.Broadcast(protocol.Chat(c.userID, payload.Text))
	return nil
}

func (c *client) onGamePlay(cmd protocol.Command) error {
	if c.handler.gamePlay == nil {
		return protocol.NewProtocolError(protocol.BadState, "gameplay not available")
	}
	g, ok := c.handler.universe.GetUserGame(c.userID)
	if !ok {
		return protocol.NewProtocolError(protocol.BadState, "not in a game")
	}
	return c.handler.gamePlay.HandleGamePlay(g, c.userID, cmd.Opaque())
}

func (c *client) onSetPlayerRole(cmd protocol.Command) error {
	g, ok := c.handler.universe.GetUserGame(c.userID)
	if !ok {
		return protocol.NewProtocolError(protocol.BadState, "not in a game")
	}
	return g.SetPlayerRole(c.userID, cmd.Opaque())
}

func (c *client) onInviteBot() error {
	g, ok := c.handler.universe.GetUserGame(c.userID)
	if !ok {
		return protocol.NewProtocolError(protocol.BadState, "not in a game")
	}
	return c.handler.universe.InviteBot(g.JoinCode())
}

func (c *client) onDebugUi(cmd protocol.Command) error {
	payload, err := cmd.DebugUi()
	if err != nil {
		return err
	}
	c.handler.universe.Send(payload.PlayerID, protocol.GameStateSnapshot(payload.Snapshot))
	return nil
}

func (c *client) onDebugGame(cmd protocol.Command) error {
	payload, err := cmd.DebugGame()
	if err != nil {
		return err
	}
	u := c.handler.universe
	if _, err := u.DebugGame(payload.GameID, payload.Operation); err != nil {
		return err
	}
	if g, ok := u.GetGame(payload.GameID); ok {
		g.BroadcastCurrentState()
	}
	return nil
}

func (c *client) onShowServerStatus() error {
	u := c.handler.universe
	u.Send(c.userID, protocol.ServerStatus(u.ShowUsers(c.userID), u.ShowGames()))
	return nil
}

// onShowServerGames is a diagnostic projection of the archive store. The
// wire contract has no dedicated message for it, so the result rides the
// generic debug_operation envelope.
func (c *client) onShowServerGames() error {
	u := c.handler.universe
	raw, err := json.Marshal(u.ShowStoredGames())
	if err != nil {
		return protocol.NewProtocolError(protocol.InternalError, err.Error())
	}
	u.Send(c.userID, protocol.DebugOperation(raw))
	return nil
}

func (c *client) onShowUuid() error {
	u := c.handler.universe
	others := u.ShowUsers(c.userID)
	if len(others) == 0 {
		return protocol.NewProtocolError(protocol.NotFound, "no other connected users")
	}
	u.Send(c.userID, protocol.Chat(others[0], ""))
	return nil
}
