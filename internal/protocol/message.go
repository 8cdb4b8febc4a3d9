package protocol

import "encoding/json"

// MessageTag is the "type" discriminator on an outbound message envelope.
type MessageTag string

const (
	MsgConnected           MessageTag = "connected"
	MsgPong                MessageTag = "pong"
	MsgServerStatus        MessageTag = "server_status"
	MsgChat                MessageTag = "chat"
	MsgPlayerConnected     MessageTag = "player_connected"
	MsgPlayerDisconnected  MessageTag = "player_disconnected"
	MsgPregameStarted      MessageTag = "pregame_started"
	MsgGameJoined          MessageTag = "game_joined"
	MsgGameLeft            MessageTag = "game_left"
	MsgAuthenticated       MessageTag = "authenticated"
	MsgError               MessageTag = "error"
	MsgPlayEvent           MessageTag = "play_event"
	MsgGameStateSnapshot   MessageTag = "game_state_snapshot"
	MsgDebugOperation      MessageTag = "debug_operation"
)

// Message is one outbound envelope: a type tag plus payload fields that are
// flattened alongside it, matching the wire shape {"type": "...", ...}.
type Message struct {
	tag     MessageTag
	payload any
}

// MarshalJSON flattens the payload's own fields into the envelope next to
// "type", rather than nesting them under a "payload" key.
func (m Message) MarshalJSON() ([]byte, error) {
	payloadJSON, err := json.Marshal(m.payload)
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(payloadJSON, &fields); err != nil {
		return nil, err
	}
	tagJSON, err := json.Marshal(m.tag)
	if err != nil {
		return nil, err
	}
	fields["type"] = tagJSON
	return json.Marshal(fields)
}

func message(tag MessageTag, payload any) Message {
	return Message{tag: tag, payload: payload}
}

// Connected acknowledges a fresh socket upgrade.
func Connected() Message { return message(MsgConnected, struct{}{}) }

// Pong answers a Ping command.
func Pong() Message { return message(MsgPong, struct{}{}) }

// ServerStatus enumerates every other connected user and every live game.
func ServerStatus(players []UserId, games []GameExtendedInfo) Message {
	return message(MsgServerStatus, struct {
		Players []UserId           `json:"players"`
		Games   []GameExtendedInfo `json:"games"`
	}{players, games})
}

// Chat carries a chat line from player to every player in the game, the
// sender included.
// ShowUuid also rides this envelope, with an empty Text.
func Chat(playerID UserId, text string) Message {
	return message(MsgChat, struct {
		PlayerID UserId `json:"player_id"`
		Text     string `json:"text"`
	}{playerID, text})
}

// PlayerConnected announces a newly-joined player's opaque per-game state.
func PlayerConnected(player json.RawMessage) Message {
	return message(MsgPlayerConnected, struct {
		Player json.RawMessage `json:"player"`
	}{player})
}

// PlayerDisconnected announces a player's departure.
func PlayerDisconnected(playerID UserId) Message {
	return message(MsgPlayerDisconnected, struct {
		PlayerID UserId `json:"player_id"`
	}{playerID})
}

// PregameStarted announces the init phase beginning its first step.
func PregameStarted() Message { return message(MsgPregameStarted, struct{}{}) }

// GameJoined confirms the caller is now a member of the named game.
func GameJoined(gameID GameId, code JoinCode) Message {
	return message(MsgGameJoined, struct {
		GameID   GameId   `json:"game_id"`
		JoinCode JoinCode `json:"join_code"`
	}{gameID, code})
}

// GameLeft confirms the caller left its game.
func GameLeft() Message { return message(MsgGameLeft, struct{}{}) }

// Authenticated confirms a successful (or recovered) authentication.
func Authenticated(userID UserId, nickname string) Message {
	return message(MsgAuthenticated, struct {
		UserID   UserId `json:"user_id"`
		Nickname string `json:"nickname"`
	}{userID, nickname})
}

// Error reports a ProtocolError to the offending client.
func Error(err *ProtocolError) Message {
	return message(MsgError, struct {
		Kind    ErrorKind `json:"kind"`
		Message string    `json:"message"`
	}{err.Kind, err.Message})
}

// PlayEvent relays an opaque game-specific event produced by GamePlay.
func PlayEvent(operation json.RawMessage) Message {
	return message(MsgPlayEvent, struct {
		Operation json.RawMessage `json:"operation"`
	}{operation})
}

// GameStateSnapshot carries a per-player projection of the game state.
func GameStateSnapshot(snapshot json.RawMessage) Message {
	return message(MsgGameStateSnapshot, struct {
		Snapshot json.RawMessage `json:"snapshot"`
	}{snapshot})
}

// DebugOperation carries the result of an opaque admin/debug operation.
func DebugOperation(result json.RawMessage) Message {
	return message(MsgDebugOperation, struct {
		Result json.RawMessage `json:"result,omitempty"`
	}{result})
}
