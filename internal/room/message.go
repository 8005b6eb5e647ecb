package room

// Message is one outbound JSON object. "type" names the message; the other
// keys are its fields.
type Message map[string]any

// Message types sent to room members.
const (
	TypeRoom             = "room"
	TypePlayerJoined     = "playerJoined"
	TypePlayerLeft       = "playerLeft"
	TypeGameStarted      = "gameStarted"
	TypeGameState        = "gameState"
	TypeCardPlayed       = "cardPlayed"
	TypePlayRejected     = "playRejected"
	TypeDrawnCards       = "drawnCards"
	TypePlayerDrew       = "playerDrew"
	TypeDeckReshuffled   = "deckReshuffled"
	TypeTurnChanged      = "turnChanged"
	TypeDirectionChanged = "directionChanged"
	TypePlayerHasUno     = "playerHasUno"
	TypeGameOver         = "gameOver"
	TypeMatchOver        = "matchOver"
	TypeRoundAborted     = "roundAborted"
	TypeError            = "error"
)

func newMessage(msgType string) Message {
	return Message{"type": msgType}
}

// ErrorMessage builds an error message for a client.
func ErrorMessage(text string) Message {
	return Message{"type": TypeError, "message": text}
}

// Type returns the message type.
func (m Message) Type() string {
	t, _ := m["type"].(string)
	return t
}

// Sender delivers messages to connected players. Send must not block.
type Sender interface {
	Send(playerID string, msg Message)
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(playerID string, msg Message)

// Send calls f.
func (f SenderFunc) Send(playerID string, msg Message) { f(playerID, msg) }
