package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/sumrush/go/internal/quiz"
	"github.com/mcdev12/sumrush/go/internal/session"
)

// ServerEvent is every frame the gateway writes to a client.
type ServerEvent struct {
	Type      ServerEventType `json:"type"`
	SessionID string          `json:"session_id"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// ServerEventType names a server frame.
type ServerEventType string

const (
	ServerEventState ServerEventType = "state"
	ServerEventError ServerEventType = "error"
)

// ErrorPayload is the data of an error frame.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Command string `json:"command,omitempty"`
}

// CommandType names a client command.
type CommandType string

const (
	CommandSelectDifficulty CommandType = "select_difficulty"
	CommandChangeDifficulty CommandType = "change_difficulty"
	CommandAnswerText       CommandType = "answer_text"
	CommandSubmitAnswer     CommandType = "submit_answer"
	CommandNewGame          CommandType = "new_game"
	CommandSync             CommandType = "sync"
)

// ClientCommand is a frame read from a client. Only the fields used by
// Type are meaningful.
type ClientCommand struct {
	Type   CommandType `json:"type"`
	Level  string      `json:"level,omitempty"`
	Text   string      `json:"text,omitempty"`
	Answer string      `json:"answer,omitempty"`
}

func newStateEvent(snap session.Snapshot) (*ServerEvent, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return &ServerEvent{
		Type:      ServerEventState,
		SessionID: snap.SessionID.String(),
		Timestamp: snap.UpdatedAt,
		Data:      data,
	}, nil
}

func newErrorEvent(sessionID uuid.UUID, command CommandType, err error) *ServerEvent {
	payload := ErrorPayload{
		Code:    errorCode(err),
		Message: err.Error(),
		Command: string(command),
	}
	// ErrorPayload only holds strings.
	data, _ := json.Marshal(payload)
	return &ServerEvent{
		Type:      ServerEventError,
		SessionID: sessionID.String(),
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// errorCode maps domain errors to stable codes clients can switch on.
func errorCode(err error) string {
	switch {
	case errors.Is(err, quiz.ErrUnknownDifficulty):
		return "UNKNOWN_DIFFICULTY"
	case errors.Is(err, quiz.ErrNoDifficulty):
		return "NO_DIFFICULTY"
	case errors.Is(err, quiz.ErrRoundNotActive):
		return "ROUND_NOT_ACTIVE"
	case errors.Is(err, session.ErrSessionClosed):
		return "SESSION_CLOSED"
	case errors.Is(err, session.ErrSessionNotFound):
		return "SESSION_NOT_FOUND"
	case errors.Is(err, errUnknownCommand):
		return "UNKNOWN_COMMAND"
	case errors.Is(err, errMalformedCommand):
		return "MALFORMED_COMMAND"
	default:
		return "INTERNAL"
	}
}

var (
	errUnknownCommand   = errors.New("unknown command")
	errMalformedCommand = errors.New("malformed command")
)
