package websocket

import (
	"encoding/json"

	"github.com/stemsi/hireflow-backend/internal/model"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer    Action = "answer"
	ActionIntegrity Action = "integrity"
	ActionComplete  Action = "complete"
	ActionPing      Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
// Data is decoded according to Action.
type RequestEnvelope struct {
	Action Action          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// AnswerRequest is sent by the client to save a single answer.
type AnswerRequest = model.SubmitAnswerRequest

// IntegrityRequest is sent by the client to report an integrity signal.
type IntegrityRequest = model.RecordIntegrityRequest

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventSaved     Event = "saved"
	EventRecorded  Event = "recorded"
	EventCompleted Event = "completed"
	EventPong      Event = "pong"
)

// Response is every server message. Code mirrors the REST error codes.
type Response struct {
	Event Event       `json:"event"`
	Data  interface{} `json:"data,omitempty"`
	Code  string      `json:"code,omitempty"`
	Error string      `json:"error,omitempty"`
}
