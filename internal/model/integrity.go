package model

import "time"

// IntegrityEventType enumerates anti-cheating signals sent by the client.
type IntegrityEventType string

const (
	IntegrityTabSwitch       IntegrityEventType = "TAB_SWITCH"
	IntegrityCopyPaste       IntegrityEventType = "COPY_PASTE"
	IntegrityMultipleWindows IntegrityEventType = "MULTIPLE_WINDOWS"
	IntegrityScreenshot      IntegrityEventType = "SCREENSHOT"
	IntegrityOther           IntegrityEventType = "OTHER"
)

// Valid reports whether t is a known event type.
func (t IntegrityEventType) Valid() bool {
	switch t {
	case IntegrityTabSwitch, IntegrityCopyPaste, IntegrityMultipleWindows,
		IntegrityScreenshot, IntegrityOther:
		return true
	}
	return false
}

// IntegrityEvent coalesces repeated events of one type within a short window.
type IntegrityEvent struct {
	ID         int64              `json:"log_id"`
	SessionID  int64              `json:"session_id"`
	EventType  IntegrityEventType `json:"event_type"`
	EventCount int                `json:"event_count"`
	EventTime  time.Time          `json:"event_time"`
	Details    *string            `json:"details,omitempty"`
}

// RecordIntegrityRequest is the client payload for an integrity signal.
type RecordIntegrityRequest struct {
	EventType IntegrityEventType `json:"event_type" binding:"required,oneof=TAB_SWITCH COPY_PASTE MULTIPLE_WINDOWS SCREENSHOT OTHER"`
	Details   *string            `json:"details" binding:"omitempty,max=2000"`
}
