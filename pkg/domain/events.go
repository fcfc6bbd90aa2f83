package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType is the tag subscribers switch on.
type EventType string

const (
	EventConnected     EventType = "connected"
	EventSnapshot      EventType = "snapshot"
	EventCommentUpdate EventType = "comment-update"
	EventWatcherStatus EventType = "watcher-status"
	EventHeartbeat     EventType = "heartbeat"
)

// CommentAction describes what happened to a comment.
type CommentAction string

const (
	ActionCreated  CommentAction = "created"
	ActionUpdated  CommentAction = "updated"
	ActionDeleted  CommentAction = "deleted"
	ActionSent     CommentAction = "sent"
	ActionResolved CommentAction = "resolved"
)

// Valid reports whether a is a known action.
func (a CommentAction) Valid() bool {
	switch a {
	case ActionCreated, ActionUpdated, ActionDeleted, ActionSent, ActionResolved:
		return true
	}
	return false
}

// ConnectedData is sent once to a new subscriber.
type ConnectedData struct {
	SessionID string `json:"session_id"`
}

// SnapshotSummary describes a captured diff state. The diff body is never
// pushed over the live stream; clients fetch it separately.
type SnapshotSummary struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id"`
	CreatedAt    time.Time `json:"created_at"`
	FilesChanged int       `json:"files_changed"`
	Additions    int       `json:"additions"`
	Deletions    int       `json:"deletions"`
}

// CommentUpdateData reports a comment lifecycle change.
type CommentUpdateData struct {
	SessionID string        `json:"session_id"`
	CommentID string        `json:"comment_id"`
	Action    CommentAction `json:"action"`
}

// WatcherStatusData reports whether the file watcher runs for the session.
type WatcherStatusData struct {
	SessionID string `json:"session_id"`
	Enabled   bool   `json:"enabled"`
}

// HeartbeatData keeps idle streams alive and exposes half-open connections.
type HeartbeatData struct {
	Timestamp time.Time `json:"timestamp"`
}

// Event is a discriminated live update. Data holds exactly the struct that
// matches Type.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

func NewConnectedEvent(sessionID string) Event {
	return Event{Type: EventConnected, Data: ConnectedData{SessionID: sessionID}}
}

func NewSnapshotEvent(summary SnapshotSummary) Event {
	return Event{Type: EventSnapshot, Data: summary}
}

func NewCommentUpdateEvent(sessionID, commentID string, action CommentAction) Event {
	return Event{Type: EventCommentUpdate, Data: CommentUpdateData{
		SessionID: sessionID,
		CommentID: commentID,
		Action:    action,
	}}
}

func NewWatcherStatusEvent(sessionID string, enabled bool) Event {
	return Event{Type: EventWatcherStatus, Data: WatcherStatusData{SessionID: sessionID, Enabled: enabled}}
}

func NewHeartbeatEvent(at time.Time) Event {
	return Event{Type: EventHeartbeat, Data: HeartbeatData{Timestamp: at}}
}

// UnmarshalJSON restores the typed Data for the event's tag.
func (e *Event) UnmarshalJSON(b []byte) error {
	var raw struct {
		Type EventType       `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	var (
		data any
		err  error
	)
	switch raw.Type {
	case EventConnected:
		var d ConnectedData
		err = json.Unmarshal(raw.Data, &d)
		data = d
	case EventSnapshot:
		var d SnapshotSummary
		err = json.Unmarshal(raw.Data, &d)
		data = d
	case EventCommentUpdate:
		var d CommentUpdateData
		err = json.Unmarshal(raw.Data, &d)
		data = d
	case EventWatcherStatus:
		var d WatcherStatusData
		err = json.Unmarshal(raw.Data, &d)
		data = d
	case EventHeartbeat:
		var d HeartbeatData
		err = json.Unmarshal(raw.Data, &d)
		data = d
	default:
		return fmt.Errorf("unknown event type %q", raw.Type)
	}
	if err != nil {
		return fmt.Errorf("decode %s event: %w", raw.Type, err)
	}

	e.Type = raw.Type
	e.Data = data
	return nil
}
