// Package stream implements the live-update hub: a streamingId-keyed set of
// client sinks that receive server-sent events.
package stream

import "encoding/json"

// Event is the tagged union broadcast to clients. Type discriminates the
// shape of Data, which is left opaque so each event carries its own field
// set without every caller constructing a map by hand.
type Event struct {
	Type        string `json:"type"`
	StreamingID string `json:"streamingId,omitempty"`
	SessionID   string `json:"sessionId,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
	Data        any    `json:"data,omitempty"`
}

// Event type discriminators, see the wire protocol table.
const (
	EventConnected           = "connected"
	EventClosed              = "closed"
	EventIndexUpdate         = "index_update"
	EventSessionListUpdate   = "session_list_update"
	EventSessionContentUpdate = "session_content_update"
)

type eventFields struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// MarshalJSON renders the handshake's id field as streaming_id: the
// connected event is the one place the wire protocol breaks from this
// package's own streamingId naming everywhere else.
func (e Event) MarshalJSON() ([]byte, error) {
	fields := eventFields{Type: e.Type, SessionID: e.SessionID, Timestamp: e.Timestamp, Data: e.Data}
	if e.Type == EventConnected {
		return json.Marshal(struct {
			eventFields
			StreamingID string `json:"streaming_id,omitempty"`
		}{fields, e.StreamingID})
	}
	return json.Marshal(struct {
		eventFields
		StreamingID string `json:"streamingId,omitempty"`
	}{fields, e.StreamingID})
}
