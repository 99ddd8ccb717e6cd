package nexori

import "encoding/json"

// EventName identifies an event on the wire or a connection lifecycle signal.
type EventName string

// Domain broadcasts pushed by the server.
const (
	EventBikeCreated       EventName = "bike:created"
	EventBikeUpdated       EventName = "bike:updated"
	EventBikeDeleted       EventName = "bike:deleted"
	EventBikeStatusChanged EventName = "bike:status_changed"

	EventPanicCreated  EventName = "panic:created"
	EventPanicUpdated  EventName = "panic:updated"
	EventPanicResolved EventName = "panic:resolved"

	EventMinuteCreated           EventName = "minute:created"
	EventMinuteUpdated           EventName = "minute:updated"
	EventMinuteDeleted           EventName = "minute:deleted"
	EventMinuteStatusChanged     EventName = "minute:status_changed"
	EventMinuteAssigned          EventName = "minute:assigned"
	EventMinuteAttachmentAdded   EventName = "minute:attachment_added"
	EventMinuteAttachmentDeleted EventName = "minute:attachment_deleted"

	EventUserUpdated       EventName = "user:updated"
	EventUserStatusChanged EventName = "user:status_changed"

	// EventSocketConnected is the server's application-level session confirmation.
	EventSocketConnected EventName = "socket:connected"
)

// Connection lifecycle signals. They are produced locally by the client and
// travel through the same registry as domain broadcasts.
const (
	EventConnect          EventName = "connect"
	EventDisconnect       EventName = "disconnect"
	EventConnectError     EventName = "connect_error"
	EventReconnectAttempt EventName = "reconnect_attempt"
	EventReconnect        EventName = "reconnect"
	EventReconnectFailed  EventName = "reconnect_failed"
)

// Outbound requests and server error frames.
const (
	eventJoinRoom  EventName = "join_room"
	eventLeaveRoom EventName = "leave_room"
	eventError     EventName = "error"
)

var inboundEvents = map[EventName]struct{}{
	EventBikeCreated:             {},
	EventBikeUpdated:             {},
	EventBikeDeleted:             {},
	EventBikeStatusChanged:       {},
	EventPanicCreated:            {},
	EventPanicUpdated:            {},
	EventPanicResolved:           {},
	EventMinuteCreated:           {},
	EventMinuteUpdated:           {},
	EventMinuteDeleted:           {},
	EventMinuteStatusChanged:     {},
	EventMinuteAssigned:          {},
	EventMinuteAttachmentAdded:   {},
	EventMinuteAttachmentDeleted: {},
	EventUserUpdated:             {},
	EventUserStatusChanged:       {},
	EventSocketConnected:         {},
}

var lifecycleEvents = map[EventName]struct{}{
	EventConnect:          {},
	EventDisconnect:       {},
	EventConnectError:     {},
	EventReconnectAttempt: {},
	EventReconnect:        {},
	EventReconnectFailed:  {},
}

// IsInboundEvent reports whether name is a broadcast the server may push.
func IsInboundEvent(name EventName) bool {
	_, ok := inboundEvents[name]
	return ok
}

// IsLifecycleEvent reports whether name is a locally produced connection signal.
func IsLifecycleEvent(name EventName) bool {
	_, ok := lifecycleEvents[name]
	return ok
}

// IsKnownEvent reports whether handlers may be registered for name.
func IsKnownEvent(name EventName) bool {
	return IsInboundEvent(name) || IsLifecycleEvent(name)
}

// Frame is the envelope used in both directions.
type Frame struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *Error          `json:"error,omitempty"`
}

// Event is what handlers receive.
type Event struct {
	Name EventName
	Data json.RawMessage
	Err  error // set on lifecycle signals caused by a failure
}

// Handler receives dispatched events.
type Handler func(Event)

// Error describes a protocol error.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Code + ": " + e.Msg
}

// UnmarshalData decodes RawMessage into target.
func UnmarshalData(data json.RawMessage, v any) error {
	return json.Unmarshal(data, v)
}
