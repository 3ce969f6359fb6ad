package common

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single frame on the wire, used for both requests and responses.
// Which fields are used depends on the direction of the message.
//
//	request:  {"id": "1", "command": "get_levels", "args": {}}
//	response: {"id": "1", "result": [...]} or {"id": "1", "error": "..."}
type Message struct {
	// Correlation ID, chosen by the client and echoed by the host
	ID MessageID `json:"id,omitempty"`

	// Request only fields
	Command string          `json:"command,omitempty"`
	Args    json.RawMessage `json:"args,omitempty"`

	// Response only fields
	Result json.RawMessage `json:"result,omitempty"`
	Error  RemoteError     `json:"error,omitempty"`
}

// IsRequest reports whether the message carries a command and no outcome.
// Hosts may echo the command in their responses, those are still responses.
func (m *Message) IsRequest() bool {
	return m.Command != "" && len(m.Result) == 0 && m.Error == ""
}

// IsError reports whether the message is an error response
func (m *Message) IsError() bool {
	return m.Error != ""
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// emptyArgs is sent when a command has no arguments, the host expects an object
var emptyArgs = json.RawMessage(`{}`)

// NewRequest creates a new request message. Nil args are sent as an empty object.
func NewRequest(id MessageID, command string, args json.RawMessage) *Message {
	if len(args) == 0 || bytes.Equal(args, []byte("null")) {
		args = emptyArgs
	}
	return &Message{
		ID:      id,
		Command: command,
		Args:    args,
	}
}

// NewResponse creates a new response message. If err is not nil an error response is created.
func NewResponse(id MessageID, result json.RawMessage, err error) *Message {
	msg := &Message{ID: id}
	if err != nil {
		msg.Error = RemoteError(err.Error())
		return msg
	}
	if len(result) == 0 {
		result = json.RawMessage("null")
	}
	msg.Result = result
	return msg
}

// --------------------------------------------------------------------------
// Field Types
// --------------------------------------------------------------------------

// MessageID is the correlation id of a message. It is always sent as a string,
// but hosts that echo it as a JSON number are accepted as well.
type MessageID string

// UnmarshalJSON accepts a JSON string or number
func (id *MessageID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = MessageID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = MessageID(n.String())
	return nil
}

// FormatID converts a sequence number into a MessageID
func FormatID(seq uint64) MessageID {
	return MessageID(strconv.FormatUint(seq, 10))
}

// RemoteError is the error text reported by the host. Besides a plain string,
// an object with a "message" field is accepted, anything else is kept verbatim.
type RemoteError string

// UnmarshalJSON accepts a string, an object with a message or any other JSON value
func (e *RemoteError) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")), bytes.Equal(b, []byte("false")):
		*e = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*e = RemoteError(s)
	case len(b) > 0 && b[0] == '{':
		var obj struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(b, &obj); err == nil && obj.Message != "" {
			*e = RemoteError(obj.Message)
			return nil
		}
		*e = RemoteError(b)
	default:
		*e = RemoteError(b)
	}
	return nil
}
