package common

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

// TestMessageIDVariants tests that ids are accepted as strings and numbers
func TestMessageIDVariants(t *testing.T) {
	tests := map[string]MessageID{
		`{"id":"17"}`: "17",
		`{"id":17}`:   "17",
		`{"id":null}`: "",
		`{}`:          "",
	}

	for input, expected := range tests {
		var msg Message
		if err := json.Unmarshal([]byte(input), &msg); err != nil {
			t.Errorf("%s: unexpected error %v", input, err)
			continue
		}
		if msg.ID != expected {
			t.Errorf("%s: expected id %q, got %q", input, expected, msg.ID)
		}
	}

	var msg Message
	if err := json.Unmarshal([]byte(`{"id":[1]}`), &msg); err == nil {
		t.Errorf("Expected an error for an array id")
	}
}

// TestRemoteErrorVariants tests the accepted shapes of the error field
func TestRemoteErrorVariants(t *testing.T) {
	tests := map[string]RemoteError{
		`{"id":"1","error":"Element not found"}`:               "Element not found",
		`{"id":"1","error":{"message":"No document","code":3}}`: "No document",
		`{"id":"1","error":{"code":3}}`:                         `{"code":3}`,
		`{"id":"1","error":null,"result":[]}`:                   "",
		`{"id":"1","error":false,"result":[]}`:                  "",
		`{"id":"1","error":42}`:                                 "42",
	}

	for input, expected := range tests {
		var msg Message
		if err := json.Unmarshal([]byte(input), &msg); err != nil {
			t.Errorf("%s: unexpected error %v", input, err)
			continue
		}
		if msg.Error != expected {
			t.Errorf("%s: expected error %q, got %q", input, expected, msg.Error)
		}
		if msg.IsError() != (expected != "") {
			t.Errorf("%s: IsError is %v", input, msg.IsError())
		}
	}
}

// TestNewRequestAndResponse tests the message factory functions
func TestNewRequestAndResponse(t *testing.T) {
	req := NewRequest(FormatID(7), "get_views", json.RawMessage("null"))
	if req.ID != "7" || string(req.Args) != "{}" || !req.IsRequest() {
		t.Errorf("Unexpected request %+v", req)
	}

	resp := NewResponse("7", nil, nil)
	if string(resp.Result) != "null" || resp.IsError() {
		t.Errorf("Unexpected response %+v", resp)
	}

	resp = NewResponse("7", json.RawMessage(`[1]`), errors.New("boom"))
	if resp.Error != "boom" || resp.Result != nil {
		t.Errorf("Unexpected error response %+v", resp)
	}
}

// TestIsRequest tests that responses echoing the command are not taken for requests
func TestIsRequest(t *testing.T) {
	for input, expected := range map[string]bool{
		`{"id":"1","command":"get_levels","args":{}}`:             true,
		`{"id":"1","command":"get_levels"}`:                       true,
		`{"id":"1","command":"get_levels","result":[]}`:           false,
		`{"id":"1","command":"get_levels","result":null}`:         false,
		`{"id":"1","command":"get_levels","error":"no document"}`: false,
		`{"id":"1","result":[]}`:                                  false,
	} {
		msg := &Message{}
		if err := json.Unmarshal([]byte(input), msg); err != nil {
			t.Fatalf("%s: %v", input, err)
		}
		if msg.IsRequest() != expected {
			t.Errorf("%s: expected IsRequest %v", input, expected)
		}
	}
}

// TestErrorTaxonomy tests that the typed errors match their sentinels
func TestErrorTaxonomy(t *testing.T) {
	var err error = &CommandRejectedError{ID: "1", Command: "get_levels", Message: "nope"}
	if !errors.Is(err, ErrCommandRejected) || errors.Is(err, ErrTimeout) {
		t.Errorf("CommandRejectedError must only match ErrCommandRejected")
	}

	err = &TimeoutError{ID: "1", Command: "get_levels", Timeout: time.Second}
	if !errors.Is(err, ErrTimeout) || errors.Is(err, ErrCommandRejected) {
		t.Errorf("TimeoutError must only match ErrTimeout")
	}

	if !errors.Is(ErrClientClosed, ErrConnectionLost) {
		t.Errorf("ErrClientClosed must wrap ErrConnectionLost")
	}
}

// TestClientConfigDefaults tests that unset values are replaced by the defaults
func TestClientConfigDefaults(t *testing.T) {
	config := ClientConfig{Endpoint: "10.0.0.5:9000"}.WithDefaults()

	if config.Endpoint != "10.0.0.5:9000" {
		t.Errorf("Endpoint must be kept, got %s", config.Endpoint)
	}
	if config.RequestTimeout != DefaultRequestTimeout || config.ConnectTimeout != DefaultConnectTimeout {
		t.Errorf("Unexpected timeouts %s %s", config.RequestTimeout, config.ConnectTimeout)
	}
	if config.Transport.Framing != FramingNewline || config.Transport.MaxFrameSize != DefaultMaxFrameSize {
		t.Errorf("Unexpected transport defaults %+v", config.Transport)
	}
	if config.Transport.Reconnect.Interval != DefaultReconnectInterval {
		t.Errorf("Unexpected reconnect interval %s", config.Transport.Reconnect.Interval)
	}

	// a zero config reconnects like the default one
	if config.Transport.Reconnect.MaxAttempts != DefaultReconnectAttempts {
		t.Errorf("Expected %d reconnect attempts, got %d", DefaultReconnectAttempts, config.Transport.Reconnect.MaxAttempts)
	}
	disabled := ClientConfig{Transport: ClientTransportConfig{Reconnect: ReconnectConf{MaxAttempts: -3}}}.WithDefaults()
	if disabled.Transport.Reconnect.MaxAttempts != ReconnectDisabled {
		t.Errorf("Negative attempts must disable reconnection, got %d", disabled.Transport.Reconnect.MaxAttempts)
	}

	d := DefaultClientConfig()
	if d.Transport.Reconnect.MaxAttempts != 5 || d.Transport.Reconnect.Interval != 5*time.Second || d.RequestTimeout != 30*time.Second {
		t.Errorf("Unexpected defaults %+v", d)
	}
}

// TestParseFraming tests the framing names
func TestParseFraming(t *testing.T) {
	for input, expected := range map[string]Framing{"": FramingNewline, "newline": FramingNewline, " LENGTH ": FramingLength} {
		framing, err := ParseFraming(input)
		if err != nil || framing != expected {
			t.Errorf("%q: expected %s, got %s (%v)", input, expected, framing, err)
		}
	}
	if _, err := ParseFraming("xml"); err == nil {
		t.Errorf("Expected an error for an unknown framing")
	}
}

// TestParseLogLevel tests the log level names
func TestParseLogLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "warning", "error", ""} {
		if _, err := ParseLogLevel(level); err != nil {
			t.Errorf("%q: unexpected error %v", level, err)
		}
	}
	if _, err := ParseLogLevel("verbose"); err == nil {
		t.Errorf("Expected an error for an unknown level")
	}
}
