package relay

import (
	"encoding/json"

	"github.com/gorilla/websocket"

	"github.com/rickgao/wsrelay/internal/metrics"
)

// dispatcher reads frames from the socket and routes them. The target
// binding lives here and is never shared with other sessions.
type dispatcher struct {
	s *Session

	target string // Last target_id seen on a text frame
	bound  bool
}

// dispatchLoop runs the dispatcher until a close frame or read error.
func (s *Session) dispatchLoop() error {
	d := &dispatcher{s: s}
	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				s.logger.Warn("websocket error", "error", err)
			}
			return err
		}

		switch msgType {
		case websocket.TextMessage:
			d.handleText(data)
		case websocket.BinaryMessage:
			d.handleBinary(data)
		default:
			metrics.RecordFrame(metrics.KindControl, metrics.OutcomeIgnored)
		}
	}
}

// handleText classifies a text frame as register, targeted or ignored.
func (d *dispatcher) handleText(data []byte) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		metrics.RecordFrame(metrics.KindText, metrics.OutcomeIgnored)
		return
	}

	if kind, _ := stringField(fields, fieldType); kind == typeRegister {
		d.handleRegister(fields)
		return
	}

	targetID, ok := stringField(fields, fieldTargetID)
	if !ok {
		metrics.RecordFrame(metrics.KindText, metrics.OutcomeIgnored)
		return
	}

	d.target = targetID
	d.bound = true

	if d.publish(targetID, TextFrame(data)) {
		metrics.RecordFrame(metrics.KindText, metrics.OutcomeRelayed)
	} else {
		metrics.RecordFrame(metrics.KindText, metrics.OutcomeMiss)
	}
}

// handleRegister adds an alias for this session. Register frames are never relayed.
func (d *dispatcher) handleRegister(fields map[string]json.RawMessage) {
	alias, ok := stringField(fields, fieldConnectionID)
	if !ok {
		metrics.RecordFrame(metrics.KindRegister, metrics.OutcomeIgnored)
		return
	}

	s := d.s
	s.registry.Register(alias, s.inbound)
	s.addAlias(alias)
	s.sink.AliasRegistered(s.id, alias)
	metrics.RecordFrame(metrics.KindRegister, metrics.OutcomeRegistered)
	s.logger.Debug("alias registered", "alias", alias)
}

// handleBinary relays a binary frame to the bound target.
func (d *dispatcher) handleBinary(data []byte) {
	if !d.bound {
		metrics.RecordFrame(metrics.KindBinary, metrics.OutcomeNoTarget)
		return
	}

	if d.publish(d.target, BinaryFrame(data)) {
		metrics.RecordFrame(metrics.KindBinary, metrics.OutcomeRelayed)
		return
	}

	metrics.RecordFrame(metrics.KindBinary, metrics.OutcomeMiss)
	d.s.logger.Debug("target connection not found", "target_id", d.target)
}

// publish hands f to the inbound handle registered under id.
// Reports false when id is unknown or its session has ended.
func (d *dispatcher) publish(id string, f Frame) bool {
	handle, ok := d.s.registry.Lookup(id)
	if !ok {
		return false
	}
	return handle.Send(f)
}

// stringField returns fields[key] when it holds a JSON string.
func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok || len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	return v, true
}
