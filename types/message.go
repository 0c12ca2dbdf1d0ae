// Package types provides core types used across the devcrew engine.
// This package has ZERO dependencies on other devcrew packages to avoid circular imports.
package types

import (
	"bytes"
	"encoding/json"
	"maps"
)

// Well-known metadata keys.
const (
	MetaTaskID            = "task_id"
	MetaApprovalRequestID = "approval_request_id"
	MetaApproved          = "approved"
	MetaApprover          = "approver"
	MetaNotes             = "notes"
	MetaAction            = "action"
	MetaMetadata          = "metadata"
	MetaArguments         = "arguments"
	MetaCaller            = "caller"
)

// Reserved sender ids.
const (
	SenderUser         = "user"
	SenderOrchestrator = "orchestrator"
)

// Metadata is a string-keyed map of JSON-compatible values attached to a message.
type Metadata map[string]any

// Clone returns a shallow copy. A nil Metadata clones to an empty, non-nil map.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	maps.Copy(out, m)
	return out
}

// SetDefault sets key to value only when key is absent. It reports whether it wrote.
func (m Metadata) SetDefault(key string, value any) bool {
	if _, ok := m[key]; ok {
		return false
	}
	m[key] = value
	return true
}

// String returns the value of key when it is a string.
func (m Metadata) String(key string) (string, bool) {
	v, ok := m[key].(string)
	return v, ok
}

// Bool returns the value of key when it is a bool.
func (m Metadata) Bool(key string) (bool, bool) {
	v, ok := m[key].(bool)
	return v, ok
}

// UnmarshalJSON keeps numbers exact: integral values decode as int64 and the
// rest as float64, including inside nested maps and slices.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if raw == nil {
		*m = nil
		return nil
	}
	for k, v := range raw {
		raw[k] = exactNumbers(v)
	}
	*m = Metadata(raw)
	return nil
}

func exactNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any:
		for k, e := range x {
			x[k] = exactNumbers(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = exactNumbers(e)
		}
		return x
	default:
		return v
	}
}

// Message is exchanged between agents via the orchestrator.
type Message struct {
	Sender    string   `json:"sender"`
	Recipient string   `json:"recipient"`
	Content   string   `json:"content"`
	Metadata  Metadata `json:"metadata"`
}

// NewMessage creates a message with a non-nil metadata map.
func NewMessage(sender, recipient, content string) Message {
	return Message{
		Sender:    sender,
		Recipient: recipient,
		Content:   content,
		Metadata:  Metadata{},
	}
}

// WithMetadata returns a copy of the message with key set in a cloned metadata map.
func (m Message) WithMetadata(key string, value any) Message {
	m.Metadata = m.Metadata.Clone()
	m.Metadata[key] = value
	return m
}

// Reply builds a message addressed back to the sender of m.
func (m Message) Reply(from, content string) Message {
	return NewMessage(from, m.Sender, content)
}
