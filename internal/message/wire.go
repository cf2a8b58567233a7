package message

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// FromJSON decodes a producer-supplied JSON document into a Message.
// Unknown fields are ignored so producers can evolve their documents
// without breaking the bus. Missing identity fields are filled in the
// same way New fills them: a generated ID, the current time, a Medium
// priority, Global scope, and the default expiration.
func FromJSON(data []byte) (*Message, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("message: invalid JSON document")
	}

	doc := gjson.ParseBytes(data)

	m := New(Type(doc.Get("type").String()), doc.Get("title").String(), doc.Get("description").String())
	if id := doc.Get("id").String(); id != "" {
		m.ID = id
	}
	if src := doc.Get("source").String(); src != "" {
		m.Source = src
	}
	if sc := doc.Get("scope").String(); sc != "" {
		m.Scope = Scope(sc)
	}
	if pr := doc.Get("priority"); pr.Exists() {
		m.Priority = Priority(pr.Int())
	}
	if ts := doc.Get("timestamp").String(); ts != "" {
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("message: parse timestamp: %w", err)
		}
		m.Timestamp = t
		m.Expiration = t.Add(DefaultTTL)
	}
	if exp := doc.Get("expiration").String(); exp != "" {
		t, err := time.Parse(time.RFC3339, exp)
		if err != nil {
			return nil, fmt.Errorf("message: parse expiration: %w", err)
		}
		m.Expiration = t
	}
	m.RequiresAck = doc.Get("requires_ack").Bool()

	doc.Get("tags").ForEach(func(_, value gjson.Result) bool {
		m.AddTag(value.String())
		return true
	})

	if payload := doc.Get("payload"); payload.IsObject() {
		for k, v := range payload.Map() {
			m.Payload[k] = v.Value()
		}
	}

	return m, nil
}

// ToJSON encodes the message as a JSON document in the wire shape
// accepted by FromJSON.
func (m *Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// PayloadPath evaluates a gjson path expression against the message
// payload, allowing consumers to reach into nested payload documents
// (e.g. "rewards.0.item_id") without asserting intermediate types.
func (m *Message) PayloadPath(path string) gjson.Result {
	data, err := json.Marshal(m.Payload)
	if err != nil {
		return gjson.Result{}
	}
	return gjson.GetBytes(data, path)
}

// SetPayloadJSON stores a raw JSON document under the given payload key.
// The document is parsed into plain Go values so GetPayload and
// PayloadPath observe it like any other entry.
func (m *Message) SetPayloadJSON(key string, raw []byte) error {
	if !gjson.ValidBytes(raw) {
		return fmt.Errorf("message: invalid JSON payload for key %q", key)
	}
	m.SetPayload(key, gjson.ParseBytes(raw).Value())
	return nil
}

// BuildDocument assembles a wire document from alternating key/value
// pairs using sjson path semantics, so callers can construct nested
// producer documents ("payload.region", "payload.delta") without an
// intermediate struct.
func BuildDocument(pairs ...any) ([]byte, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("message: BuildDocument requires key/value pairs")
	}
	doc := []byte(`{}`)
	for i := 0; i < len(pairs)-1; i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("message: BuildDocument key at index %d is not a string", i)
		}
		var err error
		doc, err = sjson.SetBytes(doc, key, pairs[i+1])
		if err != nil {
			return nil, fmt.Errorf("message: set %q: %w", key, err)
		}
	}
	return doc, nil
}
