// Package status maps network and place names to chat status payloads.
package status

import (
	"bytes"
	"encoding/json"
)

// Payload is forwarded verbatim as the Slack profile object
// (usually status_text and status_emoji).
//
// A nil Payload means "absent": the signal had no configured status.
// It is distinct from an empty, non-nil Payload.
type Payload map[string]any

// Canonical returns the payload's canonical JSON form. encoding/json sorts
// map keys at every level, so equal contents give equal bytes. The absent
// payload encodes as "null".
func (p Payload) Canonical() ([]byte, error) {
	if p == nil {
		return []byte("null"), nil
	}
	return json.Marshal(map[string]any(p))
}

func (p Payload) String() string {
	b, err := p.Canonical()
	if err != nil {
		return "<invalid payload>"
	}
	return string(b)
}

// Equal compares two payloads by value. Payloads that cannot be encoded
// are never equal to anything.
func Equal(a, b Payload) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	ca, err := a.Canonical()
	if err != nil {
		return false
	}
	cb, err := b.Canonical()
	if err != nil {
		return false
	}
	return bytes.Equal(ca, cb)
}

func clone(m map[string]any) Payload {
	if m == nil {
		return nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		// Not JSON-encodable: keep a shallow copy, the publisher will surface the error.
		out := make(Payload, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out
	}
	var out Payload
	_ = json.Unmarshal(b, &out)
	return out
}
