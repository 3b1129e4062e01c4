package record

import (
	"encoding/json"
	"fmt"
)

// envelope tags a serialized record with its kind so stores can round-trip
// the polymorphic type.
type envelope struct {
	Kind Kind            `json:"kind"`
	Body json.RawMessage `json:"body"`
}

// Marshal serializes a record with a kind tag for persistence.
func Marshal(r Record) ([]byte, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s record: %w", r.Kind(), err)
	}
	return json.Marshal(envelope{Kind: r.Kind(), Body: body})
}

// Unmarshal reverses Marshal, reconstructing the concrete variant.
func Unmarshal(data []byte) (Record, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record envelope: %w", err)
	}

	var r Record
	var err error
	switch env.Kind {
	case KindEvent:
		var v Event
		err = json.Unmarshal(env.Body, &v)
		r = v
	case KindIdentity:
		var v Identity
		err = json.Unmarshal(env.Body, &v)
		r = v
	case KindGroup:
		var v Group
		err = json.Unmarshal(env.Body, &v)
		r = v
	case KindRevenue:
		var v Revenue
		err = json.Unmarshal(env.Body, &v)
		r = v
	case KindLog:
		var v LogEntry
		err = json.Unmarshal(env.Body, &v)
		r = v
	default:
		return nil, fmt.Errorf("unknown record kind %q", env.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s record: %w", env.Kind, err)
	}
	return r, nil
}
