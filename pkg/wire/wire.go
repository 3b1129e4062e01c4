// Package wire implements the binary batch format shared with the
// collector. The layout is a wire contract: field keys, discriminator
// values, and the frame prefix must stay stable across SDK versions and
// languages.
package wire

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// SchemaType tags a batch with the record family it carries.
type SchemaType uint8

const (
	SchemaUnknown SchemaType = iota
	SchemaEvent
	SchemaLog
	SchemaMetric    // reserved, not produced by this SDK
	SchemaInventory // reserved, not produced by this SDK
)

// Event-batch record discriminators.
const (
	EventUnknown uint8 = iota
	EventTrack
	EventIdentify
	EventGroup
	EventAlias
	EventEnrich
)

// Log-batch record discriminators.
const (
	LogUnknown uint8 = iota
	LogCollect
	LogEnrich
)

const (
	// MaxBatchBytes is the hard cap on an encoded batch table. Checked
	// after encoding, never estimated, because payload size is
	// schema-dependent.
	MaxBatchBytes = 10 << 20

	// SubjectSize is the fixed width of the subject identifier slot.
	SubjectSize = 16
)

// Record is one row handed to the codec. Body is serialized into the
// row's opaque payload as JSON.
type Record struct {
	Timestamp time.Time
	Kind      uint8
	Subject   string
	Body      map[string]any
}

// Batch is the decoded form of a batch table.
type Batch struct {
	APIKey  []byte
	BatchID uint64
	Schema  SchemaType
	Records []Record
}

// rowTable is the per-record wire table. Keys are part of the contract.
type rowTable struct {
	TimestampMS uint64 `cbor:"1,keyasint"`
	Kind        uint8  `cbor:"2,keyasint"`
	Subject     []byte `cbor:"3,keyasint"`
	Payload     []byte `cbor:"4,keyasint,omitempty"`
}

// batchTable is the top-level wire table. Keys are part of the contract.
type batchTable struct {
	APIKey     []byte `cbor:"1,keyasint"`
	BatchID    uint64 `cbor:"2,keyasint"`
	SchemaType uint8  `cbor:"3,keyasint"`
	Data       []byte `cbor:"4,keyasint"`
}

// Deterministic encoding so identical batches produce identical bytes
// regardless of SDK version.
var encMode, _ = cbor.CoreDetEncOptions().EncMode()

// EncodeEventBatch serializes event-family records into a batch table.
func EncodeEventBatch(records []Record, apiKey []byte, batchID uint64) ([]byte, error) {
	return encodeBatch(SchemaEvent, records, apiKey, batchID)
}

// EncodeLogBatch serializes log records into a batch table.
func EncodeLogBatch(records []Record, apiKey []byte, batchID uint64) ([]byte, error) {
	return encodeBatch(SchemaLog, records, apiKey, batchID)
}

func encodeBatch(schema SchemaType, records []Record, apiKey []byte, batchID uint64) ([]byte, error) {
	rows := make([]rowTable, 0, len(records))
	for i, r := range records {
		payload, err := encodePayload(r.Body)
		if err != nil {
			return nil, &EncodingError{Op: fmt.Sprintf("marshal payload of record %d", i), Err: err}
		}
		rows = append(rows, rowTable{
			TimestampMS: uint64(r.Timestamp.UnixMilli()),
			Kind:        r.Kind,
			Subject:     SubjectBytes(r.Subject),
			Payload:     payload,
		})
	}

	data, err := encMode.Marshal(rows)
	if err != nil {
		return nil, &EncodingError{Op: "marshal record rows", Err: err}
	}

	body, err := encMode.Marshal(batchTable{
		APIKey:     apiKey,
		BatchID:    batchID,
		SchemaType: uint8(schema),
		Data:       data,
	})
	if err != nil {
		return nil, &EncodingError{Op: "marshal batch table", Err: err}
	}

	if len(body) > MaxBatchBytes {
		return nil, &ValidationError{
			Reason: fmt.Sprintf("encoded batch is %d bytes, limit is %d", len(body), MaxBatchBytes),
		}
	}
	return body, nil
}

// DecodeBatch reverses encodeBatch. Used by tests and the dev sink; the
// SDK itself only encodes.
func DecodeBatch(body []byte) (*Batch, error) {
	var bt batchTable
	if err := cbor.Unmarshal(body, &bt); err != nil {
		return nil, &EncodingError{Op: "unmarshal batch table", Err: err}
	}

	var rows []rowTable
	if err := cbor.Unmarshal(bt.Data, &rows); err != nil {
		return nil, &EncodingError{Op: "unmarshal record rows", Err: err}
	}

	batch := &Batch{
		APIKey:  bt.APIKey,
		BatchID: bt.BatchID,
		Schema:  SchemaType(bt.SchemaType),
		Records: make([]Record, 0, len(rows)),
	}
	for i, row := range rows {
		if len(row.Subject) != SubjectSize {
			return nil, &ValidationError{
				Reason: fmt.Sprintf("record %d subject is %d bytes, want %d", i, len(row.Subject), SubjectSize),
			}
		}
		var body map[string]any
		if len(row.Payload) > 0 {
			if err := json.Unmarshal(row.Payload, &body); err != nil {
				return nil, &EncodingError{Op: fmt.Sprintf("unmarshal payload of record %d", i), Err: err}
			}
		}
		batch.Records = append(batch.Records, Record{
			Timestamp: time.UnixMilli(int64(row.TimestampMS)).UTC(),
			Kind:      row.Kind,
			Subject:   SubjectString(row.Subject),
			Body:      body,
		})
	}
	return batch, nil
}

func encodePayload(body map[string]any) ([]byte, error) {
	if len(body) == 0 {
		return nil, nil
	}
	return json.Marshal(body)
}

// SubjectBytes converts a subject identifier to the fixed 16-byte slot:
// UTF-8 bytes zero-padded when shorter, truncated to the first 16 bytes
// when longer. Truncation is lossy by design; the legacy slot width
// cannot represent longer identifiers.
func SubjectBytes(s string) []byte {
	out := make([]byte, SubjectSize)
	copy(out, s)
	return out
}

// SubjectString trims the zero padding SubjectBytes added.
func SubjectString(b []byte) string {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	return string(b[:end])
}
