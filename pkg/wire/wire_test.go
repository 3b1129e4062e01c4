package wire

import (
	"bytes"
	"encoding/binary"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 589_000_000, time.UTC)
	records := []Record{
		{
			Timestamp: ts,
			Kind:      EventTrack,
			Subject:   "user-1",
			Body: map[string]any{
				"name":       "page_view",
				"properties": map[string]any{"path": "/docs", "count": float64(3)},
			},
		},
		{
			Timestamp: ts.Add(time.Millisecond),
			Kind:      EventIdentify,
			Subject:   "user-2",
			Body:      map[string]any{"name": "user_identified"},
		},
	}
	apiKey := []byte{0xde, 0xad, 0xbe, 0xef}

	body, err := EncodeEventBatch(records, apiKey, 42)
	require.NoError(t, err)

	batch, err := DecodeBatch(body)
	require.NoError(t, err)

	assert.Equal(t, apiKey, batch.APIKey)
	assert.Equal(t, uint64(42), batch.BatchID)
	assert.Equal(t, SchemaEvent, batch.Schema)
	require.Len(t, batch.Records, 2)

	got := batch.Records[0]
	assert.Equal(t, ts.UnixMilli(), got.Timestamp.UnixMilli())
	assert.Equal(t, EventTrack, got.Kind)
	assert.Equal(t, "user-1", got.Subject)
	assert.Equal(t, "page_view", got.Body["name"])
	props, ok := got.Body["properties"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "/docs", props["path"])
	assert.Equal(t, float64(3), props["count"])

	assert.Equal(t, EventIdentify, batch.Records[1].Kind)
	assert.Equal(t, "user-2", batch.Records[1].Subject)
}

func TestEncodeLogBatchSchema(t *testing.T) {
	body, err := EncodeLogBatch([]Record{{
		Timestamp: time.Now(),
		Kind:      LogCollect,
		Subject:   "session-9",
		Body:      map[string]any{"level": float64(3), "message": "boom"},
	}}, []byte("key"), 7)
	require.NoError(t, err)

	batch, err := DecodeBatch(body)
	require.NoError(t, err)
	assert.Equal(t, SchemaLog, batch.Schema)
	assert.Equal(t, LogCollect, batch.Records[0].Kind)
}

func TestEncodeDeterministic(t *testing.T) {
	records := []Record{{
		Timestamp: time.UnixMilli(1700000000000),
		Kind:      EventTrack,
		Subject:   "u",
		Body:      map[string]any{"name": "a", "properties": map[string]any{"x": "y"}},
	}}

	a, err := EncodeEventBatch(records, []byte("k"), 1)
	require.NoError(t, err)
	b, err := EncodeEventBatch(records, []byte("k"), 1)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEncodeRejectsOversizedBatch(t *testing.T) {
	big := strings.Repeat("x", MaxBatchBytes)
	_, err := EncodeEventBatch([]Record{{
		Timestamp: time.Now(),
		Kind:      EventTrack,
		Subject:   "u",
		Body:      map[string]any{"blob": big},
	}}, []byte("k"), 1)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestTimestampMillisecondPrecision(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 678_901_234, time.UTC)
	body, err := EncodeEventBatch([]Record{{
		Timestamp: ts, Kind: EventTrack, Subject: "u",
	}}, []byte("k"), 1)
	require.NoError(t, err)

	batch, err := DecodeBatch(body)
	require.NoError(t, err)
	// Sub-millisecond precision is not preserved by the wire format.
	assert.Equal(t, ts.Truncate(time.Millisecond).UnixMilli(), batch.Records[0].Timestamp.UnixMilli())
}

func TestSubjectBytes(t *testing.T) {
	short := SubjectBytes("abc")
	assert.Len(t, short, SubjectSize)
	assert.Equal(t, "abc", SubjectString(short))

	exact := SubjectBytes("0123456789abcdef")
	assert.Equal(t, "0123456789abcdef", SubjectString(exact))

	// Longer identifiers are truncated to the slot width; lossy by
	// design.
	long := SubjectBytes("0123456789abcdefGHIJ")
	assert.Len(t, long, SubjectSize)
	assert.Equal(t, "0123456789abcdef", SubjectString(long))
}

func TestFrameRoundTrip(t *testing.T) {
	body := []byte("batch-table-bytes")

	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, body))

	// u32 big-endian prefix.
	assert.Equal(t, []byte{0, 0, 0, byte(len(body))}, buf.Bytes()[:4])

	got, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, body, got)

	// Clean EOF between frames.
	_, err = ReadFrame(&buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadFrameRejectsOversizedHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(MaxBatchBytes+1)))

	_, err := ReadFrame(&buf)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}
