package record

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriorityClassification(t *testing.T) {
	assert.Equal(t, PriorityNormal, Event{UserID: "u", Name: "page_view"}.Priority())
	assert.Equal(t, PriorityHigh, Event{UserID: "u", Name: "login", Category: CategoryAuthentication}.Priority())
	assert.Equal(t, PriorityHigh, Event{UserID: "u", Name: "crash", Category: CategoryError}.Priority())
	assert.Equal(t, PriorityHigh, Event{UserID: "u", Name: "x", HighPriority: true}.Priority())

	assert.Equal(t, PriorityHigh, Revenue{UserID: "u"}.Priority())

	assert.Equal(t, PriorityNormal, Identity{UserID: "u"}.Priority())
	assert.Equal(t, PriorityHigh, Identity{UserID: "u", HighPriority: true}.Priority())
}

func TestLogLevelPriority(t *testing.T) {
	high := []Level{LevelEmergency, LevelAlert, LevelCritical, LevelError}
	for _, l := range high {
		assert.Equal(t, PriorityHigh, LogEntry{UserID: "u", Level: l}.Priority(), l.String())
	}

	normal := []Level{LevelWarning, LevelNotice, LevelInfo, LevelDebug, LevelTrace}
	for _, l := range normal {
		assert.Equal(t, PriorityNormal, LogEntry{UserID: "u", Level: l}.Priority(), l.String())
	}
}

func TestLevelStrings(t *testing.T) {
	assert.Equal(t, "emergency", LevelEmergency.String())
	assert.Equal(t, "error", LevelError.String())
	assert.Equal(t, "trace", LevelTrace.String())
	assert.Equal(t, "unknown", Level(42).String())
}

func TestEnvelopeRoundTrip(t *testing.T) {
	records := []Record{
		Event{UserID: "u", Name: "page_view", Time: time.Now(),
			Properties: map[string]any{"path": "/"}},
		Identity{UserID: "u", Traits: map[string]any{"plan": "pro"}, Time: time.Now()},
		Group{UserID: "u", GroupID: "acme", Time: time.Now()},
		Revenue{UserID: "u", OrderID: "ord", Amount: 9.5, Currency: "USD", Time: time.Now(),
			Products: []Product{{ID: "sku", Price: 9.5, Quantity: 1}}},
		LogEntry{UserID: "s", Level: LevelWarning, Message: "careful", ContextID: 12, Time: time.Now()},
	}

	for _, original := range records {
		data, err := Marshal(original)
		require.NoError(t, err)

		got, err := Unmarshal(data)
		require.NoError(t, err)
		assert.Equal(t, original.Kind(), got.Kind())
		assert.Equal(t, original.Subject(), got.Subject())
	}
}

func TestEnvelopeFieldFidelity(t *testing.T) {
	data, err := Marshal(Revenue{
		UserID: "u", OrderID: "ord-9", Amount: 42.5, Currency: "GBP",
		RevenueType: "purchase",
		Products:    []Product{{ID: "sku-2", Name: "pro plan", Price: 42.5, Quantity: 1}},
		Time:        time.Now(),
	})
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	rev, ok := got.(Revenue)
	require.True(t, ok)
	assert.Equal(t, "ord-9", rev.OrderID)
	assert.Equal(t, 42.5, rev.Amount)
	assert.Equal(t, "GBP", rev.Currency)
	require.Len(t, rev.Products, 1)
	assert.Equal(t, "sku-2", rev.Products[0].ID)
}

func TestUnmarshalUnknownKind(t *testing.T) {
	_, err := Unmarshal([]byte(`{"kind":"metric","body":{}}`))
	assert.Error(t, err)
}
