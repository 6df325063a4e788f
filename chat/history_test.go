package chat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeHistoryObjectShape(t *testing.T) {
	raw := json.RawMessage(`{
		"id": 7,
		"businessId": "biz-1",
		"customerId": "cust-1",
		"messsages": [
			{"id": "b", "text": "second", "senderId": "cust-1", "createdAt": "2024-05-01T12:00:02Z"},
			{"id": "a", "text": "first", "senderId": "biz-1", "createdAt": "2024-05-01T12:00:01Z"}
		]
	}`)

	msgs := normalizeHistory(raw)
	assert.Equal(t, []string{"a", "b"}, ids(msgs))
}

func TestNormalizeHistoryArrayShape(t *testing.T) {
	raw := json.RawMessage(`[{
		"id": 7,
		"messsages": [
			{"id": "a", "text": "first", "senderId": "biz-1", "createdAt": "2024-05-01T12:00:01Z"}
		]
	}]`)

	msgs := normalizeHistory(raw)
	assert.Equal(t, []string{"a"}, ids(msgs))
}

func TestNormalizeHistoryMalformed(t *testing.T) {
	cases := map[string]json.RawMessage{
		"empty":            nil,
		"not json":         json.RawMessage(`{{{`),
		"empty array":      json.RawMessage(`[]`),
		"no messages key":  json.RawMessage(`{"id": 7}`),
		"wrong value type": json.RawMessage(`{"messsages": "nope"}`),
		"scalar":           json.RawMessage(`42`),
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Empty(t, normalizeHistory(raw))
		})
	}
}
