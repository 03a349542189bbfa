package gateway

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRawJSON(t *testing.T) {
	got := rawJSON(map[string]any{"type": "object"}, "input_schema", "flight_search")
	assert.JSONEq(t, `{"type":"object"}`, string(got))

	assert.Nil(t, rawJSON(math.Inf(1), "structured_content", "flight_search"))
	assert.Nil(t, rawJSON(map[string]any{"bad": make(chan int)}, "structured_content", "flight_search"))
	assert.Equal(t, json.RawMessage(nil), rawJSON(func() {}, "input_schema", "hotel_search"))
}
