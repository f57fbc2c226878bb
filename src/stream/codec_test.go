package stream

import (
	"testing"

	"trade-sync/src/helpers"
	"trade-sync/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeSubscribe(t *testing.T) {
	frame, err := EncodeSubscribe([]string{"BTC/USD", "ETH/USD"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"subscribe","symbols":["BTC/USD","ETH/USD"]}`, string(frame))

	frame, err = EncodeSubscribe(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"subscribe","symbols":[]}`, string(frame))
}

func TestDecodeTickVariants(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		variant models.MTickVariant
	}{
		{"last only", `{"type":"tick","symbol":"BTC/USD","last":100.5}`, models.TickVariantLastOnly},
		{"bid ask", `{"type":"tick","symbol":"BTC/USD","last":100.5,"bid":100.4,"ask":100.6,"ts":1700000000}`, models.TickVariantBidAsk},
		{"change", `{"type":"tick","symbol":"BTC/USD","last":100.5,"change24h":-1.2}`, models.TickVariantChange24h},
		{"full", `{"type":"tick","symbol":"BTC/USD","last":100.5,"bid":100.4,"ask":100.6,"change24h":2}`, models.TickVariantFull},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := DecodeServerMessage([]byte(tt.frame))
			require.NoError(t, err)
			require.NotNil(t, msg.Tick)
			assert.Equal(t, models.StreamTypeTick, msg.Type)
			assert.Equal(t, "BTC/USD", msg.Tick.Symbol)
			assert.Equal(t, 100.5, *msg.Tick.Last)
			assert.Equal(t, tt.variant, msg.Tick.Variant())
		})
	}
}

func TestDecodeSubscribedAck(t *testing.T) {
	msg, err := DecodeServerMessage([]byte(`{"type":"subscribed","symbols":["BTC/USD"]}`))
	require.NoError(t, err)
	require.NotNil(t, msg.Subscribed)
	assert.Equal(t, []string{"BTC/USD"}, msg.Subscribed.Symbols)
	assert.Nil(t, msg.Tick)
}

func TestDecodeRejectsUnmatchedShapes(t *testing.T) {
	frames := []string{
		`not json`,
		`{"symbol":"BTC/USD","last":1}`,
		`{"type":"heartbeat"}`,
		`{"type":"tick","last":1}`,
		`{"type":"tick","symbol":"BTC/USD"}`,
		`{"type":"tick","symbol":"BTC/USD","last":"abc"}`,
	}

	for _, frame := range frames {
		_, err := DecodeServerMessage([]byte(frame))
		assert.Error(t, err, frame)
		assert.True(t, helpers.IsProtocol(err), frame)
	}
}
