package utils

import (
	"errors"
	"testing"

	"trade-sync/src/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingBufferOverwritesOldest(t *testing.T) {
	rb := NewRingBuffer[int](3)
	for i := 1; i <= 5; i++ {
		rb.Append(i)
	}

	assert.True(t, rb.IsFull())
	assert.Equal(t, 3, rb.Size())
	assert.Equal(t, []int{3, 4, 5}, rb.GetAll())
	assert.Equal(t, []int{4, 5}, rb.GetLatest(2))
	assert.Equal(t, []int{3, 4, 5}, rb.GetLatest(10))

	rb.Clear()
	assert.Equal(t, 0, rb.Size())
	assert.Empty(t, rb.GetAll())
}

func TestRingBufferDefaultCapacity(t *testing.T) {
	rb := NewRingBuffer[string](0)
	assert.Equal(t, ActivityLogCapacity, rb.Capacity())
}

func TestActivityLogCapsAndOrders(t *testing.T) {
	log := NewActivityLog(ActivityLogCapacity)
	for i := 0; i < ActivityLogCapacity+10; i++ {
		log.OnCommandResult(models.MCommandOutcome{Success: true, Message: "ok"})
	}
	log.OnError("command", errors.New("boom"))

	entries := log.Entries()
	require.Len(t, entries, ActivityLogCapacity)
	assert.Equal(t, "boom", entries[0].Message)
	assert.True(t, entries[0].IsError)
}

func TestActivityLogSkipsFlatTicks(t *testing.T) {
	log := NewActivityLog(10)
	log.OnPriceChanged(models.MPriceChange{Symbol: "BTC-USD", Direction: models.DirectionNone})
	log.OnPriceChanged(models.MPriceChange{
		Symbol:    "BTC-USD",
		Direction: models.DirectionUp,
		Snapshot:  models.MPriceSnapshot{Symbol: "BTC-USD", Last: 105},
	})

	entries := log.Entries()
	require.Len(t, entries, 1)
	assert.True(t, entries[0].IsTick)
	assert.Equal(t, "BTC-USD up 105.00", entries[0].Message)
}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{0.123456789, "0.123457"},
		{12.5, "12.5000"},
		{42000.5, "42000.50"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatPrice(tt.in))
	}
}

func TestActivityLogIncludesExecutedOrder(t *testing.T) {
	log := NewActivityLog(ActivityLogCapacity)
	log.OnCommandResult(models.MCommandOutcome{
		Success: true,
		Message: "Order executed",
		Order:   &models.MOrder{ID: 12, Symbol: "ETH-USD", Side: "SELL", Status: "FILLED", Quantity: decimal.NewFromInt(2)},
	})

	entries := log.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "Order executed (order #12: SELL 2 ETH-USD FILLED)", entries[0].Message)
}
