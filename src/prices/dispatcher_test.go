package prices

import (
	"testing"

	"trade-sync/src/events"
	"trade-sync/src/helpers"
	"trade-sync/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func lastTick(symbol string, last float64) models.MTick {
	return models.MTick{Symbol: symbol, Last: f(last)}
}

func TestApplyTickDirections(t *testing.T) {
	rec := events.NewRecorder()
	d := NewDispatcher(NewCache(), rec, nil)

	for _, last := range []float64{100, 105, 105} {
		_, err := d.ApplyTick(lastTick("BTC-USD", last))
		require.NoError(t, err)
	}

	changes := rec.Prices()
	require.Len(t, changes, 3)
	// first tick compares against the zero snapshot
	assert.Equal(t, models.DirectionUp, changes[0].Direction)
	assert.Equal(t, models.DirectionUp, changes[1].Direction)
	assert.Equal(t, models.DirectionNone, changes[2].Direction)

	snap, ok := d.Cache.Get("BTC-USD")
	require.True(t, ok)
	assert.Equal(t, 105.0, snap.Last)
	assert.EqualValues(t, 3, d.Applied())
}

func TestApplyTickDirectionFollowsSign(t *testing.T) {
	testCases := []struct {
		name     string
		sequence []float64
		expected []models.MDirection
	}{
		{
			name:     "rising then falling",
			sequence: []float64{10, 11, 9},
			expected: []models.MDirection{models.DirectionUp, models.DirectionUp, models.DirectionDown},
		},
		{
			name:     "flat",
			sequence: []float64{0, 0, 0},
			expected: []models.MDirection{models.DirectionNone, models.DirectionNone, models.DirectionNone},
		},
		{
			name:     "negative change from seeded zero",
			sequence: []float64{-1, -1.5},
			expected: []models.MDirection{models.DirectionDown, models.DirectionDown},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := NewDispatcher(NewCache(), nil, nil)
			for i, last := range tc.sequence {
				change, err := d.ApplyTick(lastTick("ETH-USD", last))
				require.NoError(t, err)
				assert.Equal(t, tc.expected[i], change.Direction, "tick %d", i)

				snap, _ := d.Cache.Get("ETH-USD")
				assert.Equal(t, last, snap.Last)
			}
		})
	}
}

func TestApplyTickReplacesWholeSnapshot(t *testing.T) {
	d := NewDispatcher(NewCache(), nil, nil)

	_, err := d.ApplyTick(models.MTick{Symbol: "BTC-USD", Last: f(100), Bid: f(99), Ask: f(101)})
	require.NoError(t, err)

	_, err = d.ApplyTick(models.MTick{Symbol: "BTC-USD", Last: f(102), Change24h: f(1.5)})
	require.NoError(t, err)

	snap, _ := d.Cache.Get("BTC-USD")
	assert.Equal(t, 102.0, snap.Last)
	assert.Nil(t, snap.Bid)
	assert.Nil(t, snap.Ask)
	require.NotNil(t, snap.Change24h)
	assert.Equal(t, 1.5, *snap.Change24h)
	assert.Equal(t, models.TickVariantChange24h, snap.Variant)
}

func TestApplyTickNeverTouchesOtherSymbols(t *testing.T) {
	d := NewDispatcher(NewCache(), nil, nil)
	d.Cache.Seed(map[string]models.MPriceSnapshot{
		"ETH-USD": {Last: 3000},
	})

	_, err := d.ApplyTick(lastTick("BTC-USD", 50000))
	require.NoError(t, err)

	eth, _ := d.Cache.Get("ETH-USD")
	assert.Equal(t, 3000.0, eth.Last)
	assert.Equal(t, "ETH-USD", eth.Symbol)
	assert.Equal(t, 2, d.Cache.Len())
}

func TestApplyTickComparesAgainstSeed(t *testing.T) {
	rec := events.NewRecorder()
	d := NewDispatcher(NewCache(), rec, nil)
	d.Cache.Seed(map[string]models.MPriceSnapshot{"BTC-USD": {Last: 110}})

	change, err := d.ApplyTick(lastTick("BTC-USD", 105))
	require.NoError(t, err)
	assert.Equal(t, models.DirectionDown, change.Direction)
	assert.Equal(t, 110.0, change.Previous.Last)
}

func TestApplyTickRejectsMalformed(t *testing.T) {
	rec := events.NewRecorder()
	d := NewDispatcher(NewCache(), rec, nil)

	_, err := d.ApplyTick(models.MTick{Last: f(1)})
	assert.True(t, helpers.IsProtocol(err))

	_, err = d.ApplyTick(models.MTick{Symbol: "BTC-USD"})
	assert.True(t, helpers.IsProtocol(err))

	assert.Empty(t, rec.Prices())
	assert.Equal(t, 0, d.Cache.Len())
}

func TestTickVariant(t *testing.T) {
	assert.Equal(t, models.TickVariantLastOnly, models.MTick{Last: f(1)}.Variant())
	assert.Equal(t, models.TickVariantBidAsk, models.MTick{Last: f(1), Bid: f(1), Ask: f(2)}.Variant())
	assert.Equal(t, models.TickVariantChange24h, models.MTick{Last: f(1), Change24h: f(0)}.Variant())
	assert.Equal(t, models.TickVariantFull, models.MTick{Last: f(1), Bid: f(1), Change24h: f(0)}.Variant())
}
