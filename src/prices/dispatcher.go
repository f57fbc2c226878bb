package prices

import (
	"sync/atomic"

	"trade-sync/src/helpers"
	"trade-sync/src/interfaces"
	"trade-sync/src/logger"
	"trade-sync/src/models"
)

// -----------------------------------------------------------------------------
// Dispatcher turns inbound ticks into cache replacements and price events.
// It performs no I/O and never blocks beyond the cache lock.
// -----------------------------------------------------------------------------

type Dispatcher struct {
	Cache   *Cache
	Sink    interfaces.IEventSink
	Logger  *logger.Logger
	applied atomic.Int64
}

// -----------------------------------------------------------------------------

func NewDispatcher(cache *Cache, sink interfaces.IEventSink, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		Cache:  cache,
		Sink:   sink,
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

// ApplyTick replaces the snapshot for tick.Symbol with exactly the fields the
// tick carries and reports the direction of the last price against the
// previous snapshot. Fields absent from the tick are not carried over.
func (d *Dispatcher) ApplyTick(tick models.MTick) (models.MPriceChange, error) {
	if tick.Symbol == "" {
		return models.MPriceChange{}, helpers.NewProtocolError("tick without symbol", nil)
	}
	if tick.Last == nil {
		return models.MPriceChange{}, helpers.NewProtocolError("tick for "+tick.Symbol+" without last price", nil)
	}

	next := SnapshotFromTick(tick)
	prev := d.Cache.Replace(next)

	change := models.MPriceChange{
		Symbol:    tick.Symbol,
		Previous:  prev,
		Snapshot:  next,
		Direction: Compare(prev.Last, next.Last),
	}
	d.applied.Add(1)

	if d.Logger != nil && change.Direction != models.DirectionNone {
		d.Logger.Debug("%s %s %v", tick.Symbol, change.Direction, next.Last)
	}
	if d.Sink != nil {
		d.Sink.OnPriceChanged(change)
	}
	return change, nil
}

// -----------------------------------------------------------------------------

// Applied returns how many ticks have been applied.
func (d *Dispatcher) Applied() int64 {
	return d.applied.Load()
}

// -----------------------------------------------------------------------------

// SnapshotFromTick copies the tick's fields into a fresh snapshot.
func SnapshotFromTick(tick models.MTick) models.MPriceSnapshot {
	s := models.MPriceSnapshot{
		Symbol:    tick.Symbol,
		Timestamp: tick.Timestamp,
		Variant:   tick.Variant(),
		Bid:       copyFloat(tick.Bid),
		Ask:       copyFloat(tick.Ask),
		Change24h: copyFloat(tick.Change24h),
	}
	if tick.Last != nil {
		s.Last = *tick.Last
	}
	return s
}

// -----------------------------------------------------------------------------

// Compare maps next-prev to up, none or down.
func Compare(prev, next float64) models.MDirection {
	switch {
	case next > prev:
		return models.DirectionUp
	case next < prev:
		return models.DirectionDown
	default:
		return models.DirectionNone
	}
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
