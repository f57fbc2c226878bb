package models

// MTickVariant names the field set a tick carried. Deployments differ: some
// push bid/ask, some push change24h, newer ones push both.
type MTickVariant string

const (
	TickVariantLastOnly  MTickVariant = "last_only"
	TickVariantBidAsk    MTickVariant = "bid_ask"
	TickVariantChange24h MTickVariant = "change24h"
	TickVariantFull      MTickVariant = "full"
)

// MPriceSnapshot is the last known set of price fields for one symbol.
// Optional fields are nil when the tick that produced the snapshot did not
// carry them.
type MPriceSnapshot struct {
	Symbol    string       `json:"symbol"`
	Last      float64      `json:"last"`
	Bid       *float64     `json:"bid,omitempty"`
	Ask       *float64     `json:"ask,omitempty"`
	Change24h *float64     `json:"change24h,omitempty"`
	Timestamp int64        `json:"ts,omitempty"`
	Variant   MTickVariant `json:"variant,omitempty"`
}

// MDirection is the sign of the change between two consecutive last prices.
type MDirection int

const (
	DirectionNone MDirection = iota
	DirectionUp
	DirectionDown
)

func (d MDirection) String() string {
	switch d {
	case DirectionUp:
		return "up"
	case DirectionDown:
		return "down"
	default:
		return "none"
	}
}

func (d MDirection) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// MPriceChange is what the tick dispatcher reports for every applied tick.
type MPriceChange struct {
	Symbol    string         `json:"symbol"`
	Previous  MPriceSnapshot `json:"previous"`
	Snapshot  MPriceSnapshot `json:"snapshot"`
	Direction MDirection     `json:"direction"`
}
