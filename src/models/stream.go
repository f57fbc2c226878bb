package models

// Stream message types
const (
	StreamTypeSubscribe  = "subscribe"
	StreamTypeSubscribed = "subscribed"
	StreamTypeTick       = "tick"
)

// MSubscribeCommand is sent once per successful connection open.
type MSubscribeCommand struct {
	Type    string   `json:"type"`
	Symbols []string `json:"symbols"`
}

// MTick is an inbound price update. Pointer fields distinguish "absent" from
// zero so the decoder can tell the bid/ask and change24h variants apart.
type MTick struct {
	Symbol    string   `json:"symbol"`
	Last      *float64 `json:"last"`
	Bid       *float64 `json:"bid,omitempty"`
	Ask       *float64 `json:"ask,omitempty"`
	Change24h *float64 `json:"change24h,omitempty"`
	Timestamp int64    `json:"ts,omitempty"`
}

// Variant classifies the tick by the optional fields it carries.
func (t MTick) Variant() MTickVariant {
	hasBidAsk := t.Bid != nil || t.Ask != nil
	hasChange := t.Change24h != nil
	switch {
	case hasBidAsk && hasChange:
		return TickVariantFull
	case hasBidAsk:
		return TickVariantBidAsk
	case hasChange:
		return TickVariantChange24h
	default:
		return TickVariantLastOnly
	}
}

// MSubscribedAck is the server acknowledgment of a subscribe command.
type MSubscribedAck struct {
	Symbols []string `json:"symbols"`
}

// MServerMessage is a decoded stream message. Exactly one of Tick or
// Subscribed is set, matching Type.
type MServerMessage struct {
	Type       string
	Tick       *MTick
	Subscribed *MSubscribedAck
}
