package stream

import (
	"trade-sync/src/helpers"
	"trade-sync/src/models"

	"github.com/goccy/go-json"
)

type envelope struct {
	Type string `json:"type"`
}

// -----------------------------------------------------------------------------

// EncodeSubscribe builds the subscribe frame for the full symbol list.
func EncodeSubscribe(symbols []string) ([]byte, error) {
	if symbols == nil {
		symbols = []string{}
	}
	return json.Marshal(models.MSubscribeCommand{
		Type:    models.StreamTypeSubscribe,
		Symbols: symbols,
	})
}

// -----------------------------------------------------------------------------

// DecodeServerMessage parses one inbound frame into a typed message. Frames
// that are not JSON, carry an unknown type or miss required fields are
// returned as protocol errors.
func DecodeServerMessage(data []byte) (models.MServerMessage, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return models.MServerMessage{}, helpers.NewProtocolError("unparsable stream message", err)
	}

	switch env.Type {
	case models.StreamTypeTick:
		var tick models.MTick
		if err := json.Unmarshal(data, &tick); err != nil {
			return models.MServerMessage{}, helpers.NewProtocolError("malformed tick", err)
		}
		if tick.Symbol == "" || tick.Last == nil {
			return models.MServerMessage{}, helpers.NewProtocolError("tick missing symbol or last", nil)
		}
		return models.MServerMessage{Type: env.Type, Tick: &tick}, nil

	case models.StreamTypeSubscribed:
		var ack models.MSubscribedAck
		if err := json.Unmarshal(data, &ack); err != nil {
			return models.MServerMessage{}, helpers.NewProtocolError("malformed subscribed ack", err)
		}
		return models.MServerMessage{Type: env.Type, Subscribed: &ack}, nil

	case "":
		return models.MServerMessage{}, helpers.NewProtocolError("stream message without type", nil)

	default:
		return models.MServerMessage{}, helpers.NewProtocolError("unknown stream message type "+env.Type, nil)
	}
}
