package session

import (
	"bytes"
	"encoding/json"

	"courier-driver-agent/internal/domain"
)

// pingFrame and pongFrame are the heartbeat sentinels. They are plain text,
// not JSON; a pong must be discarded before any decode attempt.
var (
	pingFrame = []byte("ping")
	pongFrame = []byte("pong")
)

const typeNewOrder = "new_order"

// envelope is the JSON shape of server pushes.
type envelope struct {
	Type  string        `json:"type"`
	Order *domain.Order `json:"order"`
}

// locationFrame is the outbound position report.
type locationFrame struct {
	Type      string  `json:"type"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func encodeLocation(loc domain.Location) ([]byte, error) {
	return json.Marshal(locationFrame{
		Type:      "location_update",
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
	})
}

func isPong(raw []byte) bool {
	return bytes.Equal(bytes.TrimSpace(raw), pongFrame)
}

// decodeEnvelope parses an inbound JSON frame. ok is false for frames that
// should be dropped: malformed JSON, unknown types, or a new_order without
// an embedded order.
func decodeEnvelope(raw []byte) (*domain.Order, bool) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, false
	}
	if env.Type != typeNewOrder || env.Order == nil {
		return nil, false
	}
	return env.Order, true
}
