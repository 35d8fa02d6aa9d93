package domain

// Presence represents whether the courier is reachable for dispatch.
type Presence string

// List of possible courier presence values. The legacy "busy" value meant
// exactly one active order; the current model allows several concurrent
// orders, so busy folds into online with a non-empty active set.
const (
	PresenceOffline Presence = "offline"
	PresenceOnline  Presence = "online"
)

// ParsePresence maps a wire value to a Presence, folding the superseded
// "busy" into online.
func ParsePresence(s string) (Presence, bool) {
	switch s {
	case "offline":
		return PresenceOffline, true
	case "online", "busy":
		return PresenceOnline, true
	default:
		return "", false
	}
}

// Location is a single position sample from the device.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Heading   float64 `json:"heading,omitempty"`
}
