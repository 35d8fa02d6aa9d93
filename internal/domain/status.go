package domain

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

// List of possible order statuses
const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusAssigned  OrderStatus = "assigned"
	StatusPickedUp  OrderStatus = "picked_up"
	StatusInTransit OrderStatus = "in_transit"
	StatusDelivered OrderStatus = "delivered"
	StatusCanceled  OrderStatus = "canceled"
)

// List of allowed statuses
var allowedStatuses = [...]OrderStatus{
	StatusPending, StatusConfirmed, StatusAssigned,
	StatusPickedUp, StatusInTransit, StatusDelivered, StatusCanceled,
}

// Valid checks if the OrderStatus is valid
func (s OrderStatus) Valid() bool {
	for _, v := range allowedStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Active reports whether an order in this status is still in progress
// from the courier's point of view.
func (s OrderStatus) Active() bool {
	return s != StatusDelivered && s != StatusCanceled
}

// Next computes the status the courier requests on the next advance:
// assigned goes to picked_up, any other active status goes straight to
// delivered. The server confirms or rejects; the client never applies a
// status the server has not returned.
func (s OrderStatus) Next() OrderStatus {
	if s == StatusAssigned {
		return StatusPickedUp
	}
	return StatusDelivered
}
