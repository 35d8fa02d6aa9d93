package domain

// MaxActiveOrders caps how many deliveries a courier may carry at once.
// The capacity check happens before the accept call, never after.
const MaxActiveOrders = 3

// Store is the pickup point embedded in an order.
type Store struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Address   string   `json:"address,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// OrderItem is a single line item of an order.
type OrderItem struct {
	ID              int64   `json:"id"`
	ProductID       int64   `json:"product_id"`
	Quantity        int     `json:"quantity"`
	PriceAtPurchase float64 `json:"price_at_purchase"`
	ProductName     string  `json:"product_name,omitempty"`
}

// Order is a delivery assignment as the dispatch backend represents it.
// Identity is the stable integer ID; everything else may be replaced by a
// fresher server representation at any time.
type Order struct {
	ID                int64       `json:"id"`
	Status            OrderStatus `json:"status"`
	TotalPrice        float64     `json:"total_price"`
	DeliveryAddress   string      `json:"delivery_address,omitempty"`
	DeliveryLatitude  *float64    `json:"delivery_latitude,omitempty"`
	DeliveryLongitude *float64    `json:"delivery_longitude,omitempty"`
	Store             Store       `json:"store"`
	Items             []OrderItem `json:"items"`
}

// Active reports whether the order still belongs in the courier's working set.
func (o Order) Active() bool {
	return o.Status.Active()
}
