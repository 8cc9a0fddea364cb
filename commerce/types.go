package commerce

import "time"

// Product is a catalog record
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category,omitempty"`
	Price       float64   `json:"price"`
	Currency    string    `json:"currency,omitempty"`
	Description string    `json:"description,omitempty"`
	InStock     bool      `json:"in_stock"`
	Variants    []Variant `json:"variants,omitempty"`
}

// Variant is one sellable variation of a product (usually a size)
type Variant struct {
	Size     string `json:"size"`
	Quantity int    `json:"quantity"`
}

// Order is a commerce-platform order. CustomerID is the owning-customer
// field checked by the tool dispatcher's ownership invariant.
type Order struct {
	ID         string      `json:"id"`
	CustomerID string      `json:"customer_id"`
	Email      string      `json:"email,omitempty"`
	Status     string      `json:"status"`
	Total      float64     `json:"total"`
	Currency   string      `json:"currency,omitempty"`
	Items      []OrderItem `json:"items,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// OrderItem is one purchased line
type OrderItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Size      string  `json:"size,omitempty"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// Shipment is the tracking state of an order
type Shipment struct {
	OrderID           string `json:"order_id"`
	Carrier           string `json:"carrier,omitempty"`
	TrackingNumber    string `json:"tracking_number,omitempty"`
	Status            string `json:"status"`
	EstimatedDelivery string `json:"estimated_delivery,omitempty"`
}

// CustomerRecord is the commerce platform's view of a customer, used to
// link a resolved chat customer to their commerce id.
type CustomerRecord struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	Name  string `json:"name,omitempty"`
}
