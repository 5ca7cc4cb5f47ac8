// Package record defines the canonical shipment/return entity and the
// normalization of vendor-shaped payloads into it.
package record

import "time"

// =============================================================================
// CANONICAL RECORD
// =============================================================================

// Direction distinguishes outbound shipments from inbound returns.
type Direction string

const (
	// Outbound is a shipment from the warehouse to a customer.
	Outbound Direction = "outbound"

	// Inbound is a return from a customer to the warehouse.
	Inbound Direction = "inbound"
)

// Valid reports whether d is one of the two known directions.
func (d Direction) Valid() bool {
	return d == Outbound || d == Inbound
}

// Path returns the warehouse API path segment for this direction.
func (d Direction) Path() string {
	return string(d) + "s"
}

// Item is one line item on a record.
type Item struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	SKU      string `json:"sku,omitempty"`
}

// Address holds the postal address fields of a record.
type Address struct {
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	Suburb     string `json:"suburb,omitempty"`
	City       string `json:"city,omitempty"`
	Province   string `json:"province,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
}

// Record is the canonical normalized shipment/return entity. ID equals the
// shipment identifier and is never empty after normalization. Unknown vendor
// fields survive in Extra without interpretation.
type Record struct {
	ID             string            `json:"id"`
	Direction      Direction         `json:"direction"`
	Store          string            `json:"store"`
	OrderID        string            `json:"orderId,omitempty"`
	ChannelID      string            `json:"channelId,omitempty"`
	OrderDate      time.Time         `json:"orderDate"`
	CustomerName   string            `json:"customerName,omitempty"`
	CustomerEmail  string            `json:"customerEmail,omitempty"`
	Status         string            `json:"status"`
	StatusDate     time.Time         `json:"statusDate"`
	Courier        string            `json:"courier,omitempty"`
	TrackingNumber string            `json:"trackingNumber,omitempty"`
	TrackingURL    string            `json:"trackingUrl,omitempty"`
	Address        Address           `json:"address"`
	Items          []Item            `json:"items"`
	Extra          map[string]string `json:"extra,omitempty"`
	UpdatedAt      time.Time         `json:"updatedAt,omitempty"`
}
