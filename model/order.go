package model

import "time"

// OrderType is the outcome of order classification. An order that matches no
// custom pattern has no order type and is ignored entirely.
type OrderType string

const (
	OrderTypeCustomify     OrderType = "customify_order"
	OrderTypeDesignService OrderType = "custom_design_service"
	OrderTypeBulk          OrderType = "custom_bulk_order"
)

// Order mirrors the shape the order source (Shopify) reports. The client
// treats it as an opaque remote payload; only the fields the engine reads are
// mapped.
type Order struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"` // Human order number, e.g. "#1042".
	FinancialStatus   string         `json:"financial_status"`
	FulfillmentStatus string         `json:"fulfillment_status"`
	Customer          OrderCustomer  `json:"customer"`
	LineItems         []OrderLineItem `json:"line_items"`
	Tags              string         `json:"tags"` // Comma-separated, as Shopify reports them.
	CreatedAt         time.Time      `json:"created_at"`
}

type OrderCustomer struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type OrderLineItem struct {
	Title      string             `json:"title"`
	Quantity   int                `json:"quantity"`
	Properties []LineItemProperty `json:"properties"`
}

type LineItemProperty struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}
