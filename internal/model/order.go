package model

type Customer struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type Address struct {
	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
}

type OrderItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// Order is owned by the storefront database; this service only reads it to
// render emails.
type Order struct {
	OrderNumber     string      `json:"orderNumber"`
	Customer        *Customer   `json:"customer,omitempty"`
	ShippingAddress *Address    `json:"shippingAddress,omitempty"`
	Items           []OrderItem `json:"items,omitempty"`
	FinalTotal      float64     `json:"finalTotal"`
	Status          string      `json:"status,omitempty"`
}

// Payment status values written by webhook handlers.
const (
	PaymentStatusPaid   = "paid"
	PaymentStatusFailed = "failed"
)
