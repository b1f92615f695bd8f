package orders

import (
	"strings"
	"time"
)

type Product struct {
	ID        string
	SKU       string
	Name      string
	Model     string // "model" attribute
	Permalink string
	ImageURL  string
}

type Billing struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	City      string
	Address1  string
}

// FullName is "First Last" with missing parts dropped.
func (b Billing) FullName() string {
	return strings.TrimSpace(strings.Join(strings.Fields(b.FirstName+" "+b.LastName), " "))
}

type Order struct {
	ID          string
	ExternalID  string
	UserID      string // empty for guest checkouts
	Status      Status // lihat status.go
	Billing     Billing
	CompletedAt *time.Time
	CreatedAt   time.Time
	Items       []OrderItem
}

func (o *Order) IsCompleted() bool { return o.Status == StatusCompleted }

type OrderItem struct {
	ID        int64
	OrderID   string
	ProductID string
	Name      string
	Qty       int
	Product   *Product // nil when the product row no longer exists
}
