// Package warranty issues warranty cards for completed orders: one card
// per purchased line item, snapshotting customer and product facts.
package warranty

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CoverageMonths is the fixed warranty period.
const CoverageMonths = 24

const (
	dateLayout    = "2006-01-02"
	displayLayout = "02.01.2006"
)

type Card struct {
	ID             int64
	Title          string
	WarrantyNumber string
	AccessToken    string // stored, not used for access control

	OrderID     string
	OrderItemID int64

	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	CustomerCity    string
	CustomerAddress string

	ProductID    string
	ProductTitle string
	ProductSKU   string
	ProductModel string
	ProductURL   string

	StartDate time.Time
	EndDate   time.Time
}

// Valid reports whether the card has enough data to be rendered.
func (c *Card) Valid() bool { return c.ProductTitle != "" }

// Code is what the card prints as the product code.
func (c *Card) Code() string {
	if c.ProductSKU != "" {
		return c.ProductSKU
	}
	return c.WarrantyNumber
}

func (c *Card) StartDisplay() string { return display(c.StartDate) }
func (c *Card) EndDisplay() string   { return display(c.EndDate) }

func display(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(displayLayout)
}

// CoverageEnd adds the warranty period with calendar arithmetic. Overflowing
// days roll into the next month (29 Feb 2024 ends on 1 Mar 2026).
func CoverageEnd(start time.Time) time.Time {
	return start.AddDate(0, CoverageMonths, 0)
}

// CoverageStart is the completion date in loc, or today when the order has
// none, truncated to midnight.
func CoverageStart(completedAt *time.Time, now time.Time, loc *time.Location) time.Time {
	t := now
	if completedAt != nil && !completedAt.IsZero() {
		t = *completedAt
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// Number builds the printed warranty number, W<yyyymmdd>-<record id>.
func Number(issued time.Time, id int64) string {
	return "W" + issued.Format("20060102") + "-" + strconv.FormatInt(id, 10)
}

// Title is the record title shown in listings.
func Title(orderID string, itemID int64, customer string) string {
	return fmt.Sprintf("Warranty Card #%s-%d – %s", orderID, itemID, customer)
}

// UniqueKey identifies the line item a card belongs to.
func UniqueKey(orderID string, itemID int64) string {
	return orderID + ":" + strconv.FormatInt(itemID, 10)
}

func newAccessToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
