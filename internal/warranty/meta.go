package warranty

import (
	"strconv"
	"time"

	"github.com/ariefcatur/go-warranty-cards/internal/records"
)

// RecordType is the content type cards are stored under.
const RecordType = "warranty_card"

const (
	metaOrderID         = "wc_order_id"
	metaOrderItemID     = "wc_order_item_id"
	metaCustomerName    = "wc_customer_name"
	metaCustomerEmail   = "wc_customer_email"
	metaCustomerPhone   = "wc_customer_phone"
	metaCustomerCity    = "wc_customer_city"
	metaCustomerAddress = "wc_customer_address"
	metaProductID       = "wc_product_id"
	metaProductTitle    = "wc_product_title"
	metaProductSKU      = "wc_product_sku"
	metaProductModel    = "wc_product_model"
	metaProductURL      = "wc_product_url"
	metaStartDate       = "wc_start_date"
	metaEndDate         = "wc_end_date"
	metaWarrantyNumber  = "wc_warranty_number"
	metaAccessToken     = "wc_access_token"
)

func (c *Card) meta() map[string]string {
	return map[string]string{
		metaOrderID:         c.OrderID,
		metaOrderItemID:     strconv.FormatInt(c.OrderItemID, 10),
		metaCustomerName:    c.CustomerName,
		metaCustomerEmail:   c.CustomerEmail,
		metaCustomerPhone:   c.CustomerPhone,
		metaCustomerCity:    c.CustomerCity,
		metaCustomerAddress: c.CustomerAddress,
		metaProductID:       c.ProductID,
		metaProductTitle:    c.ProductTitle,
		metaProductSKU:      c.ProductSKU,
		metaProductModel:    c.ProductModel,
		metaProductURL:      c.ProductURL,
		metaStartDate:       c.StartDate.Format(dateLayout),
		metaEndDate:         c.EndDate.Format(dateLayout),
		metaWarrantyNumber:  c.WarrantyNumber,
		metaAccessToken:     c.AccessToken,
	}
}

func fromRecord(rec *records.Record, loc *time.Location) *Card {
	m := rec.Meta
	itemID, _ := strconv.ParseInt(m[metaOrderItemID], 10, 64)
	return &Card{
		ID:              rec.ID,
		Title:           rec.Title,
		WarrantyNumber:  m[metaWarrantyNumber],
		AccessToken:     m[metaAccessToken],
		OrderID:         m[metaOrderID],
		OrderItemID:     itemID,
		CustomerName:    m[metaCustomerName],
		CustomerEmail:   m[metaCustomerEmail],
		CustomerPhone:   m[metaCustomerPhone],
		CustomerCity:    m[metaCustomerCity],
		CustomerAddress: m[metaCustomerAddress],
		ProductID:       m[metaProductID],
		ProductTitle:    m[metaProductTitle],
		ProductSKU:      m[metaProductSKU],
		ProductModel:    m[metaProductModel],
		ProductURL:      m[metaProductURL],
		StartDate:       parseDate(m[metaStartDate], loc),
		EndDate:         parseDate(m[metaEndDate], loc),
	}
}

func parseDate(s string, loc *time.Location) time.Time {
	t, err := time.ParseInLocation(dateLayout, s, loc)
	if err != nil {
		return time.Time{}
	}
	return t
}
