package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderFinalized = "OrderFinalized"
	EventWarrantyIssued = "WarrantyIssued"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "order-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // biasanya order_id
	Payload       json.RawMessage `json:"payload"`                  // payload spesifik
}

type OrderFinalizedPayload struct {
	OrderID     string   `json:"order_id"`
	FinalStatus string   `json:"final_status"`      // COMPLETED | FAILED
	Reasons     []string `json:"reasons,omitempty"` // jika FAILED
}

type WarrantyIssuedPayload struct {
	CardID         int64  `json:"card_id"`
	WarrantyNumber string `json:"warranty_number"`
	OrderID        string `json:"order_id"`
	OrderItemID    int64  `json:"order_item_id"`
	ProductID      string `json:"product_id"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
}
