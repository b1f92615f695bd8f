package orders

type Status string

const (
	StatusCreated       Status = "CREATED"
	StatusStockReserved Status = "STOCK_RESERVED"
	StatusPaid          Status = "PAID"
	StatusCompleted     Status = "COMPLETED"
	StatusFailed        Status = "FAILED"
)
