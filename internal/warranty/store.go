package warranty

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ariefcatur/go-warranty-cards/internal/records"
)

var (
	ErrNotFound  = errors.New("warranty card not found")
	ErrWrongType = errors.New("record is not a warranty card")
)

// CardStore persists cards. Create must be atomic per line item: a second
// create for the same (order, item) returns created=false.
type CardStore interface {
	ExistsForItem(ctx context.Context, orderID string, itemID int64) (bool, error)
	Create(ctx context.Context, c Card, issued time.Time) (id int64, created bool, err error)
	Get(ctx context.Context, id int64) (*Card, error)
	ListByOrder(ctx context.Context, orderID string) ([]*Card, error)
}

type recordStore interface {
	Insert(ctx context.Context, nr records.NewRecord) (int64, bool, error)
	Get(ctx context.Context, id int64) (*records.Record, error)
	FindByMeta(ctx context.Context, typ, key, value string, limit int) ([]int64, error)
}

// RecordCards keeps cards as warranty_card records.
type RecordCards struct {
	Records  recordStore
	Location *time.Location
}

func NewRecordCards(rs recordStore, loc *time.Location) *RecordCards {
	if loc == nil {
		loc = time.UTC
	}
	return &RecordCards{Records: rs, Location: loc}
}

func (s *RecordCards) ExistsForItem(ctx context.Context, orderID string, itemID int64) (bool, error) {
	ids, err := s.Records.FindByMeta(ctx, RecordType, metaOrderItemID, strconv.FormatInt(itemID, 10), 0)
	if err != nil {
		return false, err
	}
	// item ids are only unique within the order tables they came from
	for _, id := range ids {
		rec, err := s.Records.Get(ctx, id)
		if err != nil {
			return false, err
		}
		if rec.Meta[metaOrderID] == orderID {
			return true, nil
		}
	}
	return false, nil
}

// Create stores c. The warranty number needs the record id, so it is
// derived inside the insert.
func (s *RecordCards) Create(ctx context.Context, c Card, issued time.Time) (int64, bool, error) {
	return s.Records.Insert(ctx, records.NewRecord{
		Type:      RecordType,
		Title:     c.Title,
		UniqueKey: UniqueKey(c.OrderID, c.OrderItemID),
		Meta: func(id int64, _ time.Time) map[string]string {
			c.ID = id
			c.WarrantyNumber = Number(issued.In(s.Location), id)
			return c.meta()
		},
	})
}

func (s *RecordCards) Get(ctx context.Context, id int64) (*Card, error) {
	rec, err := s.Records.Get(ctx, id)
	if errors.Is(err, records.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get card %d: %w", id, err)
	}
	if rec.Type != RecordType {
		return nil, ErrWrongType
	}
	return fromRecord(rec, s.Location), nil
}

func (s *RecordCards) ListByOrder(ctx context.Context, orderID string) ([]*Card, error) {
	ids, err := s.Records.FindByMeta(ctx, RecordType, metaOrderID, orderID, 0)
	if err != nil {
		return nil, err
	}
	cards := make([]*Card, 0, len(ids))
	for _, id := range ids {
		c, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}
