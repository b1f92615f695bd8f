package warranty

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-warranty-cards/internal/orders"
)

func completedOrder(id string, completed time.Time) *orders.Order {
	return &orders.Order{
		ID:          id,
		UserID:      "user-1",
		Status:      orders.StatusCompleted,
		CompletedAt: &completed,
		Billing: orders.Billing{
			FirstName: "Ivan", LastName: "Petrov", Email: "ivan@example.com",
			Phone: "0888 123 456", City: "Plovdiv", Address1: "Main 1",
		},
		Items: []orders.OrderItem{
			{ID: 1, OrderID: id, ProductID: "p1", Name: "Stroller", Qty: 1,
				Product: &orders.Product{ID: "p1", SKU: "ST-1", Name: "Stroller", Model: "X1", Permalink: "https://shop.test/p/stroller"}},
			{ID: 2, OrderID: id, ProductID: "p2", Name: "Car seat", Qty: 2,
				Product: &orders.Product{ID: "p2", Name: "Car seat", Permalink: "https://shop.test/p/seat"}},
		},
	}
}

type fixture struct {
	recs  *memRecords
	cards *RecordCards
	svc   *Service
}

func newFixture(src OrderSource, enabled bool) fixture {
	recs := newMemRecords()
	cards := NewRecordCards(recs, time.UTC)
	svc := NewService(src, cards, toggle(enabled), time.UTC, zap.NewNop())
	svc.Now = func() time.Time { return time.Date(2025, time.May, 5, 10, 0, 0, 0, time.UTC) }
	return fixture{recs: recs, cards: cards, svc: svc}
}

func TestIssueForOrder_CreatesOnePerItem(t *testing.T) {
	f := newFixture(memOrders{"1001": completedOrder("1001", date(2024, time.January, 31))}, true)
	ctx := context.Background()

	res, err := f.svc.IssueForOrder(ctx, "1001")
	require.NoError(t, err)
	require.Len(t, res.Created, 2)
	assert.Zero(t, res.Skipped)

	c, err := f.svc.Get(ctx, res.Created[0])
	require.NoError(t, err)
	assert.Equal(t, "1001", c.OrderID)
	assert.Equal(t, int64(1), c.OrderItemID)
	assert.Equal(t, "Ivan Petrov", c.CustomerName)
	assert.Equal(t, "Warranty Card #1001-1 – Ivan Petrov", c.Title)
	assert.Equal(t, "Stroller", c.ProductTitle)
	assert.Equal(t, "ST-1", c.ProductSKU)
	assert.Equal(t, "X1", c.ProductModel)
	assert.Equal(t, "https://shop.test/p/stroller", c.ProductURL)
	assert.Equal(t, "31.01.2024", c.StartDisplay())
	assert.Equal(t, "31.01.2026", c.EndDisplay())
	assert.Equal(t, Number(date(2025, time.May, 5), c.ID), c.WarrantyNumber)
	assert.Len(t, c.AccessToken, 16)
}

func TestIssueForOrder_Idempotent(t *testing.T) {
	f := newFixture(memOrders{"1001": completedOrder("1001", date(2024, time.March, 1))}, true)
	ctx := context.Background()

	_, err := f.svc.IssueForOrder(ctx, "1001")
	require.NoError(t, err)
	res, err := f.svc.IssueForOrder(ctx, "1001")
	require.NoError(t, err)

	assert.Empty(t, res.Created)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 2, f.recs.count())
}

func TestIssueForOrder_ConcurrentCallsCreateOnce(t *testing.T) {
	f := newFixture(memOrders{"1001": completedOrder("1001", date(2024, time.March, 1))}, true)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.IssueForOrder(ctx, "1001")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 2, f.recs.count())
}

func TestIssueForOrder_Disabled(t *testing.T) {
	f := newFixture(memOrders{"1001": completedOrder("1001", date(2024, time.March, 1))}, false)

	res, err := f.svc.IssueForOrder(context.Background(), "1001")
	require.NoError(t, err)
	assert.Empty(t, res.Created)
	assert.Zero(t, f.recs.count())
}

func TestIssueForOrder_NoOps(t *testing.T) {
	t.Run("no order source", func(t *testing.T) {
		f := newFixture(nil, true)
		res, err := f.svc.IssueForOrder(context.Background(), "1001")
		require.NoError(t, err)
		assert.Empty(t, res.Created)
	})
	t.Run("missing order", func(t *testing.T) {
		f := newFixture(memOrders{}, true)
		res, err := f.svc.IssueForOrder(context.Background(), "nope")
		require.NoError(t, err)
		assert.Empty(t, res.Created)
		assert.Zero(t, f.recs.count())
	})
}

func TestIssueForOrder_SkipsMissingProduct(t *testing.T) {
	o := completedOrder("1001", date(2024, time.March, 1))
	o.Items[1].Product = nil
	f := newFixture(memOrders{"1001": o}, true)

	res, err := f.svc.IssueForOrder(context.Background(), "1001")
	require.NoError(t, err)
	assert.Len(t, res.Created, 1)
	assert.Equal(t, 1, res.Skipped)
}

func TestIssueForOrder_NoCompletionDateUsesToday(t *testing.T) {
	o := completedOrder("1001", time.Time{})
	o.CompletedAt = nil
	f := newFixture(memOrders{"1001": o}, true)
	ctx := context.Background()

	res, err := f.svc.IssueForOrder(ctx, "1001")
	require.NoError(t, err)
	c, err := f.svc.Get(ctx, res.Created[0])
	require.NoError(t, err)
	assert.Equal(t, "05.05.2025", c.StartDisplay())
	assert.Equal(t, "05.05.2027", c.EndDisplay())
}

func TestIssueForOrder_Notifies(t *testing.T) {
	f := newFixture(memOrders{"1001": completedOrder("1001", date(2024, time.March, 1))}, true)
	n := &recordingNotifier{}
	f.svc.Notify = n

	res, err := f.svc.IssueForOrder(context.Background(), "1001")
	require.NoError(t, err)
	require.Len(t, n.cards, 2)
	assert.Equal(t, res.Created[0], n.cards[0].ID)
	assert.Equal(t, Number(date(2025, time.May, 5), res.Created[0]), n.cards[0].WarrantyNumber)
}

type failingOrders struct{}

func (failingOrders) GetOrder(context.Context, string) (*orders.Order, error) {
	return nil, errors.New("connection refused")
}

func TestIssueForOrder_StorageError(t *testing.T) {
	f := newFixture(failingOrders{}, true)
	_, err := f.svc.IssueForOrder(context.Background(), "1001")
	assert.Error(t, err)
}

func TestRecordCards_GetAndList(t *testing.T) {
	f := newFixture(memOrders{"1001": completedOrder("1001", date(2024, time.March, 1))}, true)
	ctx := context.Background()

	_, err := f.cards.Get(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	other, _, err := f.recs.Insert(ctx, recordsPage("about"))
	require.NoError(t, err)
	_, err = f.cards.Get(ctx, other)
	assert.ErrorIs(t, err, ErrWrongType)

	_, err = f.svc.IssueForOrder(ctx, "1001")
	require.NoError(t, err)
	list, err := f.svc.ListByOrder(ctx, "1001")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(1), list[0].OrderItemID)
	assert.Equal(t, int64(2), list[1].OrderItemID)

	ok, err := f.cards.ExistsForItem(ctx, "1001", 2)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = f.cards.ExistsForItem(ctx, "2002", 2)
	require.NoError(t, err)
	assert.False(t, ok)
}
