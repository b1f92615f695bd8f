package warranty

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/go-warranty-cards/internal/orders"
	"github.com/ariefcatur/go-warranty-cards/internal/records"
)

type memRecords struct {
	mu     sync.Mutex
	nextID int64
	recs   map[int64]*records.Record
	keys   map[string]int64
}

func newMemRecords() *memRecords {
	return &memRecords{nextID: 100, recs: map[int64]*records.Record{}, keys: map[string]int64{}}
}

func (m *memRecords) Insert(_ context.Context, nr records.NewRecord) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := nr.Type + "|" + nr.UniqueKey
	if id, ok := m.keys[k]; ok {
		return id, false, nil
	}
	m.nextID++
	id := m.nextID
	rec := &records.Record{ID: id, Type: nr.Type, Title: nr.Title, Status: records.StatusPublish,
		CreatedAt: time.Now(), Meta: map[string]string{}}
	if nr.Meta != nil {
		for mk, mv := range nr.Meta(id, rec.CreatedAt) {
			rec.Meta[mk] = mv
		}
	}
	m.recs[id] = rec
	m.keys[k] = id
	return id, true, nil
}

func (m *memRecords) Get(_ context.Context, id int64) (*records.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok {
		return nil, records.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *memRecords) FindByMeta(_ context.Context, typ, key, value string, limit int) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for id, rec := range m.recs {
		if rec.Type == typ && rec.Meta[key] == value {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (m *memRecords) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recs)
}

type memOrders map[string]*orders.Order

func (m memOrders) GetOrder(_ context.Context, id string) (*orders.Order, error) {
	o, ok := m[id]
	if !ok {
		return nil, orders.ErrOrderNotFound
	}
	return o, nil
}

type toggle bool

func (t toggle) Enabled(context.Context) bool { return bool(t) }

type recordingNotifier struct{ cards []*Card }

func (n *recordingNotifier) CardIssued(_ context.Context, c *Card) error {
	n.cards = append(n.cards, c)
	return nil
}

func recordsPage(slug string) records.NewRecord {
	return records.NewRecord{Type: "page", Title: slug, UniqueKey: slug}
}
