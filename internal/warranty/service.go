package warranty

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-warranty-cards/internal/orders"
)

var (
	cardsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warranty_cards_issued_total",
		Help: "Warranty cards created.",
	})
	issuanceSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warranty_issuance_skipped_total",
		Help: "Line items for which no card was created, by reason.",
	}, []string{"reason"})
)

type OrderSource interface {
	GetOrder(ctx context.Context, orderID string) (*orders.Order, error)
}

type Toggle interface {
	Enabled(ctx context.Context) bool
}

// Notifier is told about every card created.
type Notifier interface {
	CardIssued(ctx context.Context, c *Card) error
}

type Result struct {
	Created []int64 `json:"created"`
	Skipped int     `json:"skipped"`
}

type Service struct {
	Orders   OrderSource // nil disables issuance
	Cards    CardStore
	Settings Toggle
	Notify   Notifier // optional
	Location *time.Location
	Now      func() time.Time
	Log      *zap.Logger
}

func NewService(src OrderSource, cards CardStore, toggle Toggle, loc *time.Location, log *zap.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		Orders:   src,
		Cards:    cards,
		Settings: toggle,
		Location: loc,
		Now:      time.Now,
		Log:      log.Named("warranty"),
	}
}

// IssueForOrder creates one card per line item of the order that has no card
// yet. Disabled generation, a missing order source or a missing order are
// no-ops. Only storage failures are returned.
func (s *Service) IssueForOrder(ctx context.Context, orderID string) (Result, error) {
	var res Result
	if s.Settings != nil && !s.Settings.Enabled(ctx) {
		s.Log.Debug("generation disabled", zap.String("order_id", orderID))
		issuanceSkipped.WithLabelValues("disabled").Inc()
		return res, nil
	}
	if s.Orders == nil {
		s.Log.Debug("no order source", zap.String("order_id", orderID))
		return res, nil
	}

	o, err := s.Orders.GetOrder(ctx, orderID)
	if errors.Is(err, orders.ErrOrderNotFound) {
		s.Log.Debug("order not found", zap.String("order_id", orderID))
		issuanceSkipped.WithLabelValues("order_missing").Inc()
		return res, nil
	}
	if err != nil {
		return res, err
	}

	now := s.Now()
	start := CoverageStart(o.CompletedAt, now, s.Location)
	end := CoverageEnd(start)
	customer := strings.TrimSpace(o.Billing.FullName())

	for _, it := range o.Items {
		log := s.Log.With(zap.String("order_id", o.ID), zap.Int64("item_id", it.ID))
		if it.Product == nil {
			log.Debug("product missing")
			res.Skipped++
			issuanceSkipped.WithLabelValues("product_missing").Inc()
			continue
		}
		exists, err := s.Cards.ExistsForItem(ctx, o.ID, it.ID)
		if err != nil {
			return res, err
		}
		if exists {
			res.Skipped++
			issuanceSkipped.WithLabelValues("exists").Inc()
			continue
		}

		card := Card{
			Title:           Title(o.ID, it.ID, customer),
			AccessToken:     newAccessToken(),
			OrderID:         o.ID,
			OrderItemID:     it.ID,
			CustomerName:    customer,
			CustomerEmail:   o.Billing.Email,
			CustomerPhone:   o.Billing.Phone,
			CustomerCity:    o.Billing.City,
			CustomerAddress: o.Billing.Address1,
			ProductID:       it.Product.ID,
			ProductTitle:    it.Product.Name,
			ProductSKU:      it.Product.SKU,
			ProductModel:    it.Product.Model,
			ProductURL:      it.Product.Permalink,
			StartDate:       start,
			EndDate:         end,
		}
		id, created, err := s.Cards.Create(ctx, card, now)
		if err != nil {
			log.Error("create card", zap.Error(err))
			return res, err
		}
		if !created {
			// lost the race to a concurrent issuance
			res.Skipped++
			issuanceSkipped.WithLabelValues("exists").Inc()
			continue
		}
		res.Created = append(res.Created, id)
		cardsIssued.Inc()
		log.Info("card issued", zap.Int64("card_id", id))

		if s.Notify != nil {
			card.ID = id
			card.WarrantyNumber = Number(now.In(s.Location), id)
			if err := s.Notify.CardIssued(ctx, &card); err != nil {
				log.Warn("notify card issued", zap.Error(err))
			}
		}
	}
	return res, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Card, error) {
	return s.Cards.Get(ctx, id)
}

func (s *Service) ListByOrder(ctx context.Context, orderID string) ([]*Card, error) {
	return s.Cards.ListByOrder(ctx, orderID)
}

// Enabled reports whether generation is switched on.
func (s *Service) Enabled(ctx context.Context) bool {
	return s.Settings == nil || s.Settings.Enabled(ctx)
}
