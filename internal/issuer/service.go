// Package issuer reacts to finalized orders on Kafka by issuing warranty
// cards, and announces every issued card.
package issuer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/ariefcatur/go-warranty-cards/internal/kafka"
	"github.com/ariefcatur/go-warranty-cards/internal/orders"
	"github.com/ariefcatur/go-warranty-cards/internal/redisx"
	"github.com/ariefcatur/go-warranty-cards/internal/warranty"
)

var eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warranty_issuer_events_total",
	Help: "order.finalized events seen by the issuer, by outcome.",
}, []string{"outcome"})

type CardIssuer interface {
	IssueForOrder(ctx context.Context, orderID string) (warranty.Result, error)
}

type Dedup interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type Service struct {
	Cards       CardIssuer
	Dedup       Dedup // optional
	ServiceName string
	Log         *zap.Logger
}

// HandleOrderFinalized is the consumer handler for order.finalized.
func (s *Service) HandleOrderFinalized(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := kafkax.UnmarshalEnvelope(m.Value, &env); err != nil {
		// poison message, committing it is the only way forward
		s.Log.Warn("drop undecodable event", zap.Error(err))
		eventsTotal.WithLabelValues("invalid").Inc()
		return nil
	}
	if env.EventType != orders.EventOrderFinalized {
		return nil
	}

	var dkey string
	if s.Dedup != nil && env.EventID != "" {
		dkey = redisx.DedupKey(s.ServiceName, env.EventID)
		first, err := s.Dedup.Claim(ctx, dkey, redisx.TTLDedup)
		if err != nil {
			// the unique constraint still guards against duplicates
			s.Log.Warn("dedup unavailable", zap.Error(err))
			dkey = ""
		} else if !first {
			eventsTotal.WithLabelValues("duplicate").Inc()
			return nil
		}
	}

	p, err := kafkax.UnwrapPayload[orders.OrderFinalizedPayload](env.Payload)
	if err != nil {
		s.Log.Warn("drop event", zap.String("event_id", env.EventID), zap.Error(err))
		eventsTotal.WithLabelValues("invalid").Inc()
		return nil
	}
	if p.FinalStatus != string(orders.StatusCompleted) {
		eventsTotal.WithLabelValues("not_completed").Inc()
		return nil
	}

	res, err := s.Cards.IssueForOrder(ctx, p.OrderID)
	if err != nil {
		if dkey != "" {
			_ = s.Dedup.Release(ctx, dkey)
		}
		eventsTotal.WithLabelValues("error").Inc()
		return err
	}
	eventsTotal.WithLabelValues("issued").Inc()
	s.Log.Info("order processed",
		zap.String("order_id", p.OrderID),
		zap.String("trace_id", env.TraceID),
		zap.Int("created", len(res.Created)),
		zap.Int("skipped", res.Skipped))
	return nil
}

type publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// Publisher announces issued cards on warranty.issued.
type Publisher struct {
	Producer    publisher
	ServiceName string
}

func (p *Publisher) CardIssued(_ context.Context, c *warranty.Card) error {
	payload, err := json.Marshal(orders.WarrantyIssuedPayload{
		CardID:         c.ID,
		WarrantyNumber: c.WarrantyNumber,
		OrderID:        c.OrderID,
		OrderItemID:    c.OrderItemID,
		ProductID:      c.ProductID,
		StartDate:      c.StartDate.Format("2006-01-02"),
		EndDate:        c.EndDate.Format("2006-01-02"),
	})
	if err != nil {
		return err
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventWarrantyIssued,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      p.ServiceName,
		CorrelationID: c.OrderID,
		Payload:       payload,
	}
	p.Producer.Publish(orders.PartitionKey(c.OrderID), kafkax.MustMarshal(ev),
		kafkax.EventHeaders(orders.EventWarrantyIssued, ev.EventVersion)...)
	return nil
}
