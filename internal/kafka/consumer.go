package kafka

import (
	"context"
	"fmt"
	"sync"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Handler returns nil only when the message was processed and its offset
// may be committed.
type Handler func(ctx context.Context, m kafka.Message) error

type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	r       reader
	workers int
	log     *zap.Logger
}

func NewConsumer(brokers []string, group, topic string, workers int, log *zap.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // commit per message below
	})
	return newConsumer(r, workers, log.Named("consumer").With(zap.String("topic", topic), zap.String("group", group)))
}

func newConsumer(r reader, workers int, log *zap.Logger) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{r: r, workers: workers, log: log}
}

// Start runs until ctx is done or a message fails. Each partition is owned
// by a single worker so commits stay in offset order. A failed message is
// never committed: Start stops and returns the error, and the group resumes
// from that offset on the next run.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		once    sync.Once
		failure error
	)
	fail := func(err error) {
		once.Do(func() {
			failure = err
			cancel()
		})
	}

	lanes := make([]chan kafka.Message, c.workers)
	var wg sync.WaitGroup
	for i := range lanes {
		lanes[i] = make(chan kafka.Message, 128)
		wg.Add(1)
		go func(lane <-chan kafka.Message) {
			defer wg.Done()
			for m := range lane {
				if ctx.Err() != nil {
					return
				}
				if err := c.process(ctx, h, m); err != nil {
					fail(err)
					return
				}
			}
		}(lanes[i])
	}

	fetchErr := c.dispatch(ctx, lanes)
	for _, l := range lanes {
		close(l)
	}
	wg.Wait()

	if failure != nil {
		return failure
	}
	return fetchErr
}

func (c *Consumer) dispatch(ctx context.Context, lanes []chan kafka.Message) error {
	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch: %w", err)
		}
		select {
		case lanes[m.Partition%len(lanes)] <- m:
		case <-ctx.Done():
			return nil
		}
	}
}

// process returns an error only for failures that must stop consumption.
// Errors caused by shutdown leave the message uncommitted and return nil.
func (c *Consumer) process(ctx context.Context, h Handler, m kafka.Message) error {
	if err := h(ctx, m); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		c.log.Error("handle message", zap.Int("partition", m.Partition),
			zap.Int64("offset", m.Offset), zap.Error(err))
		return fmt.Errorf("partition %d offset %d: %w", m.Partition, m.Offset, err)
	}
	if err := c.r.CommitMessages(ctx, m); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
