package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-warranty-cards/internal/app"
	"github.com/ariefcatur/go-warranty-cards/internal/config"
	"github.com/ariefcatur/go-warranty-cards/internal/issuer"
	kafkax "github.com/ariefcatur/go-warranty-cards/internal/kafka"
	"github.com/ariefcatur/go-warranty-cards/internal/logging"
	"github.com/ariefcatur/go-warranty-cards/internal/orders"
	"github.com/ariefcatur/go-warranty-cards/internal/redisx"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

// run returns the consumer error so the process exits non-zero and the
// group resumes from the last committed offset on restart.
func run() error {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logging.Must(cfg)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("init", zap.Error(err))
	}
	defer a.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicWarrantyIssued, 1024, log)
	prod.Start(ctx)
	a.Cards.Notify = &issuer.Publisher{Producer: prod, ServiceName: cfg.IssuerGroup}

	svc := &issuer.Service{
		Cards:       a.Cards,
		Dedup:       &redisx.Store{RDB: rdb},
		ServiceName: cfg.IssuerGroup,
		Log:         log.Named("issuer"),
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.IssuerGroup, orders.TopicOrderFinalized, cfg.IssuerWorkers, log)
	log.Info("issuer consumer started",
		zap.String("group", cfg.IssuerGroup),
		zap.String("topic", orders.TopicOrderFinalized),
		zap.Int("workers", cfg.IssuerWorkers))
	err = cons.Start(ctx, svc.HandleOrderFinalized)
	if err != nil {
		log.Error("consumer exit", zap.Error(err))
	}

	log.Info("shutting down consumer")
	prod.Close()
	prod.WaitClosed()
	return err
}
