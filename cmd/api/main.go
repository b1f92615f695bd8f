package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/go-warranty-cards/internal/app"
	"github.com/ariefcatur/go-warranty-cards/internal/auth"
	"github.com/ariefcatur/go-warranty-cards/internal/config"
	"github.com/ariefcatur/go-warranty-cards/internal/httpx"
	"github.com/ariefcatur/go-warranty-cards/internal/issuer"
	kafkax "github.com/ariefcatur/go-warranty-cards/internal/kafka"
	"github.com/ariefcatur/go-warranty-cards/internal/logging"
	"github.com/ariefcatur/go-warranty-cards/internal/orders"
	"github.com/ariefcatur/go-warranty-cards/internal/redisx"
)

func main() {
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

	// issued cards are announced the same way the issuer does
	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicWarrantyIssued, 1024, log)
	prod.Start(ctx)
	a.Cards.Notify = &issuer.Publisher{Producer: prod, ServiceName: cfg.ServiceName}

	var mws []func(http.Handler) http.Handler
	switch {
	case cfg.JWTJWKSURL != "":
		authn, err := auth.NewJWKS(ctx, cfg.JWTJWKSURL, cfg.JWTIssuer, log)
		if err != nil {
			log.Fatal("auth", zap.Error(err))
		}
		mws = append(mws, authn.Middleware)
	case cfg.JWTSecret != "":
		mws = append(mws, auth.NewHMAC(cfg.JWTSecret, cfg.JWTIssuer, log).Middleware)
	default:
		log.Warn("no JWT_SECRET or JWT_JWKS_URL, every request is anonymous")
	}

	router := httpx.NewRouter(log, mws...)
	(&httpx.CardsHandler{
		Cards:    a.Cards,
		Orders:   a.Orders,
		Renderer: a.Renderer,
		PDF:      a.PDF,
		Log:      log.Named("cards"),
	}).Register(router)
	(&httpx.SettingsHandler{
		Settings:  a.Settings,
		Renderer:  a.Renderer,
		AdminRole: cfg.AdminRole,
		Log:       log.Named("settings"),
	}).Register(router)
	(&httpx.HooksHandler{
		Issuer: a.Cards,
		Idem:   &redisx.Store{RDB: rdb},
		Token:  cfg.HookToken,
		Log:    log.Named("hooks"),
	}).Register(router)

	if !a.PDF.Available() {
		log.Warn("chrome not found, PDF export will fall back to HTML")
	}

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	err = g.Wait()
	prod.Close()
	prod.WaitClosed()
	if err != nil {
		log.Error("server", zap.Error(err))
		os.Exit(1)
	}
}
