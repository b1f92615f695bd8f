// Package app wires the components shared by the binaries.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-warranty-cards/internal/config"
	"github.com/ariefcatur/go-warranty-cards/internal/orders"
	"github.com/ariefcatur/go-warranty-cards/internal/pdf"
	"github.com/ariefcatur/go-warranty-cards/internal/postgres"
	"github.com/ariefcatur/go-warranty-cards/internal/records"
	"github.com/ariefcatur/go-warranty-cards/internal/render"
	"github.com/ariefcatur/go-warranty-cards/internal/settings"
	"github.com/ariefcatur/go-warranty-cards/internal/warranty"
)

type App struct {
	Cfg      config.Config
	Log      *zap.Logger
	DB       *pgxpool.Pool
	Orders   *orders.Repo
	Settings *settings.Service
	Cards    *warranty.Service
	Renderer *render.Renderer
	PDF      *pdf.Chrome
}

// New migrates (when enabled), connects and builds the domain services.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if cfg.AutoMigrate {
		if err := postgres.Migrate(cfg.PostgresDSN, log); err != nil {
			return nil, err
		}
	}
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	ords := &orders.Repo{DB: db}
	st := settings.NewService(&settings.Repo{DB: db}, cfg.SettingsCacheTTL, log)
	cards := warranty.NewRecordCards(&records.Store{DB: db}, cfg.Location)

	return &App{
		Cfg:      cfg,
		Log:      log,
		DB:       db,
		Orders:   ords,
		Settings: st,
		Cards:    warranty.NewService(ords, cards, st, cfg.Location, log),
		Renderer: &render.Renderer{
			Company:    st,
			Images:     ords,
			SiteName:   cfg.SiteName,
			SiteURL:    cfg.SiteURL,
			QREndpoint: cfg.QREndpoint,
			Log:        log.Named("render"),
		},
		PDF: pdf.NewChrome(cfg.ChromeBin, cfg.PDFTimeout, log),
	}, nil
}

func (a *App) Close() { a.DB.Close() }
