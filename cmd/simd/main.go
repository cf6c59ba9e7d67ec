package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/georgemunganga/marketsim-backend/internal/config"
	"github.com/georgemunganga/marketsim-backend/internal/modules/catalog"
	"github.com/georgemunganga/marketsim-backend/internal/modules/match"
	"github.com/georgemunganga/marketsim-backend/internal/modules/need"
	"github.com/georgemunganga/marketsim-backend/internal/modules/offer"
	"github.com/georgemunganga/marketsim-backend/internal/modules/provider"
	"github.com/georgemunganga/marketsim-backend/internal/modules/stock"
	"github.com/georgemunganga/marketsim-backend/internal/modules/user"
	"github.com/georgemunganga/marketsim-backend/internal/store"
	"github.com/georgemunganga/marketsim-backend/internal/worker"
)

func main() {
	app := &cli.App{
		Name:  "simd",
		Usage: "Marketplace matching and negotiation simulator",
		Commands: []*cli.Command{
			runCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Println("Error: ", err)
		os.Exit(1)
	}
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "Start the simulation workers and the HTTP API",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "memory",
			Usage: "run against the in-process store instead of Redis",
		},
		&cli.BoolFlag{
			Name:  "no-workers",
			Usage: "serve the HTTP API only, without generator loops",
		},
		&cli.BoolFlag{
			Name:  "poll",
			Usage: "drive the matching engine by periodic sweeps instead of offer events",
		},
	},
	Action: runAction,
}

func runAction(c *cli.Context) error {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "err", err)
	}
	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// ── Store ───────────────────────────────────────────────
	var st store.Store
	if c.Bool("memory") {
		st = store.NewMemory()
		slog.Info("using in-process store")
	} else {
		rdb := store.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := rdb.Ping(ctx); err != nil {
			log.Fatal(err)
		}
		st = rdb
		slog.Info("connected to redis", "addr", cfg.RedisAddr)
	}
	defer st.Close()

	// ── Registries & Catalog ────────────────────────────────
	userService := user.NewService(st)
	providerService := provider.NewService(st, cfg.Specializations)
	catalogService := catalog.NewService(st)

	// ── Stock Index ─────────────────────────────────────────
	stockService := stock.NewService(st, catalogService, providerService, cfg.MaxStockPerMerchant)

	// ── Need & Offer Lifecycle ──────────────────────────────
	needService := need.NewService(st, userService, catalogService)
	offerService := offer.NewService(st, catalogService, stockService, providerService)

	// ── Matching Engine ─────────────────────────────────────
	engine := match.NewEngine(st, needService, offerService, stockService, cfg.OfferTTL)

	// ── Router ──────────────────────────────────────────────
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)

	user.NewHandler(userService).RegisterRoutes(router)
	provider.NewHandler(providerService).RegisterRoutes(router)
	catalog.NewHandler(catalogService).RegisterRoutes(router)
	stock.NewHandler(stockService).RegisterRoutes(router)
	need.NewHandler(needService, cfg.NeedTTL).RegisterRoutes(router)
	offer.NewHandler(offerService, cfg.OfferTTL).RegisterRoutes(router)
	match.NewHandler(engine, st).RegisterRoutes(router)

	if !c.Bool("no-workers") {
		startWorkers(ctx, c.Bool("poll"), cfg, st, userService, providerService,
			catalogService, stockService, needService, offerService, engine)
	}

	// ── Start Server ────────────────────────────────────────
	server := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: router}
	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()
	slog.Info("simd API listening", "port", cfg.HTTPPort)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func startWorkers(ctx context.Context, poll bool, cfg *config.Config, st store.Store,
	userService user.Service, providerService provider.Service, catalogService catalog.Service,
	stockService stock.Service, needService need.Service, offerService offer.Service,
	engine *match.Engine) {

	suppliers := worker.NewSuppliers(catalogService, cfg.ProductInterval, cfg.Jitter)
	if err := suppliers.Seed(ctx); err != nil {
		log.Fatal(err)
	}
	// Register the candidate merchants up front so the stock catch-up
	// has someone to stock for; the provider worker keeps cycling them.
	for _, m := range cfg.Merchants {
		if _, err := providerService.Register(ctx, m, nil); err != nil {
			log.Fatal(err)
		}
	}
	if err := stockService.CatchUp(ctx); err != nil {
		log.Fatal(err)
	}

	go func() { _ = stockService.Run(ctx) }()
	go func() { _ = suppliers.Run(ctx) }()
	go func() {
		_ = worker.NewUsers(userService, cfg.UserInterval, cfg.Jitter,
			cfg.MaxUsers, cfg.UsersPerCycle).Run(ctx)
	}()
	go func() {
		_ = worker.NewNeeds(needService, userService, cfg.NeedInterval, cfg.Jitter,
			cfg.NeedTTL, cfg.UnsatisfiedAfter).Run(ctx)
	}()
	go func() {
		_ = worker.NewOffers(offerService, providerService, cfg.OfferStrategies,
			cfg.OfferInterval, cfg.Jitter, cfg.OfferTTL).Run(ctx)
	}()
	go func() {
		_ = worker.NewProviders(providerService, offerService, cfg.Merchants,
			cfg.OfferStrategies, cfg.ProviderInterval, cfg.ProviderRetireInterval,
			cfg.StageDelayMin, cfg.StageDelayMax, cfg.OfferTTL).Run(ctx)
	}()

	if poll {
		go func() { _ = engine.Poll(ctx, cfg.OfferInterval, cfg.Jitter) }()
	} else {
		go func() { _ = engine.Run(ctx) }()
	}
}
