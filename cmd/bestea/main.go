package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/gowthamvetri/bestea/internal/catalog"
	"github.com/gowthamvetri/bestea/internal/config"
	"github.com/gowthamvetri/bestea/internal/fetch"
	besteahttp "github.com/gowthamvetri/bestea/internal/http"
	"github.com/gowthamvetri/bestea/internal/poller"
	"github.com/gowthamvetri/bestea/internal/repository"
	"github.com/gowthamvetri/bestea/internal/service"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, cleanup, err := buildRepository(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to set up cart storage", zap.Error(err))
	}
	defer cleanup()

	client := catalog.NewHTTPClient(cfg.CatalogAPIURL, cfg.RequestTimeout)
	coordinator := fetch.NewCoordinator(client, fetch.TTLs{
		Listing:     cfg.ListingTTL,
		Product:     cfg.ProductTTL,
		BestSellers: cfg.BestSellersTTL,
		Featured:    cfg.FeaturedTTL,
		Categories:  cfg.CategoriesTTL,
	}, logger)

	carts := service.NewCartService(repo, decimal.NewFromFloat(cfg.TaxRate), logger)

	if len(cfg.KafkaBrokers) > 0 {
		p := poller.New(carts, logger, cfg.KafkaBrokers...)
		defer p.Close()
		go p.Run(ctx)
		logger.Info("checkout poller started", zap.Strings("brokers", cfg.KafkaBrokers))
	}

	cartHandler := besteahttp.NewCartHandler(carts, coordinator, cfg.RequestTimeout)
	catalogHandler := besteahttp.NewCatalogHandler(coordinator, cfg.RequestTimeout)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(besteahttp.RequestIDMiddleware)
	r.Use(besteahttp.SessionMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", catalogHandler.List)
		r.Get("/products/best-sellers", catalogHandler.BestSellers)
		r.Get("/products/featured", catalogHandler.Featured)
		r.Get("/products/{productID}", catalogHandler.Get)
		r.Get("/categories", catalogHandler.Categories)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Patch("/items/{productID}", cartHandler.UpdateQuantity)
			r.Delete("/items/{productID}", cartHandler.RemoveItem)
			r.Post("/coupon", cartHandler.ApplyCoupon)
			r.Delete("/coupon", cartHandler.RemoveCoupon)
		})
	})

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: r,
	}

	go func() {
		logger.Info("storefront listening", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
	logger.Info("storefront stopped")
}

func buildRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.CartRepository, func(), error) {
	switch cfg.CartBackend {
	case config.BackendMongo:
		db, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("connected to MongoDB", zap.String("uri", cfg.MongoURI))
		cleanup := func() {
			if err := db.Client().Disconnect(context.Background()); err != nil {
				logger.Error("mongo disconnect failed", zap.Error(err))
			}
		}
		return repository.NewMongoRepository(db), cleanup, nil

	default:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, err
		}
		logger.Info("connected to Redis", zap.String("addr", cfg.RedisAddr))
		cleanup := func() {
			if err := client.Close(); err != nil {
				logger.Error("redis close failed", zap.Error(err))
			}
		}
		return repository.NewRedisRepository(client), cleanup, nil
	}
}
