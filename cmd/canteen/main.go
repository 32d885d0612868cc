package main

import (
	"context"
	"encoding/hex"
	"log"
	"net/http"

	"github.com/campuseats/canteen/config"
	"github.com/campuseats/canteen/internal/auth"
	"github.com/campuseats/canteen/internal/feed"
	handler "github.com/campuseats/canteen/internal/handler/http"
	"github.com/campuseats/canteen/internal/logger"
	"github.com/campuseats/canteen/internal/middleware"
	"github.com/campuseats/canteen/internal/payment"
	"github.com/campuseats/canteen/internal/repository"
	"github.com/campuseats/canteen/internal/repository/postgres"
	"github.com/campuseats/canteen/internal/service"
	"github.com/campuseats/canteen/internal/worker"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const authTokenKey = "f53ac685bbceebd75043e6be2e06ee07"

func main() {

	// create new config
	cfg, err := config.New()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// initialize logger
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		log.Fatalf("Error initializing logger: %v", err)
	}
	defer logger.Log.Sync()

	// create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// initialize database
	db, err := postgres.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Log.Fatal("Error initializing database", zap.Error(err))
	}
	defer db.Close()

	// migrate database
	err = db.Migrate()
	if err != nil {
		logger.Log.Fatal("Error migrating database", zap.Error(err))
	}

	// timezone used for daily token numbering
	loc, err := cfg.TokenLocation()
	if err != nil {
		logger.Log.Fatal("Error parsing token timezone", zap.Error(err))
	}

	// connect change feed broker
	events, err := feed.Connect(cfg.FeedBrokerURL, logger.Log)
	if err != nil {
		logger.Log.Fatal("Error connecting change feed", zap.Error(err))
	}
	defer events.Close()

	tokenKey, err := hex.DecodeString(authTokenKey)
	if err != nil {
		logger.Log.Fatal("Error extracting token key", zap.Error(err))
	}
	token := auth.NewAuthToken(tokenKey)

	// dependency injection
	// payment gateway
	payments := payment.NewClient(cfg.PaymentAddr)

	// canteen
	canteenRepo := repository.NewCanteenRepository(db)
	canteenService := service.NewCanteenService(canteenRepo)
	canteenHandler := handler.NewCanteenHandler(canteenService)

	// order
	orderRepo := repository.NewOrderRepository(db, loc)
	orderService := service.NewOrderService(orderRepo, canteenRepo, events, payments)
	orderHandler := handler.NewOrderHandler(orderService)

	// settle pending payments in the background
	processor := worker.NewPaymentProcessor(orderService)
	go processor.ProcessOrders(ctx)

	router := chi.NewRouter()

	router.Use(middleware.Logging(logger.Log))

	router.Get("/api/orders/{orderID}", orderHandler.GetOrder())
	router.Patch("/api/orders/{orderID}/status", orderHandler.UpdateOrderStatus())
	router.Post("/api/canteens", canteenHandler.RegisterCanteen())
	router.Get("/api/canteens/{canteenID}", canteenHandler.GetCanteen())
	router.Patch("/api/canteens/{canteenID}/accepting", canteenHandler.SetAcceptingOrders())
	router.Get("/api/canteens/{canteenID}/orders", orderHandler.ListCanteenOrders())

	// routes that require authentication
	router.Group(func(group chi.Router) {
		group.Use(handler.AuthMiddleware(token))
		group.Post("/api/orders", orderHandler.CreateOrder())
		group.Get("/api/user/orders", orderHandler.ListUserOrders())
	})

	logger.Log.Info("Running server", zap.String("addr", cfg.ServerAddr))

	if err := http.ListenAndServe(cfg.ServerAddr, router); err != nil {
		logger.Log.Fatal("Error starting server", zap.Error(err))
	}
}
