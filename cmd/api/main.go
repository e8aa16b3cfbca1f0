package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/flicky/go-storefront/internal/config"
	"github.com/flicky/go-storefront/internal/handler"
	"github.com/flicky/go-storefront/internal/mailer"
	"github.com/flicky/go-storefront/internal/metrics"
	"github.com/flicky/go-storefront/internal/middleware"
	"github.com/flicky/go-storefront/internal/model"
	"github.com/flicky/go-storefront/internal/payment"
	"github.com/flicky/go-storefront/internal/pricing"
	"github.com/flicky/go-storefront/internal/repository"
	"github.com/flicky/go-storefront/internal/service"
	"github.com/flicky/go-storefront/internal/worker"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	dbPool, err := repository.NewPool(ctx, cfg.DB.DSN(), cfg.DB.MaxConns)
	if err != nil {
		log.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		log.Error("ping database", "error", err)
		os.Exit(1)
	}
	log.Info("connected to PostgreSQL")

	if cfg.DB.AutoMigrate {
		if err := repository.Migrate(ctx, dbPool, "up"); err != nil {
			log.Error("migrate database", "error", err)
			os.Exit(1)
		}
		log.Info("database migrated")
	}

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to Redis")

	// RabbitMQ
	amqpConn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		log.Error("connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer amqpConn.Close()

	publishCh, err := amqpConn.Channel()
	if err != nil {
		log.Error("open RabbitMQ channel", "error", err)
		os.Exit(1)
	}
	defer publishCh.Close()

	consumeCh, err := amqpConn.Channel()
	if err != nil {
		log.Error("open RabbitMQ channel", "error", err)
		os.Exit(1)
	}
	defer consumeCh.Close()

	if err := worker.SetupRabbitMQ(consumeCh); err != nil {
		log.Error("setup RabbitMQ", "error", err)
		os.Exit(1)
	}
	log.Info("connected to RabbitMQ")

	// Payment processors, mail, metrics
	processors := map[model.PaymentMethod]payment.Processor{}
	if pp, err := payment.NewPayPal(cfg.PayPal); err == nil {
		processors[model.PaymentMethodPayPal] = pp
	} else {
		log.Warn("PayPal disabled", "error", err)
	}
	if st, err := payment.NewStripe(cfg.Stripe); err == nil {
		processors[model.PaymentMethodStripe] = st
	} else {
		log.Warn("Stripe disabled", "error", err)
	}
	if !cfg.SendGrid.Enabled() {
		log.Warn("SENDGRID_API_KEY not set, receipts will fail and be dead-lettered")
	}
	receiptMailer := mailer.NewSendGrid(cfg.SendGrid, cfg.Store.AppName)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	checkout := metrics.NewCheckout(registry)

	// Repositories
	userRepo := repository.NewUserRepository(dbPool)
	productRepo := repository.NewProductRepository(dbPool)
	cartRepo := repository.NewCartRepository(dbPool)
	orderRepo := repository.NewOrderRepository(dbPool)
	reviewRepo := repository.NewReviewRepository(dbPool)

	// Services
	calc := pricing.NewCalculator(cfg.Pricing)
	authSvc := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	productSvc := service.NewProductService(productRepo, redisClient, cfg.Store.PageSize, cfg.Store.LatestProductsLimit)
	reviewSvc := service.NewReviewService(reviewRepo, productRepo, productSvc)
	cartSvc := service.NewCartService(cartRepo, productRepo, calc)
	orderSvc := service.NewOrderService(orderRepo, cartRepo, userRepo, cfg.Store.PageSize, checkout)
	paymentSvc := service.NewPaymentService(orderRepo, productRepo, processors,
		worker.NewReceiptPublisher(publishCh), productSvc, checkout, log)
	fulfillmentSvc := service.NewFulfillmentService(orderRepo)
	userSvc := service.NewUserService(userRepo, cfg.Store.PaymentMethods, cfg.Store.DefaultPaymentMethod, cfg.Store.PageSize)

	authSvc.AddHook(cartSvc.MergeHook())

	// Handlers
	if err := handler.RegisterValidators(); err != nil {
		log.Error("register validators", "error", err)
		os.Exit(1)
	}
	authH := handler.NewAuthHandler(authSvc)
	productH := handler.NewProductHandler(productSvc, reviewSvc)
	cartH := handler.NewCartHandler(cartSvc)
	orderH := handler.NewOrderHandler(orderSvc, paymentSvc, fulfillmentSvc)
	userH := handler.NewUserHandler(userSvc)
	healthH := handler.NewHealthHandler(dbPool, redisClient, amqpConn)

	// Worker
	receiptWorker := worker.NewReceiptWorker(consumeCh, orderRepo, redisClient, receiptMailer, checkout, log)

	// Router
	requireAuth := middleware.AuthMiddleware(cfg.JWT.Secret)

	router := gin.Default()
	router.GET("/healthz", healthH.Healthz)
	router.GET("/readyz", healthH.Readyz)
	router.GET("/metrics", handler.Metrics(registry))

	v1 := router.Group("/api/v1", middleware.SessionCart(cfg.Session), middleware.OptionalAuth(cfg.JWT.Secret))
	{
		auth := v1.Group("/auth")
		auth.POST("/register", authH.Register)
		auth.POST("/login", authH.Login)

		products := v1.Group("/products")
		products.GET("", productH.List)
		products.GET("/latest", productH.Latest)
		products.GET("/featured", productH.Featured)
		products.GET("/categories", productH.Categories)
		products.GET("/slug/:slug", productH.GetBySlug)
		products.GET("/:id", productH.GetByID)
		products.GET("/:id/reviews", productH.ListReviews)
		products.GET("/:id/reviews/me", requireAuth, productH.MyReview)
		products.POST("/:id/reviews", requireAuth, productH.UpsertReview)

		cart := v1.Group("/cart")
		cart.GET("", cartH.GetCart)
		cart.POST("/items", cartH.AddItem)
		cart.DELETE("/items/:productId", cartH.RemoveItem)

		me := v1.Group("/users/me", requireAuth)
		me.GET("", userH.Me)
		me.PUT("/address", userH.UpdateAddress)
		me.GET("/payment-method", userH.PaymentMethodOptions)
		me.PUT("/payment-method", userH.UpdatePaymentMethod)
		me.PUT("/profile", userH.UpdateProfile)

		orders := v1.Group("/orders", requireAuth)
		orders.POST("", orderH.PlaceOrder)
		orders.GET("", orderH.ListMine)
		orders.GET("/:id", orderH.GetOrder)
		orders.POST("/:id/payment-intent", orderH.CreatePaymentIntent)
		orders.POST("/:id/capture", orderH.Capture)

		admin := v1.Group("/admin", requireAuth, middleware.AdminOnly())
		admin.GET("/summary", orderH.Summary)
		admin.POST("/products", productH.Create)
		admin.PUT("/products/:id", productH.Update)
		admin.DELETE("/products/:id", productH.Delete)
		admin.GET("/orders", orderH.List)
		admin.DELETE("/orders/:id", orderH.Delete)
		admin.PUT("/orders/:id/deliver", orderH.Deliver)
		admin.PUT("/orders/:id/pay-cash", orderH.PayCash)
		admin.GET("/users", userH.List)
		admin.PUT("/users/:id", userH.Update)
		admin.DELETE("/users/:id", userH.Delete)
	}

	if err := receiptWorker.Start(ctx); err != nil {
		log.Error("start receipt worker", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "error", err)
	}

	receiptWorker.Stop()
	time.Sleep(500 * time.Millisecond)
	cancel()
	log.Info("server stopped")
}
