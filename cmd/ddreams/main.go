package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"ddreams/internal/cache"
	"ddreams/internal/config"
	"ddreams/internal/database"
	"ddreams/internal/events"
	"ddreams/internal/handler"
	"ddreams/internal/mw"
	"ddreams/internal/service"
	"ddreams/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg := config.New()

	db, err := database.NewDB(cfg.DatabaseURI)
	if err != nil {
		slog.Error("failed to connect to DB", "error", err)
		os.Exit(1)
	}
	defer database.CloseDB(context.Background(), db)

	if err := database.InitSchema(db); err != nil {
		slog.Error("failed to init DB schema", "error", err)
		os.Exit(1)
	}

	rdb := cache.New(cfg.RedisAddr)
	defer rdb.Close()

	producer := events.NewProducer(cfg.KafkaBrokers, events.TopicOrderStatusChanged, 1024)
	producer.Start()

	// Services
	authSvc := service.NewAuthService(db)
	catalogSvc := service.NewCatalogService(db)
	settingsSvc := service.NewSettingsService(db)
	orderSvc := service.NewOrderService(db, catalogSvc, producer, rdb, cfg.ServiceName, settingsSvc)
	billingSvc := service.NewBillingService(db)
	notifySvc := service.NewNotificationService(db, rdb)
	campaignSvc := service.NewCampaignService(db, rdb)

	// Worker
	billingWorker := worker.NewBillingWorker(billingSvc, orderSvc, notifySvc)

	// Router
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public routes
	r.Post("/api/user/register", handler.RegisterHandler(authSvc, cfg.JWTSecret))
	r.Post("/api/user/login", handler.LoginHandler(authSvc, cfg.JWTSecret))
	r.Get("/api/catalog/products", handler.ListProductsHandler(catalogSvc))
	r.Get("/api/campaigns/active", handler.ActiveCampaignHandler(campaignSvc))

	// B2B portal routes
	r.Route("/api/b2b", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.JWTSecret))

		r.Post("/quotes", handler.CreateQuoteHandler(orderSvc, authSvc))
		r.Post("/quotes/{id}/approve", handler.ApproveQuoteHandler(orderSvc, authSvc))

		r.Post("/orders", handler.CreateOrderHandler(orderSvc, authSvc))
		r.Get("/orders", handler.ListOrdersHandler(orderSvc))
		r.Get("/orders/export", handler.ExportOrdersHandler(orderSvc))
		r.Get("/orders/stats", handler.OrderStatsHandler(orderSvc))
		r.Get("/orders/delayed", handler.DelayedOrdersHandler(orderSvc))
		r.Get("/orders/{id}", handler.GetOrderHandler(orderSvc))
		r.Get("/orders/{id}/status", handler.OrderStatusHandler(orderSvc))
		r.Post("/orders/{id}/status", handler.UpdateOrderStatusHandler(orderSvc, authSvc))

		r.Get("/invoices", handler.ListInvoicesHandler(billingSvc))
		r.Get("/invoices/stats", handler.BillingStatsHandler(billingSvc))
		r.Get("/invoices/{id}", handler.GetInvoiceHandler(billingSvc))
		r.Get("/invoices/{id}/payments", handler.ListPaymentsHandler(billingSvc))

		r.Get("/notifications", handler.ListNotificationsHandler(notifySvc))
		r.Get("/notifications/unread", handler.UnreadCountHandler(notifySvc))
		r.Post("/notifications/read", handler.MarkAllReadHandler(notifySvc))
		r.Post("/notifications/{id}/read", handler.MarkNotificationReadHandler(notifySvc))

		// Back-office
		r.Group(func(r chi.Router) {
			r.Use(mw.AdminOnly)

			r.Post("/orders/status", handler.BulkStatusHandler(orderSvc, authSvc))
			r.Post("/orders/{id}/items/{itemID}/produced", handler.MarkItemProducedHandler(orderSvc))

			r.Post("/invoices", handler.CreateInvoiceHandler(billingSvc))
			r.Post("/invoices/{id}/items", handler.AddInvoiceItemHandler(billingSvc))
			r.Delete("/invoices/{id}/items/{itemID}", handler.RemoveInvoiceItemHandler(billingSvc))
			r.Post("/invoices/{id}/status", handler.UpdateInvoiceStatusHandler(billingSvc))
			r.Post("/invoices/{id}/pay", handler.PayInvoiceHandler(billingSvc))

			r.Get("/admin/settings", handler.GetSettingsHandler(settingsSvc))
			r.Put("/admin/settings", handler.UpdateSettingsHandler(settingsSvc))

			r.Get("/admin/campaigns", handler.ListCampaignsHandler(campaignSvc))
			r.Post("/admin/campaigns", handler.CreateCampaignHandler(campaignSvc))
			r.Put("/admin/campaigns/{id}", handler.UpdateCampaignHandler(campaignSvc))
			r.Delete("/admin/campaigns/{id}", handler.DeleteCampaignHandler(campaignSvc))
			r.Post("/admin/campaigns/{id}/enable", handler.EnableCampaignHandler(campaignSvc))
		})
	})

	srv := &http.Server{
		Addr:         cfg.RunAddress,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	go billingWorker.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	slog.Info("starting server", "addr", cfg.RunAddress)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-quit
	slog.Info("shutting down...")

	cancel() // stop worker
	ctxShut, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()

	if err := srv.Shutdown(ctxShut); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}

	producer.Close() // flush buffered events
	producer.WaitClosed()

	slog.Info("server stopped")
}
