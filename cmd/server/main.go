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
	"github.com/pkg/errors"

	"github.com/kashvijewels/jewel-shop/internal/app"
	"github.com/kashvijewels/jewel-shop/internal/app/handlers"
	"github.com/kashvijewels/jewel-shop/internal/config"
	"github.com/kashvijewels/jewel-shop/internal/gateway"
	"github.com/kashvijewels/jewel-shop/internal/lib/logger"
	"github.com/kashvijewels/jewel-shop/internal/lib/logger/handlers/urllog"
	"github.com/kashvijewels/jewel-shop/internal/mail"
	"github.com/kashvijewels/jewel-shop/internal/security/jwtmiddleware"
	"github.com/kashvijewels/jewel-shop/internal/service"
	"github.com/kashvijewels/jewel-shop/internal/storage"
)

func main() {
	cfg := config.MustLoad()

	log := logger.SetupLogger(cfg.Env)
	log.Info("starting app", slog.String("env", cfg.Env))

	application, err := app.NewApp(log, cfg)
	if err != nil {
		log.Error("failed to initialize app", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to initialize app"))
	}
	defer application.DB.Close()

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	// repositories
	userRepo := storage.NewUserRepository(application.DB)
	productRepo := storage.NewProductRepository(application.DB)
	orderRepo := storage.NewOrderRepository(application.DB)
	activityRepo := storage.NewActivityRepository(application.DB)

	// external collaborators
	mailer := mail.NewClient(cfg.Mail)
	rzp := gateway.NewRazorpay(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret)

	// services
	notifier := service.NewNotifier(log, mailer, userRepo, activityRepo, cfg.Mail.OpsEmail)
	authService := service.NewAuthService(log, userRepo, cfg.JWT.Secret, time.Duration(cfg.JWT.TokenTTL)*time.Minute)
	orderService := service.NewOrderService(log, application.DB, userRepo, productRepo, orderRepo, notifier)
	transitionService := service.NewTransitionService(log, application.DB, orderRepo, notifier)
	queryService := service.NewQueryService(log, orderRepo, activityRepo)
	paymentService := service.NewPaymentService(log, application.DB, orderRepo, rzp, notifier,
		cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, cfg.Razorpay.WebhookSecret)

	router.Post("/api/auth", handlers.AuthHandler(log, authService))
	// the webhook authenticates itself via the envelope HMAC
	router.Post("/webhook/razorpay-webhook", handlers.RazorpayWebhookHandler(log, paymentService))

	router.Group(func(r chi.Router) {
		jwtMW := jwtmiddleware.New(cfg.JWT.Secret)
		r.Use(jwtMW)

		r.Post("/order/create", handlers.CreateOrderHandler(log, orderService))
		r.Get("/order/myorder", handlers.MyOrdersHandler(log, queryService))
		r.Get("/order/get/admin", handlers.AllOrdersHandler(log, queryService))
		r.Get("/order/get/{orderID}", handlers.GetOrderHandler(log, queryService))

		r.Put("/order/admin/update/{orderID}", handlers.UpdateStatusHandler(log, transitionService))
		r.Put("/order/cancel/{orderID}", handlers.CancelOrderHandler(log, transitionService))
		r.Delete("/order/admin/delete/{orderID}", handlers.DeleteOrderHandler(log, transitionService))
		r.Delete("/order/admin/delete-all", handlers.DeleteAllOrdersHandler(log, transitionService))
		r.Get("/order/admin/activity", handlers.ActivityHandler(log, queryService))

		r.Post("/payment/razorpay/order", handlers.CreateGatewayOrderHandler(log, paymentService))
		r.Post("/payment/razorpay/verify", handlers.VerifyPaymentHandler(log, paymentService))
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.Any("error", err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	stopSign := <-stop
	log.Info("received shutdown signal", slog.String("signal", stopSign.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown failed", slog.Any("error", err))
	}
	log.Info("server gracefully stopped")
}
