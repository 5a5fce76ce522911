package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tujifund/marketplace-api/internal/config"
	"github.com/tujifund/marketplace-api/internal/handler"
	"github.com/tujifund/marketplace-api/internal/logging"
	"github.com/tujifund/marketplace-api/internal/middleware"
	"github.com/tujifund/marketplace-api/internal/repository"
	"github.com/tujifund/marketplace-api/internal/service"
	"github.com/tujifund/marketplace-api/internal/service/checkout"
)

//go:embed openapi.yaml
var openapiSpec []byte

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("tujifund-market-api", cfg.LogLevel, cfg.AppEnv)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	})
	cancel()
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	users := repository.NewUserRepository(db)
	wallets := repository.NewWalletRepository(db)
	listings := repository.NewListingRepository(db)
	carts := repository.NewCartRepository(db)
	transactions := repository.NewTransactionRepository(db)
	orderItems := repository.NewOrderItemRepository(db)
	idempotency := repository.NewIdempotencyRepository(db)

	walletSvc := service.NewWalletService(wallets, transactions, db)
	listingSvc := service.NewListingService(listings, db)
	cartSvc := service.NewCartService(carts, listings, users)
	checkoutSvc := checkout.NewService(wallets, listings, carts, transactions, orderItems, db)

	jwtExpiry := time.Duration(cfg.JWTExpiryH) * time.Hour
	authH := handler.NewAuthHandler(users, walletSvc, cfg.JWTSecret, jwtExpiry)
	walletH := handler.NewWalletHandler(walletSvc)
	listingH := handler.NewListingHandler(listingSvc)
	cartH := handler.NewCartHandler(cartSvc, checkoutSvc)
	orderH := handler.NewOrderHandler(orderItems)
	healthH := handler.NewHealthHandler(db)

	authMW := middleware.Auth(cfg.JWTSecret)
	idemMW := middleware.Idempotency(idempotency)

	public := func(h http.HandlerFunc) http.Handler {
		return middleware.Recovery(middleware.Tracing(middleware.Logging(h)))
	}
	protected := func(h http.HandlerFunc) http.Handler {
		return middleware.Recovery(middleware.Tracing(authMW(middleware.Logging(h))))
	}
	// Financial mutations additionally require an Idempotency-Key so an
	// accidental client retry replays the stored response instead of moving
	// money twice.
	financial := func(h http.HandlerFunc) http.Handler {
		return middleware.Recovery(middleware.Tracing(authMW(middleware.Logging(idemMW(h)))))
	}

	mux := http.NewServeMux()

	mux.Handle("GET /health", public(healthH.Check))
	mux.Handle("GET /docs", public(handler.ServeDocs()))
	mux.Handle("GET /docs/openapi.yaml", public(handler.ServeSpec(openapiSpec)))

	mux.Handle("POST /api/v1/auth/register", public(authH.Register))
	mux.Handle("POST /api/v1/auth/login", public(authH.Login))

	mux.Handle("GET /api/v1/wallet", protected(walletH.Get))
	mux.Handle("GET /api/v1/wallet/transactions", protected(walletH.ListTransactions))
	mux.Handle("POST /api/v1/wallet/deposit", financial(walletH.Deposit))
	mux.Handle("POST /api/v1/wallet/withdraw", financial(walletH.Withdraw))

	mux.Handle("GET /api/v1/listings", public(listingH.List))
	mux.Handle("GET /api/v1/listings/{id}", public(listingH.Get))
	mux.Handle("POST /api/v1/listings", protected(listingH.Create))
	mux.Handle("PATCH /api/v1/listings/{id}", protected(listingH.Update))

	mux.Handle("GET /api/v1/cart", protected(cartH.Get))
	mux.Handle("POST /api/v1/cart", protected(cartH.Add))
	mux.Handle("PUT /api/v1/cart", protected(cartH.SetQuantity))
	mux.Handle("DELETE /api/v1/cart/{entryID}", protected(cartH.Remove))
	mux.Handle("POST /api/v1/cart/checkout", financial(cartH.Checkout))

	mux.Handle("GET /api/v1/orders", protected(orderH.List))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
