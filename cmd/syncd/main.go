// Command syncd runs the receipt-management sync daemon: it keeps the
// local state containers in step with the hosted backend over the
// realtime channel and serves the JSON API the clients talk to.
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

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/receiptwise/receiptwise/internal/backend"
	"github.com/receiptwise/receiptwise/internal/category"
	categoryStore "github.com/receiptwise/receiptwise/internal/category/store"
	"github.com/receiptwise/receiptwise/internal/claim"
	claimStore "github.com/receiptwise/receiptwise/internal/claim/store"
	"github.com/receiptwise/receiptwise/internal/config"
	"github.com/receiptwise/receiptwise/internal/currency"
	receiptwiseHttp "github.com/receiptwise/receiptwise/internal/http"
	categoryHandler "github.com/receiptwise/receiptwise/internal/http/category"
	claimHandler "github.com/receiptwise/receiptwise/internal/http/claim"
	"github.com/receiptwise/receiptwise/internal/http/currencyrates"
	notificationHandler "github.com/receiptwise/receiptwise/internal/http/notification"
	receiptHandler "github.com/receiptwise/receiptwise/internal/http/receipt"
	"github.com/receiptwise/receiptwise/internal/localstore"
	"github.com/receiptwise/receiptwise/internal/notification"
	notificationStore "github.com/receiptwise/receiptwise/internal/notification/store"
	"github.com/receiptwise/receiptwise/internal/prefs"
	"github.com/receiptwise/receiptwise/internal/realtime"
	"github.com/receiptwise/receiptwise/internal/receipt"
	receiptStore "github.com/receiptwise/receiptwise/internal/receipt/store"
	"github.com/receiptwise/receiptwise/internal/subscription"
	subscriptionStore "github.com/receiptwise/receiptwise/internal/subscription/store"
	"github.com/receiptwise/receiptwise/internal/vision"
)

func main() {
	// A missing .env is fine, real deployments configure the environment
	// directly.
	_ = godotenv.Load()

	if err := run(); err != nil {
		slog.Error("syncd failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cache, err := localstore.Open(cfg.Local.CachePath)
	if err != nil {
		return fmt.Errorf("opening local cache: %w", err)
	}
	defer cache.Close()

	client := backend.New(cfg.Backend.URL, cfg.Backend.AnonKey, cfg.Backend.Timeout)

	session := restoreSession(ctx, client, cache)

	var extractor receipt.Extractor

	if cfg.Vision.APIKey != "" {
		gemini, err := vision.NewGemini(ctx, cfg.Vision.APIKey, cfg.Vision.Model)
		if err != nil {
			return fmt.Errorf("starting vision extractor: %w", err)
		}
		defer gemini.Close()

		extractor = gemini
		slog.Info("local vision extraction enabled", "model", cfg.Vision.Model)
	}

	preferences, err := prefs.NewService(cache, slog.Default())
	if err != nil {
		return fmt.Errorf("loading preferences: %w", err)
	}

	var (
		dispatcher          = notification.NewDispatcher(&logNotifier{}, preferences, slog.Default())
		notificationService = notification.NewService(notificationStore.New(client), dispatcher, slog.Default())
		subscriptionService = subscription.NewService(subscriptionStore.New(client), slog.Default())
		receipts            = receiptStore.New(client, cfg.Storage.ReceiptBucket, cfg.Storage.MaxUploadBytes)
		receiptService      = receipt.NewService(receipts, receipts, subscriptionService, extractor, slog.Default())
		claimService        = claim.NewService(claimStore.New(client), slog.Default())
		categoryService     = category.NewService(categoryStore.New(client), slog.Default())
		currencyService     = currency.NewService(cache, cfg.Rates.ProviderURL, cfg.Rates.MaxAge, slog.Default())
	)

	bridge := realtime.NewBridge(cfg.RealtimeURL(), cfg.Backend.AnonKey, client.AccessToken, slog.Default(),
		func(s realtime.State) {
			slog.Info("realtime state changed", "state", s)
		})
	defer bridge.Close()

	if session != nil {
		userID, err := uuid.Parse(session.UserID)
		if err != nil {
			return fmt.Errorf("parsing session user id: %w", err)
		}

		if err := bridge.Connect(ctx); err != nil {
			slog.Warn("realtime connect failed, retrying in background", "error", err)
		}

		if _, err := notificationService.Watch(bridge, userID); err != nil {
			return fmt.Errorf("watching notifications: %w", err)
		}

		if _, err := receiptService.Watch(bridge, userID); err != nil {
			return fmt.Errorf("watching receipts: %w", err)
		}

		if err := subscriptionService.Load(ctx); err != nil {
			slog.Warn("loading subscription failed", "error", err)
		}
	} else {
		slog.Info("no persisted session, realtime sync disabled until sign-in")
	}

	router := receiptwiseHttp.New(
		cfg.AllowedOrigins(),
		notificationHandler.NewHandler(notificationService),
		receiptHandler.NewHandler(receiptService, cfg.Storage.MaxUploadBytes),
		claimHandler.NewHandler(claimService),
		categoryHandler.NewHandler(categoryService),
		currencyrates.NewHandler(currencyService),
	)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)

	go func() {
		slog.Info("starting server", "addr", server.Addr, "app", cfg.App.Name)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}

// restoreSession installs the persisted session on the client, refreshing
// it first when the access token has expired.
func restoreSession(ctx context.Context, client *backend.Client, cache *localstore.Store) *backend.Session {
	var session backend.Session

	if err := cache.GetSession(&session); err != nil {
		if !errors.Is(err, localstore.ErrNotFound) {
			slog.Warn("reading persisted session failed", "error", err)
		}

		return nil
	}

	client.SetSession(&session)

	if !session.Expired() {
		return &session
	}

	refreshed, err := client.RefreshSession(ctx)
	if err != nil {
		slog.Warn("refreshing persisted session failed", "error", err)
		return nil
	}

	if err := cache.PutSession(refreshed); err != nil {
		slog.Warn("persisting refreshed session failed", "error", err)
	}

	return refreshed
}

// logNotifier stands in for a platform notifier in the headless daemon.
type logNotifier struct{}

func (logNotifier) Show(n notification.LocalNotification) error {
	slog.Info("notification",
		"channel", n.Channel, "title", n.Title, "body", n.Body,
		"id", n.Payload["notification_id"])
	return nil
}
