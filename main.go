package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bulk-auction/internal/auctionclock"
	"bulk-auction/internal/autobid"
	bidding "bulk-auction/internal/biddingService"
	"bulk-auction/internal/config"
	"bulk-auction/internal/directory"
	"bulk-auction/internal/ledger"
	"bulk-auction/internal/lock"
	model "bulk-auction/internal/models"
	"bulk-auction/internal/notify"
	"bulk-auction/internal/repository"
	"bulk-auction/internal/server"
	"bulk-auction/internal/settlement"
	"bulk-auction/utils"

	"github.com/shopspring/decimal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := utils.SetLevel(cfg.LogLevel); err != nil {
		utils.Warn("Unknown log level, keeping default", map[string]any{"level": cfg.LogLevel})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, closeRepo := openRepository(ctx, cfg)
	defer closeRepo()

	locker, closeLocker := openLocker(cfg)
	defer closeLocker()

	hub := notify.NewHub()
	sinks := notify.Multi{notify.LogDispatcher{}, hub}
	if cfg.NATSURL != "" {
		nc, err := notify.NewNATSDispatcher(cfg.NATSURL)
		if err != nil {
			utils.Fatal("Failed to connect to NATS", map[string]any{"url": cfg.NATSURL, "error": err.Error()})
		}
		defer nc.Close()
		sinks = append(sinks, nc)
	}
	dispatcher := notify.NewRetrying(sinks, cfg.NotifyMaxRetries, cfg.NotifyRetryBase, cfg.NotifyQueueSize)

	dir := directory.NewMemory()
	if cfg.SeedDemoData {
		seedDemoData(dir, time.Now().UTC())
	}

	bidLedger := ledger.New(repo, dir, dir, locker, ledger.WithObserver(autobid.NewAgent(cfg.AutoBidIncrement)))
	clock := auctionclock.New(dir, dir, locker)
	settler := settlement.New(repo, dir, dir, locker, dispatcher)

	biddingSvc := bidding.NewBiddingService(bidding.Deps{
		Repo:       repo,
		Listings:   dir,
		Bidders:    dir,
		Ledger:     bidLedger,
		Clock:      clock,
		Settlement: settler,
		Dispatcher: dispatcher,
	})

	poller := auctionclock.NewPoller(clock, settler, cfg.ClockPollInterval)
	pollerDone := make(chan struct{})
	go func() {
		defer close(pollerDone)
		poller.Run(ctx)
	}()

	router := server.SetupRouter(biddingSvc, hub, server.NewClientRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst))
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		utils.Info("Starting auction server", map[string]any{"addr": srv.Addr, "store": cfg.Store, "locker": cfg.Locker})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Fatal("Failed to start server", map[string]any{"error": err.Error()})
		}
	}()

	<-ctx.Done()
	utils.Info("Shutting down server", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.Error("Server forced to shutdown", map[string]any{"error": err.Error()})
	}
	<-pollerDone
	if err := dispatcher.Close(shutdownCtx); err != nil {
		utils.Warn("Notification queue not drained", map[string]any{"error": err.Error()})
	}

	utils.Info("Server stopped gracefully", nil)
}

// openRepository returns the configured bid store and its cleanup
func openRepository(ctx context.Context, cfg *config.Config) (repository.AuctionDB, func()) {
	if cfg.Store != config.StorePostgres {
		return repository.NewMemoryRepo(), func() {}
	}

	pg, err := repository.NewPostgresRepo(cfg.PostgresURL)
	if err != nil {
		utils.Fatal("Failed to connect to Postgres", map[string]any{"error": err.Error()})
	}
	if err := pg.InitSchema(ctx); err != nil {
		utils.Fatal("Failed to initialise Postgres schema", map[string]any{"error": err.Error()})
	}
	return pg, func() {
		if err := pg.Close(); err != nil {
			utils.Warn("Failed to close Postgres", map[string]any{"error": err.Error()})
		}
	}
}

// openLocker returns the configured per-listing lock and its cleanup
func openLocker(cfg *config.Config) (lock.Locker, func()) {
	if cfg.Locker != config.LockerRedis {
		return lock.NewLocalLocker(cfg.LockWaitTimeout), func() {}
	}

	rl, err := lock.NewRedisLocker(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.LockTTL, cfg.LockWaitTimeout)
	if err != nil {
		utils.Fatal("Failed to connect to Redis", map[string]any{"addr": cfg.RedisAddr, "error": err.Error()})
	}
	return rl, func() {
		if err := rl.Close(); err != nil {
			utils.Warn("Failed to close Redis", map[string]any{"error": err.Error()})
		}
	}
}

// seedDemoData adds sample listings and accounts to the in-memory directory
func seedDemoData(dir *directory.Memory, now time.Time) {
	reserve := decimal.RequireFromString("120.00")
	increment := decimal.RequireFromString("2.50")

	listings := []model.Listing{
		{
			ListingID:          "listing1",
			OwnerID:            "seller1",
			Currency:           "EUR",
			StartingPrice:      decimal.RequireFromString("100.00"),
			ReservePrice:       &reserve,
			BidIncrement:       &increment,
			MinimumOrderVolume: decimal.RequireFromString("5"),
			AvailableVolume:    decimal.RequireFromString("500"),
			Status:             model.ListingStatusScheduled,
			OpensAt:            now,
			ClosesAt:           now.Add(2 * time.Hour),
		},
		{
			ListingID:          "listing2",
			OwnerID:            "seller1",
			Currency:           "EUR",
			StartingPrice:      decimal.RequireFromString("40.00"),
			MinimumOrderVolume: decimal.RequireFromString("1"),
			AvailableVolume:    decimal.RequireFromString("80"),
			AllowBrokerBids:    true,
			Status:             model.ListingStatusScheduled,
			OpensAt:            now.Add(5 * time.Minute),
			ClosesAt:           now.Add(24 * time.Hour),
		},
		{
			ListingID:          "listing3",
			OwnerID:            "seller2",
			Currency:           "USD",
			StartingPrice:      decimal.RequireFromString("15.00"),
			MinimumOrderVolume: decimal.RequireFromString("10"),
			AvailableVolume:    decimal.RequireFromString("1000"),
			Status:             model.ListingStatusDraft,
		},
	}
	for _, l := range listings {
		dir.AddListing(l)
	}

	for _, b := range []model.Bidder{
		{BidderID: "buyer1", AccountClass: model.AccountClassBuyer},
		{BidderID: "buyer2", AccountClass: model.AccountClassBuyer},
		{BidderID: "buyer3", AccountClass: model.AccountClassBuyer},
		{BidderID: "broker1", AccountClass: model.AccountClassBroker},
		{BidderID: "seller1", AccountClass: model.AccountClassBuyer},
	} {
		dir.AddBidder(b)
	}

	dir.SetPaymentReady("seller1", true)
}
