package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"leaguebet/internal/auth"
	"leaguebet/internal/bot"
	"leaguebet/internal/config"
	"leaguebet/internal/engine"
	"leaguebet/internal/handlers"
	"leaguebet/internal/service"
	"leaguebet/internal/storage"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Initializing database at: %s", cfg.Database.Path)
	if err := storage.InitDB(cfg.Database.Path); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer storage.CloseDB()

	// Make sure the season pool exists before anything can bet against it.
	ensurePool(cfg)

	settlement := service.NewSettlementService(cfg.Pool.PoolID)

	// Notifications and the query bot are optional; without a token the
	// engine runs headless.
	if cfg.Telegram.BotToken != "" {
		notifier, err := service.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChannelID)
		if err != nil {
			log.Printf("Notifier disabled: %v", err)
		} else {
			settlement.SetNotifier(notifier)
		}
		go bot.StartBot(cfg.Telegram.BotToken, cfg.Pool.PoolID)
	}

	worker := service.NewSettlementWorker(settlement, cfg.Settlement.WorkerInterval)
	worker.Start()
	defer worker.Stop()

	h := handlers.NewHandler(cfg.Pool.PoolID, cfg.Pool.Operator)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", auth.HeaderAddress, auth.HeaderTimestamp, auth.HeaderSignature},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(auth.Middleware)

	r.Get("/api/ping", h.HandlePing)
	r.Get("/api/matches", h.HandleListMatches)
	r.Post("/api/matches", h.HandleCreateMatch)
	r.Post("/api/matches/{matchID}/seed", h.HandleSeedMatch)
	r.Post("/api/matches/{matchID}/lock", h.HandleLockOdds)
	r.Post("/api/betslips", h.HandlePlaceBetslip)
	r.Get("/api/betslips", h.HandleListBetslips)
	r.Get("/api/betslips/{slipID}", h.HandleGetBetslip)
	r.Post("/api/betslips/preview", h.HandlePreviewBetslip)
	r.Get("/api/pool", h.HandleGetPool)
	r.Post("/api/pool/deposit", h.HandleDeposit)
	r.Post("/api/pool/withdraw", h.HandleWithdraw)
	r.Get("/api/pool/position", h.HandlePosition)
	r.Get("/api/pool/apy", h.HandleAPY)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s (pool %s)", cfg.Server.Port, cfg.Pool.PoolID)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}

// ensurePool creates the configured pool if it does not exist yet.
func ensurePool(cfg *config.Config) {
	pool, err := storage.GetPool(cfg.Pool.PoolID)
	if err != nil {
		log.Fatalf("Failed to check pool: %v", err)
	}
	if pool != nil {
		return
	}

	seed := cfg.Pool.MinLiquidity
	err = storage.CreatePool(context.Background(), engine.Pool{
		PoolID:         cfg.Pool.PoolID,
		TotalLiquidity: seed,
		IsActive:       true,
		MinLiquidity:   cfg.Pool.MinLiquidity,
	}, cfg.Pool.Operator)
	if err != nil {
		log.Fatalf("Failed to create pool %s: %v", cfg.Pool.PoolID, err)
	}
	log.Printf("Created pool %s with seed liquidity %d", cfg.Pool.PoolID, seed)
}
