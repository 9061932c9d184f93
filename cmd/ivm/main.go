package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	sdkmath "cosmossdk.io/math"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/impactvault/ivm/internal/adapter"
	"github.com/impactvault/ivm/internal/config"
	"github.com/impactvault/ivm/internal/donation"
	"github.com/impactvault/ivm/internal/keeper"
	"github.com/impactvault/ivm/internal/logger"
	"github.com/impactvault/ivm/internal/policy"
	"github.com/impactvault/ivm/internal/router"
	"github.com/impactvault/ivm/internal/state"
	"github.com/impactvault/ivm/internal/types"
	"github.com/impactvault/ivm/internal/venue"
	"github.com/impactvault/ivm/internal/web"
)

// main is the entry point for the IVM system.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("IVM Core Logic Starting...")

	// Initialize Database Connection (donation and harvest history)
	persist := os.Getenv("DB_HOST") != ""
	if persist {
		dbCfg := state.DBConfig{
			Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
			User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
			DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
		}
		if err := state.InitDB(dbCfg); err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize database")
		}
		defer state.CloseDB()
		if err := state.EnsureSchema(); err != nil {
			log.Fatal().Err(err).Msg("Failed to ensure database schema")
		}
	} else {
		log.Warn().Msg("DB_HOST not set. Donation and harvest history will not be persisted.")
	}

	// --- 2. Collaborator Wiring ---
	donationBook := donation.NewLedger()
	var sink venue.DonationSink = donationBook
	if persist {
		sink = donation.NewTee(donationBook, state.NewDonationStore())
	}

	boosts := policy.NewBoostRegistry()
	events := types.NewRecorder()

	// --- 3. Adapter Construction (one per configured venue) ---
	adapters := make([]*adapter.VenueAdapter, 0, len(config.Venues))
	weights := make(map[string]uint32, len(config.Venues))
	clients := make([]*venue.LiveClient, 0, len(config.Venues))

	for _, endpoint := range config.Venues {
		client, err := venue.NewLiveClient(endpoint.Name, endpoint.RPC, endpoint.GRPC, config.Account)
		if err != nil {
			log.Fatal().Err(err).Str("venue", endpoint.Name).Msg("Failed to initialize venue client")
		}
		clients = append(clients, client)

		// An adapter must be allowed to hold at least its own routing weight.
		riskParams := types.DefaultRiskParameters()
		if endpoint.WeightBps > riskParams.MaxAssetConcentrationBps {
			riskParams.MaxAssetConcentrationBps = endpoint.WeightBps
		}

		adapterCfg := adapter.Config{
			AdapterConfig: types.AdapterConfig{
				AdapterID:        endpoint.Name,
				SettlementAsset:  config.SettlementAsset,
				BufferBps:        config.BufferBps,
				DonationBps:      config.DonationBps,
				MinDonation:      sdkmath.NewInt(config.MinDonation),
				HarvestCooldown:  config.HarvestCooldown,
				WithdrawCooldown: config.WithdrawCooldown,
				Risk:             riskParams,
			},
			Client:  guardedClient(endpoint, client),
			Claimer: client,
			Swapper: venue.GuardSwap(endpoint.Name+"_swap", client),
			Sink:    sink,
			Tiers:   venue.LoggingTierIssuer{},
			Boosts:  boosts,
			Events:  events,
			Account: config.Account,
		}

		engine, err := adapter.New(adapterCfg)
		if err != nil {
			log.Fatal().Err(err).Str("venue", endpoint.Name).Msg("Failed to initialize venue adapter")
		}
		adapters = append(adapters, engine)
		weights[endpoint.Name] = endpoint.WeightBps
	}
	defer func() {
		for _, client := range clients {
			client.Close()
		}
	}()

	portfolio, err := router.New(adapters, weights)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize portfolio router")
	}
	log.Info().Int("adapters", len(adapters)).Msg("Portfolio router initialized")

	// --- 4. Start Web Server ---
	webPort := os.Getenv("WEB_PORT")
	if webPort == "" {
		webPort = "8080"
	}

	webServer := web.NewWebServer(webPort, portfolio, donationBook, events, persist)
	go func() {
		log.Info().Str("port", webPort).Str("url", "http://localhost:"+webPort).Msg("Starting IVM web dashboard")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// --- 5. Start Keeper Loop ---
	log.Info().Str("interval", config.HarvestInterval.String()).Msg("Starting IVM keeper loop")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	keeper.New(portfolio, persist).RunLoop(ctx, config.HarvestInterval)
	log.Info().Msg("IVM shut down cleanly")
}

// guardedClient wraps the live client behind a circuit breaker, exposing the
// borrowing surface only for venues configured to support it.
func guardedClient(endpoint config.VenueEndpoint, client *venue.LiveClient) venue.VenueClient {
	if endpoint.Borrowing {
		return venue.GuardBorrowing(endpoint.Name, client)
	}
	return venue.Guard(endpoint.Name, client)
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}
