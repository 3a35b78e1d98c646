package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/equityfunk/internal/agent"
	"github.com/ajitpratap0/equityfunk/internal/config"
	"github.com/ajitpratap0/equityfunk/internal/llm"
	"github.com/ajitpratap0/equityfunk/internal/market"
	"github.com/ajitpratap0/equityfunk/internal/metrics"
	"github.com/ajitpratap0/equityfunk/internal/news"
	"github.com/ajitpratap0/equityfunk/internal/options"
	"github.com/ajitpratap0/equityfunk/internal/portfolio"
	"github.com/ajitpratap0/equityfunk/internal/risk"
	"github.com/ajitpratap0/equityfunk/internal/scheduler"
	"github.com/ajitpratap0/equityfunk/internal/store"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "trader",
		Short: "Autonomous LLM-driven stock trading agent",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")

	root.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the trading loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "verify-keys",
		Short: "Check which provider credentials are configured",
		RunE: func(cmd *cobra.Command, args []string) error {
			return verifyKeys()
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	// Optional .env for local development; real deployments set env vars
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	config.InitLogger(cfg.App.LogLevel, cfg.App.LogFormat)
	logger := config.NewLogger("trader")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Reasoning model: configured key, then xAI, then OpenAI, then mock
	client := buildChatClient(cfg)

	// Market data and brokerage pair by trading mode
	var marketData market.Data
	var book portfolio.Portfolio
	switch cfg.Trading.Mode {
	case "live":
		alpacaData, err := market.NewAlpacaData(withAlpacaEnv(cfg.Alpaca))
		if err != nil {
			return fmt.Errorf("live mode: %w", err)
		}
		marketData = alpacaData.WithLogger(config.NewLogger("market"))

		alpacaBook, err := portfolio.NewAlpacaPortfolio(withAlpacaEnv(cfg.Alpaca))
		if err != nil {
			return fmt.Errorf("live mode: %w", err)
		}
		book = alpacaBook.WithLogger(config.NewLogger("portfolio"))
	default:
		marketData = market.NewSimData()
		book = portfolio.NewPaperPortfolio(marketData, portfolio.PaperConfig{
			StartCash:      cfg.Trading.InitialCapital,
			MinTradeAmount: cfg.Risk.MinNotional,
			MaxTradeAmount: cfg.Risk.MaxNotional,
		}).WithLogger(config.NewLogger("portfolio"))
	}

	// Persistence degrades to local fallbacks without Supabase creds
	storeClient := store.NewClient(withSupabaseEnv(cfg.Supabase), config.NewLogger("store"))
	journal := store.NewJournal(storeClient)
	notes := store.NewNotes(storeClient)
	theses := store.NewTheses(storeClient)
	remote := store.NewRemoteLog(storeClient)

	var searcher news.Searcher
	if cfg.Trading.Mode == "live" {
		searcher = news.NewDuckDuckGo().WithLogger(config.NewLogger("news"))
	} else {
		searcher = news.NewStaticSearcher()
	}

	var sweeps options.SweepsProvider
	if cfg.Sweeps.URL != "" {
		sweeps = options.NewRESTProvider(cfg.Sweeps).WithLogger(config.NewLogger("sweeps"))
	} else {
		sweeps = options.NewSimProvider()
	}

	limits := risk.Limits{
		MinNotional:    cfg.Risk.MinNotional,
		MaxNotional:    cfg.Risk.MaxNotional,
		ExposureCapPct: cfg.Risk.ExposureCapPct,
		Cooldown:       cfg.Risk.GetCooldown(),
	}
	engine := risk.NewEngine(book, marketData, limits).WithLogger(config.NewLogger("risk"))

	dispatcher := agent.NewDispatcher(agent.DispatcherDeps{
		Market:    marketData,
		Portfolio: book,
		Risk:      engine,
		Journal:   journal,
		Notes:     notes,
		Theses:    theses,
		News:      searcher,
		Sweeps:    sweeps,
		Remote:    remote,
		Watchlist: cfg.Trading.Watchlist,
		MaxOrders: cfg.Trading.MaxOrdersPerCycle,
	}).WithLogger(config.NewLogger("agent"))

	orchestrator := agent.NewOrchestrator(client, dispatcher, cfg.Trading).
		WithLogger(config.NewLogger("agent"))

	sched := scheduler.New(scheduler.Deps{
		Market:    marketData,
		Portfolio: book,
		Journal:   journal,
		Notes:     notes,
		Theses:    theses,
		Remote:    remote,
		Runner:    orchestrator,
		Limits:    limits,
		Trading:   cfg.Trading,
	}).WithLogger(config.NewLogger("scheduler"))

	logger.Info().
		Str("mode", cfg.Trading.Mode).
		Str("environment", cfg.App.Environment).
		Msg("Starting trading agent")

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Monitoring.EnableMetrics {
		g.Go(func() error {
			return metrics.Serve(gctx, cfg.Monitoring.MetricsPort, config.NewLogger("metrics"))
		})
	}
	g.Go(func() error {
		return sched.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("Trading agent exited with error")
		return err
	}
	logger.Info().Msg("Trading agent stopped")
	return nil
}

// buildChatClient picks the reasoning-model provider from available keys
func buildChatClient(cfg *config.Config) llm.ChatClient {
	endpoint := cfg.LLM.Endpoint
	apiKey := cfg.LLM.APIKey
	if apiKey == "" {
		if key := os.Getenv("XAI_API_KEY"); key != "" {
			apiKey = key
		} else if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			apiKey = key
			endpoint = "https://api.openai.com/v1/chat/completions"
		}
	}
	if apiKey == "" {
		return llm.NewMockClient()
	}
	return llm.NewClient(llm.ClientConfig{
		Endpoint:    endpoint,
		APIKey:      apiKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.GetTimeout(),
	})
}

// withAlpacaEnv fills brokerage credentials from the environment when
// the config file leaves them blank
func withAlpacaEnv(cfg config.AlpacaConfig) config.AlpacaConfig {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("ALPACA_API_KEY")
	}
	if cfg.SecretKey == "" {
		cfg.SecretKey = os.Getenv("ALPACA_SECRET_KEY")
	}
	return cfg
}

// withSupabaseEnv fills store credentials from the environment when the
// config file leaves them blank
func withSupabaseEnv(cfg config.SupabaseConfig) config.SupabaseConfig {
	if cfg.URL == "" {
		cfg.URL = os.Getenv("SUPABASE_URL")
	}
	if cfg.Key == "" {
		cfg.Key = os.Getenv("SUPABASE_KEY")
	}
	return cfg
}

func verifyKeys() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	check := func(name, value string) {
		status := "MISSING"
		if value != "" {
			status = "configured"
		}
		fmt.Printf("%-20s %s\n", name, status)
	}

	llmKey := cfg.LLM.APIKey
	if llmKey == "" {
		llmKey = os.Getenv("XAI_API_KEY")
	}
	if llmKey == "" {
		llmKey = os.Getenv("OPENAI_API_KEY")
	}
	alpaca := withAlpacaEnv(cfg.Alpaca)
	supabase := withSupabaseEnv(cfg.Supabase)

	check("LLM API key", llmKey)
	check("Alpaca API key", alpaca.APIKey)
	check("Alpaca secret", alpaca.SecretKey)
	check("Supabase URL", supabase.URL)
	check("Supabase key", supabase.Key)
	check("Sweeps API URL", cfg.Sweeps.URL)
	return nil
}
