package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the signal engine.
type Config struct {
	Port string

	// Binance
	BinanceTestnet bool
	Instruments    []string
	UseMockFeed    bool

	// Strategy
	EMAPeriod      int
	ATRPeriod      int
	FibWindow      int
	TPATRMult      float64
	SLATRMult      float64
	ScoreThreshold float64

	// ATR percentile tracker
	ATRMaxHistory int
	ATRMinSamples int

	// Portfolio / filter whitelist
	PortfolioPath string

	// Ingestion
	BufferCapacity        int
	ReplayCheckpointEvery int
	InitialHistoryHours   int
	StartupDeadline       time.Duration
	PortTimeout           time.Duration

	// Database
	DBPath string

	// Auth
	JWTSecret string

	// Localization
	Language string // "en" or "zh"
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	// Database path: prefer DB_PATH, then DATABASE_PATH for backward compatibility.
	dbPath := getEnv("DB_PATH", "")
	if dbPath == "" {
		dbPath = getEnv("DATABASE_PATH", "./data/trading.db")
	}

	return &Config{
		Port:           getEnv("PORT", "8080"),
		BinanceTestnet: getEnv("BINANCE_TESTNET", "false") == "true",
		Instruments:    splitAndTrim(getEnv("INSTRUMENTS", "BTCUSDT,ETHUSDT,SOLUSDT,XRPUSDT")),
		UseMockFeed:    getEnv("USE_MOCK_FEED", "false") == "true",

		EMAPeriod:      getEnvInt("STRATEGY_EMA_PERIOD", 50),
		ATRPeriod:      getEnvInt("STRATEGY_ATR_PERIOD", 9),
		FibWindow:      getEnvInt("STRATEGY_FIB_WINDOW", 9),
		TPATRMult:      getEnvFloat("STRATEGY_TP_ATR_MULT", 2.0),
		SLATRMult:      getEnvFloat("STRATEGY_SL_ATR_MULT", 8.84),
		ScoreThreshold: getEnvFloat("STRATEGY_SCORE_THRESHOLD", 1.0),

		ATRMaxHistory: getEnvInt("ATR_TRACKER_MAX_HISTORY", 10_000),
		ATRMinSamples: getEnvInt("ATR_TRACKER_MIN_SAMPLES", 200),

		PortfolioPath: getEnv("PORTFOLIO_PATH", "./trading.yaml"),

		BufferCapacity:        getEnvInt("INGESTION_BUFFER_CAPACITY", 10_000),
		ReplayCheckpointEvery: getEnvInt("INGESTION_REPLAY_CHECKPOINT_EVERY", 100),
		InitialHistoryHours:   getEnvInt("INGESTION_INITIAL_HISTORY_HOURS", 48),
		StartupDeadline:       getEnvDuration("INGESTION_STARTUP_DEADLINE", 2*time.Minute),
		PortTimeout:           getEnvDuration("INGESTION_PORT_TIMEOUT", 5*time.Second),

		DBPath:    dbPath,
		JWTSecret: getEnv("JWT_SECRET", "dev-secret"),
		Language:  getEnv("LANGUAGE", "en"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitAndTrim(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
