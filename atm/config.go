package atm

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"golang.org/x/exp/slog"
)

// Config is a configuration for the atm application
type Config struct {
	HTTPAddr string
	// RepoBackend is "pg" or "mem"; mem requires AllowMemBackend.
	RepoBackend     string
	AllowMemBackend bool
	DBDSN           string
	// PANHashKey keys the HMAC under which PANs are stored in Postgres.
	PANHashKey string
	// CardBIN is the 6/8/9-digit prefix of issued PANs.
	CardBIN string
	// CardProduct selects the validity period of issued cards (credit=3, debit=5).
	CardProduct  string
	ProductYears map[string]int
	// ExpiryTZ is an IANA timezone name in which card expiry months end.
	ExpiryTZ string
	PINCost  int
	LogLevel string
}

func DefaultConfig() *Config {
	return &Config{
		HTTPAddr:    "localhost:9090",
		RepoBackend: "pg",
		PANHashKey:  "dev-secret-pepper",
		CardBIN:     "421234",
		CardProduct: "debit",
		ExpiryTZ:    "UTC",
		LogLevel:    "info",
	}
}

// LoadConfig reads an optional .env file and overlays the environment on
// DefaultConfig.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, relying on environment")
	}

	cfg := DefaultConfig()
	cfg.HTTPAddr = getenv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.RepoBackend = getenv("REPO_BACKEND", cfg.RepoBackend)
	cfg.AllowMemBackend = getenv("ALLOW_MEM_BACKEND", "false") == "true"
	cfg.DBDSN = getenv("DB_DSN", cfg.DBDSN)
	cfg.PANHashKey = getenv("PAN_HASH_KEY", cfg.PANHashKey)
	cfg.CardBIN = getenv("CARD_BIN", cfg.CardBIN)
	cfg.CardProduct = getenv("CARD_PRODUCT", cfg.CardProduct)
	cfg.ExpiryTZ = getenv("EXPIRY_TZ", cfg.ExpiryTZ)
	cfg.LogLevel = getenv("LOG_LEVEL", cfg.LogLevel)
	if v, err := strconv.Atoi(getenv("PIN_COST", "")); err == nil {
		cfg.PINCost = v
	}
	return cfg
}

// Level maps LogLevel onto a slog level, info when unknown.
func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
