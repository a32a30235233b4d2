package cliparse

import (
	"errors"
	"flag"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port            int
	DatabaseURL     string
	DatabaseType    string
	JWTSecret       string
	IPHashSalt      string
	RedisURL        string
	PaywallSecret   string
	Billing         string
	SessionTimeout  time.Duration
	DiagnosticDebug bool
}

// ParseFlags validates flags and fills the rest from the environment
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	var debug string

	fs := flag.NewFlagSet("testero-api", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.StringVar(&cfg.RedisURL, "redis", "", "Redis URL for rate limiting (optional)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", "", "Supabase JWT secret (prefer env)")
	fs.StringVar(&cfg.IPHashSalt, "ip-salt", "", "IP hash salt (prefer env)")
	fs.StringVar(&cfg.PaywallSecret, "paywall-secret", "", "Checkout grace cookie secret (prefer env)")

	// Behavior
	fs.StringVar(&cfg.Billing, "billing", "", "Billing enforcement (off or active_required)")
	fs.DurationVar(&cfg.SessionTimeout, "session-timeout", 0, "Diagnostic session lifetime")
	fs.StringVar(&debug, "debug-blueprint", "", "Log blueprint distribution (true/false)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3318 // default
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "postgres"
		}
	}
	if cfg.DatabaseType != "postgres" && cfg.DatabaseType != "sqlite" {
		return Config{}, errors.New("DATABASE_TYPE must be postgres or sqlite")
	}

	if cfg.RedisURL == "" {
		cfg.RedisURL = os.Getenv("REDIS_URL")
	}

	if cfg.Billing == "" {
		cfg.Billing = os.Getenv("BILLING_ENFORCEMENT")
		if cfg.Billing == "" {
			cfg.Billing = "off"
		}
	}
	if cfg.Billing != "off" && cfg.Billing != "active_required" {
		return Config{}, errors.New("BILLING_ENFORCEMENT must be off or active_required")
	}

	if cfg.SessionTimeout == 0 {
		if s := os.Getenv("DIAGNOSTIC_SESSION_TIMEOUT"); s != "" {
			d, err := time.ParseDuration(s)
			if err != nil || d <= 0 {
				return Config{}, errors.New("invalid DIAGNOSTIC_SESSION_TIMEOUT env variable")
			}
			cfg.SessionTimeout = d
		} else {
			cfg.SessionTimeout = 30 * time.Minute
		}
	}

	if debug == "" {
		debug = os.Getenv("DIAGNOSTIC_BLUEPRINT_DEBUG")
	}
	cfg.DiagnosticDebug = debug == "true" || debug == "1"

	if cfg.PaywallSecret == "" {
		cfg.PaywallSecret = os.Getenv("PAYWALL_SIGNING_SECRET")
	}

	// Secrets - MUST be provided
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = os.Getenv("SUPABASE_JWT_SECRET")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("SUPABASE_JWT_SECRET required")
	}

	if cfg.IPHashSalt == "" {
		cfg.IPHashSalt = os.Getenv("IP_HASH_SALT")
	}
	if cfg.IPHashSalt == "" {
		return Config{}, errors.New("IP_HASH_SALT required")
	}

	return cfg, nil
}
