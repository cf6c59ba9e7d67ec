// Package config loads runtime configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every tunable of the simulation. Loop intervals and
// jitter are first-class here so scheduling stays an explicit policy
// rather than constants buried in the workers.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	HTTPPort      string

	NeedTTL          time.Duration
	OfferTTL         time.Duration
	UnsatisfiedAfter time.Duration

	NeedInterval     time.Duration
	OfferInterval    time.Duration
	ProductInterval  time.Duration
	UserInterval     time.Duration
	ProviderInterval time.Duration
	// ProviderRetireInterval controls how often the oldest provider is
	// unregistered (and its live offers withdrawn).
	ProviderRetireInterval time.Duration
	// Staged offers are spaced by a random delay inside this band.
	StageDelayMin time.Duration
	StageDelayMax time.Duration
	Jitter        time.Duration

	MaxUsers      int
	UsersPerCycle int
	// MaxStockPerMerchant caps each merchant's stock set; 0 disables
	// the ceiling.
	MaxStockPerMerchant int

	// Merchants are the candidate provider ids the provider worker
	// registers over time.
	Merchants []string
	// Specializations maps a merchant id to its category allow-list.
	// A merchant absent from the map stocks any category.
	Specializations map[string][]string
	// OfferStrategies is the pool the offer worker draws negotiation
	// strategies from.
	OfferStrategies []string
}

// Load reads configuration from the environment, falling back to the
// simulation defaults.
func Load() *Config {
	return &Config{
		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getint("REDIS_DB", 0),
		HTTPPort:      getenv("APP_PORT", "8080"),

		NeedTTL:          getdur("NEED_TTL", 5*time.Second),
		OfferTTL:         getdur("OFFER_TTL", 10*time.Second),
		UnsatisfiedAfter: getdur("UNSATISFIED_AFTER", 5*time.Second),

		NeedInterval:     getdur("NEED_INTERVAL", 2*time.Second),
		OfferInterval:    getdur("OFFER_INTERVAL", 2*time.Second),
		ProductInterval:  getdur("PRODUCT_INTERVAL", 10*time.Second),
		UserInterval:     getdur("USER_INTERVAL", 30*time.Second),
		ProviderInterval:       getdur("PROVIDER_INTERVAL", 30*time.Second),
		ProviderRetireInterval: getdur("PROVIDER_RETIRE_INTERVAL", time.Hour),
		StageDelayMin:          getdur("STAGE_DELAY_MIN", 500*time.Millisecond),
		StageDelayMax:          getdur("STAGE_DELAY_MAX", 3*time.Second),
		Jitter:                 getdur("LOOP_JITTER", 500*time.Millisecond),

		MaxUsers:            getint("MAX_USERS", 10),
		UsersPerCycle:       getint("USERS_PER_CYCLE", 5),
		MaxStockPerMerchant: getint("MAX_STOCK_PER_MERCHANT", 0),

		Merchants: getlist("MERCHANTS", []string{
			"merchant_1", "merchant_2", "merchant_3", "merchant_4", "merchant_5",
		}),
		Specializations: getspecs("MERCHANT_SPECIALIZATIONS", map[string][]string{
			"merchant_1": {"Travel", "Events"},
			"merchant_2": {"Electronics"},
			"merchant_4": {"Clothing", "Home"},
		}),
		OfferStrategies: getlist("OFFER_STRATEGIES", []string{
			"match_score", "budget_focus", "high_margin",
		}),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getdur(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getlist(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getspecs parses "merchant_1=Travel|Events;merchant_2=Electronics".
func getspecs(key string, fallback map[string][]string) map[string][]string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	specs := make(map[string][]string)
	for _, entry := range strings.Split(v, ";") {
		name, cats, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		var allowed []string
		for _, c := range strings.Split(cats, "|") {
			if c = strings.TrimSpace(c); c != "" {
				allowed = append(allowed, c)
			}
		}
		if name != "" && len(allowed) > 0 {
			specs[name] = allowed
		}
	}
	return specs
}
