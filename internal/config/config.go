package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds service configuration.
type Config struct {
	DatabaseURL         string
	ServerAddr          string
	RedisAddr           string
	RedisPassword       string
	ConversationTTL     time.Duration
	SessionTTL          time.Duration
	SessionCookieName   string
	SessionCookieSecure bool
	AdminPrincipalIDs   []int64
	SuperAdminID        int64
	AuditSigningKey     string
	AuditRecordDenied   bool
	MaxPhotos           int
	MinPrice            float64
	MaxPrice            float64
	PageSize            int
	FilterSweepInterval time.Duration
}

// Load reads configuration from environment.
func Load() (*Config, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		user := getenv("POSTGRES_USER", "tradepost")
		pass := getenv("POSTGRES_PASSWORD", "tradepost_pass")
		db := getenv("POSTGRES_DB", "tradepost")
		host := getenv("POSTGRES_HOST", "localhost")
		port := getenv("POSTGRES_PORT", "5432")
		sslmode := getenv("DATABASE_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, sslmode)
	}

	adminIDs, err := parseIDList(os.Getenv("ADMIN_PRINCIPAL_IDS"))
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_PRINCIPAL_IDS: %w", err)
	}

	return &Config{
		DatabaseURL:         dsn,
		ServerAddr:          getenv("SERVER_ADDR", "0.0.0.0:8080"),
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		ConversationTTL:     parseDuration(getenv("CONVERSATION_TTL", "48h"), 48*time.Hour),
		SessionTTL:          parseDuration(getenv("SESSION_TTL", "24h"), 24*time.Hour),
		SessionCookieName:   getenv("SESSION_COOKIE_NAME", "tradepost_session"),
		SessionCookieSecure: parseBool(getenv("SESSION_COOKIE_SECURE", "false"), false),
		AdminPrincipalIDs:   adminIDs,
		SuperAdminID:        parseInt64(os.Getenv("SUPER_ADMIN_ID"), 0),
		AuditSigningKey:     os.Getenv("AUDIT_SIGNING_KEY"),
		AuditRecordDenied:   parseBool(getenv("AUDIT_RECORD_DENIED", "false"), false),
		MaxPhotos:           int(parseInt64(getenv("MAX_PHOTOS", "5"), 5)),
		MinPrice:            parseFloat(getenv("MIN_PRICE", "0.01"), 0.01),
		MaxPrice:            parseFloat(getenv("MAX_PRICE", "1000000"), 1000000),
		PageSize:            int(parseInt64(getenv("PAGE_SIZE", "5"), 5)),
		FilterSweepInterval: parseDuration(getenv("FILTER_SWEEP_INTERVAL", "10m"), 10*time.Minute),
	}, nil
}

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func parseDuration(val string, def time.Duration) time.Duration {
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return def
	}
	return d
}

func parseBool(val string, def bool) bool {
	if val == "" {
		return def
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return def
	}
	return b
}

func parseInt64(val string, def int64) int64 {
	if val == "" {
		return def
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func parseFloat(val string, def float64) float64 {
	if val == "" {
		return def
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return def
	}
	return f
}

func parseIDList(val string) ([]int64, error) {
	if strings.TrimSpace(val) == "" {
		return nil, nil
	}
	parts := strings.Split(val, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
