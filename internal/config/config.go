// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// minProdSecretLen is the shortest JWT_SECRET accepted in production.
const minProdSecretLen = 32

// Store drivers accepted in STORE_DRIVER.
const (
	StoreMemory = "memory"
	StoreMySQL  = "mysql"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	StoreDriver string // memory | mysql
	DBUser      string // database username (mysql only)
	DBPass      string // database password (optional)
	DBHost      string
	DBPort      string
	DBName      string

	JWTSecret         string // secret used to sign admin and gateway tokens
	AccessTTLMin      int    // admin access token time-to-live in minutes
	GatewayTTLHours   int    // gateway token time-to-live in hours
	AdminUser         string
	AdminPasswordHash string // bcrypt hash; empty disables admin login

	HoldTTL             time.Duration // lifetime of a pending hold
	SweepInterval       time.Duration // expiry sweep period; must stay below HoldTTL
	BasePriceCents      int64         // price of a bed-night for rooms without their own
	LargeGroupThreshold int           // beds from which the 50% deposit applies
	FlexibleRoomWindow  time.Duration // how early a flexible room opens before check-in
	AdvertisedBeds      int           // bed count shown in marketing copy
	RoomsFile           string        // optional YAML room catalog
	Location            *time.Location

	RabbitMQURL   string
	BookingLogDir string
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	cfg := Config{
		Env:         must("APP_ENV"),
		Port:        must("APP_PORT"),
		StoreDriver: strings.ToLower(envStr("STORE_DRIVER", StoreMemory)),

		JWTSecret:         must("JWT_SECRET"),
		AccessTTLMin:      mustInt("ACCESS_TOKEN_TTL_MIN"),
		GatewayTTLHours:   envInt("GATEWAY_TOKEN_TTL_HOURS", 24*30),
		AdminUser:         envStr("ADMIN_USER", "admin"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),

		HoldTTL:             envDur("HOLD_TTL", 10*time.Minute),
		SweepInterval:       envDur("SWEEP_INTERVAL", 30*time.Second),
		BasePriceCents:      int64(envInt("BASE_PRICE_CENTS", 6000)),
		LargeGroupThreshold: envInt("LARGE_GROUP_THRESHOLD", 15),
		FlexibleRoomWindow:  envDur("FLEXIBLE_ROOM_WINDOW", 48*time.Hour),
		AdvertisedBeds:      envInt("HOSTEL_ADVERTISED_BEDS", 45),
		RoomsFile:           os.Getenv("ROOMS_FILE"),
		Location:            mustLocation(envStr("HOSTEL_TIMEZONE", "America/Sao_Paulo")),

		RabbitMQURL:   envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
		BookingLogDir: envStr("BOOKING_LOG_DIR", "logs"),
	}

	switch cfg.StoreDriver {
	case StoreMemory:
	case StoreMySQL:
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	default:
		log.Fatalf("invalid STORE_DRIVER %q (want memory or mysql)", cfg.StoreDriver)
	}

	if cfg.HoldTTL <= 0 {
		log.Fatalf("HOLD_TTL must be positive, got %s", cfg.HoldTTL)
	}
	if cfg.SweepInterval <= 0 || cfg.SweepInterval >= cfg.HoldTTL {
		log.Printf("config: SWEEP_INTERVAL %s is not below HOLD_TTL %s; using %s", cfg.SweepInterval, cfg.HoldTTL, cfg.HoldTTL/2)
		cfg.SweepInterval = cfg.HoldTTL / 2
	}
	if cfg.BasePriceCents <= 0 {
		log.Fatalf("BASE_PRICE_CENTS must be positive, got %d", cfg.BasePriceCents)
	}
	if err := cfg.checkProd(); err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

// IsProd reports whether the service runs in production.
func (c Config) IsProd() bool {
	return strings.EqualFold(c.Env, "prod") || strings.EqualFold(c.Env, "production")
}

// checkProd rejects settings that are tolerated in development but unsafe in
// production: a short signing secret and a missing or malformed admin hash.
func (c Config) checkProd() error {
	if !c.IsProd() {
		return nil
	}
	var errs []error
	if len(c.JWTSecret) < minProdSecretLen {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes in production", minProdSecretLen))
	}
	if c.AdminPasswordHash == "" {
		errs = append(errs, errors.New("ADMIN_PASSWORD_HASH is required in production"))
	} else if _, err := bcrypt.Cost([]byte(c.AdminPasswordHash)); err != nil {
		errs = append(errs, fmt.Errorf("ADMIN_PASSWORD_HASH is not a bcrypt hash: %w", err))
	}
	return errors.Join(errs...)
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Fatalf("invalid HOSTEL_TIMEZONE %q: %v", name, err)
	}
	return loc
}
