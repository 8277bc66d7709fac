// Package config reads process configuration from the environment, with a
// .env file picked up in development. Validation beyond "parseable" belongs
// to the deployment, not this core.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Port the HTTP listener binds.
	Port string
	// ServerHost is this instance's public address, as written into
	// directory records so the router can hand it to clients.
	ServerHost string
	// RedisURL locates the shared directory store.
	RedisURL string
	// FleetLabel selects game-server containers; its value on each
	// container is that instance's public host. Empty disables docker
	// discovery.
	FleetLabel string
	// FleetStatic is a comma-separated host list, the dev fallback when no
	// label is configured.
	FleetStatic []string
	// FleetRefresh is how often the router re-reads fleet membership.
	FleetRefresh time.Duration
	// DecksFile points at the card content.
	DecksFile string
	Debug     bool
}

func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:         getenv("PORT", "8080"),
		ServerHost:   getenv("SERVER_HOST", "localhost:8080"),
		RedisURL:     getenv("REDIS_URL", "redis://localhost:6379/0"),
		FleetLabel:   os.Getenv("FLEET_LABEL"),
		FleetStatic:  splitList(os.Getenv("FLEET_STATIC")),
		FleetRefresh: getduration("FLEET_REFRESH", 15*time.Second),
		DecksFile:    getenv("DECKS_FILE", "decks.json"),
		Debug:        getbool("DEBUG"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getbool(key string) bool {
	v, _ := strconv.ParseBool(os.Getenv(key))
	return v
}

func getduration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
